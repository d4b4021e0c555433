// Command idlctl is the operator CLI for the IDL Protocol. Every mutating
// operation of the program is exposed as a one-shot subcommand that signs
// with the local wallet and waits for confirmation; read commands print
// snapshots as JSON.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"github.com/idlprotocol/idlbot/internal/config"
)

var (
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *slog.Logger
)

// offlineAnnotation marks commands that run without a config file or any
// dialed backend (key handling, PDA derivation).
const offlineAnnotation = "offline"

// isOffline checks the command and its parents, so subcommands of an offline
// group inherit the annotation.
func isOffline(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[offlineAnnotation] != "" {
			return true
		}
	}
	return false
}

var rootCmd = &cobra.Command{
	Use:   "idlctl",
	Short: "Operator CLI for the IDL Protocol",
	Long: `idlctl wraps the IDL Protocol program operations as one-shot commands.

Reads (state, markets, bets, quote) print JSON snapshots. Submissions
(stake, bet, resolve, ...) sign with the wallet from the configuration,
submit, wait for confirmation, and print the transaction signature.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		}))
		slog.SetDefault(logger)

		// Key handling and PDA derivation work without a config file.
		if isOffline(cmd) {
			return nil
		}

		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config %s: %w", configPath, err)
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.toml", "path to configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging on stderr")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// printJSON writes v to stdout with indentation, the output format of every
// read command.
func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

// printSignature reports a confirmed submission.
func printSignature(sig solanago.Signature) {
	fmt.Printf("confirmed: %s\n", sig)
}

func parsePubkey(what, s string) (solanago.PublicKey, error) {
	pk, err := solanago.PublicKeyFromBase58(s)
	if err != nil {
		return solanago.PublicKey{}, fmt.Errorf("invalid %s address %q: %w", what, s, err)
	}
	return pk, nil
}
