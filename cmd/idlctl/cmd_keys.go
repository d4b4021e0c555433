package main

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/idlprotocol/idlbot/internal/crypto"
	"github.com/idlprotocol/idlbot/internal/idlprotocol"
)

var encryptKeyCmd = &cobra.Command{
	Use:   "encrypt-key",
	Short: "Encrypt a private key for use as encrypted_key_path",
	Long: `Encrypt-key wraps a base58 private key in a password-encrypted JSON blob
(PBKDF2 + AES-256-GCM). Pass the key with --key or pipe it on stdin; the blob
goes to --out and the wallet section's encrypted_key_path can point at it.`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{offlineAnnotation: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		key, _ := cmd.Flags().GetString("key")
		if key == "" {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("read key from stdin: %w", err)
			}
			key = strings.TrimSpace(line)
		}
		if key == "" {
			return fmt.Errorf("no private key given, use --key or pipe it on stdin")
		}
		password, _ := cmd.Flags().GetString("password")
		out, _ := cmd.Flags().GetString("out")

		blob, err := crypto.EncryptKey(key, password)
		if err != nil {
			return err
		}
		if err := os.WriteFile(out, blob, 0o600); err != nil {
			return fmt.Errorf("write %s: %w", out, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
		return nil
	},
}

var deriveCmd = &cobra.Command{
	Use:         "derive",
	Short:       "Derive program addresses and discriminators offline",
	Annotations: map[string]string{offlineAnnotation: "true"},
}

var deriveStateCmd = &cobra.Command{
	Use:   "state",
	Short: "Protocol state PDA",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		address, bump, err := idlprotocol.DeriveStateAddress()
		if err != nil {
			return err
		}
		return printDerived(address.String(), bump)
	},
}

var deriveStakerCmd = &cobra.Command{
	Use:   "staker <user>",
	Short: "Staker account PDA for a wallet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := parsePubkey("user", args[0])
		if err != nil {
			return err
		}
		address, bump, err := idlprotocol.DeriveStakerAddress(user)
		if err != nil {
			return err
		}
		return printDerived(address.String(), bump)
	},
}

var deriveVeCmd = &cobra.Command{
	Use:   "ve <user>",
	Short: "Vote-escrow position PDA for a wallet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := parsePubkey("user", args[0])
		if err != nil {
			return err
		}
		address, bump, err := idlprotocol.DeriveVePositionAddress(user)
		if err != nil {
			return err
		}
		return printDerived(address.String(), bump)
	},
}

var deriveMarketCmd = &cobra.Command{
	Use:   "market <protocol-id> <resolution>",
	Short: "Market PDA for a protocol id and resolution time",
	Long: `The resolution time is either unix seconds or RFC3339; both hash to the
same seed the program uses.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ts, err := parseTimestamp(args[1])
		if err != nil {
			return err
		}
		address, bump, err := idlprotocol.DeriveMarketAddress(args[0], ts)
		if err != nil {
			return err
		}
		return printDerived(address.String(), bump)
	},
}

var deriveBetCmd = &cobra.Command{
	Use:   "bet <market> <user> <nonce>",
	Short: "Bet PDA for a market, wallet and nonce",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		market, err := parsePubkey("market", args[0])
		if err != nil {
			return err
		}
		user, err := parsePubkey("user", args[1])
		if err != nil {
			return err
		}
		nonce, err := strconv.ParseUint(args[2], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid nonce %q: %w", args[2], err)
		}
		address, bump, err := idlprotocol.DeriveBetAddress(market, user, nonce)
		if err != nil {
			return err
		}
		return printDerived(address.String(), bump)
	},
}

var deriveBadgeCmd = &cobra.Command{
	Use:   "badge <user>",
	Short: "Volume badge PDA for a wallet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := parsePubkey("user", args[0])
		if err != nil {
			return err
		}
		address, bump, err := idlprotocol.DeriveBadgeAddress(user)
		if err != nil {
			return err
		}
		return printDerived(address.String(), bump)
	},
}

var deriveTagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "Print the instruction and account discriminators",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ops := []string{
			idlprotocol.OpInitialize,
			idlprotocol.OpStake,
			idlprotocol.OpUnstake,
			idlprotocol.OpLockForVe,
			idlprotocol.OpUnlockVe,
			idlprotocol.OpCreateMarket,
			idlprotocol.OpPlaceBet,
			idlprotocol.OpResolveMarket,
			idlprotocol.OpClaimWinnings,
			idlprotocol.OpIssueBadge,
			idlprotocol.OpRevokeBadge,
			idlprotocol.OpSetPaused,
			idlprotocol.OpTransferAuthority,
		}
		instructions := make(map[string]string, len(ops))
		for _, op := range ops {
			tag, err := idlprotocol.InstructionTag(op)
			if err != nil {
				return err
			}
			instructions[op] = hex.EncodeToString(tag[:])
		}
		accounts := map[string]string{
			"ProtocolState":    hex.EncodeToString(idlprotocol.Account_ProtocolState[:]),
			"StakerAccount":    hex.EncodeToString(idlprotocol.Account_StakerAccount[:]),
			"VePosition":       hex.EncodeToString(idlprotocol.Account_VePosition[:]),
			"PredictionMarket": hex.EncodeToString(idlprotocol.Account_PredictionMarket[:]),
			"Bet":              hex.EncodeToString(idlprotocol.Account_Bet[:]),
			"VolumeBadge":      hex.EncodeToString(idlprotocol.Account_VolumeBadge[:]),
		}
		return printJSON(map[string]any{
			"instructions": instructions,
			"accounts":     accounts,
		})
	},
}

func printDerived(address string, bump uint8) error {
	return printJSON(map[string]any{
		"address": address,
		"bump":    bump,
	})
}

// parseTimestamp accepts unix seconds or RFC3339.
func parseTimestamp(s string) (int64, error) {
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ts, nil
	}
	at, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: want unix seconds or RFC3339", s)
	}
	return at.Unix(), nil
}

func init() {
	encryptKeyCmd.Flags().String("key", "", "base58 private key (falls back to stdin)")
	encryptKeyCmd.Flags().String("password", "", "encryption password (required)")
	encryptKeyCmd.Flags().String("out", "encrypted_key.json", "output path")
	encryptKeyCmd.MarkFlagRequired("password")

	deriveCmd.AddCommand(
		deriveStateCmd,
		deriveStakerCmd,
		deriveVeCmd,
		deriveMarketCmd,
		deriveBetCmd,
		deriveBadgeCmd,
		deriveTagsCmd,
	)
	rootCmd.AddCommand(encryptKeyCmd, deriveCmd)
}
