package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/idlprotocol/idlbot/internal/idlprotocol"
)

var createMarketCmd = &cobra.Command{
	Use:   "create-market",
	Short: "Create a prediction market",
	Long: `Create-market derives the market address from the protocol id and the
resolution time, submits a create_market transaction with the wallet as the
creator, and prints the address alongside the signature.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		oracleArg, _ := cmd.Flags().GetString("oracle")
		oracle, err := parsePubkey("oracle", oracleArg)
		if err != nil {
			return err
		}
		protocolID, _ := cmd.Flags().GetString("protocol")
		metricArg, _ := cmd.Flags().GetString("metric")
		metric, err := idlprotocol.ParseMetricType(metricArg)
		if err != nil {
			return err
		}
		target, _ := cmd.Flags().GetUint64("target")
		resolutionArg, _ := cmd.Flags().GetString("resolution")
		resolution, err := time.Parse(time.RFC3339, resolutionArg)
		if err != nil {
			return fmt.Errorf("invalid resolution time %q: want RFC3339 like 2026-12-31T00:00:00Z", resolutionArg)
		}
		description, _ := cmd.Flags().GetString("description")

		t, err := dial(cmd.Context())
		if err != nil {
			return err
		}
		defer t.Close()
		if err := t.withSigner(); err != nil {
			return err
		}

		market, sig, err := t.market.CreateMarket(cmd.Context(), oracle, protocolID, metric, target, resolution, description)
		if err != nil {
			return err
		}
		return printJSON(map[string]any{
			"market":    market,
			"signature": sig,
		})
	},
}

var initializeCmd = &cobra.Command{
	Use:   "initialize <treasury>",
	Short: "Initialize the protocol state account",
	Long: `Initialize creates the singleton state PDA with the wallet as authority and
the given treasury. It can only ever succeed once per program deployment.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		treasury, err := parsePubkey("treasury", args[0])
		if err != nil {
			return err
		}
		t, err := dial(cmd.Context())
		if err != nil {
			return err
		}
		defer t.Close()
		if err := t.withSigner(); err != nil {
			return err
		}

		sig, err := t.admin.Initialize(cmd.Context(), treasury)
		if err != nil {
			return err
		}
		printSignature(sig)
		return nil
	},
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <market> <actual-value>",
	Short: "Resolve a market with the observed metric value",
	Long: `Resolve submits the actual metric value for a market past its resolution
time. The program compares it against the target and settles the outcome; the
wallet must be the market's oracle or the protocol authority.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		market, err := parsePubkey("market", args[0])
		if err != nil {
			return err
		}
		actual, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid actual value %q: %w", args[1], err)
		}
		t, err := dial(cmd.Context())
		if err != nil {
			return err
		}
		defer t.Close()
		if err := t.withSigner(); err != nil {
			return err
		}

		sig, err := t.admin.ResolveMarket(cmd.Context(), market, actual)
		if err != nil {
			return err
		}
		printSignature(sig)
		return nil
	},
}

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause the protocol",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return setPaused(cmd, true)
	},
}

var unpauseCmd = &cobra.Command{
	Use:   "unpause",
	Short: "Unpause the protocol",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return setPaused(cmd, false)
	},
}

func setPaused(cmd *cobra.Command, paused bool) error {
	t, err := dial(cmd.Context())
	if err != nil {
		return err
	}
	defer t.Close()
	if err := t.withSigner(); err != nil {
		return err
	}

	sig, err := t.admin.SetPaused(cmd.Context(), paused)
	if err != nil {
		return err
	}
	printSignature(sig)
	return nil
}

var transferAuthorityCmd = &cobra.Command{
	Use:   "transfer-authority <new-authority>",
	Short: "Hand the protocol authority to another wallet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		newAuthority, err := parsePubkey("new authority", args[0])
		if err != nil {
			return err
		}
		t, err := dial(cmd.Context())
		if err != nil {
			return err
		}
		defer t.Close()
		if err := t.withSigner(); err != nil {
			return err
		}

		sig, err := t.admin.TransferAuthority(cmd.Context(), newAuthority)
		if err != nil {
			return err
		}
		printSignature(sig)
		return nil
	},
}

var issueBadgeCmd = &cobra.Command{
	Use:   "issue-badge <recipient> <volume-usd>",
	Short: "Issue a volume badge",
	Long: `Issue-badge awards the recipient the badge tier matching their cumulative
betting volume in whole USD. The tier is derived on chain from the volume.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		recipient, err := parsePubkey("recipient", args[0])
		if err != nil {
			return err
		}
		volume, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid volume %q: %w", args[1], err)
		}
		t, err := dial(cmd.Context())
		if err != nil {
			return err
		}
		defer t.Close()
		if err := t.withSigner(); err != nil {
			return err
		}

		sig, err := t.admin.IssueBadge(cmd.Context(), recipient, volume)
		if err != nil {
			return err
		}
		printSignature(sig)
		return nil
	},
}

var revokeBadgeCmd = &cobra.Command{
	Use:   "revoke-badge <owner>",
	Short: "Revoke a wallet's volume badge",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, err := parsePubkey("badge owner", args[0])
		if err != nil {
			return err
		}
		t, err := dial(cmd.Context())
		if err != nil {
			return err
		}
		defer t.Close()
		if err := t.withSigner(); err != nil {
			return err
		}

		sig, err := t.admin.RevokeBadge(cmd.Context(), owner)
		if err != nil {
			return err
		}
		printSignature(sig)
		return nil
	},
}

var badgeCmd = &cobra.Command{
	Use:   "badge <owner>",
	Short: "Print a wallet's volume badge",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, err := parsePubkey("owner", args[0])
		if err != nil {
			return err
		}
		t, err := dial(cmd.Context())
		if err != nil {
			return err
		}
		defer t.Close()

		badge, err := t.stake.GetBadge(cmd.Context(), owner)
		if err != nil {
			return err
		}
		return printJSON(badge)
	},
}

var badgesCmd = &cobra.Command{
	Use:   "badges",
	Short: "List every active volume badge on chain",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := dial(cmd.Context())
		if err != nil {
			return err
		}
		defer t.Close()

		badges, err := t.stake.ScanBadges(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(badges)
	},
}

func init() {
	createMarketCmd.Flags().String("oracle", "", "oracle wallet allowed to resolve (required)")
	createMarketCmd.Flags().String("protocol", "", "protocol id the market tracks (required)")
	createMarketCmd.Flags().String("metric", "", "metric type, e.g. tvl, volume_24h, price (required)")
	createMarketCmd.Flags().Uint64("target", 0, "target metric value (required)")
	createMarketCmd.Flags().String("resolution", "", "resolution time, RFC3339 (required)")
	createMarketCmd.Flags().String("description", "", "free-form market description")
	createMarketCmd.MarkFlagRequired("oracle")
	createMarketCmd.MarkFlagRequired("protocol")
	createMarketCmd.MarkFlagRequired("metric")
	createMarketCmd.MarkFlagRequired("target")
	createMarketCmd.MarkFlagRequired("resolution")

	rootCmd.AddCommand(
		createMarketCmd,
		initializeCmd,
		resolveCmd,
		pauseCmd,
		unpauseCmd,
		transferAuthorityCmd,
		issueBadgeCmd,
		revokeBadgeCmd,
		badgeCmd,
		badgesCmd,
	)
}
