package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var betCmd = &cobra.Command{
	Use:   "bet <market> <amount>",
	Short: "Place a bet on a market",
	Long: `Bet wagers the given amount of IDL (in lamports) on one side of a market
and prints the receipt. The bet address derives from a random nonce; keep the
receipt, claiming needs the address.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		market, err := parsePubkey("market", args[0])
		if err != nil {
			return err
		}
		amount, err := parseAmount(args[1])
		if err != nil {
			return err
		}
		side, err := betSide(cmd)
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

		receipt, err := t.bet.PlaceBet(cmd.Context(), market, amount, side)
		if err != nil {
			return err
		}
		return printJSON(receipt)
	},
}

var claimCmd = &cobra.Command{
	Use:   "claim <bet>",
	Short: "Claim the winnings of a resolved bet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bet, err := parsePubkey("bet", args[0])
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

		sig, err := t.bet.ClaimWinnings(cmd.Context(), bet)
		if err != nil {
			return err
		}
		printSignature(sig)
		return nil
	},
}

// betSide reads the --yes/--no flag pair; exactly one must be set.
func betSide(cmd *cobra.Command) (bool, error) {
	yes, _ := cmd.Flags().GetBool("yes")
	no, _ := cmd.Flags().GetBool("no")
	if yes == no {
		return false, fmt.Errorf("exactly one of --yes or --no is required")
	}
	return yes, nil
}

// parseAmount parses a lamport amount, rejecting zero.
func parseAmount(s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if v == 0 {
		return 0, fmt.Errorf("amount must be positive")
	}
	return v, nil
}

func init() {
	betCmd.Flags().Bool("yes", false, "bet on YES")
	betCmd.Flags().Bool("no", false, "bet on NO")

	rootCmd.AddCommand(betCmd, claimCmd)
}
