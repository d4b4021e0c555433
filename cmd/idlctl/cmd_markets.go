package main

import (
	"fmt"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"github.com/idlprotocol/idlbot/internal/domain"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Print the protocol state snapshot",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := dial(cmd.Context())
		if err != nil {
			return err
		}
		defer t.Close()

		refresh, _ := cmd.Flags().GetBool("refresh")
		var st domain.ProtocolStatus
		if refresh {
			st, err = t.market.RefreshState(cmd.Context())
		} else {
			st, err = t.market.State(cmd.Context())
		}
		if err != nil {
			return err
		}
		return printJSON(st)
	},
}

var marketsCmd = &cobra.Command{
	Use:   "markets",
	Short: "Inspect prediction markets",
}

var marketsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List markets from the store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := dial(cmd.Context())
		if err != nil {
			return err
		}
		defer t.Close()

		status, _ := cmd.Flags().GetString("status")
		protocol, _ := cmd.Flags().GetString("protocol")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")
		opts := domain.ListOpts{Limit: limit, Offset: offset}

		var markets []domain.Market
		switch {
		case protocol != "":
			markets, err = t.market.ListByProtocol(cmd.Context(), protocol, opts)
		case status == string(domain.MarketStatusResolved):
			markets, err = t.market.ListResolved(cmd.Context(), opts)
		default:
			markets, err = t.market.ListOpen(cmd.Context(), opts)
		}
		if err != nil {
			return err
		}
		return printJSON(markets)
	},
}

var marketsGetCmd = &cobra.Command{
	Use:   "get <address>",
	Short: "Print one market",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := dial(cmd.Context())
		if err != nil {
			return err
		}
		defer t.Close()

		refresh, _ := cmd.Flags().GetBool("refresh")
		var m domain.Market
		if refresh {
			var pk solanago.PublicKey
			pk, err = parsePubkey("market", args[0])
			if err != nil {
				return err
			}
			m, err = t.market.RefreshMarket(cmd.Context(), pk)
		} else {
			m, err = t.market.GetMarket(cmd.Context(), args[0])
		}
		if err != nil {
			return err
		}
		return printJSON(m)
	},
}

var betsCmd = &cobra.Command{
	Use:   "bets",
	Short: "List bets by owner or market",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, _ := cmd.Flags().GetString("owner")
		market, _ := cmd.Flags().GetString("market")
		if (owner == "") == (market == "") {
			return fmt.Errorf("exactly one of --owner or --market is required")
		}

		t, err := dial(cmd.Context())
		if err != nil {
			return err
		}
		defer t.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")
		opts := domain.ListOpts{Limit: limit, Offset: offset}

		var bets []domain.Bet
		if owner != "" {
			bets, err = t.bet.ListByOwner(cmd.Context(), owner, opts)
		} else {
			bets, err = t.bet.ListByMarket(cmd.Context(), market, opts)
		}
		if err != nil {
			return err
		}
		return printJSON(bets)
	},
}

var quoteCmd = &cobra.Command{
	Use:   "quote <market> <amount>",
	Short: "Preview the payout of a hypothetical bet",
	Long: `Quote computes the payout a bet of the given amount would collect if its
side wins against the current pools. With --owner, the staker bonus of that
wallet is applied. No transaction is sent.`,
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

		var owner solanago.PublicKey
		if s, _ := cmd.Flags().GetString("owner"); s != "" {
			owner, err = parsePubkey("owner", s)
			if err != nil {
				return err
			}
		}

		t, err := dial(cmd.Context())
		if err != nil {
			return err
		}
		defer t.Close()

		preview, err := t.bet.QuotePayout(cmd.Context(), market, amount, side, owner)
		if err != nil {
			return err
		}
		return printJSON(preview)
	},
}

func init() {
	stateCmd.Flags().Bool("refresh", false, "read the chain instead of the cache")

	marketsListCmd.Flags().String("status", "open", "open or resolved")
	marketsListCmd.Flags().String("protocol", "", "filter by protocol id")
	marketsListCmd.Flags().Int("limit", 50, "page size")
	marketsListCmd.Flags().Int("offset", 0, "page offset")
	marketsGetCmd.Flags().Bool("refresh", false, "fetch the account from the chain")
	marketsCmd.AddCommand(marketsListCmd, marketsGetCmd)

	betsCmd.Flags().String("owner", "", "list bets placed by this wallet")
	betsCmd.Flags().String("market", "", "list bets on this market")
	betsCmd.Flags().Int("limit", 50, "page size")
	betsCmd.Flags().Int("offset", 0, "page offset")

	quoteCmd.Flags().Bool("yes", false, "quote the YES side")
	quoteCmd.Flags().Bool("no", false, "quote the NO side")
	quoteCmd.Flags().String("owner", "", "apply this wallet's staker bonus")

	rootCmd.AddCommand(stateCmd, marketsCmd, betsCmd, quoteCmd)
}
