package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

var stakeCmd = &cobra.Command{
	Use:   "stake <amount>",
	Short: "Stake IDL tokens",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := parseAmount(args[0])
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

		sig, err := t.stake.Stake(cmd.Context(), amount)
		if err != nil {
			return err
		}
		printSignature(sig)
		return nil
	},
}

var unstakeCmd = &cobra.Command{
	Use:   "unstake <amount>",
	Short: "Withdraw staked IDL tokens",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := parseAmount(args[0])
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

		sig, err := t.stake.Unstake(cmd.Context(), amount)
		if err != nil {
			return err
		}
		printSignature(sig)
		return nil
	},
}

var lockCmd = &cobra.Command{
	Use:   "lock <days>",
	Short: "Lock the full stake for veIDL",
	Long: `Lock commits the wallet's entire staked balance to a vote-escrow position
for the given number of days. veIDL minted scales linearly with the duration.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		days, err := strconv.Atoi(args[0])
		if err != nil || days <= 0 {
			return fmt.Errorf("invalid lock duration %q: want a positive number of days", args[0])
		}
		t, err := dial(cmd.Context())
		if err != nil {
			return err
		}
		defer t.Close()
		if err := t.withSigner(); err != nil {
			return err
		}

		sig, err := t.stake.LockForVe(cmd.Context(), time.Duration(days)*24*time.Hour)
		if err != nil {
			return err
		}
		printSignature(sig)
		return nil
	},
}

var unlockCmd = &cobra.Command{
	Use:   "unlock",
	Short: "Unlock an expired vote-escrow position",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := dial(cmd.Context())
		if err != nil {
			return err
		}
		defer t.Close()
		if err := t.withSigner(); err != nil {
			return err
		}

		sig, err := t.stake.UnlockVe(cmd.Context())
		if err != nil {
			return err
		}
		printSignature(sig)
		return nil
	},
}

var stakerCmd = &cobra.Command{
	Use:   "staker <owner>",
	Short: "Print a wallet's stake position and vote-escrow lock",
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

		position, lock, err := t.stake.GetStaker(cmd.Context(), owner)
		if err != nil {
			return err
		}
		out := map[string]any{"staker": position}
		if lock != nil {
			out["ve_lock"] = lock
		}
		return printJSON(out)
	},
}

var previewStakeCmd = &cobra.Command{
	Use:   "preview-stake <amount>",
	Short: "Preview the bonus and rewards a stake would earn",
	Long: `Preview-stake computes the betting bonus, the claimable share of the
current reward pool, and the veIDL a maximum-duration lock would mint for the
given staked amount, without sending anything.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := parseAmount(args[0])
		if err != nil {
			return err
		}
		t, err := dial(cmd.Context())
		if err != nil {
			return err
		}
		defer t.Close()

		preview, err := t.stake.PreviewStake(cmd.Context(), amount)
		if err != nil {
			return err
		}
		if days, _ := cmd.Flags().GetInt("lock-days"); days > 0 {
			ve, err := t.stake.PreviewVe(amount, time.Duration(days)*24*time.Hour)
			if err != nil {
				return err
			}
			return printJSON(map[string]any{
				"preview":     preview,
				"lock_days":   days,
				"ve_for_lock": ve,
			})
		}
		return printJSON(preview)
	},
}

func init() {
	previewStakeCmd.Flags().Int("lock-days", 0, "also preview veIDL for a lock of this many days")

	rootCmd.AddCommand(stakeCmd, unstakeCmd, lockCmd, unlockCmd, stakerCmd, previewStakeCmd)
}
