package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var archivesCmd = &cobra.Command{
	Use:   "archives",
	Short: "Inspect cold-storage archives",
	Long: `The daemon moves resolved markets and claimed bets into object storage as
newline-delimited JSON under archive/markets/ and archive/bets/. These
commands browse that bucket; they touch neither Postgres nor the chain.`,
}

var archivesLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List archive objects",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reader, closeFn, err := dialBlob(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		prefix, _ := cmd.Flags().GetString("prefix")
		blobs, err := reader.List(cmd.Context(), prefix)
		if err != nil {
			return err
		}
		return printJSON(blobs)
	},
}

var archivesCatCmd = &cobra.Command{
	Use:   "cat <path>",
	Short: "Stream one archive object to stdout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reader, closeFn, err := dialBlob(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		body, err := reader.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		defer body.Close()

		if _, err := io.Copy(cmd.OutOrStdout(), body); err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}
		return nil
	},
}

func init() {
	archivesLsCmd.Flags().String("prefix", "archive/", "key prefix to list under")

	archivesCmd.AddCommand(archivesLsCmd, archivesCatCmd)
	rootCmd.AddCommand(archivesCmd)
}
