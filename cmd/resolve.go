package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/pesobook/pesobook/internal/ingest"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <merge|keep-both|link-transfer> <keep-id> <other-id>",
	Short: "Apply a decision to a flagged pair of transactions",
	Long: `merge keeps the first transaction and marks the second a duplicate of
it; keep-both dismisses the review and leaves both active; link-transfer
pairs the two as one internal transfer between accounts.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, _, _, err := bootstrap()
		if err != nil {
			return err
		}

		keepID, err := uuid.Parse(args[1])
		if err != nil {
			return fmt.Errorf("invalid keep id %q: %w", args[1], err)
		}
		otherID, err := uuid.Parse(args[2])
		if err != nil {
			return fmt.Errorf("invalid other id %q: %w", args[2], err)
		}

		if err := svc.Resolve(ingest.ResolveAction(args[0]), keepID, otherID); err != nil {
			return err
		}
		color.Green("resolved: %s", args[0])
		return nil
	},
}

var revertCmd = &cobra.Command{
	Use:   "revert <transaction-id>",
	Short: "Return a duplicate or transfer-linked transaction to active",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, _, _, err := bootstrap()
		if err != nil {
			return err
		}
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid transaction id %q: %w", args[0], err)
		}
		if err := svc.Revert(id); err != nil {
			return err
		}
		color.Green("reverted to active")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(revertCmd)
}
