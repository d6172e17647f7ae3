package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var reviewAccount string

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "List near-duplicates waiting for a human decision",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, _, _, err := bootstrap()
		if err != nil {
			return err
		}

		var accountID *uuid.UUID
		if reviewAccount != "" {
			id, err := uuid.Parse(reviewAccount)
			if err != nil {
				return fmt.Errorf("invalid account id %q: %w", reviewAccount, err)
			}
			accountID = &id
		}

		pending, err := svc.ReviewDuplicates(accountID)
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			color.Green("no pending duplicate reviews")
			return nil
		}

		for _, r := range pending {
			fmt.Printf("%s  confidence %.2f (%s)\n", color.YellowString("?"), r.Confidence, r.Signal)
			fmt.Printf("   incoming %s\n   existing %s\n", r.IncomingID, r.ExistingID)
		}
		fmt.Printf("\n%d pending; resolve with 'pesobook resolve <merge|keep-both|link-transfer> <existing-id> <incoming-id>'\n", len(pending))
		return nil
	},
}

func init() {
	reviewCmd.Flags().StringVar(&reviewAccount, "account", "", "limit to one account id")
	rootCmd.AddCommand(reviewCmd)
}
