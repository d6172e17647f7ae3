package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pesobook/pesobook/internal/models"
)

var correctCmd = &cobra.Command{
	Use:   "correct <pattern> <merchant> <category>",
	Short: "Teach the categorizer a merchant mapping",
	Long: `Records a (pattern -> merchant, category) correction and retroactively
re-categorizes every ledger entry whose description matches the pattern.
Corrections shadow the built-in merchant table for the same pattern.

Valid categories: ` + categoryList() + `.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, _, _, err := bootstrap()
		if err != nil {
			return err
		}

		cat, ok := models.ParseCategory(args[2])
		if !ok {
			return fmt.Errorf("unknown category %q; valid: %s", args[2], categoryList())
		}

		updated, err := svc.CorrectMerchant(args[0], args[1], cat)
		if err != nil {
			return err
		}
		color.Green("correction saved; %d existing entries re-categorized", updated)

		remaining, err := svc.UncategorizedCount()
		if err != nil {
			return err
		}
		if remaining > 0 {
			fmt.Printf("%d entries still uncategorized\n", remaining)
		}
		return nil
	},
}

func categoryList() string {
	names := make([]string, len(models.Categories))
	for i, c := range models.Categories {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}

func init() {
	rootCmd.AddCommand(correctCmd)
}
