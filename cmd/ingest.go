package cmd

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pesobook/pesobook/internal/ingest"
	"github.com/pesobook/pesobook/internal/models"
)

var (
	ingestProvider string
	ingestPassword string
	ingestAlias    string
	ingestNoScan   bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <statement.pdf> [more.pdf ...]",
	Short: "Import one or more statement PDFs",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, _, _, err := bootstrap()
		if err != nil {
			return err
		}

		var failed int
		earliest, latest := time.Time{}, time.Time{}
		for _, path := range args {
			result, err := svc.Ingest(path, ingest.IngestOptions{
				Provider:     models.ProviderFormat(ingestProvider),
				Password:     ingestPassword,
				AccountAlias: ingestAlias,
			})
			if err != nil {
				color.Red("✗ %s: %v", path, err)
				failed++
				continue
			}
			printResult(path, result)

			// Track the session span for the transfer scan.
			if earliest.IsZero() || result.PeriodStart.Before(earliest) {
				earliest = result.PeriodStart
			}
			if result.PeriodEnd.After(latest) {
				latest = result.PeriodEnd
			}
		}

		// Cross-account transfer linking runs once, after every batch of
		// the session has committed.
		if !ingestNoScan && !earliest.IsZero() {
			// Pad the span so pairs straddling a period edge still match.
			linked, err := svc.TransferScan(earliest.AddDate(0, 0, -3), latest.AddDate(0, 0, 3))
			if err != nil {
				return fmt.Errorf("transfer scan: %w", err)
			}
			if linked > 0 {
				color.Cyan("↔ linked %d internal transfer pair(s)", linked)
			}
		}

		if failed > 0 {
			return fmt.Errorf("%d of %d statements failed", failed, len(args))
		}
		return nil
	},
}

func printResult(path string, r *models.IngestResult) {
	if r.AlreadyImported {
		color.Yellow("= %s: already imported, nothing to do", path)
		return
	}

	color.Green("✓ %s [%s]", path, r.Provider)
	fmt.Printf("  imported %d transactions (inflow ₱%.2f, outflow ₱%.2f)\n",
		r.Imported, r.TotalInflow, r.TotalOutflow)

	switch r.QualityLevel {
	case "high":
		fmt.Printf("  quality %d/100\n", r.QualityScore)
	default:
		color.Yellow("  quality %d/100 (%s), review the issues below", r.QualityScore, r.QualityLevel)
	}
	for _, issue := range r.Issues {
		color.Yellow("  ! %s", issue)
	}
	for _, w := range r.DuplicateWarnings {
		switch w.Kind {
		case models.VerdictExactDuplicate:
			color.Yellow("  ~ duplicate (%s, %.2f): entry marked, original kept", w.Signal, w.Confidence)
		case models.VerdictNeedsReview:
			color.Yellow("  ? possible duplicate (%.2f): run 'pesobook review'", w.Confidence)
		}
	}
	if r.Categorized < r.Imported {
		fmt.Printf("  categorized %d/%d; 'pesobook correct' teaches new merchants\n",
			r.Categorized, r.Imported)
	}
}

func init() {
	ingestCmd.Flags().StringVar(&ingestProvider, "provider", "", "override format detection (gcash|maya|bpi|bdo|unionbank)")
	ingestCmd.Flags().StringVar(&ingestPassword, "password", "", "password for protected statements")
	ingestCmd.Flags().StringVar(&ingestAlias, "alias", "", "alias for a newly registered account")
	ingestCmd.Flags().BoolVar(&ingestNoScan, "no-transfer-scan", false, "skip the cross-account transfer scan")
	rootCmd.AddCommand(ingestCmd)
}
