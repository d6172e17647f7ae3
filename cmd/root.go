// Package cmd wires the CLI commands over the ingestion service.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/pesobook/pesobook/internal/config"
	"github.com/pesobook/pesobook/internal/dedup"
	"github.com/pesobook/pesobook/internal/ingest"
	"github.com/pesobook/pesobook/internal/logger"
	"github.com/pesobook/pesobook/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "pesobook",
	Short: "Import Philippine bank and e-wallet statements into one ledger",
	Long: `pesobook parses PDF statements from Philippine banks and e-wallets
(GCash, Maya, BPI, BDO, UnionBank), deduplicates transactions across
imports and accounts, links internal transfers, and categorizes spending
with a correctable merchant table.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// bootstrap loads config and builds the service stack shared by every
// command that touches the ledger.
func bootstrap() (*ingest.Service, *config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	st, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening ledger: %w", err)
	}

	svc, err := ingest.NewService(st, log, ingest.Options{
		MinQuality: cfg.MinQuality,
		Dedup: dedup.Options{
			WindowDays:          cfg.DedupWindowDays,
			SimilarityThreshold: cfg.DedupSimilarity,
		},
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("building ingestion service: %w", err)
	}
	return svc, cfg, log, nil
}
