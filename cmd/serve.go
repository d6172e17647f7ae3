package cmd

import (
	"github.com/spf13/cobra"

	"github.com/pesobook/pesobook/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, cfg, log, err := bootstrap()
		if err != nil {
			return err
		}
		app := api.NewApp(svc, log)
		log.Info("listening", "addr", cfg.ListenAddr)
		return app.Listen(cfg.ListenAddr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
