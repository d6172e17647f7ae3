// Package logger builds the process-wide slog.Logger.
package logger

import (
	"log/slog"
	"os"

	charmlog "github.com/charmbracelet/log"
)

// New returns a structured logger writing to stderr. format is "text" or
// "json"; unknown levels fall back to info.
func New(level, format string) *slog.Logger {
	lvl, err := charmlog.ParseLevel(level)
	if err != nil {
		lvl = charmlog.InfoLevel
	}

	formatter := charmlog.TextFormatter
	if format == "json" {
		formatter = charmlog.JSONFormatter
	}

	handler := charmlog.NewWithOptions(os.Stderr, charmlog.Options{
		Level:           lvl,
		Formatter:       formatter,
		ReportTimestamp: true,
	})
	return slog.New(handler)
}
