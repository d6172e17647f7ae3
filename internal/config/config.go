// Package config loads runtime settings from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config is the full runtime configuration.
type Config struct {
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	ListenAddr  string `envconfig:"LISTEN_ADDR" default:":8080"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`

	// MinQuality is the ingestion gate threshold.
	MinQuality int `envconfig:"MIN_QUALITY" default:"60"`
	// DedupWindowDays bounds near-duplicate and transfer matching.
	DedupWindowDays int `envconfig:"DEDUP_WINDOW_DAYS" default:"3"`
	// DedupSimilarity is the near-match description similarity threshold.
	DedupSimilarity float64 `envconfig:"DEDUP_SIMILARITY" default:"0.82"`
}

// Load reads .env (when present) and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	return &cfg, nil
}
