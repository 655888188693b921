package server

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config carries process configuration read from the environment.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string `env:"FORGE_ADDR" envDefault:":8080"`
	// Admin is the publisher administrator identity.
	Admin string `env:"FORGE_ADMIN" envDefault:"publisher"`
	// OpenCreation lets any caller create item types.
	OpenCreation bool `env:"FORGE_OPEN_CREATION" envDefault:"false"`
	// JournalPath selects a SQLite journal file. Empty keeps the
	// journal in memory.
	JournalPath string `env:"FORGE_JOURNAL_PATH"`
	// Manifest points at a world manifest to load on boot.
	Manifest string `env:"FORGE_MANIFEST"`
	// MutatorBudget bounds each mutator module call.
	MutatorBudget time.Duration `env:"FORGE_MUTATOR_BUDGET" envDefault:"250ms"`
	// OTELEndpoint enables OTLP trace export when set.
	OTELEndpoint string `env:"FORGE_OTEL_ENDPOINT"`
}

// FromEnv parses configuration from the process environment.
func FromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
