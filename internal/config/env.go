package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Env holds process settings read from the environment. Command-line
// flags override them.
type Env struct {
	ConfigPath string `env:"BARNACLE_CONFIG" envDefault:"config.json"`
	DecksDir   string `env:"BARNACLE_DECKS_DIR" envDefault:"."`
	LedgerPath string `env:"BARNACLE_LEDGER"`
	Seed       int64  `env:"BARNACLE_SEED"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// LoadEnv returns the process settings.
func LoadEnv() (Env, error) {
	var e Env
	err := ParseEnv(&e)
	return e, err
}
