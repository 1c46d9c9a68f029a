package config

import (
	"fmt"

	"github.com/caarlos0/env/v6"
)

// applyEnv overlays credentials from the environment. Unset variables keep the
// file (or default) value.
func applyEnv(cfg *Config) error {
	if err := env.Parse(&cfg.APIKeys); err != nil {
		return fmt.Errorf("env api_keys: %w", err)
	}
	if err := env.Parse(&cfg.Alerts.Telegram); err != nil {
		return fmt.Errorf("env alerts.telegram: %w", err)
	}
	if err := env.Parse(&cfg.Debug); err != nil {
		return fmt.Errorf("env debug: %w", err)
	}
	return nil
}
