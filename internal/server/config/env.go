package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// EnvPrefix namespaces every environment variable the server reads, e.g.
// LEDGER_DATABASE_DSN.
const EnvPrefix = "LEDGER_"

// parseEnv loads dotenvPath into the process environment when the file
// exists (variables already set win) and overlays LEDGER_* variables onto
// config. Unset variables leave fields untouched.
func parseEnv(config *Config, dotenvPath string) error {
	if dotenvPath != "" {
		if err := godotenv.Load(dotenvPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", dotenvPath, err)
		}
	}
	return applyEnv(config, env.Options{Prefix: EnvPrefix})
}

func applyEnv(config *Config, opts env.Options) error {
	if err := env.ParseWithOptions(config, opts); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}
	return nil
}
