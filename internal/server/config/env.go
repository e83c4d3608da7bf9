package config

import "github.com/caarlos0/env/v11"

// parseEnv overlays fields tagged with `env` from the process environment.
// Unset variables leave the current value untouched.
func parseEnv(cfg *Config) error {
	return env.Parse(cfg)
}
