package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

const (
	// DefaultAPIBase is the SeaTalk open-platform endpoint.
	DefaultAPIBase = "https://openapi.seatalk.io"
	// DefaultAddr is the webhook listen address.
	DefaultAddr = ":8080"
	// DefaultTimezone is the timezone used for user-facing timestamps.
	DefaultTimezone = "America/Sao_Paulo"
)

// Load builds the configuration from the environment. Env files discovered
// by LoadEnvFileCandidates should be loaded before calling this.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process("GLBOT_SERVER", &cfg.Server); err != nil {
		return nil, err
	}
	if err := envconfig.Process("SEATALK", &cfg.SeaTalk); err != nil {
		return nil, err
	}
	if err := envconfig.Process("GDRIVE", &cfg.Drive); err != nil {
		return nil, err
	}
	if err := envconfig.Process("GLBOT_HISTORY", &cfg.History); err != nil {
		return nil, err
	}
	if err := envconfig.Process("SENTRY", &cfg.Sentry); err != nil {
		return nil, err
	}

	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Server.Addr) == "" {
		cfg.Server.Addr = DefaultAddr
	}
	if strings.TrimSpace(cfg.Server.Timezone) == "" {
		cfg.Server.Timezone = DefaultTimezone
	}
	cfg.SeaTalk.APIBase = strings.TrimRight(strings.TrimSpace(cfg.SeaTalk.APIBase), "/")
	if cfg.SeaTalk.APIBase == "" {
		cfg.SeaTalk.APIBase = DefaultAPIBase
	}
	if strings.TrimSpace(cfg.SeaTalk.TokenURL) == "" {
		cfg.SeaTalk.TokenURL = cfg.SeaTalk.APIBase + "/auth/app_access_token"
	}
	if strings.TrimSpace(cfg.History.Path) == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.History.Path = filepath.Join(home, ".glbot", "history.db")
		} else {
			cfg.History.Path = "history.db"
		}
	}
}
