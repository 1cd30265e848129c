package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	DBPath            string        `env:"TILEDASH_DB_PATH"`
	CallerPackage     string        `env:"TILEDASH_CALLER_PACKAGE"`
	CallerUser        int           `env:"TILEDASH_CALLER_USER"`
	ExtraIntentAction string        `env:"TILEDASH_EXTRA_INTENT_ACTION"`
	LaunchLogTimeout  time.Duration `env:"TILEDASH_LAUNCH_LOG_TIMEOUT"`
	Verbose           bool          `env:"TILEDASH_VERBOSE"`
}

func DefaultConfig() Config {
	return Config{
		DBPath:           defaultDBPath(),
		CallerPackage:    "com.android.settings",
		CallerUser:       0,
		LaunchLogTimeout: 2 * time.Second,
	}
}

// Load returns DefaultConfig overlaid with any TILEDASH_* environment variables.
func Load() (Config, error) {
	cfg := DefaultConfig()
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "tiledash.db"
	}
	return filepath.Join(home, ".local", "state", "tiledash", "catalog.db")
}
