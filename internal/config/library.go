package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type LibraryConfig struct {
	SoundsDir       string        `env:"LIBRARY_SOUNDS_DIR"`
	RefreshInterval time.Duration `env:"LIBRARY_REFRESH_INTERVAL, default=30s"`
}

func NewLibraryConfigFromEnv() (*LibraryConfig, error) {
	var cfg LibraryConfig
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, err
	}
	if cfg.RefreshInterval <= 0 {
		return nil, fmt.Errorf("LIBRARY_REFRESH_INTERVAL must be positive, got %s", cfg.RefreshInterval)
	}

	return &cfg, nil
}
