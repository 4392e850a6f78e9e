package config

import (
	"context"

	"github.com/sethvargo/go-envconfig"
)

type HTTPConfig struct {
	Addr     string `env:"HTTP_ADDR, default=:8080"`
	APIToken string `env:"HTTP_API_TOKEN"`
}

func NewHTTPConfigFromEnv() (*HTTPConfig, error) {
	var cfg HTTPConfig
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
