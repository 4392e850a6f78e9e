package config

import (
	"context"

	"github.com/sethvargo/go-envconfig"
)

type PresenceConfig struct {
	EntranceOnJoin bool   `env:"PRESENCE_ENTRANCE_ON_JOIN, default=true"`
	EntranceOnMove bool   `env:"PRESENCE_ENTRANCE_ON_MOVE, default=true"`
	LeaveSounds    bool   `env:"PRESENCE_LEAVE_SOUNDS, default=true"`
	LeaveSuffix    string `env:"PRESENCE_LEAVE_SUFFIX, default=_leave"`
	EntranceForAll string `env:"PRESENCE_ENTRANCE_FOR_ALL"`
}

func NewPresenceConfigFromEnv() (*PresenceConfig, error) {
	var cfg PresenceConfig
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
