package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type PlaybackConfig struct {
	DefaultVolume       float64       `env:"PLAYBACK_DEFAULT_VOLUME, default=0.75"`
	ConnectTimeout      time.Duration `env:"PLAYBACK_CONNECT_TIMEOUT, default=4s"`
	IdleAction          string        `env:"PLAYBACK_IDLE_ACTION, default=stay"`
	LeaveOnEmptyChannel bool          `env:"PLAYBACK_LEAVE_ON_EMPTY_CHANNEL, default=false"`
	MailboxSize         int           `env:"PLAYBACK_MAILBOX_SIZE, default=64"`
	FFmpegPath          string        `env:"PLAYBACK_FFMPEG_PATH, default=ffmpeg"`
}

func NewPlaybackConfigFromEnv() (*PlaybackConfig, error) {
	var cfg PlaybackConfig
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *PlaybackConfig) Validate() error {
	if c.DefaultVolume < 0 || c.DefaultVolume > 1 {
		return fmt.Errorf("PLAYBACK_DEFAULT_VOLUME must be within [0, 1], got %v", c.DefaultVolume)
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("PLAYBACK_CONNECT_TIMEOUT must be positive, got %s", c.ConnectTimeout)
	}
	switch c.IdleAction {
	case "stay", "leave", "afk":
	default:
		return fmt.Errorf("PLAYBACK_IDLE_ACTION must be one of stay, leave or afk, got %q", c.IdleAction)
	}
	if c.MailboxSize <= 0 {
		return fmt.Errorf("PLAYBACK_MAILBOX_SIZE must be positive, got %d", c.MailboxSize)
	}
	return nil
}
