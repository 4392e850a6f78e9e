package playback

import (
	"fmt"
	"time"
)

// IdleAction is what an actor does once its queue drains.
type IdleAction string

const (
	IdleStay  IdleAction = "stay"
	IdleLeave IdleAction = "leave"
	// IdleAFK moves to the guild's AFK channel, or stays if it has none.
	IdleAFK IdleAction = "afk"
)

func ParseIdleAction(s string) (IdleAction, error) {
	switch a := IdleAction(s); a {
	case IdleStay, IdleLeave, IdleAFK:
		return a, nil
	default:
		return "", fmt.Errorf("unknown idle action %q", s)
	}
}

type Config struct {
	DefaultVolume  float64
	ConnectTimeout time.Duration
	IdleAction     IdleAction
	// LeaveOnEmptyChannel closes the connection once no listening user
	// remains. It applies regardless of IdleAction.
	LeaveOnEmptyChannel bool
	MailboxSize         int
}

func DefaultConfig() Config {
	return Config{
		DefaultVolume:  0.75,
		ConnectTimeout: 4 * time.Second,
		IdleAction:     IdleStay,
		MailboxSize:    64,
	}
}

func clampVolume(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
