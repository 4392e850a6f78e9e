// Package presence picks and plays automatic sounds when members join,
// leave or move between voice channels.
package presence

import (
	"context"
	"log/slog"
	"strings"

	"github.com/glizzus/soundboard/internal/repository"
)

type Kind int

const (
	Join Kind = iota
	Leave
	Move
	// Update is any other voice state change, such as deafening, that keeps
	// the member in the same channel.
	Update
)

func (k Kind) String() string {
	switch k {
	case Join:
		return "join"
	case Leave:
		return "leave"
	case Move:
		return "move"
	case Update:
		return "update"
	default:
		return "unknown"
	}
}

type Event struct {
	GuildID         string
	UserID          string
	DisplayName     string
	Bot             bool
	Kind            Kind
	OriginChannelID string
	DestChannelID   string
}

type PreferenceStore interface {
	GetPreference(ctx context.Context, userID, username string) (*repository.UserPreference, error)
}

// SoundIndex finds sounds by id, ignoring case, and returns the canonical id.
type SoundIndex interface {
	Lookup(ctx context.Context, id string) (string, bool)
}

// Decision is the sound a presence event should play and where.
type Decision struct {
	SoundID   string
	ChannelID string
	Entrance  bool
}

type Cascade struct {
	prefs          PreferenceStore
	sounds         SoundIndex
	entranceForAll string
	leaveSuffix    string
}

func NewCascade(prefs PreferenceStore, sounds SoundIndex, entranceForAll, leaveSuffix string) *Cascade {
	return &Cascade{
		prefs:          prefs,
		sounds:         sounds,
		entranceForAll: strings.TrimSpace(entranceForAll),
		leaveSuffix:    leaveSuffix,
	}
}

// preference treats a failing store as having no preference.
func (c *Cascade) preference(ctx context.Context, userID, displayName string) *repository.UserPreference {
	if c.prefs == nil {
		return nil
	}
	pref, err := c.prefs.GetPreference(ctx, userID, displayName)
	if err != nil {
		slog.Warn("failed to get user preference", "userID", userID, "error", err)
		return nil
	}
	return pref
}

// Entrance resolves the sound for a member arriving in a channel: their own
// entrance sound, then the entrance-for-all sound, then a sound named after
// them.
func (c *Cascade) Entrance(ctx context.Context, userID, displayName string) (string, bool) {
	if pref := c.preference(ctx, userID, displayName); pref != nil {
		if id := strings.TrimSpace(pref.EntranceSound); id != "" {
			return id, true
		}
	}
	if c.entranceForAll != "" {
		return c.entranceForAll, true
	}
	return c.lookup(ctx, displayName)
}

// Leave resolves the sound for a member leaving a channel: their own leave
// sound, then a sound named after them with the leave suffix.
func (c *Cascade) Leave(ctx context.Context, userID, displayName string) (string, bool) {
	if pref := c.preference(ctx, userID, displayName); pref != nil {
		if id := strings.TrimSpace(pref.LeaveSound); id != "" {
			return id, true
		}
	}
	if displayName == "" {
		return "", false
	}
	return c.lookup(ctx, displayName+c.leaveSuffix)
}

func (c *Cascade) lookup(ctx context.Context, id string) (string, bool) {
	if c.sounds == nil || strings.TrimSpace(id) == "" {
		return "", false
	}
	return c.sounds.Lookup(ctx, id)
}

// Resolve decides what an event plays. Bots never trigger sounds. A move
// plays at most one sound: the entrance in the new channel, otherwise the
// leave sound in the old one.
func (c *Cascade) Resolve(ctx context.Context, ev Event) (Decision, bool) {
	if ev.Bot {
		return Decision{}, false
	}

	switch ev.Kind {
	case Join, Move:
		if id, ok := c.Entrance(ctx, ev.UserID, ev.DisplayName); ok {
			return Decision{SoundID: id, ChannelID: ev.DestChannelID, Entrance: true}, true
		}
		if ev.Kind == Join {
			break
		}
		if id, ok := c.Leave(ctx, ev.UserID, ev.DisplayName); ok {
			return Decision{SoundID: id, ChannelID: ev.OriginChannelID}, true
		}
	case Leave:
		if id, ok := c.Leave(ctx, ev.UserID, ev.DisplayName); ok {
			return Decision{SoundID: id, ChannelID: ev.OriginChannelID}, true
		}
	}

	slog.Debug("no presence sound", "userID", ev.UserID, "kind", ev.Kind.String())
	return Decision{}, false
}
