package presence

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/glizzus/soundboard/internal/playback"
)

type Player interface {
	PlayNow(ctx context.Context, cmd playback.PlayCommand) error
	CheckEmptyChannel(ctx context.Context, guildID string) (bool, error)
}

type Flags struct {
	EntranceOnJoin bool
	EntranceOnMove bool
	LeaveSounds    bool
}

func (f Flags) enabled(k Kind) bool {
	switch k {
	case Join:
		return f.EntranceOnJoin
	case Move:
		return f.EntranceOnMove
	case Leave:
		return f.LeaveSounds
	default:
		return false
	}
}

type resolver interface {
	Resolve(ctx context.Context, ev Event) (Decision, bool)
}

type Router struct {
	player  Player
	cascade resolver
	flags   Flags
}

func NewRouter(player Player, cascade *Cascade, flags Flags) *Router {
	return &Router{player: player, cascade: cascade, flags: flags}
}

// Handle applies one voice state change. Every change in the guild first
// re-evaluates whether the connected channel is empty.
func (r *Router) Handle(ctx context.Context, ev Event) error {
	closed, err := r.player.CheckEmptyChannel(ctx, ev.GuildID)
	if err != nil {
		slog.Warn("failed to check for an empty channel", "guildID", ev.GuildID, "error", err)
	}

	if ev.Bot || !r.flags.enabled(ev.Kind) {
		return nil
	}

	decision, ok := r.cascade.Resolve(ctx, ev)
	if !ok {
		return nil
	}
	if closed && !decision.Entrance {
		// The member leaving emptied the channel.
		return nil
	}

	slog.Info(
		"playing presence sound",
		"guildID", ev.GuildID,
		"channelID", decision.ChannelID,
		"soundID", decision.SoundID,
		"userID", ev.UserID,
		"kind", ev.Kind.String(),
	)
	err = r.player.PlayNow(ctx, playback.PlayCommand{
		GuildID:     ev.GuildID,
		ChannelID:   decision.ChannelID,
		SoundID:     decision.SoundID,
		RepeatCount: 1,
		Submitter:   ev.DisplayName,
	})
	if err != nil {
		return fmt.Errorf("failed to play %s sound %s: %w", ev.Kind, decision.SoundID, err)
	}
	return nil
}
