package voice

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/soundboard/internal/opus"
)

type DiscordJoiner struct {
	session *discordgo.Session
}

func NewDiscordJoiner(s *discordgo.Session) *DiscordJoiner {
	return &DiscordJoiner{session: s}
}

var _ Joiner = (*DiscordJoiner)(nil)

func (j *DiscordJoiner) Join(ctx context.Context, guildID, channelID string) (Conn, error) {
	type result struct {
		vc  *discordgo.VoiceConnection
		err error
	}
	results := make(chan result, 1)

	go func() {
		vc, err := j.session.ChannelVoiceJoin(guildID, channelID, false, true)
		results <- result{vc: vc, err: err}
	}()

	select {
	case r := <-results:
		if r.err != nil {
			return nil, fmt.Errorf("unable to join the voice channel: %w", r.err)
		}
		return discordConn{vc: r.vc}, nil
	case <-ctx.Done():
		j.forceClose(guildID)
		go func() {
			if r := <-results; r.err == nil {
				if err := r.vc.Disconnect(); err != nil {
					slog.Warn("failed to disconnect late voice connection", "guildID", guildID, "error", err)
				}
			}
		}()
		return nil, ctx.Err()
	}
}

// forceClose tears down a half-open voice connection so the next join
// starts clean.
func (j *DiscordJoiner) forceClose(guildID string) {
	j.session.RLock()
	vc := j.session.VoiceConnections[guildID]
	j.session.RUnlock()

	if vc == nil {
		return
	}
	if err := vc.Disconnect(); err != nil {
		slog.Warn("failed to close stale voice connection", "guildID", guildID, "error", err)
	}
}

// discordConn is a value type so two joins that land on the same
// discordgo connection compare equal.
type discordConn struct {
	vc *discordgo.VoiceConnection
}

func (c discordConn) ChannelID() string {
	c.vc.RLock()
	defer c.vc.RUnlock()
	return c.vc.ChannelID
}

func (c discordConn) Speaking(speaking bool) error {
	return c.vc.Speaking(speaking)
}

func (c discordConn) Send(ctx context.Context, frame []byte) error {
	return opus.SendFrame(ctx, c.vc.OpusSend, frame)
}

func (c discordConn) Disconnect() error {
	return c.vc.Disconnect()
}
