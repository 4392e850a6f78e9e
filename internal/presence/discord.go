package presence

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/soundboard/internal/playback"
	"github.com/glizzus/soundboard/internal/voice"
)

const handleTimeout = 30 * time.Second

// EventFromVoiceState classifies a gateway voice state update. It reports
// false for updates that carry no guild.
func EventFromVoiceState(s *discordgo.Session, vs *discordgo.VoiceStateUpdate) (Event, bool) {
	if vs.VoiceState == nil || vs.GuildID == "" {
		return Event{}, false
	}

	ev := Event{
		GuildID:       vs.GuildID,
		UserID:        vs.UserID,
		DestChannelID: vs.ChannelID,
	}
	if vs.BeforeUpdate != nil {
		ev.OriginChannelID = vs.BeforeUpdate.ChannelID
	}

	switch {
	case ev.OriginChannelID == "" && ev.DestChannelID != "":
		ev.Kind = Join
	case ev.OriginChannelID != "" && ev.DestChannelID == "":
		ev.Kind = Leave
	case ev.OriginChannelID != ev.DestChannelID:
		ev.Kind = Move
	default:
		ev.Kind = Update
	}

	member := vs.Member
	if member == nil && s != nil && s.State != nil {
		member, _ = s.State.Member(vs.GuildID, vs.UserID)
	}
	if member != nil && member.User != nil {
		ev.DisplayName = member.DisplayName()
		ev.Bot = member.User.Bot
	}
	if s != nil && s.State != nil && s.State.User != nil && vs.UserID == s.State.User.ID {
		ev.Bot = true
	}
	return ev, true
}

// VoiceStateHandler adapts the router to a discordgo event handler. A non-nil
// roster learns member flags from each update before the router sees it.
func VoiceStateHandler(r *Router, roster *DiscordRoster) func(*discordgo.Session, *discordgo.VoiceStateUpdate) {
	return func(s *discordgo.Session, vs *discordgo.VoiceStateUpdate) {
		ev, ok := EventFromVoiceState(s, vs)
		if !ok {
			return
		}
		if roster != nil {
			roster.Observe(vs.VoiceState)
		}

		ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
		defer cancel()

		if err := r.Handle(ctx, ev); err != nil {
			level := slog.LevelError
			if errors.Is(err, playback.ErrSoundNotFound) {
				level = slog.LevelWarn
			}
			slog.Log(ctx, level, "failed to handle voice state update",
				"guildID", ev.GuildID,
				"userID", ev.UserID,
				"error", err,
			)
		}
	}
}

// DiscordRoster reads channel membership from the gateway state cache.
//
// Voice states cached from GUILD_CREATE carry no member, and without the
// members intent the state cache may not hold one either. The roster keeps
// the bot flag of every member it has seen in a voice state update so such
// users are still classified.
type DiscordRoster struct {
	session *discordgo.Session
	locator *voice.Locator

	// userID -> bot
	bots sync.Map
}

var _ playback.Roster = (*DiscordRoster)(nil)

func NewDiscordRoster(s *discordgo.Session) *DiscordRoster {
	return &DiscordRoster{session: s, locator: voice.NewLocator(s)}
}

func (r *DiscordRoster) VoiceMembers(guildID, channelID string) ([]playback.Member, error) {
	states, err := r.locator.VoiceStates(guildID)
	if err != nil {
		return nil, err
	}

	var members []playback.Member
	for _, vs := range states {
		if vs.ChannelID != channelID {
			continue
		}
		m := playback.Member{
			UserID:   vs.UserID,
			Deafened: vs.Deaf || vs.SelfDeaf,
		}
		if vs.Member != nil && vs.Member.User != nil {
			m.Bot = vs.Member.User.Bot
		} else if member, err := r.session.State.Member(guildID, vs.UserID); err == nil && member.User != nil {
			m.Bot = member.User.Bot
		} else if bot, ok := r.bots.Load(vs.UserID); ok {
			m.Bot = bot.(bool)
		}
		if r.session.State.User != nil && vs.UserID == r.session.State.User.ID {
			m.Bot = true
		}
		members = append(members, m)
	}
	return members, nil
}

// Observe records the bot flag of the member attached to a voice state.
func (r *DiscordRoster) Observe(vs *discordgo.VoiceState) {
	if vs == nil || vs.Member == nil || vs.Member.User == nil {
		return
	}
	r.bots.Store(vs.Member.User.ID, vs.Member.User.Bot)
}

func (r *DiscordRoster) AFKChannel(guildID string) (string, bool) {
	guild, err := r.session.State.Guild(guildID)
	if err != nil || guild.AfkChannelID == "" {
		return "", false
	}
	return guild.AfkChannelID, true
}
