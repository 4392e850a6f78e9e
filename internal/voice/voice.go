package voice

import (
	"cmp"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/soundboard/internal/util"
)

// MaxAttendedChannel returns the voice channel with the most users in it,
// ignoring the users in exclude. Ties go to the lowest channel ID.
// This returns false if no channel has any users.
func MaxAttendedChannel(states []*discordgo.VoiceState, exclude ...string) (string, bool) {
	counts := util.CountBy(states, func(vs *discordgo.VoiceState) (string, bool) {
		if vs.ChannelID == "" {
			return "", false
		}
		for _, id := range exclude {
			if vs.UserID == id {
				return "", false
			}
		}
		return vs.ChannelID, true
	})

	var maxAttendedChannel string
	maxAttended := 0
	for channelID, n := range counts {
		if n > maxAttended || (n == maxAttended && cmp.Less(channelID, maxAttendedChannel)) {
			maxAttendedChannel = channelID
			maxAttended = n
		}
	}

	return maxAttendedChannel, maxAttended > 0
}

// UserVoiceChannel returns the voice channel userID is currently in.
func UserVoiceChannel(states []*discordgo.VoiceState, userID string) (string, bool) {
	vs, ok := util.FindFirst(states, func(vs *discordgo.VoiceState) bool {
		return vs.UserID == userID && vs.ChannelID != ""
	})
	if !ok {
		return "", false
	}
	return vs.ChannelID, true
}

// Locator answers voice channel questions from the gateway state cache.
type Locator struct {
	session *discordgo.Session
}

func NewLocator(s *discordgo.Session) *Locator {
	return &Locator{session: s}
}

// VoiceStates returns a copy of the cached voice states of a guild.
func (l *Locator) VoiceStates(guildID string) ([]*discordgo.VoiceState, error) {
	l.session.State.RLock()
	defer l.session.State.RUnlock()

	guild, err := l.guildLocked(guildID)
	if err != nil {
		return nil, err
	}
	states := make([]*discordgo.VoiceState, 0, len(guild.VoiceStates))
	for _, vs := range guild.VoiceStates {
		copied := *vs
		states = append(states, &copied)
	}
	return states, nil
}

func (l *Locator) guildLocked(guildID string) (*discordgo.Guild, error) {
	for _, g := range l.session.State.Guilds {
		if g.ID == guildID {
			return g, nil
		}
	}
	return nil, discordgo.ErrStateNotFound
}

func (l *Locator) UserChannel(guildID, userID string) (string, bool) {
	states, err := l.VoiceStates(guildID)
	if err != nil {
		return "", false
	}
	return UserVoiceChannel(states, userID)
}

// BusiestChannel returns the most attended voice channel, not counting the bot.
func (l *Locator) BusiestChannel(guildID string) (string, bool) {
	states, err := l.VoiceStates(guildID)
	if err != nil {
		return "", false
	}
	return MaxAttendedChannel(states, l.session.State.User.ID)
}
