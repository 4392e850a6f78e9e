package playback

import (
	"context"

	"github.com/glizzus/soundboard/internal/opus"
)

// Track is a resolved, playable sound. Open may be called once per play.
type Track interface {
	SoundID() string
	DisplayName() string
	Open(ctx context.Context) (opus.PCMReader, error)
}

// Resolver turns a sound id, or an http(s) URL, into a Track. Any failure
// is reported as ErrSoundNotFound.
type Resolver interface {
	Resolve(ctx context.Context, soundID string) (Track, error)
	Random(ctx context.Context) (Track, error)
}

type Member struct {
	UserID   string
	Bot      bool
	Deafened bool
}

// Roster reports who is in a voice channel, from the gateway state.
type Roster interface {
	VoiceMembers(guildID, channelID string) ([]Member, error)
	AFKChannel(guildID string) (string, bool)
}
