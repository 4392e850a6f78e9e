package handler

import (
	"context"
	"io"

	"github.com/glizzus/soundboard/internal/playback"
	"github.com/glizzus/soundboard/internal/repository"
)

// Player is the playback control surface.
type Player interface {
	Play(ctx context.Context, cmd playback.PlayCommand) error
	PlayNow(ctx context.Context, cmd playback.PlayCommand) error
	Stop(ctx context.Context, guildID string) error
	Skip(ctx context.Context, guildID string) error
	Shuffle(ctx context.Context, guildID string) error
	Disconnect(ctx context.Context, guildID string) error
	SetVolume(ctx context.Context, guildID string, volume float64) error
	SetRepeating(ctx context.Context, guildID string, repeating bool) error
	Status(ctx context.Context, guildID string) (playback.Status, error)
}

var _ Player = (*playback.Manager)(nil)

type ChannelLocator interface {
	UserChannel(guildID, userID string) (string, bool)
}

type Library interface {
	List() []repository.Sound
	Lookup(ctx context.Context, id string) (string, bool)
}

type SoundImporter interface {
	Import(ctx context.Context, sound repository.Sound, r io.Reader) (repository.Sound, error)
}

type PreferenceWriter interface {
	SaveEntranceSound(ctx context.Context, userID, username, soundID string) error
	SaveLeaveSound(ctx context.Context, userID, username, soundID string) error
}

type PauseList interface {
	Pause(ctx context.Context, soundCronID string) error
	Resume(ctx context.Context, soundCronID string) error
	IsPaused(ctx context.Context, soundCronID string) (bool, error)
}

// Deps are the collaborators of the interaction handlers. Commands whose
// collaborators are nil are not handled.
type Deps struct {
	Player      Player
	Locator     ChannelLocator
	Library     Library
	Importer    SoundImporter
	Preferences PreferenceWriter
	SoundCrons  repository.SoundCronRepository
	Pauses      PauseList
	// HTTPClient downloads uploaded attachments. Defaults to http.DefaultClient.
	HTTPClient HTTPClient
}

type interactions struct {
	deps Deps
}
