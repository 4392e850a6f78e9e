package handler

import (
	"errors"
	"fmt"

	"github.com/glizzus/soundboard/internal/playback"
	"github.com/glizzus/soundboard/internal/voice"
)

// SoundCronAlreadyExistsError is an error that indicates
// that a soundcron already exists for the given guild and name.
type SoundCronAlreadyExistsError struct {
	GuildID string
	Name    string
}

func (e *SoundCronAlreadyExistsError) Error() string {
	return fmt.Sprintf("soundcron already exists for guild %s with name %s", e.GuildID, e.Name)
}

var _ error = (*SoundCronAlreadyExistsError)(nil)

// SoundCronLimitError is returned when a guild already has the maximum
// number of soundcrons.
type SoundCronLimitError struct {
	Current int
	Max     int
}

func (e *SoundCronLimitError) Error() string {
	return fmt.Sprintf("soundcron limit reached: %d of %d", e.Current, e.Max)
}

var _ error = (*SoundCronLimitError)(nil)

// UserError is an error type that is used to represent
// an error that should be displayed to the user.
type UserError struct {
	Message string
}

func (e *UserError) Error() string {
	return e.Message
}

var _ error = (*UserError)(nil)

// userMessage turns an error into something to show the user. It reports
// false for errors the user cannot act on.
func userMessage(err error) (string, bool) {
	var userErr *UserError
	var existsErr *SoundCronAlreadyExistsError
	var limitErr *SoundCronLimitError

	switch {
	case errors.As(err, &userErr):
		return userErr.Message, true
	case errors.As(err, &existsErr):
		return fmt.Sprintf("A soundcron named **%s** already exists.", existsErr.Name), true
	case errors.As(err, &limitErr):
		return fmt.Sprintf("This server already has %d soundcrons, the most allowed.", limitErr.Max), true
	case errors.Is(err, playback.ErrSoundNotFound):
		return "I couldn't find that sound.", true
	case errors.Is(err, playback.ErrNoChannel):
		return "Join a voice channel first.", true
	case errors.Is(err, playback.ErrNotConnected):
		return "I'm not in a voice channel.", true
	case errors.Is(err, voice.ErrConnectTimeout):
		return "I couldn't connect to your voice channel in time. Try again.", true
	default:
		return "Something went wrong.", false
	}
}
