package playback

import "errors"

var (
	ErrSoundNotFound = errors.New("sound not found")
	ErrNotConnected  = errors.New("not connected to a voice channel")
	ErrNoChannel     = errors.New("no voice channel to play in")
	ErrActorClosed   = errors.New("playback actor is closed")
)
