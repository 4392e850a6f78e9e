package library

import (
	"context"
	"errors"
	"fmt"

	"github.com/glizzus/soundboard/internal/opus"
	"github.com/glizzus/soundboard/internal/playback"
	"github.com/glizzus/soundboard/internal/repository"
)

var errNoBlobStorage = errors.New("no blob storage configured")

type Track struct {
	sound repository.Sound
	c     *Catalog
}

var _ playback.Track = (*Track)(nil)

func (t *Track) SoundID() string { return t.sound.ID }

func (t *Track) DisplayName() string {
	if t.sound.DisplayName == "" {
		return t.sound.ID
	}
	return t.sound.DisplayName
}

func (t *Track) Sound() repository.Sound { return t.sound }

// Open starts decoding the sound to PCM. Stored blobs are decoded frame by
// frame; files and URLs go through ffmpeg.
func (t *Track) Open(ctx context.Context) (opus.PCMReader, error) {
	switch t.sound.Kind {
	case repository.SoundBlob:
		if t.c.blobs == nil {
			return nil, errNoBlobStorage
		}
		rc, err := t.c.blobs.Get(ctx, t.sound.Source)
		if err != nil {
			return nil, fmt.Errorf("failed to open blob %s: %w", t.sound.Source, err)
		}
		return opus.NewStoredPCM(rc)
	case repository.SoundFile, repository.SoundURL:
		return opus.NewFFmpegPCM(t.c.ffmpegPath, t.sound.Source)
	default:
		return nil, fmt.Errorf("unknown sound kind %q", t.sound.Kind)
	}
}
