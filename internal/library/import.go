package library

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode"

	"github.com/glizzus/soundboard/internal/datalayer"
	"github.com/glizzus/soundboard/internal/generator"
	"github.com/glizzus/soundboard/internal/opus"
	"github.com/glizzus/soundboard/internal/repository"
)

const (
	blobPrefix     = "sounds/"
	maxSoundIDSize = 64
)

type SoundSaver interface {
	FindSound(ctx context.Context, id string) (*repository.Sound, error)
	SaveSound(ctx context.Context, sound repository.Sound) error
}

// Importer transcodes uploaded audio to stored Opus frames and registers it
// in the library.
type Importer struct {
	sounds     SoundSaver
	blobs      datalayer.BlobStorage
	ids        generator.Generator[string]
	ffmpegPath string
}

func NewImporter(sounds SoundSaver, blobs datalayer.BlobStorage, ids generator.Generator[string], ffmpegPath string) *Importer {
	return &Importer{sounds: sounds, blobs: blobs, ids: ids, ffmpegPath: ffmpegPath}
}

// ValidateSoundID reports whether id can name a sound.
func ValidateSoundID(id string) error {
	if id == "" {
		return fmt.Errorf("sound id must not be empty")
	}
	if len(id) > maxSoundIDSize {
		return fmt.Errorf("sound id must be at most %d bytes", maxSoundIDSize)
	}
	if isRemote(id) {
		return fmt.Errorf("sound id must not be a URL")
	}
	for _, r := range id {
		if unicode.IsSpace(r) || !unicode.IsPrint(r) {
			return fmt.Errorf("sound id must not contain whitespace")
		}
	}
	return nil
}

// SoundIDFromFilename derives a sound id from an uploaded file's name.
func SoundIDFromFilename(name string) string {
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		name = name[:i]
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return '_'
		}
		return r
	}, name)
}

// Import stores r as the sound id, replacing any previous audio for it.
func (im *Importer) Import(ctx context.Context, sound repository.Sound, r io.Reader) (repository.Sound, error) {
	if err := ValidateSoundID(sound.ID); err != nil {
		return repository.Sound{}, err
	}

	previous, err := im.sounds.FindSound(ctx, sound.ID)
	if err != nil {
		return repository.Sound{}, err
	}
	if previous != nil {
		// Keep the existing spelling of the id.
		sound.ID = previous.ID
	}

	frames, err := opus.Encode(ctx, im.ffmpegPath, r)
	if err != nil {
		return repository.Sound{}, fmt.Errorf("failed to start encoding: %w", err)
	}
	defer frames.Close()

	blobID, err := im.ids.Next()
	if err != nil {
		return repository.Sound{}, fmt.Errorf("failed to generate blob id: %w", err)
	}
	key := blobPrefix + blobID

	counted := &countingReader{r: frames}
	err = im.blobs.Put(ctx, key, counted, datalayer.PutOptions{
		Size:        -1,
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return repository.Sound{}, fmt.Errorf("failed to upload sound: %w", err)
	}
	if counted.n == 0 {
		im.deleteBlob(ctx, key)
		return repository.Sound{}, fmt.Errorf("no audio could be decoded for %s", sound.ID)
	}

	sound.Kind = repository.SoundBlob
	sound.Source = key
	if err := im.sounds.SaveSound(ctx, sound); err != nil {
		im.deleteBlob(ctx, key)
		return repository.Sound{}, err
	}

	if previous != nil && previous.Kind == repository.SoundBlob && previous.Source != key {
		im.deleteBlob(ctx, previous.Source)
	}
	slog.Info("imported sound", "soundID", sound.ID, "key", key)
	return sound, nil
}

func (im *Importer) deleteBlob(ctx context.Context, key string) {
	if err := im.blobs.Delete(ctx, key); err != nil {
		slog.Warn("failed to delete blob", "key", key, "error", err)
	}
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

type SoundDeleter interface {
	DeleteSound(ctx context.Context, id string) (*repository.Sound, error)
}

// Remove deletes a sound and, for stored sounds, its blob. It returns nil if
// the sound did not exist.
func Remove(ctx context.Context, sounds SoundDeleter, blobs datalayer.BlobStorage, id string) (*repository.Sound, error) {
	sound, err := sounds.DeleteSound(ctx, id)
	if err != nil || sound == nil {
		return nil, err
	}
	if sound.Kind == repository.SoundBlob && blobs != nil {
		if err := blobs.Delete(ctx, sound.Source); err != nil {
			return sound, fmt.Errorf("deleted %s but failed to delete its blob: %w", sound.ID, err)
		}
	}
	return sound, nil
}
