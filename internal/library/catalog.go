// Package library resolves sound ids to playable tracks. Metadata lives in
// Postgres, optionally merged with a local directory of audio files, and is
// served from an in-memory snapshot refreshed in the background.
package library

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math/rand/v2"
	"net/url"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/glizzus/soundboard/internal/playback"
	"github.com/glizzus/soundboard/internal/repository"
)

type SoundFinder interface {
	ListSounds(ctx context.Context) ([]repository.Sound, error)
	FindSound(ctx context.Context, id string) (*repository.Sound, error)
}

type BlobOpener interface {
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

var audioExtensions = []string{".mp3", ".wav", ".ogg", ".opus", ".flac", ".m4a", ".webm", ".aac"}

type index struct {
	byID   map[string]repository.Sound
	sorted []repository.Sound
}

type Catalog struct {
	sounds     SoundFinder
	blobs      BlobOpener
	ffmpegPath string
	dir        string

	snapshot atomic.Pointer[index]
}

type Options struct {
	FFmpegPath string
	// Dir is an optional directory of audio files served alongside the
	// database. Database entries win on id clashes.
	Dir string
}

func NewCatalog(sounds SoundFinder, blobs BlobOpener, opts Options) *Catalog {
	c := &Catalog{
		sounds:     sounds,
		blobs:      blobs,
		ffmpegPath: opts.FFmpegPath,
		dir:        opts.Dir,
	}
	c.snapshot.Store(&index{byID: map[string]repository.Sound{}})
	return c
}

// Refresh rebuilds the snapshot. The previous snapshot stays in use if
// anything fails.
func (c *Catalog) Refresh(ctx context.Context) error {
	byID := make(map[string]repository.Sound)

	if c.dir != "" {
		local, err := scanDir(c.dir)
		if err != nil {
			return fmt.Errorf("failed to scan %s: %w", c.dir, err)
		}
		for _, s := range local {
			byID[strings.ToLower(s.ID)] = s
		}
	}

	if c.sounds != nil {
		stored, err := c.sounds.ListSounds(ctx)
		if err != nil {
			return err
		}
		for _, s := range stored {
			byID[strings.ToLower(s.ID)] = s
		}
	}

	sorted := make([]repository.Sound, 0, len(byID))
	for _, s := range byID {
		sorted = append(sorted, s)
	}
	slices.SortFunc(sorted, func(a, b repository.Sound) int {
		return cmp.Compare(strings.ToLower(a.ID), strings.ToLower(b.ID))
	})

	c.snapshot.Store(&index{byID: byID, sorted: sorted})
	slog.Debug("refreshed sound catalog", "sounds", len(sorted))
	return nil
}

// Run refreshes the snapshot every interval until ctx is done.
func (c *Catalog) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Refresh(ctx); err != nil {
				slog.Warn("failed to refresh sound catalog", "error", err)
			}
		}
	}
}

// List returns every known sound ordered by id, ignoring case.
func (c *Catalog) List() []repository.Sound {
	return slices.Clone(c.snapshot.Load().sorted)
}

// find checks the snapshot, then the database for sounds added since the
// last refresh.
func (c *Catalog) find(ctx context.Context, id string) (repository.Sound, bool) {
	if s, ok := c.snapshot.Load().byID[strings.ToLower(id)]; ok {
		return s, true
	}
	if c.sounds == nil {
		return repository.Sound{}, false
	}
	s, err := c.sounds.FindSound(ctx, id)
	if err != nil {
		slog.Warn("failed to look up sound", "soundID", id, "error", err)
		return repository.Sound{}, false
	}
	if s == nil {
		return repository.Sound{}, false
	}
	return *s, true
}

// Lookup returns the canonical id of a sound, matching case-insensitively.
func (c *Catalog) Lookup(ctx context.Context, id string) (string, bool) {
	if strings.TrimSpace(id) == "" {
		return "", false
	}
	s, ok := c.find(ctx, id)
	return s.ID, ok
}

var _ playback.Resolver = (*Catalog)(nil)

func (c *Catalog) Resolve(ctx context.Context, id string) (playback.Track, error) {
	if isRemote(id) {
		return &Track{
			sound: repository.Sound{ID: id, DisplayName: id, Kind: repository.SoundURL, Source: id},
			c:     c,
		}, nil
	}
	s, ok := c.find(ctx, id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", playback.ErrSoundNotFound, id)
	}
	return &Track{sound: s, c: c}, nil
}

func (c *Catalog) Random(ctx context.Context) (playback.Track, error) {
	sounds := c.snapshot.Load().sorted
	if len(sounds) == 0 {
		return nil, fmt.Errorf("%w: the library is empty", playback.ErrSoundNotFound)
	}
	return &Track{sound: sounds[rand.IntN(len(sounds))], c: c}, nil
}

func isRemote(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func scanDir(dir string) ([]repository.Sound, error) {
	var sounds []repository.Sound
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if !slices.Contains(audioExtensions, ext) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		id := strings.TrimSuffix(d.Name(), filepath.Ext(d.Name()))
		category, err := filepath.Rel(dir, filepath.Dir(path))
		if err != nil || category == "." {
			category = ""
		}
		sounds = append(sounds, repository.Sound{
			ID:          id,
			DisplayName: id,
			Category:    filepath.ToSlash(category),
			Kind:        repository.SoundFile,
			Source:      path,
			AddedAt:     info.ModTime(),
		})
		return nil
	})
	return sounds, err
}
