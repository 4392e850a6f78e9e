package library_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/glizzus/soundboard/internal/datalayer"
	"github.com/glizzus/soundboard/internal/library"
	"github.com/glizzus/soundboard/internal/repository"
)

func TestValidateSoundID(t *testing.T) {
	table := []struct {
		id      string
		wantErr bool
	}{
		{id: "airhorn"},
		{id: "Bob_leave"},
		{id: "", wantErr: true},
		{id: "two words", wantErr: true},
		{id: "https://example.com/a.mp3", wantErr: true},
		{id: "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", wantErr: true},
	}

	for _, tt := range table {
		t.Run(tt.id, func(t *testing.T) {
			err := library.ValidateSoundID(tt.id)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSoundID(%q) = %v, wantErr %v", tt.id, err, tt.wantErr)
			}
		})
	}
}

func TestSoundIDFromFilename(t *testing.T) {
	table := map[string]string{
		"airhorn.mp3":       "airhorn",
		"my clip.final.ogg": "my_clip.final",
		".hidden":           ".hidden",
		"noext":             "noext",
	}
	for name, want := range table {
		if got := library.SoundIDFromFilename(name); got != want {
			t.Errorf("SoundIDFromFilename(%q) = %q, want %q", name, got, want)
		}
	}
}

type deleter map[string]repository.Sound

func (d deleter) DeleteSound(ctx context.Context, id string) (*repository.Sound, error) {
	for key, s := range d {
		if strings.EqualFold(key, id) {
			delete(d, key)
			return &s, nil
		}
	}
	return nil, nil
}

type blobs struct {
	deleted []string
}

func (b *blobs) Put(ctx context.Context, key string, data io.Reader, opts datalayer.PutOptions) error {
	return nil
}

func (b *blobs) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	return nil, errors.New("not stored")
}

func (b *blobs) Delete(ctx context.Context, key string) error {
	b.deleted = append(b.deleted, key)
	return nil
}

func TestRemove(t *testing.T) {
	sounds := deleter{
		"Airhorn": {ID: "Airhorn", Kind: repository.SoundBlob, Source: "sounds/1"},
		"gong":    {ID: "gong", Kind: repository.SoundFile, Source: "/sounds/gong.mp3"},
	}
	storage := &blobs{}

	removed, err := library.Remove(t.Context(), sounds, storage, "airhorn")
	if err != nil {
		t.Fatalf("Remove returned error: %v", err)
	}
	if removed == nil || removed.ID != "Airhorn" {
		t.Fatalf("removed = %+v, want Airhorn", removed)
	}

	if _, err := library.Remove(t.Context(), sounds, storage, "gong"); err != nil {
		t.Fatalf("Remove returned error: %v", err)
	}
	if diff := cmp.Diff([]string{"sounds/1"}, storage.deleted); diff != "" {
		t.Errorf("deleted blobs mismatch (-want +got):\n%s", diff)
	}

	removed, err = library.Remove(t.Context(), sounds, storage, "missing")
	if err != nil || removed != nil {
		t.Errorf("Remove(missing) = %+v, %v, want nil, nil", removed, err)
	}
}
