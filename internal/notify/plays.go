package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/glizzus/soundboard/internal/generator"
	"github.com/glizzus/soundboard/internal/playback"
	"github.com/glizzus/soundboard/internal/repository"
)

// PlayRecorder records a play event for every started library sound.
type PlayRecorder struct {
	plays repository.PlayEventRecorder
	ids   generator.Generator[string]
}

var _ playback.Notifier = (*PlayRecorder)(nil)

func NewPlayRecorder(plays repository.PlayEventRecorder, ids generator.Generator[string]) *PlayRecorder {
	return &PlayRecorder{plays: plays, ids: ids}
}

func (r *PlayRecorder) TrackStarted(ctx context.Context, ev playback.TrackEvent) error {
	// Ad hoc URLs are not library sounds.
	if strings.HasPrefix(ev.SoundID, "http://") || strings.HasPrefix(ev.SoundID, "https://") {
		return nil
	}

	id, err := r.ids.Next()
	if err != nil {
		return fmt.Errorf("failed to generate play event id: %w", err)
	}
	return r.plays.RecordPlay(ctx, repository.PlayEvent{
		ID:       id,
		GuildID:  ev.GuildID,
		SoundID:  ev.SoundID,
		Username: ev.Submitter,
		PlayedAt: ev.At,
	})
}

func (r *PlayRecorder) TrackEnded(ctx context.Context, ev playback.TrackEvent) error {
	return nil
}
