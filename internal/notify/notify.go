// Package notify delivers playback notifications to downstream observers.
package notify

import (
	"context"
	"errors"
	"log/slog"

	"github.com/glizzus/soundboard/internal/playback"
)

// LogSink logs every notification.
type LogSink struct{}

var _ playback.Notifier = LogSink{}

func (LogSink) TrackStarted(ctx context.Context, ev playback.TrackEvent) error {
	slog.InfoContext(ctx, "track started",
		"guildID", ev.GuildID,
		"soundID", ev.SoundID,
		"displayName", ev.DisplayName,
		"submitter", ev.Submitter,
	)
	return nil
}

func (LogSink) TrackEnded(ctx context.Context, ev playback.TrackEvent) error {
	slog.DebugContext(ctx, "track ended",
		"guildID", ev.GuildID,
		"soundID", ev.SoundID,
		"reason", string(ev.Reason),
	)
	return nil
}

// Fanout delivers to every sink, even when some fail.
type Fanout []playback.Notifier

var _ playback.Notifier = Fanout(nil)

func (f Fanout) TrackStarted(ctx context.Context, ev playback.TrackEvent) error {
	var errs []error
	for _, n := range f {
		errs = append(errs, n.TrackStarted(ctx, ev))
	}
	return errors.Join(errs...)
}

func (f Fanout) TrackEnded(ctx context.Context, ev playback.TrackEvent) error {
	var errs []error
	for _, n := range f {
		errs = append(errs, n.TrackEnded(ctx, ev))
	}
	return errors.Join(errs...)
}
