package playback

import (
	"context"
	"time"
)

// EndReason says why a track stopped playing.
type EndReason string

const (
	EndFinished     EndReason = "finished"
	EndSkipped      EndReason = "skipped"
	EndStopped      EndReason = "stopped"
	EndInterrupted  EndReason = "interrupted"
	EndFailed       EndReason = "failed"
	EndDisconnected EndReason = "disconnected"
)

type TrackEvent struct {
	GuildID     string
	SoundID     string
	DisplayName string
	Submitter   string
	At          time.Time
	// Reason is only set on TrackEnded.
	Reason EndReason
}

// Notifier receives best-effort playback notifications. Errors are logged
// and never affect playback.
type Notifier interface {
	TrackStarted(ctx context.Context, ev TrackEvent) error
	TrackEnded(ctx context.Context, ev TrackEvent) error
}
