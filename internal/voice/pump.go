package voice

import (
	"context"
	"log/slog"
	"time"

	"github.com/glizzus/soundboard/internal/opus"
)

// Pump feeds frames from src to conn until ctx is done. While src has
// nothing to provide it polls once per frame interval.
func Pump(ctx context.Context, conn Conn, src opus.FrameSource) {
	ticker := time.NewTicker(opus.FrameDuration)
	defer ticker.Stop()

	speaking := false
	setSpeaking := func(on bool) {
		if speaking == on {
			return
		}
		speaking = on
		if err := conn.Speaking(on); err != nil {
			slog.Warn("failed to set speaking state", "speaking", on, "error", err)
		}
	}
	defer setSpeaking(false)

	for ctx.Err() == nil {
		if !src.CanProvide() {
			setSpeaking(false)
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			continue
		}

		frame := src.NextFrame()
		if frame == nil {
			continue
		}
		setSpeaking(true)
		if err := conn.Send(ctx, frame); err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Warn("failed to send voice frame", "error", err)
			// Back off so a dead transport does not spin.
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
		}
	}
}
