package opus

import (
	"context"
	"errors"
	"time"
)

var ErrVoiceConnClosed = errors.New("voice connection send timeout")

// FrameSource is polled by the transport once per 20ms tick.
// NextFrame is only called after CanProvide returned true.
type FrameSource interface {
	CanProvide() bool
	NextFrame() []byte
}

// SendTimeout bounds how long a single frame may wait for the transport.
const SendTimeout = time.Minute

// SendFrame hands frame to a voice transport channel.
func SendFrame(ctx context.Context, send chan<- []byte, frame []byte) error {
	timer := time.NewTimer(SendTimeout)
	defer timer.Stop()

	select {
	case send <- frame:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrVoiceConnClosed
	}
}
