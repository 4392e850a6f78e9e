package opus

import (
	"fmt"

	"layeh.com/gopus"
)

// Encoder turns one PCM frame into one Opus frame.
type Encoder interface {
	Encode(pcm []int16, frameSize, maxDataBytes int) ([]byte, error)
}

var _ Encoder = (*gopus.Encoder)(nil)

func NewEncoder() (Encoder, error) {
	enc, err := gopus.NewEncoder(SampleRate, Channels, gopus.Audio)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus encoder: %w", err)
	}
	return enc, nil
}
