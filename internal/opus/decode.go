package opus

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"layeh.com/gopus"
)

// FrameReader reads length-prefixed Opus frames from an io.Reader.
type FrameReader struct {
	r io.Reader
}

// NewFrameReader returns a new FrameReader that reads from r.
func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{r: r}
}

// ReadFrame reads and returns the next raw Opus frame.
// Returns io.EOF when there are no more frames.
func (f *FrameReader) ReadFrame() ([]byte, error) {
	var size uint16
	if err := binary.Read(f.r, binary.LittleEndian, &size); err != nil {
		return nil, err
	}

	frame := make([]byte, size)
	if _, err := io.ReadFull(f.r, frame); err != nil {
		return nil, err
	}
	return frame, nil
}

// WriteFrame writes frame in the length-prefixed format read by FrameReader.
func WriteFrame(w io.Writer, frame []byte) error {
	if len(frame) > 0xFFFF {
		return fmt.Errorf("opus frame of %d bytes does not fit a length prefix", len(frame))
	}
	var lenBuf [2]byte
	binary.LittleEndian.PutUint16(lenBuf[:], uint16(len(frame)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(frame)
	return err
}

// Decoder turns one Opus frame back into PCM.
type Decoder interface {
	Decode(data []byte, frameSize int, fec bool) ([]int16, error)
}

var _ Decoder = (*gopus.Decoder)(nil)

type framePCM struct {
	frames *FrameReader
	dec    Decoder
	src    io.Closer
}

// NewStoredPCM decodes a stored length-prefixed frame stream back to PCM.
// Closing the returned reader closes rc.
func NewStoredPCM(rc io.ReadCloser) (PCMReader, error) {
	dec, err := gopus.NewDecoder(SampleRate, Channels)
	if err != nil {
		rc.Close()
		return nil, fmt.Errorf("failed to create opus decoder: %w", err)
	}
	return NewFramePCM(rc, dec), nil
}

func NewFramePCM(rc io.ReadCloser, dec Decoder) PCMReader {
	return &framePCM{frames: NewFrameReader(rc), dec: dec, src: rc}
}

func (p *framePCM) ReadPCM() ([]int16, error) {
	frame, err := p.frames.ReadFrame()
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, io.EOF
		}
		return nil, err
	}
	pcm, err := p.dec.Decode(frame, FrameSize, false)
	if err != nil {
		return nil, fmt.Errorf("failed to decode opus frame: %w", err)
	}
	if len(pcm) < FrameSamples {
		pcm = append(pcm, make([]int16, FrameSamples-len(pcm))...)
	}
	return pcm, nil
}

func (p *framePCM) Close() error {
	return p.src.Close()
}
