package opus

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"
)

const (
	SampleRate = 48000
	Channels   = 2
	// FrameSize is the number of samples per channel in one 20ms frame.
	FrameSize = 960
	// FrameSamples is the length of one interleaved stereo PCM frame.
	FrameSamples  = FrameSize * Channels
	FrameDuration = 20 * time.Millisecond
	// MaxFrameBytes bounds a single encoded Opus frame.
	MaxFrameBytes = 4000
)

// PCMReader yields interleaved stereo PCM frames of FrameSamples samples.
// ReadPCM returns io.EOF once the source is exhausted.
type PCMReader interface {
	ReadPCM() ([]int16, error)
	Close() error
}

type ffmpegPCM struct {
	cmd    *exec.Cmd
	stdout *os.File
	buf    []byte
	done   bool

	waitOnce sync.Once
	waitErr  error
}

// NewFFmpegPCM starts ffmpeg on input, which may be a local path or any URL
// ffmpeg understands, and decodes it to raw PCM.
func NewFFmpegPCM(ffmpegPath, input string) (PCMReader, error) {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	cmd := exec.Command(ffmpegPath,
		"-hide_banner",
		"-loglevel", "error",
		"-i", input,
		"-vn",
		"-f", "s16le",
		"-ar", "48000",
		"-ac", "2",
		"pipe:1",
	)

	// The read end belongs to us rather than to cmd so that Wait never
	// closes it under a concurrent ReadPCM.
	stdout, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("unable to pipe output of ffmpeg to stdout: %w", err)
	}
	cmd.Stdout = w

	err = cmd.Start()
	w.Close()
	if err != nil {
		stdout.Close()
		return nil, fmt.Errorf("unable to start ffmpeg process: %w", err)
	}

	return &ffmpegPCM{
		cmd:    cmd,
		stdout: stdout,
		buf:    make([]byte, FrameSamples*2),
	}, nil
}

func (f *ffmpegPCM) ReadPCM() ([]int16, error) {
	if f.done {
		return nil, io.EOF
	}
	n, err := io.ReadFull(f.stdout, f.buf)
	switch {
	case errors.Is(err, io.ErrUnexpectedEOF):
		// Pad the trailing partial frame with silence.
		clear(f.buf[n:])
		f.done = true
	case err != nil:
		f.done = true
		if errors.Is(err, io.EOF) {
			if werr := f.wait(); werr != nil {
				return nil, fmt.Errorf("ffmpeg exited: %w", werr)
			}
		}
		return nil, err
	}
	return BytesToPCM(f.buf), nil
}

func (f *ffmpegPCM) wait() error {
	f.waitOnce.Do(func() {
		f.waitErr = f.cmd.Wait()
	})
	return f.waitErr
}

// Close kills ffmpeg if it is still running. It may be called while another
// goroutine is blocked in ReadPCM, which then returns an error.
func (f *ffmpegPCM) Close() error {
	if f.cmd.Process != nil {
		_ = f.cmd.Process.Kill()
	}
	err := f.stdout.Close()
	_ = f.wait()
	if errors.Is(err, os.ErrClosed) {
		return nil
	}
	return err
}

// BytesToPCM converts little-endian s16 samples to int16s.
func BytesToPCM(b []byte) []int16 {
	pcm := make([]int16, len(b)/2)
	for i := range pcm {
		pcm[i] = int16(binary.LittleEndian.Uint16(b[i*2:]))
	}
	return pcm
}
