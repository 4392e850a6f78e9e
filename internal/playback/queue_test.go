package playback

import (
	"context"
	"io"
	"math/rand/v2"
	"slices"
	"sync"
	"testing"

	"github.com/glizzus/soundboard/internal/opus"
	"github.com/google/go-cmp/cmp"
)

type stubTrack string

func (s stubTrack) SoundID() string     { return string(s) }
func (s stubTrack) DisplayName() string { return string(s) }
func (s stubTrack) Open(ctx context.Context) (opus.PCMReader, error) {
	return nil, io.EOF
}

func ids(q *Queue) []string {
	var out []string
	for _, e := range q.Entries() {
		out = append(out, e.SoundID)
	}
	return out
}

func TestQueue(t *testing.T) {
	var q Queue
	q.Push(NewRequest(stubTrack("a"), 1, ""))
	q.Push(NewRequest(stubTrack("b"), 1, ""))
	q.PushFront(NewRequest(stubTrack("c"), 1, ""))

	if diff := cmp.Diff([]string{"c", "a", "b"}, ids(&q)); diff != "" {
		t.Errorf("queue mismatch (-want +got):\n%s", diff)
	}

	r, ok := q.Pop()
	if !ok || r.Track.SoundID() != "c" {
		t.Errorf("Pop() = (%v, %v), want c", r.Track, ok)
	}
	if q.Len() != 2 {
		t.Errorf("Len() = %d, want 2", q.Len())
	}

	q.Clear()
	if _, ok := q.Pop(); ok {
		t.Error("Pop() on a cleared queue returned a request")
	}
}

func TestQueueShuffle(t *testing.T) {
	var q Queue
	want := []string{"a", "b", "c", "d", "e", "f", "g"}
	for _, id := range want {
		q.Push(NewRequest(stubTrack(id), 1, ""))
	}

	q.Shuffle(rand.New(rand.NewPCG(1, 2)))

	got := ids(&q)
	slices.Sort(got)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("shuffle lost or duplicated requests (-want +got):\n%s", diff)
	}
}

func TestRequestAgain(t *testing.T) {
	tests := []struct {
		name      string
		repeat    int
		repeating bool
		wantOK    bool
		wantCount int
	}{
		{"single play is dropped", 1, false, false, 0},
		{"counted repeat decrements", 3, false, true, 2},
		{"forever stays forever", Forever, false, true, Forever},
		{"repeating replays as is", 1, true, true, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, ok := NewRequest(stubTrack("a"), tt.repeat, "").again(tt.repeating)
			if ok != tt.wantOK || (ok && next.RepeatCount != tt.wantCount) {
				t.Errorf("again() = (%d, %v), want (%d, %v)", next.RepeatCount, ok, tt.wantCount, tt.wantOK)
			}
		})
	}
}

type constPCM struct {
	frames int
	closed bool
}

func (c *constPCM) ReadPCM() ([]int16, error) {
	if c.frames == 0 {
		return nil, io.EOF
	}
	c.frames--
	pcm := make([]int16, opus.FrameSamples)
	for i := range pcm {
		pcm[i] = 100
	}
	return pcm, nil
}

func (c *constPCM) Close() error {
	c.closed = true
	return nil
}

type firstSample struct{}

func (firstSample) Encode(pcm []int16, frameSize, maxDataBytes int) ([]byte, error) {
	return []byte{byte(pcm[0])}, nil
}

func TestOutput(t *testing.T) {
	var (
		mu    sync.Mutex
		ended []uint64
	)
	out := newOutput(firstSample{}, 0.5, func(gen uint64, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			t.Errorf("unexpected stream error: %v", err)
		}
		ended = append(ended, gen)
	})

	if out.CanProvide() {
		t.Fatal("an idle output has nothing to provide")
	}

	first := &constPCM{frames: 2}
	out.play(1, first)
	var frames [][]byte
	for out.CanProvide() {
		frames = append(frames, out.NextFrame())
	}
	if diff := cmp.Diff([][]byte{{50}, {50}}, frames); diff != "" {
		t.Errorf("frames mismatch (-want +got):\n%s", diff)
	}
	if !first.closed {
		t.Error("a finished stream was not closed")
	}

	t.Run("stopped streams are not reported", func(t *testing.T) {
		second := &constPCM{frames: 5}
		out.play(2, second)
		if !out.CanProvide() {
			t.Fatal("expected a frame")
		}
		out.stop()
		if out.CanProvide() {
			t.Error("a stopped output still provides frames")
		}
		if !second.closed {
			t.Error("a stopped stream was not closed")
		}
	})

	mu.Lock()
	defer mu.Unlock()
	if diff := cmp.Diff([]uint64{1}, ended); diff != "" {
		t.Errorf("ended mismatch (-want +got):\n%s", diff)
	}
}
