package voice_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/glizzus/soundboard/internal/voice"
	"github.com/google/go-cmp/cmp"
)

type countdown struct {
	mu   sync.Mutex
	left int
}

func (c *countdown) CanProvide() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.left > 0
}

func (c *countdown) NextFrame() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	frame := []byte{byte(c.left)}
	c.left--
	return frame
}

func TestPump(t *testing.T) {
	conn := &fakeConn{}
	src := &countdown{left: 3}

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan struct{})
	go func() {
		defer close(done)
		voice.Pump(ctx, conn, src)
	}()

	deadline := time.Now().Add(time.Second)
	for src.CanProvide() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	// Give the pump one idle tick to stop speaking.
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	conn.mu.Lock()
	defer conn.mu.Unlock()
	if diff := cmp.Diff([][]byte{{3}, {2}, {1}}, conn.frames); diff != "" {
		t.Errorf("frames mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]bool{true, false}, conn.speaking); diff != "" {
		t.Errorf("speaking mismatch (-want +got):\n%s", diff)
	}
}
