package voice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/glizzus/soundboard/internal/opus"
)

var (
	ErrConnectTimeout = errors.New("timed out connecting to voice channel")
	ErrNoChannel      = errors.New("no voice channel given")
)

type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Moving
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Moving:
		return "moving"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Conn is an established voice connection.
type Conn interface {
	ChannelID() string
	Speaking(speaking bool) error
	Send(ctx context.Context, frame []byte) error
	Disconnect() error
}

// Joiner opens voice connections. Join must give up when ctx is done and
// must disconnect any connection that completes after that.
type Joiner interface {
	Join(ctx context.Context, guildID, channelID string) (Conn, error)
}

type attempt struct {
	channelID string
	cancel    context.CancelFunc
	done      chan struct{}
	conn      Conn
	err       error
}

// Handle owns the voice connection of one guild. At most one connection
// attempt is ever in flight.
type Handle struct {
	guildID string
	joiner  Joiner
	source  opus.FrameSource
	timeout time.Duration

	// ops serializes Open and Close.
	ops sync.Mutex

	mu        sync.Mutex
	state     State
	channelID string
	conn      Conn
	pending   *attempt
	stopPump  func()
}

func NewHandle(guildID string, joiner Joiner, source opus.FrameSource, timeout time.Duration) *Handle {
	return &Handle{
		guildID: guildID,
		joiner:  joiner,
		source:  source,
		timeout: timeout,
	}
}

func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// ChannelID returns the connected channel, or "" when not connected.
func (h *Handle) ChannelID() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.channelID
}

// Open connects to channelID. It is a no-op when already connected there,
// and a move when connected elsewhere.
func (h *Handle) Open(ctx context.Context, channelID string) error {
	if channelID == "" {
		return ErrNoChannel
	}

	h.ops.Lock()
	defer h.ops.Unlock()

	h.mu.Lock()
	if h.state == Connected && h.channelID == channelID {
		h.mu.Unlock()
		return nil
	}
	h.mu.Unlock()

	if err := h.abandon(); err != nil {
		return err
	}

	h.mu.Lock()
	old := h.conn
	if old != nil {
		h.state = Moving
	} else {
		h.state = Connecting
	}
	actx, cancel := context.WithTimeout(ctx, h.timeout)
	a := &attempt{channelID: channelID, cancel: cancel, done: make(chan struct{})}
	h.pending = a
	h.mu.Unlock()

	slog.Info("connecting to voice channel", "guildID", h.guildID, "channelID", channelID, "moving", old != nil)

	go func() {
		defer close(a.done)
		conn, err := h.joiner.Join(actx, h.guildID, channelID)
		if err == nil && actx.Err() != nil {
			// Arrived after the attempt was abandoned.
			if derr := conn.Disconnect(); derr != nil {
				slog.Warn("failed to disconnect late voice connection", "guildID", h.guildID, "error", derr)
			}
			conn, err = nil, actx.Err()
		}
		a.conn, a.err = conn, err
	}()

	select {
	case <-a.done:
	case <-actx.Done():
		select {
		case <-a.done:
		default:
			h.fail(a, old)
			if errors.Is(actx.Err(), context.DeadlineExceeded) {
				slog.Warn("timed out connecting to voice channel", "guildID", h.guildID, "channelID", channelID, "timeout", h.timeout)
				return ErrConnectTimeout
			}
			return actx.Err()
		}
	}
	cancel()

	if a.err != nil {
		h.mu.Lock()
		if h.pending == a {
			h.pending = nil
		}
		h.mu.Unlock()
		h.fail(a, old)
		return fmt.Errorf("failed to join voice channel: %w", a.err)
	}

	if a.conn != old {
		// Only one pump may read the source at a time.
		h.mu.Lock()
		stop := h.stopPump
		h.stopPump = nil
		h.mu.Unlock()
		if stop != nil {
			stop()
		}
		if old != nil {
			if err := old.Disconnect(); err != nil {
				slog.Warn("failed to disconnect previous voice connection", "guildID", h.guildID, "error", err)
			}
		}
	}

	h.mu.Lock()
	if h.pending == a {
		h.pending = nil
	}
	if h.stopPump == nil {
		h.stopPump = h.startPump(a.conn)
	}
	h.conn = a.conn
	h.channelID = channelID
	h.state = Connected
	h.mu.Unlock()

	slog.Info("connected to voice channel", "guildID", h.guildID, "channelID", channelID)
	return nil
}

// Move is Open on a different channel; when not connected it is a plain Open.
func (h *Handle) Move(ctx context.Context, channelID string) error {
	return h.Open(ctx, channelID)
}

// Close disconnects and abandons any in-flight attempt. It is idempotent.
func (h *Handle) Close() error {
	h.ops.Lock()
	defer h.ops.Unlock()

	if err := h.abandon(); err != nil {
		slog.Warn("closing with a connection attempt still pending", "guildID", h.guildID, "error", err)
	}

	h.mu.Lock()
	conn, stop := h.conn, h.stopPump
	h.conn, h.stopPump = nil, nil
	h.channelID = ""
	h.state = Disconnected
	h.mu.Unlock()

	if stop != nil {
		stop()
	}
	if conn == nil {
		return nil
	}
	slog.Info("disconnecting from voice channel", "guildID", h.guildID)
	return conn.Disconnect()
}

// fail drops back to Disconnected after a failed attempt. The attempt stays
// pending if its goroutine has not returned yet.
func (h *Handle) fail(a *attempt, old Conn) {
	a.cancel()

	h.mu.Lock()
	stop := h.stopPump
	h.stopPump = nil
	h.conn = nil
	h.channelID = ""
	h.state = Disconnected
	h.mu.Unlock()

	if stop != nil {
		stop()
	}
	if old != nil {
		if err := old.Disconnect(); err != nil {
			slog.Warn("failed to disconnect voice connection", "guildID", h.guildID, "error", err)
		}
	}
}

// abandon cancels the pending attempt and waits for it to return.
func (h *Handle) abandon() error {
	h.mu.Lock()
	a := h.pending
	h.mu.Unlock()
	if a == nil {
		return nil
	}

	a.cancel()
	timer := time.NewTimer(h.timeout)
	defer timer.Stop()
	select {
	case <-a.done:
	case <-timer.C:
		return fmt.Errorf("previous attempt on channel %s has not returned: %w", a.channelID, ErrConnectTimeout)
	}

	h.mu.Lock()
	if h.pending == a {
		h.pending = nil
	}
	h.mu.Unlock()
	return nil
}

func (h *Handle) startPump(conn Conn) func() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		Pump(ctx, conn, h.source)
	}()
	return func() {
		cancel()
		<-done
	}
}
