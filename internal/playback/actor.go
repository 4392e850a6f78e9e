package playback

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/glizzus/soundboard/internal/opus"
	"github.com/glizzus/soundboard/internal/voice"
)

const (
	notifyTimeout = 5 * time.Second
	notifyBuffer  = 256
)

type Deps struct {
	Joiner   voice.Joiner
	Roster   Roster
	Notifier Notifier
	// NewEncoder defaults to opus.NewEncoder.
	NewEncoder func() (opus.Encoder, error)
}

type Status struct {
	GuildID   string  `json:"guildId"`
	State     string  `json:"state"`
	ChannelID string  `json:"channelId,omitempty"`
	Current   *Entry  `json:"current,omitempty"`
	Queue     []Entry `json:"queue"`
	Volume    float64 `json:"volume"`
	Repeating bool    `json:"repeating"`
}

// Actor is the single writer of one guild's playback state. Every exported
// method is applied on the actor goroutine in submission order.
type Actor struct {
	guildID string
	cfg     Config
	deps    Deps

	mailbox   chan func()
	events    chan TrackEvent
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	// Owned by the run goroutine.
	queue     Queue
	current   *Request
	volume    float64
	repeating bool
	gen       uint64
	rng       *rand.Rand

	out    *output
	handle *voice.Handle
}

func NewActor(guildID string, cfg Config, deps Deps) (*Actor, error) {
	newEncoder := deps.NewEncoder
	if newEncoder == nil {
		newEncoder = opus.NewEncoder
	}
	enc, err := newEncoder()
	if err != nil {
		return nil, err
	}
	if cfg.MailboxSize <= 0 {
		cfg.MailboxSize = DefaultConfig().MailboxSize
	}

	a := &Actor{
		guildID: guildID,
		cfg:     cfg,
		deps:    deps,
		mailbox: make(chan func(), cfg.MailboxSize),
		events:  make(chan TrackEvent, notifyBuffer),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
		volume:  clampVolume(cfg.DefaultVolume),
		rng:     rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	a.out = newOutput(enc, a.volume, a.streamEnded)
	a.handle = voice.NewHandle(guildID, deps.Joiner, a.out, cfg.ConnectTimeout)

	activeActors.Inc()
	if deps.Notifier != nil {
		go a.dispatch()
	}
	go a.run()
	return a, nil
}

func (a *Actor) run() {
	defer close(a.done)
	defer activeActors.Dec()
	defer close(a.events)

	for {
		select {
		case op := <-a.mailbox:
			op()
		case <-a.quit:
			a.close(EndDisconnected, "shutdown")
			return
		}
	}
}

// Close stops the actor and its connection. Pending operations are dropped.
func (a *Actor) Close() {
	a.closeOnce.Do(func() {
		close(a.quit)
	})
	<-a.done
}

// do runs fn on the actor and waits for its result. Once submitted, fn runs
// to completion even if ctx is canceled while waiting.
func (a *Actor) do(ctx context.Context, fn func(ctx context.Context) error) error {
	result := make(chan error, 1)
	opCtx := context.WithoutCancel(ctx)
	op := func() {
		result <- fn(opCtx)
	}

	select {
	case a.mailbox <- op:
	case <-a.quit:
		return ErrActorClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-result:
		return err
	case <-a.done:
		return ErrActorClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// streamEnded is called from the transport when a stream runs out.
func (a *Actor) streamEnded(gen uint64, err error) {
	go func() {
		select {
		case a.mailbox <- func() { a.trackEnded(context.Background(), gen, err) }:
		case <-a.quit:
		}
	}()
}

// Enqueue appends req and starts playback if nothing is playing.
func (a *Actor) Enqueue(ctx context.Context, channelID string, req Request) error {
	requestsTotal.WithLabelValues("enqueue").Inc()
	return a.do(ctx, func(ctx context.Context) error {
		if err := a.connect(ctx, channelID); err != nil {
			return err
		}
		a.queue.Push(req)
		if a.current == nil {
			a.advance(ctx)
		}
		return nil
	})
}

// PlayNow interrupts the current track with req. Queued requests are kept;
// the interrupted track is re-queued once only when repeating is on.
func (a *Actor) PlayNow(ctx context.Context, channelID string, req Request) error {
	requestsTotal.WithLabelValues("play_now").Inc()
	return a.do(ctx, func(ctx context.Context) error {
		if err := a.connect(ctx, channelID); err != nil {
			return err
		}
		if a.current != nil {
			interrupted := *a.current
			a.halt(EndInterrupted)
			if a.repeating {
				interrupted.RepeatCount = 1
				a.queue.PushFront(interrupted)
			}
		}
		if err := a.start(ctx, req); err != nil {
			a.advance(ctx)
		}
		return nil
	})
}

// Stop clears the queue and the current track. The connection stays open
// unless the idle action says otherwise.
func (a *Actor) Stop(ctx context.Context) error {
	requestsTotal.WithLabelValues("stop").Inc()
	return a.do(ctx, func(ctx context.Context) error {
		a.queue.Clear()
		if a.current != nil {
			a.halt(EndStopped)
			a.advance(ctx)
		}
		return nil
	})
}

// Skip ends the current track without repeating it and plays the next one.
func (a *Actor) Skip(ctx context.Context) error {
	requestsTotal.WithLabelValues("skip").Inc()
	return a.do(ctx, func(ctx context.Context) error {
		if a.current == nil {
			return nil
		}
		a.halt(EndSkipped)
		a.advance(ctx)
		return nil
	})
}

// SetVolume applies v, clamped to [0, 1], from the next frame on.
func (a *Actor) SetVolume(ctx context.Context, v float64) error {
	requestsTotal.WithLabelValues("volume").Inc()
	return a.do(ctx, func(ctx context.Context) error {
		a.volume = clampVolume(v)
		a.out.setVolume(a.volume)
		return nil
	})
}

func (a *Actor) SetRepeating(ctx context.Context, repeating bool) error {
	requestsTotal.WithLabelValues("repeat").Inc()
	return a.do(ctx, func(ctx context.Context) error {
		a.repeating = repeating
		return nil
	})
}

// Shuffle reorders the queue. The current track is not affected.
func (a *Actor) Shuffle(ctx context.Context) error {
	requestsTotal.WithLabelValues("shuffle").Inc()
	return a.do(ctx, func(ctx context.Context) error {
		a.queue.Shuffle(a.rng)
		return nil
	})
}

// Disconnect closes the connection, clearing the queue and current track.
// Volume and repeating survive.
func (a *Actor) Disconnect(ctx context.Context) error {
	requestsTotal.WithLabelValues("disconnect").Inc()
	return a.do(ctx, func(ctx context.Context) error {
		a.close(EndDisconnected, "requested")
		return nil
	})
}

// CheckEmptyChannel closes the connection when leave-on-empty is enabled and
// no listening user is left in the channel. It reports whether it closed.
func (a *Actor) CheckEmptyChannel(ctx context.Context) (bool, error) {
	var closed bool
	err := a.do(ctx, func(ctx context.Context) error {
		var err error
		closed, err = a.checkEmpty()
		return err
	})
	return closed, err
}

func (a *Actor) Status(ctx context.Context) (Status, error) {
	var st Status
	err := a.do(ctx, func(ctx context.Context) error {
		st = a.status()
		return nil
	})
	return st, err
}

func (a *Actor) status() Status {
	st := Status{
		GuildID:   a.guildID,
		State:     a.handle.State().String(),
		ChannelID: a.handle.ChannelID(),
		Queue:     a.queue.Entries(),
		Volume:    a.volume,
		Repeating: a.repeating,
	}
	if a.current != nil {
		e := a.current.entry()
		st.Current = &e
	}
	return st
}

func (a *Actor) connect(ctx context.Context, channelID string) error {
	if channelID == "" {
		if a.handle.State() == voice.Connected {
			return nil
		}
		return ErrNoChannel
	}
	if err := a.handle.Open(ctx, channelID); err != nil {
		connectFailures.Inc()
		// The stream has nowhere to go. The queue is kept for the next attempt.
		a.halt(EndDisconnected)
		return fmt.Errorf("failed to connect to voice channel %s: %w", channelID, err)
	}
	return nil
}

func (a *Actor) start(ctx context.Context, req Request) error {
	pcm, err := req.Track.Open(ctx)
	if err != nil {
		trackFailures.Inc()
		slog.Error("failed to open track", "guildID", a.guildID, "soundID", req.Track.SoundID(), "error", err)
		return err
	}

	a.gen++
	a.current = &req
	a.out.play(a.gen, pcm)

	tracksStarted.Inc()
	slog.Info("track started", "guildID", a.guildID, "soundID", req.Track.SoundID(), "submitter", req.Submitter)
	a.notify(req, "")
	return nil
}

// advance plays the next playable request, or applies the idle action.
func (a *Actor) advance(ctx context.Context) {
	for {
		req, ok := a.queue.Pop()
		if !ok {
			a.idle(ctx)
			return
		}
		if err := a.start(ctx, req); err == nil {
			return
		}
	}
}

func (a *Actor) trackEnded(ctx context.Context, gen uint64, streamErr error) {
	if a.current == nil || gen != a.gen {
		return
	}
	finished := *a.current
	a.current = nil

	if streamErr != nil {
		trackFailures.Inc()
		slog.Error("audio stream failed", "guildID", a.guildID, "soundID", finished.Track.SoundID(), "error", streamErr)
		a.notify(finished, EndFailed)
	} else {
		a.notify(finished, EndFinished)
		if next, ok := finished.again(a.repeating); ok {
			a.queue.PushFront(next)
		}
	}
	a.advance(ctx)
}

// halt stops the current track without touching the queue.
func (a *Actor) halt(reason EndReason) {
	if a.current == nil {
		return
	}
	a.out.stop()
	stopped := *a.current
	a.current = nil
	a.notify(stopped, reason)
}

func (a *Actor) idle(ctx context.Context) {
	if a.handle.State() != voice.Connected {
		return
	}
	switch a.cfg.IdleAction {
	case IdleLeave:
		a.close(EndDisconnected, "queue drained")
	case IdleAFK:
		afk, ok := a.deps.Roster.AFKChannel(a.guildID)
		if !ok || afk == a.handle.ChannelID() {
			return
		}
		if err := a.handle.Move(ctx, afk); err != nil {
			connectFailures.Inc()
			slog.Warn("failed to move to the AFK channel", "guildID", a.guildID, "channelID", afk, "error", err)
		}
	}
}

func (a *Actor) close(reason EndReason, why string) {
	a.halt(reason)
	a.queue.Clear()
	wasConnected := a.handle.State() != voice.Disconnected
	if err := a.handle.Close(); err != nil {
		slog.Warn("failed to close voice connection", "guildID", a.guildID, "error", err)
	}
	if wasConnected {
		slog.Info("left voice channel", "guildID", a.guildID, "reason", why)
	}
}

func (a *Actor) checkEmpty() (bool, error) {
	if !a.cfg.LeaveOnEmptyChannel || a.handle.State() != voice.Connected {
		return false, nil
	}
	channelID := a.handle.ChannelID()
	members, err := a.deps.Roster.VoiceMembers(a.guildID, channelID)
	if err != nil {
		return false, fmt.Errorf("failed to list voice members: %w", err)
	}
	for _, m := range members {
		if !m.Bot && !m.Deafened {
			return false, nil
		}
	}
	a.close(EndDisconnected, "channel empty")
	return true, nil
}

// notify queues a start, or an end when reason is set, for the dispatcher.
// Notifications are dropped rather than delaying playback.
func (a *Actor) notify(req Request, reason EndReason) {
	if a.deps.Notifier == nil {
		return
	}
	ev := TrackEvent{
		GuildID:     a.guildID,
		SoundID:     req.Track.SoundID(),
		DisplayName: req.Track.DisplayName(),
		Submitter:   req.Submitter,
		At:          time.Now(),
		Reason:      reason,
	}
	select {
	case a.events <- ev:
	default:
		slog.Warn("dropping playback notification", "guildID", a.guildID, "soundID", ev.SoundID)
	}
}

func (a *Actor) dispatch() {
	for ev := range a.events {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		var err error
		if ev.Reason == "" {
			err = a.deps.Notifier.TrackStarted(ctx, ev)
		} else {
			err = a.deps.Notifier.TrackEnded(ctx, ev)
		}
		cancel()
		if err != nil {
			slog.Warn("failed to deliver playback notification", "guildID", a.guildID, "soundID", ev.SoundID, "error", err)
		}
	}
}
