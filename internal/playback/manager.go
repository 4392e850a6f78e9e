package playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/glizzus/soundboard/internal/voice"
)

// PlayCommand is a request from any control surface. An empty ChannelID
// plays in the channel the guild is already connected to.
type PlayCommand struct {
	GuildID   string
	ChannelID string
	// SoundID may also be an http(s) URL. It is ignored when Random is set.
	SoundID     string
	Random      bool
	RepeatCount int
	Submitter   string
}

// Manager is the arena of guild actors. Actors are created on first use and
// live until Close.
type Manager struct {
	cfg      Config
	resolver Resolver
	deps     Deps

	mu     sync.Mutex
	actors map[string]*Actor
	closed bool
}

func NewManager(cfg Config, resolver Resolver, deps Deps) *Manager {
	return &Manager{
		cfg:      cfg,
		resolver: resolver,
		deps:     deps,
		actors:   make(map[string]*Actor),
	}
}

func (m *Manager) actor(guildID string) (*Actor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrActorClosed
	}
	if a, ok := m.actors[guildID]; ok {
		return a, nil
	}
	a, err := NewActor(guildID, m.cfg, m.deps)
	if err != nil {
		return nil, fmt.Errorf("failed to start playback actor for guild %s: %w", guildID, err)
	}
	m.actors[guildID] = a
	return a, nil
}

func (m *Manager) existing(guildID string) (*Actor, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.actors[guildID]
	return a, ok
}

// resolve runs before anything reaches the actor so lookups never stall a guild.
func (m *Manager) resolve(ctx context.Context, cmd PlayCommand) (Request, error) {
	var (
		track Track
		err   error
	)
	if cmd.Random {
		track, err = m.resolver.Random(ctx)
	} else {
		track, err = m.resolver.Resolve(ctx, cmd.SoundID)
	}
	if err != nil {
		if errors.Is(err, ErrSoundNotFound) {
			return Request{}, err
		}
		return Request{}, fmt.Errorf("%w: %q: %w", ErrSoundNotFound, cmd.SoundID, err)
	}
	return NewRequest(track, cmd.RepeatCount, cmd.Submitter), nil
}

func (m *Manager) Play(ctx context.Context, cmd PlayCommand) error {
	req, err := m.resolve(ctx, cmd)
	if err != nil {
		return err
	}
	a, err := m.actor(cmd.GuildID)
	if err != nil {
		return err
	}
	return a.Enqueue(ctx, cmd.ChannelID, req)
}

func (m *Manager) PlayNow(ctx context.Context, cmd PlayCommand) error {
	req, err := m.resolve(ctx, cmd)
	if err != nil {
		return err
	}
	a, err := m.actor(cmd.GuildID)
	if err != nil {
		return err
	}
	return a.PlayNow(ctx, cmd.ChannelID, req)
}

// withActor runs fn against an existing actor. Guilds without one have
// nothing to stop, skip or leave.
func (m *Manager) withActor(guildID string, fn func(*Actor) error) error {
	a, ok := m.existing(guildID)
	if !ok {
		return ErrNotConnected
	}
	return fn(a)
}

func (m *Manager) Stop(ctx context.Context, guildID string) error {
	return m.withActor(guildID, func(a *Actor) error { return a.Stop(ctx) })
}

func (m *Manager) Skip(ctx context.Context, guildID string) error {
	return m.withActor(guildID, func(a *Actor) error { return a.Skip(ctx) })
}

func (m *Manager) Shuffle(ctx context.Context, guildID string) error {
	return m.withActor(guildID, func(a *Actor) error { return a.Shuffle(ctx) })
}

func (m *Manager) Disconnect(ctx context.Context, guildID string) error {
	return m.withActor(guildID, func(a *Actor) error { return a.Disconnect(ctx) })
}

// SetVolume and SetRepeating create the actor so the setting sticks for the
// next connection.
func (m *Manager) SetVolume(ctx context.Context, guildID string, volume float64) error {
	a, err := m.actor(guildID)
	if err != nil {
		return err
	}
	return a.SetVolume(ctx, volume)
}

func (m *Manager) SetRepeating(ctx context.Context, guildID string, repeating bool) error {
	a, err := m.actor(guildID)
	if err != nil {
		return err
	}
	return a.SetRepeating(ctx, repeating)
}

func (m *Manager) Status(ctx context.Context, guildID string) (Status, error) {
	a, ok := m.existing(guildID)
	if !ok {
		return Status{
			GuildID: guildID,
			State:   voice.Disconnected.String(),
			Queue:   []Entry{},
			Volume:  clampVolume(m.cfg.DefaultVolume),
		}, nil
	}
	return a.Status(ctx)
}

// CheckEmptyChannel is a no-op for guilds without an actor.
func (m *Manager) CheckEmptyChannel(ctx context.Context, guildID string) (bool, error) {
	a, ok := m.existing(guildID)
	if !ok {
		return false, nil
	}
	return a.CheckEmptyChannel(ctx)
}

// Close stops every actor and closes every connection.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	actors := m.actors
	m.actors = make(map[string]*Actor)
	m.mu.Unlock()

	var wg sync.WaitGroup
	for guildID, a := range actors {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.Close()
			slog.Debug("stopped playback actor", "guildID", guildID)
		}()
	}
	wg.Wait()
}
