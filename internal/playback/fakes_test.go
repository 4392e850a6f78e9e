package playback_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/glizzus/soundboard/internal/opus"
	"github.com/glizzus/soundboard/internal/playback"
	"github.com/glizzus/soundboard/internal/voice"
)

const endless = -1

// fakeTrack yields frames whose samples are all 1000. An endless track
// plays until it is stopped.
type fakeTrack struct {
	id      string
	frames  int
	openErr error
	// failAfter makes the stream error out after that many frames.
	failAfter int
}

func (t *fakeTrack) SoundID() string     { return t.id }
func (t *fakeTrack) DisplayName() string { return strings.ToUpper(t.id) }

func (t *fakeTrack) Open(ctx context.Context) (opus.PCMReader, error) {
	if t.openErr != nil {
		return nil, t.openErr
	}
	return &fakePCM{left: t.frames, failAfter: t.failAfter}, nil
}

type fakePCM struct {
	mu        sync.Mutex
	left      int
	read      int
	failAfter int
	closed    bool
}

func (p *fakePCM) ReadPCM() ([]int16, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, errors.New("read on closed stream")
	}
	if p.failAfter > 0 && p.read == p.failAfter {
		return nil, errors.New("corrupt frame")
	}
	if p.left == 0 {
		return nil, io.EOF
	}
	if p.left > 0 {
		p.left--
	}
	p.read++
	pcm := make([]int16, opus.FrameSamples)
	for i := range pcm {
		pcm[i] = 1000
	}
	return pcm, nil
}

func (p *fakePCM) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// sampleEncoder encodes a frame as its first sample, big endian.
type sampleEncoder struct{}

func (sampleEncoder) Encode(pcm []int16, frameSize, maxDataBytes int) ([]byte, error) {
	return []byte{byte(uint16(pcm[0]) >> 8), byte(pcm[0])}, nil
}

func newSampleEncoder() (opus.Encoder, error) { return sampleEncoder{}, nil }

type fakeConn struct {
	channelID string

	mu           sync.Mutex
	frames       [][]byte
	disconnected bool
}

func (c *fakeConn) ChannelID() string      { return c.channelID }
func (c *fakeConn) Speaking(on bool) error { return nil }

func (c *fakeConn) Send(ctx context.Context, frame []byte) error {
	// Roughly paces endless tracks without slowing tests down.
	time.Sleep(time.Millisecond)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, frame)
	return nil
}

func (c *fakeConn) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnected = true
	return nil
}

func (c *fakeConn) lastFrame() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.frames) == 0 {
		return nil
	}
	return c.frames[len(c.frames)-1]
}

type fakeJoiner struct {
	// delays holds per-guild join latency; set before the first join.
	delays map[string]time.Duration

	mu    sync.Mutex
	conns []*fakeConn
}

func (j *fakeJoiner) Join(ctx context.Context, guildID, channelID string) (voice.Conn, error) {
	select {
	case <-time.After(j.delays[guildID]):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	conn := &fakeConn{channelID: channelID}
	j.mu.Lock()
	j.conns = append(j.conns, conn)
	j.mu.Unlock()
	return conn, nil
}

func (j *fakeJoiner) last() *fakeConn {
	j.mu.Lock()
	defer j.mu.Unlock()
	if len(j.conns) == 0 {
		return nil
	}
	return j.conns[len(j.conns)-1]
}

type fakeRoster struct {
	mu      sync.Mutex
	members []playback.Member
	afk     string
}

func (r *fakeRoster) VoiceMembers(guildID, channelID string) ([]playback.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]playback.Member(nil), r.members...), nil
}

func (r *fakeRoster) AFKChannel(guildID string) (string, bool) {
	return r.afk, r.afk != ""
}

func (r *fakeRoster) set(members ...playback.Member) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members = members
}

type recorder struct {
	mu     sync.Mutex
	events []playback.TrackEvent
}

func (r *recorder) TrackStarted(ctx context.Context, ev playback.TrackEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) TrackEnded(ctx context.Context, ev playback.TrackEvent) error {
	return r.TrackStarted(ctx, ev)
}

func (r *recorder) started() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for _, ev := range r.events {
		if ev.Reason == "" {
			ids = append(ids, ev.SoundID)
		}
	}
	return ids
}

func (r *recorder) ended() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, ev := range r.events {
		if ev.Reason != "" {
			out = append(out, fmt.Sprintf("%s:%s", ev.SoundID, ev.Reason))
		}
	}
	return out
}

type fakeResolver struct {
	tracks map[string]*fakeTrack
}

func (r fakeResolver) Resolve(ctx context.Context, soundID string) (playback.Track, error) {
	if t, ok := r.tracks[soundID]; ok {
		return t, nil
	}
	return nil, fmt.Errorf("%w: %s", playback.ErrSoundNotFound, soundID)
}

func (r fakeResolver) Random(ctx context.Context) (playback.Track, error) {
	for _, t := range r.tracks {
		return t, nil
	}
	return nil, playback.ErrSoundNotFound
}

type harness struct {
	joiner   *fakeJoiner
	roster   *fakeRoster
	recorder *recorder
	manager  *playback.Manager
}

func newHarness(t *testing.T, cfg playback.Config, tracks ...*fakeTrack) *harness {
	t.Helper()
	h := &harness{
		joiner:   &fakeJoiner{},
		roster:   &fakeRoster{},
		recorder: &recorder{},
	}
	resolver := fakeResolver{tracks: make(map[string]*fakeTrack)}
	for _, tr := range tracks {
		resolver.tracks[tr.id] = tr
	}
	h.manager = playback.NewManager(cfg, resolver, playback.Deps{
		Joiner:     h.joiner,
		Roster:     h.roster,
		Notifier:   h.recorder,
		NewEncoder: newSampleEncoder,
	})
	t.Cleanup(h.manager.Close)
	return h
}

func testConfig() playback.Config {
	cfg := playback.DefaultConfig()
	cfg.DefaultVolume = 1
	cfg.ConnectTimeout = time.Second
	return cfg
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func play(guildID, channelID, soundID string, repeat int) playback.PlayCommand {
	return playback.PlayCommand{
		GuildID:     guildID,
		ChannelID:   channelID,
		SoundID:     soundID,
		RepeatCount: repeat,
		Submitter:   "tester",
	}
}
