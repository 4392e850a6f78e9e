package presence_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/glizzus/soundboard/internal/presence"
	"github.com/glizzus/soundboard/internal/repository"
	"github.com/google/go-cmp/cmp"
)

type memoryPrefs struct {
	prefs []repository.UserPreference
	err   error
	calls int
}

func (m *memoryPrefs) GetPreference(ctx context.Context, userID, username string) (*repository.UserPreference, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	for _, p := range m.prefs {
		if p.UserID == userID || strings.EqualFold(p.Username, username) {
			return &p, nil
		}
	}
	return nil, nil
}

type memorySounds struct {
	ids   []string
	calls int
}

func (m *memorySounds) Lookup(ctx context.Context, id string) (string, bool) {
	m.calls++
	for _, known := range m.ids {
		if strings.EqualFold(known, id) {
			return known, true
		}
	}
	return "", false
}

func TestCascadeResolve(t *testing.T) {
	join := presence.Event{GuildID: "g", UserID: "u1", DisplayName: "alice", Kind: presence.Join, DestChannelID: "c2"}
	leave := presence.Event{GuildID: "g", UserID: "u1", DisplayName: "alice", Kind: presence.Leave, OriginChannelID: "c1"}
	move := presence.Event{GuildID: "g", UserID: "u1", DisplayName: "alice", Kind: presence.Move, OriginChannelID: "c1", DestChannelID: "c2"}

	table := []struct {
		name   string
		prefs  []repository.UserPreference
		all    string
		sounds []string
		event  presence.Event
		want   presence.Decision
		wantOK bool
	}{
		{
			name:   "per-user entrance beats entrance for all",
			prefs:  []repository.UserPreference{{UserID: "u1", EntranceSound: "X"}},
			all:    "Y",
			event:  join,
			want:   presence.Decision{SoundID: "X", ChannelID: "c2", Entrance: true},
			wantOK: true,
		},
		{
			name:   "entrance for all beats the display name",
			all:    "Y",
			sounds: []string{"alice"},
			event:  join,
			want:   presence.Decision{SoundID: "Y", ChannelID: "c2", Entrance: true},
			wantOK: true,
		},
		{
			name:   "blank preference falls through",
			prefs:  []repository.UserPreference{{UserID: "u1", EntranceSound: "  "}},
			sounds: []string{"Alice"},
			event:  join,
			want:   presence.Decision{SoundID: "Alice", ChannelID: "c2", Entrance: true},
			wantOK: true,
		},
		{
			name:   "display name matches without preferences",
			sounds: []string{"alice"},
			event:  join,
			want:   presence.Decision{SoundID: "alice", ChannelID: "c2", Entrance: true},
			wantOK: true,
		},
		{
			name:  "nothing matches",
			event: join,
		},
		{
			name:   "preference found by username",
			prefs:  []repository.UserPreference{{UserID: "other", Username: "ALICE", EntranceSound: "tada"}},
			event:  join,
			want:   presence.Decision{SoundID: "tada", ChannelID: "c2", Entrance: true},
			wantOK: true,
		},
		{
			name:   "leave uses the leave sound",
			prefs:  []repository.UserPreference{{UserID: "u1", EntranceSound: "X", LeaveSound: "bye"}},
			event:  leave,
			want:   presence.Decision{SoundID: "bye", ChannelID: "c1"},
			wantOK: true,
		},
		{
			name:   "entrance for all never applies to leaves",
			all:    "Y",
			sounds: []string{"alice_leave"},
			event:  leave,
			want:   presence.Decision{SoundID: "alice_leave", ChannelID: "c1"},
			wantOK: true,
		},
		{
			name:   "leave ignores the bare display name",
			sounds: []string{"alice"},
			event:  leave,
		},
		{
			name:   "move prefers the entrance",
			prefs:  []repository.UserPreference{{UserID: "u1", EntranceSound: "hi", LeaveSound: "bye"}},
			event:  move,
			want:   presence.Decision{SoundID: "hi", ChannelID: "c2", Entrance: true},
			wantOK: true,
		},
		{
			name:   "move falls back to the leave sound in the old channel",
			sounds: []string{"alice_leave"},
			event:  move,
			want:   presence.Decision{SoundID: "alice_leave", ChannelID: "c1"},
			wantOK: true,
		},
		{
			name:   "bots never resolve",
			prefs:  []repository.UserPreference{{UserID: "u1", EntranceSound: "X"}},
			event:  presence.Event{UserID: "u1", Bot: true, Kind: presence.Join, DestChannelID: "c2"},
		},
		{
			name:   "updates never resolve",
			sounds: []string{"alice"},
			event:  presence.Event{UserID: "u1", DisplayName: "alice", Kind: presence.Update, OriginChannelID: "c1", DestChannelID: "c1"},
		},
	}

	for _, tt := range table {
		t.Run(tt.name, func(t *testing.T) {
			c := presence.NewCascade(&memoryPrefs{prefs: tt.prefs}, &memorySounds{ids: tt.sounds}, tt.all, "_leave")
			got, ok := c.Resolve(t.Context(), tt.event)
			if ok != tt.wantOK {
				t.Fatalf("Resolve() ok = %v, want %v (got %+v)", ok, tt.wantOK, got)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("decision mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCascadePreferenceErrorFallsThrough(t *testing.T) {
	prefs := &memoryPrefs{err: errors.New("connection refused")}
	c := presence.NewCascade(prefs, &memorySounds{ids: []string{"bob"}}, "", "_leave")

	id, ok := c.Entrance(t.Context(), "u2", "bob")
	if !ok || id != "bob" {
		t.Errorf("Entrance() = (%q, %v), want (bob, true)", id, ok)
	}
}
