package presence_test

import (
	"context"
	"errors"
	"testing"

	"github.com/glizzus/soundboard/internal/playback"
	"github.com/glizzus/soundboard/internal/presence"
	"github.com/glizzus/soundboard/internal/repository"
	"github.com/google/go-cmp/cmp"
)

type fakePlayer struct {
	closes  bool
	playErr error
	checks  []string
	plays   []playback.PlayCommand
}

func (p *fakePlayer) PlayNow(ctx context.Context, cmd playback.PlayCommand) error {
	p.plays = append(p.plays, cmd)
	return p.playErr
}

func (p *fakePlayer) CheckEmptyChannel(ctx context.Context, guildID string) (bool, error) {
	p.checks = append(p.checks, guildID)
	return p.closes, nil
}

var allFlags = presence.Flags{EntranceOnJoin: true, EntranceOnMove: true, LeaveSounds: true}

func TestRouterPlaysResolvedSound(t *testing.T) {
	player := &fakePlayer{}
	cascade := presence.NewCascade(nil, &memorySounds{ids: []string{"alice"}}, "", "_leave")
	r := presence.NewRouter(player, cascade, allFlags)

	ev := presence.Event{GuildID: "g", UserID: "u1", DisplayName: "alice", Kind: presence.Join, DestChannelID: "c1"}
	if err := r.Handle(t.Context(), ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []playback.PlayCommand{{GuildID: "g", ChannelID: "c1", SoundID: "alice", RepeatCount: 1, Submitter: "alice"}}
	if diff := cmp.Diff(want, player.plays); diff != "" {
		t.Errorf("plays mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"g"}, player.checks); diff != "" {
		t.Errorf("checks mismatch (-want +got):\n%s", diff)
	}
}

func TestRouterDisabledFlagsSkipTheCascade(t *testing.T) {
	table := []struct {
		name  string
		flags presence.Flags
		event presence.Event
	}{
		{
			name:  "entrance on join disabled",
			flags: presence.Flags{EntranceOnMove: true, LeaveSounds: true},
			event: presence.Event{GuildID: "g", UserID: "u1", DisplayName: "alice", Kind: presence.Join, DestChannelID: "c1"},
		},
		{
			name:  "entrance on move disabled",
			flags: presence.Flags{EntranceOnJoin: true, LeaveSounds: true},
			event: presence.Event{GuildID: "g", UserID: "u1", DisplayName: "alice", Kind: presence.Move, OriginChannelID: "c1", DestChannelID: "c2"},
		},
		{
			name:  "leave sounds disabled",
			flags: presence.Flags{EntranceOnJoin: true, EntranceOnMove: true},
			event: presence.Event{GuildID: "g", UserID: "u1", DisplayName: "alice", Kind: presence.Leave, OriginChannelID: "c1"},
		},
		{
			name:  "bots",
			flags: allFlags,
			event: presence.Event{GuildID: "g", UserID: "b1", DisplayName: "alice", Bot: true, Kind: presence.Join, DestChannelID: "c1"},
		},
	}

	for _, tt := range table {
		t.Run(tt.name, func(t *testing.T) {
			player := &fakePlayer{}
			prefs := &memoryPrefs{prefs: []repository.UserPreference{{UserID: "u1", EntranceSound: "x", LeaveSound: "y"}}}
			sounds := &memorySounds{ids: []string{"alice", "alice_leave"}}
			r := presence.NewRouter(player, presence.NewCascade(prefs, sounds, "", "_leave"), tt.flags)

			if err := r.Handle(t.Context(), tt.event); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if prefs.calls != 0 || sounds.calls != 0 {
				t.Errorf("cascade was evaluated: %d preference and %d sound lookups", prefs.calls, sounds.calls)
			}
			if len(player.plays) != 0 {
				t.Errorf("played %v, want nothing", player.plays)
			}
			if len(player.checks) != 1 {
				t.Errorf("empty channel checks = %d, want 1", len(player.checks))
			}
		})
	}
}

func TestRouterSkipsLeaveSoundAfterClosing(t *testing.T) {
	player := &fakePlayer{closes: true}
	cascade := presence.NewCascade(nil, &memorySounds{ids: []string{"alice_leave"}}, "", "_leave")
	r := presence.NewRouter(player, cascade, allFlags)

	ev := presence.Event{GuildID: "g", UserID: "u1", DisplayName: "alice", Kind: presence.Leave, OriginChannelID: "c1"}
	if err := r.Handle(t.Context(), ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(player.plays) != 0 {
		t.Errorf("played %v into an emptied channel", player.plays)
	}
}

func TestRouterUpdatesOnlyCheckTheChannel(t *testing.T) {
	player := &fakePlayer{}
	r := presence.NewRouter(player, presence.NewCascade(nil, &memorySounds{ids: []string{"alice"}}, "", "_leave"), allFlags)

	ev := presence.Event{GuildID: "g", UserID: "u1", DisplayName: "alice", Kind: presence.Update, OriginChannelID: "c1", DestChannelID: "c1"}
	if err := r.Handle(t.Context(), ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(player.plays) != 0 || len(player.checks) != 1 {
		t.Errorf("plays = %d, checks = %d; want 0 and 1", len(player.plays), len(player.checks))
	}
}

func TestRouterReportsPlayErrors(t *testing.T) {
	player := &fakePlayer{playErr: playback.ErrSoundNotFound}
	prefs := &memoryPrefs{prefs: []repository.UserPreference{{UserID: "u1", EntranceSound: "deleted"}}}
	r := presence.NewRouter(player, presence.NewCascade(prefs, nil, "", "_leave"), allFlags)

	ev := presence.Event{GuildID: "g", UserID: "u1", Kind: presence.Join, DestChannelID: "c1"}
	if err := r.Handle(t.Context(), ev); !errors.Is(err, playback.ErrSoundNotFound) {
		t.Errorf("got %v, want ErrSoundNotFound", err)
	}
}
