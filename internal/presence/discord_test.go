package presence_test

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/soundboard/internal/playback"
	"github.com/glizzus/soundboard/internal/presence"
	"github.com/google/go-cmp/cmp"
)

func TestEventFromVoiceState(t *testing.T) {
	member := &discordgo.Member{Nick: "Ally", User: &discordgo.User{ID: "u1", Username: "alice"}}

	table := []struct {
		name   string
		before string
		after  string
		want   presence.Kind
	}{
		{name: "join", after: "c1", want: presence.Join},
		{name: "leave", before: "c1", want: presence.Leave},
		{name: "move", before: "c1", after: "c2", want: presence.Move},
		{name: "deafen", before: "c1", after: "c1", want: presence.Update},
	}

	for _, tt := range table {
		t.Run(tt.name, func(t *testing.T) {
			vs := &discordgo.VoiceStateUpdate{
				VoiceState: &discordgo.VoiceState{GuildID: "g", UserID: "u1", ChannelID: tt.after, Member: member},
			}
			if tt.before != "" {
				vs.BeforeUpdate = &discordgo.VoiceState{GuildID: "g", UserID: "u1", ChannelID: tt.before}
			}

			got, ok := presence.EventFromVoiceState(nil, vs)
			if !ok {
				t.Fatal("update was not classified")
			}
			want := presence.Event{
				GuildID:         "g",
				UserID:          "u1",
				DisplayName:     "Ally",
				Kind:            tt.want,
				OriginChannelID: tt.before,
				DestChannelID:   tt.after,
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("event mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEventFromVoiceStateWithoutGuild(t *testing.T) {
	vs := &discordgo.VoiceStateUpdate{VoiceState: &discordgo.VoiceState{UserID: "u1", ChannelID: "c1"}}
	if _, ok := presence.EventFromVoiceState(nil, vs); ok {
		t.Error("expected updates without a guild to be ignored")
	}
}

func TestDiscordRosterVoiceMembers(t *testing.T) {
	state := discordgo.NewState()
	state.User = &discordgo.User{ID: "self"}
	err := state.GuildAdd(&discordgo.Guild{
		ID: "g",
		VoiceStates: []*discordgo.VoiceState{
			{GuildID: "g", UserID: "self", ChannelID: "c1"},
			{GuildID: "g", UserID: "music", ChannelID: "c1"},
			{GuildID: "g", UserID: "alice", ChannelID: "c1", SelfDeaf: true},
			{GuildID: "g", UserID: "bob", ChannelID: "c2"},
		},
	})
	if err != nil {
		t.Fatalf("failed to add guild: %v", err)
	}
	roster := presence.NewDiscordRoster(&discordgo.Session{State: state})

	roster.Observe(&discordgo.VoiceState{
		GuildID:   "g",
		UserID:    "music",
		ChannelID: "c1",
		Member:    &discordgo.Member{User: &discordgo.User{ID: "music", Bot: true}},
	})

	got, err := roster.VoiceMembers("g", "c1")
	if err != nil {
		t.Fatalf("failed to list members: %v", err)
	}
	want := []playback.Member{
		{UserID: "self", Bot: true},
		{UserID: "music", Bot: true},
		{UserID: "alice", Deafened: true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("members mismatch (-want +got):\n%s", diff)
	}
}
