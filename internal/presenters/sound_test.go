package presenters_test

import (
	"strings"
	"testing"

	"github.com/glizzus/soundboard/internal/playback"
	"github.com/glizzus/soundboard/internal/presenters"
	"github.com/glizzus/soundboard/internal/repository"
)

func TestSoundList(t *testing.T) {
	sounds := []repository.Sound{
		{ID: "airhorn"},
		{ID: "bruh", Category: "memes"},
		{ID: "zap"},
	}
	want := "**3 sounds**\n**uncategorized**: `airhorn`, `zap`\n**memes**: `bruh`\n"
	if got := presenters.SoundList(sounds); got != want {
		t.Errorf("SoundList() = %q, want %q", got, want)
	}

	if got := presenters.SoundList(nil); got != "The sound library is empty." {
		t.Errorf("SoundList(nil) = %q", got)
	}
}

func TestSoundListTruncates(t *testing.T) {
	var sounds []repository.Sound
	for i := range 500 {
		sounds = append(sounds, repository.Sound{ID: strings.Repeat("x", 10), Category: string(rune('a' + i%26))})
	}
	got := presenters.SoundList(sounds)
	if len(got) > presenters.MaxMessageLength {
		t.Errorf("len(SoundList()) = %d, want at most %d", len(got), presenters.MaxMessageLength)
	}
	if !strings.HasSuffix(got, "…") {
		t.Error("truncated list should end with an ellipsis")
	}
}

func TestStatus(t *testing.T) {
	st := playback.Status{
		State:     "connected",
		ChannelID: "c1",
		Current:   &playback.Entry{SoundID: "airhorn", Submitter: "alice", RepeatCount: playback.Forever},
		Queue: []playback.Entry{
			{SoundID: "bruh", RepeatCount: 3},
			{SoundID: "zap", RepeatCount: 1},
		},
		Volume:    0.75,
		Repeating: true,
	}
	want := "**connected** in <#c1> | volume 75% | repeating\n" +
		"Now playing: `airhorn` from alice (forever)\n" +
		"1. `bruh` (x3)\n" +
		"2. `zap`\n"
	if got := presenters.Status(st); got != want {
		t.Errorf("Status() = %q, want %q", got, want)
	}
}
