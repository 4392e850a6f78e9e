package handler_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/soundboard/internal/handler"
	"github.com/glizzus/soundboard/internal/repository"
	"github.com/glizzus/soundboard/internal/schedule"
	"github.com/glizzus/soundboard/internal/worker"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

type memorySoundCrons struct {
	soundCrons []repository.SoundCron
}

func (m *memorySoundCrons) Save(ctx context.Context, sc repository.SoundCron) error {
	m.soundCrons = append(m.soundCrons, sc)
	return nil
}

func (m *memorySoundCrons) List(ctx context.Context, guildID string) ([]repository.SoundCron, error) {
	var out []repository.SoundCron
	for _, sc := range m.soundCrons {
		if sc.GuildID == guildID {
			out = append(out, sc)
		}
	}
	return out, nil
}

func (m *memorySoundCrons) Delete(ctx context.Context, guildID, id string) (bool, error) {
	for i, sc := range m.soundCrons {
		if sc.GuildID == guildID && sc.ID == id {
			m.soundCrons = append(m.soundCrons[:i], m.soundCrons[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *memorySoundCrons) Pull(ctx context.Context, before time.Time) ([]schedule.Job, error) {
	return nil, nil
}

func TestSoundCronAdd(t *testing.T) {
	library := &fakeLibrary{sounds: []repository.Sound{{ID: "AirHorn"}}}

	tests := []struct {
		name     string
		existing []repository.SoundCron
		options  []*discordgo.ApplicationCommandInteractionDataOption
		want     string
		wantSave bool
	}{
		{
			name:     "saves with the canonical sound id",
			options:  []*discordgo.ApplicationCommandInteractionDataOption{stringOption("name", "noon"), stringOption("sound", "airhorn"), stringOption("cron", "0 12 * * *")},
			want:     "Added **noon**: `AirHorn` on `0 12 * * *`.",
			wantSave: true,
		},
		{
			name:    "invalid cron",
			options: []*discordgo.ApplicationCommandInteractionDataOption{stringOption("name", "noon"), stringOption("sound", "airhorn"), stringOption("cron", "whenever")},
			want:    "`whenever` is not a valid cron expression.",
		},
		{
			name:    "unknown sound",
			options: []*discordgo.ApplicationCommandInteractionDataOption{stringOption("name", "noon"), stringOption("sound", "kazoo"), stringOption("cron", "0 12 * * *")},
			want:    "There is no sound named `kazoo`.",
		},
		{
			name:     "duplicate name",
			existing: []repository.SoundCron{{ID: "x", Name: "Noon", GuildID: "g1"}},
			options:  []*discordgo.ApplicationCommandInteractionDataOption{stringOption("name", "noon"), stringOption("sound", "airhorn"), stringOption("cron", "0 12 * * *")},
			want:     "A soundcron named **Noon** already exists.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &memorySoundCrons{soundCrons: append([]repository.SoundCron(nil), tt.existing...)}
			session := &mockSession{}
			handle := handler.NewInteractionHandler(handler.Deps{Library: library, SoundCrons: repo}, fixedIDs{})

			handle(session, command("soundcron", "add", tt.options...))

			if got := session.last(t); got != tt.want {
				t.Errorf("response = %q, want %q", got, tt.want)
			}
			saved := len(repo.soundCrons) > len(tt.existing)
			if saved != tt.wantSave {
				t.Errorf("saved = %v, want %v", saved, tt.wantSave)
			}
		})
	}
}

func TestSoundCronListFlow(t *testing.T) {
	ctx := t.Context()
	sc := repository.SoundCron{ID: "sc-1", Name: "Noon", GuildID: "g1", SoundID: "airhorn", Cron: "0 12 * * *"}
	repo := &memorySoundCrons{soundCrons: []repository.SoundCron{sc}}
	pauses := worker.NewMemoryPauseList()
	session := &mockSession{}
	handle := handler.NewInteractionHandler(handler.Deps{SoundCrons: repo, Pauses: pauses}, fixedIDs{})

	handle(session, command("soundcron", "list"))
	handle(session, component("soundcron_select_menu:instance", "sc-1"))
	handle(session, component("soundcron_pause:instance"))

	if paused, _ := pauses.IsPaused(ctx, "sc-1"); !paused {
		t.Error("soundcron was not paused")
	}
	if got := session.last(t); got != "Paused **Noon**." {
		t.Errorf("response = %q", got)
	}

	// The flow is finished, so further clicks do nothing.
	handle(session, component("soundcron_delete:instance"))
	if len(repo.soundCrons) != 1 {
		t.Error("a finished flow deleted the soundcron")
	}

	// A new flow shows the paused state and can delete.
	handle(session, command("soundcron", "list"))
	handle(session, component("soundcron_select_menu:instance", "sc-1"))
	menu := session.responses[len(session.responses)-1]
	if diff := cmp.Diff("**Noon** (paused) plays `airhorn` on `0 12 * * *`", menu.Data.Content); diff != "" {
		t.Errorf("menu mismatch (-want +got):\n%s", diff)
	}
	handle(session, component("soundcron_delete:instance"))

	if diff := cmp.Diff([]repository.SoundCron{}, repo.soundCrons, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("soundcrons mismatch (-want +got):\n%s", diff)
	}
	if paused, _ := pauses.IsPaused(ctx, "sc-1"); paused {
		t.Error("a deleted soundcron stayed paused")
	}
}

func TestCheckSoundCronLimit(t *testing.T) {
	full := make([]repository.SoundCron, handler.MaxSoundCronsPerGuild)
	var limitErr *handler.SoundCronLimitError
	if err := handler.CheckSoundCronLimit(full, handler.MaxSoundCronsPerGuild); !errors.As(err, &limitErr) {
		t.Errorf("got %v, want SoundCronLimitError", err)
	}
	if err := handler.CheckSoundCronLimit(full[1:], handler.MaxSoundCronsPerGuild); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
