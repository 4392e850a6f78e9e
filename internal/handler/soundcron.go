package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/soundboard/internal/generator"
	"github.com/glizzus/soundboard/internal/presenters"
	"github.com/glizzus/soundboard/internal/repository"
	"github.com/glizzus/soundboard/internal/schedule"
)

// MaxSoundCronsPerGuild caps how many schedules one guild can keep.
const MaxSoundCronsPerGuild = 25

var soundCronIDs generator.Generator[string] = &generator.UUIDV4Generator{}

const (
	stateSoundCrons = "soundcrons"
	stateSelected   = "selected"
)

func (h *interactions) soundCronListFlow() *Flow {
	pause := &Node{
		ID:      "soundcron_pause",
		Matcher: isComponent(presenters.ComponentIDSoundCronPause),
		Handler: h.setSoundCronPaused(true),
	}
	resume := &Node{
		ID:      "soundcron_resume",
		Matcher: isComponent(presenters.ComponentIDSoundCronResume),
		Handler: h.setSoundCronPaused(false),
	}
	remove := &Node{
		ID:      "soundcron_delete",
		Matcher: isComponent(presenters.ComponentIDSoundCronDelete),
		Handler: h.deleteSoundCron,
	}
	selectMenu := &Node{
		ID:      "soundcron_select",
		Matcher: isComponent(presenters.ComponentIDSoundCronSelect),
		Handler: h.selectSoundCron,
		Next:    []*Node{pause, resume, remove},
	}

	return &Flow{
		ID: "soundcron_list",
		Root: &Node{
			ID:      "soundcron_list",
			Matcher: isCommand("soundcron", "list"),
			Handler: h.listSoundCrons,
			Next:    []*Node{selectMenu},
		},
	}
}

func (h *interactions) listSoundCrons(ctx context.Context, s DiscordSession, i *discordgo.InteractionCreate, fc *FlowContext) error {
	soundCrons, err := h.deps.SoundCrons.List(ctx, i.GuildID)
	if err != nil {
		return respondError(s, i, fmt.Errorf("failed to list soundcrons: %w", err))
	}

	byID := make(map[string]repository.SoundCron, len(soundCrons))
	for _, sc := range soundCrons {
		byID[sc.ID] = sc
	}
	fc.State[stateSoundCrons] = byID

	return s.InteractionRespond(i.Interaction, presenters.BuildListSoundCronsResponse(soundCrons, fc.InstanceID))
}

func (h *interactions) selectSoundCron(ctx context.Context, s DiscordSession, i *discordgo.InteractionCreate, fc *FlowContext) error {
	values := i.MessageComponentData().Values
	if len(values) != 1 {
		return respondError(s, i, &UserError{Message: "Select one soundcron."})
	}
	byID, _ := fc.State[stateSoundCrons].(map[string]repository.SoundCron)
	sc, ok := byID[values[0]]
	if !ok {
		return respondError(s, i, &UserError{Message: "That soundcron no longer exists."})
	}
	fc.State[stateSelected] = sc

	paused := false
	if h.deps.Pauses != nil {
		var err error
		if paused, err = h.deps.Pauses.IsPaused(ctx, sc.ID); err != nil {
			return respondError(s, i, err)
		}
	}
	return s.InteractionRespond(i.Interaction, presenters.SoundCronActionsMenu(sc, paused, fc.InstanceID))
}

func (h *interactions) setSoundCronPaused(paused bool) func(context.Context, DiscordSession, *discordgo.InteractionCreate, *FlowContext) error {
	return func(ctx context.Context, s DiscordSession, i *discordgo.InteractionCreate, fc *FlowContext) error {
		sc, ok := fc.State[stateSelected].(repository.SoundCron)
		if !ok {
			return respondError(s, i, &UserError{Message: "Select a soundcron first."})
		}
		if h.deps.Pauses == nil {
			return respondError(s, i, &UserError{Message: "Pausing soundcrons is not available."})
		}

		change, verb := h.deps.Pauses.Resume, "Resumed"
		if paused {
			change, verb = h.deps.Pauses.Pause, "Paused"
		}
		if err := change(ctx, sc.ID); err != nil {
			return respondError(s, i, err)
		}
		return s.InteractionRespond(i.Interaction, presenters.SoundCronActionDone(fmt.Sprintf("%s **%s**.", verb, sc.Name)))
	}
}

func (h *interactions) deleteSoundCron(ctx context.Context, s DiscordSession, i *discordgo.InteractionCreate, fc *FlowContext) error {
	sc, ok := fc.State[stateSelected].(repository.SoundCron)
	if !ok {
		return respondError(s, i, &UserError{Message: "Select a soundcron first."})
	}

	deleted, err := h.deps.SoundCrons.Delete(ctx, i.GuildID, sc.ID)
	if err != nil {
		return respondError(s, i, fmt.Errorf("failed to delete soundcron: %w", err))
	}
	if !deleted {
		return respondError(s, i, &UserError{Message: "That soundcron no longer exists."})
	}
	if h.deps.Pauses != nil {
		_ = h.deps.Pauses.Resume(ctx, sc.ID)
	}
	return s.InteractionRespond(i.Interaction, presenters.SoundCronActionDone(fmt.Sprintf("Deleted **%s**.", sc.Name)))
}

// SoundCronAddRequest is a validated soundcron add command.
type SoundCronAddRequest struct {
	Name    string
	SoundID string
	Cron    string
}

func CommandToAddRequest(options map[string]*discordgo.ApplicationCommandInteractionDataOption) (*SoundCronAddRequest, error) {
	var req SoundCronAddRequest
	for name, option := range options {
		if option.Type != discordgo.ApplicationCommandOptionString {
			return nil, fmt.Errorf("invalid type for %s option", name)
		}
		value := strings.TrimSpace(option.StringValue())
		switch name {
		case "name":
			req.Name = value
		case "sound":
			req.SoundID = value
		case "cron":
			req.Cron = value
		}
	}

	if req.Name == "" || req.SoundID == "" || req.Cron == "" {
		return nil, &UserError{Message: "A name, a sound and a cron expression are required."}
	}
	if err := schedule.ValidateCron(req.Cron); err != nil {
		return nil, &UserError{Message: fmt.Sprintf("`%s` is not a valid cron expression.", req.Cron)}
	}
	return &req, nil
}

func CheckSoundCronLimit(soundCrons []repository.SoundCron, max int) error {
	if len(soundCrons) >= max {
		return &SoundCronLimitError{Current: len(soundCrons), Max: max}
	}
	return nil
}

func CheckSoundCronAlreadyExists(soundCrons []repository.SoundCron, guildID, name string) error {
	for _, sc := range soundCrons {
		if sc.GuildID == guildID && strings.EqualFold(sc.Name, name) {
			return &SoundCronAlreadyExistsError{GuildID: guildID, Name: sc.Name}
		}
	}
	return nil
}

func (h *interactions) soundCronAddFlow() *Flow {
	return &Flow{
		ID: "soundcron_add",
		Root: &Node{
			ID:      "soundcron_add",
			Matcher: isCommand("soundcron", "add"),
			Handler: func(ctx context.Context, s DiscordSession, i *discordgo.InteractionCreate, fc *FlowContext) error {
				msg, err := h.addSoundCron(ctx, i)
				if err != nil {
					return respondError(s, i, err)
				}
				return respond(s, i, msg)
			},
		},
	}
}

func (h *interactions) addSoundCron(ctx context.Context, i *discordgo.InteractionCreate) (string, error) {
	req, err := CommandToAddRequest(commandOptions(i))
	if err != nil {
		return "", err
	}
	if h.deps.Library != nil {
		canonical, ok := h.deps.Library.Lookup(ctx, req.SoundID)
		if !ok {
			return "", &UserError{Message: fmt.Sprintf("There is no sound named `%s`.", req.SoundID)}
		}
		req.SoundID = canonical
	}

	soundCrons, err := h.deps.SoundCrons.List(ctx, i.GuildID)
	if err != nil {
		return "", fmt.Errorf("failed to list soundcrons: %w", err)
	}
	if err := CheckSoundCronLimit(soundCrons, MaxSoundCronsPerGuild); err != nil {
		return "", err
	}
	if err := CheckSoundCronAlreadyExists(soundCrons, i.GuildID, req.Name); err != nil {
		return "", err
	}

	id, err := soundCronIDs.Next()
	if err != nil {
		return "", fmt.Errorf("failed to generate soundcron id: %w", err)
	}
	err = h.deps.SoundCrons.Save(ctx, repository.SoundCron{
		ID:      id,
		Name:    req.Name,
		GuildID: i.GuildID,
		SoundID: req.SoundID,
		Cron:    req.Cron,
	})
	if err != nil {
		return "", fmt.Errorf("failed to save soundcron: %w", err)
	}
	return fmt.Sprintf("Added **%s**: `%s` on `%s`.", req.Name, req.SoundID, req.Cron), nil
}
