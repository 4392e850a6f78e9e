package presenters

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/soundboard/internal/repository"
)

var noSoundCronFoundResponse = &discordgo.InteractionResponse{
	Type: discordgo.InteractionResponseChannelMessageWithSource,
	Data: &discordgo.InteractionResponseData{
		Content: "No soundcrons found",
	},
}

func soundCronToSelectMenuOption(sc repository.SoundCron) discordgo.SelectMenuOption {
	return discordgo.SelectMenuOption{
		Label: sc.Name,
		Value: sc.ID,
	}
}

var soundCronSelectMinValues = 1

const (
	ComponentIDSoundCronSelect = "soundcron_select_menu"
	ComponentIDSoundCronPause  = "soundcron_pause"
	ComponentIDSoundCronResume = "soundcron_resume"
	ComponentIDSoundCronDelete = "soundcron_delete"
)

// CustomID scopes a component to one flow instance.
func CustomID(componentID, instanceID string) string {
	return componentID + ":" + instanceID
}

func buildSoundCronSelectMenu(soundCrons []repository.SoundCron, instanceID string) *discordgo.InteractionResponse {
	var options []discordgo.SelectMenuOption
	for _, sc := range soundCrons {
		options = append(options, soundCronToSelectMenuOption(sc))
	}

	menu := discordgo.SelectMenu{
		CustomID:    CustomID(ComponentIDSoundCronSelect, instanceID),
		Placeholder: "Select a soundcron",
		MinValues:   &soundCronSelectMinValues,
		MaxValues:   1,
		Options:     options,
	}

	row := discordgo.ActionsRow{
		Components: []discordgo.MessageComponent{
			menu,
		},
	}

	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: "Choose a soundcron:",
			Components: []discordgo.MessageComponent{
				row,
			},
		},
	}
}

func BuildListSoundCronsResponse(soundCrons []repository.SoundCron, instanceID string) *discordgo.InteractionResponse {
	if len(soundCrons) == 0 {
		return noSoundCronFoundResponse
	}

	return buildSoundCronSelectMenu(soundCrons, instanceID)
}

// SoundCronActionsMenu replaces the select menu with the chosen soundcron
// and what can be done with it.
func SoundCronActionsMenu(sc repository.SoundCron, paused bool, instanceID string) *discordgo.InteractionResponse {
	toggle := discordgo.Button{
		Label:    "Pause",
		Style:    discordgo.SecondaryButton,
		CustomID: CustomID(ComponentIDSoundCronPause, instanceID),
	}
	status := ""
	if paused {
		toggle = discordgo.Button{
			Label:    "Resume",
			Style:    discordgo.SuccessButton,
			CustomID: CustomID(ComponentIDSoundCronResume, instanceID),
		}
		status = " (paused)"
	}

	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content: fmt.Sprintf("**%s**%s plays `%s` on `%s`", sc.Name, status, sc.SoundID, sc.Cron),
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						toggle,
						discordgo.Button{
							Label:    "Delete",
							Style:    discordgo.DangerButton,
							CustomID: CustomID(ComponentIDSoundCronDelete, instanceID),
						},
					},
				},
			},
		},
	}
}

// SoundCronActionDone replaces the actions menu with a final message.
func SoundCronActionDone(content string) *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content:    content,
			Components: []discordgo.MessageComponent{},
		},
	}
}
