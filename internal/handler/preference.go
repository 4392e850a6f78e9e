package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
)

func (h *interactions) preferenceFlow() *Flow {
	return &Flow{
		ID: "preference",
		Root: &Node{
			ID: "preference",
			Matcher: func(i *discordgo.InteractionCreate) bool {
				return isCommand("preference", "entrance")(i) || isCommand("preference", "leave")(i)
			},
			Handler: func(ctx context.Context, s DiscordSession, i *discordgo.InteractionCreate, _ *FlowContext) error {
				msg, err := h.savePreference(ctx, i)
				if err != nil {
					return respondError(s, i, err)
				}
				return respondEphemeral(s, i, msg)
			},
		},
	}
}

// savePreference stores the caller's entrance or leave sound. An empty
// sound clears it.
func (h *interactions) savePreference(ctx context.Context, i *discordgo.InteractionCreate) (string, error) {
	path := commandPath(i)
	kind := path[len(path)-1]

	soundID := ""
	if o, ok := commandOptions(i)["sound"]; ok {
		soundID = strings.TrimSpace(o.StringValue())
	}
	if soundID != "" && h.deps.Library != nil {
		canonical, ok := h.deps.Library.Lookup(ctx, soundID)
		if !ok {
			return "", &UserError{Message: fmt.Sprintf("There is no sound named `%s`.", soundID)}
		}
		soundID = canonical
	}

	userID, name := interactionUser(i)
	if userID == "" {
		return "", fmt.Errorf("interaction has no user")
	}

	save := h.deps.Preferences.SaveEntranceSound
	if kind == "leave" {
		save = h.deps.Preferences.SaveLeaveSound
	}
	if err := save(ctx, userID, name, soundID); err != nil {
		return "", err
	}

	if soundID == "" {
		return fmt.Sprintf("Cleared your %s sound.", kind), nil
	}
	return fmt.Sprintf("Your %s sound is now `%s`.", kind, soundID), nil
}
