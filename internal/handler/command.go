package handler

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

var (
	volumeMin   = 0.0
	repeatMin   = -1.0
	soundOption = &discordgo.ApplicationCommandOption{
		Name:        "sound",
		Type:        discordgo.ApplicationCommandOptionString,
		Description: "The sound id, or an http(s) link to play.",
		Required:    true,
	}
)

var soundCronAddOptions = []*discordgo.ApplicationCommandOption{
	{
		Name:        "name",
		Type:        discordgo.ApplicationCommandOptionString,
		Description: "The name of the soundcron.",
		Required:    true,
	},
	{
		Name:        "sound",
		Type:        discordgo.ApplicationCommandOptionString,
		Description: "The sound to play when the soundcron runs.",
		Required:    true,
	},
	{
		Name:        "cron",
		Type:        discordgo.ApplicationCommandOptionString,
		Description: "The cron expression for the soundcron.",
		Required:    true,
	},
}

var preferenceOptions = []*discordgo.ApplicationCommandOption{
	{
		Name:        "sound",
		Type:        discordgo.ApplicationCommandOptionString,
		Description: "The sound to use. Leave empty to clear it.",
		Required:    false,
	},
}

// Commands is a list of all the commands the bot can handle.
// This is used to register the commands with Discord.
var Commands = []*discordgo.ApplicationCommand{
	{
		Name:        "ping",
		Description: "Check that the bot is alive",
	},
	{
		Name:        "sound",
		Description: "Play and control sounds",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        "play",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Description: "Queue a sound in your voice channel",
				Options: []*discordgo.ApplicationCommandOption{
					soundOption,
					{
						Name:        "repeat",
						Type:        discordgo.ApplicationCommandOptionInteger,
						Description: "How many times to play it. -1 repeats until stopped.",
						MinValue:    &repeatMin,
						MaxValue:    100,
					},
				},
			},
			{
				Name:        "now",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Description: "Play a sound immediately, interrupting the current one",
				Options:     []*discordgo.ApplicationCommandOption{soundOption},
			},
			{
				Name:        "random",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Description: "Queue a random sound",
			},
			{
				Name:        "stop",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Description: "Stop playback and clear the queue",
			},
			{
				Name:        "skip",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Description: "Skip the current sound",
			},
			{
				Name:        "shuffle",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Description: "Shuffle the queue",
			},
			{
				Name:        "volume",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Description: "Set the playback volume",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Name:        "percent",
						Type:        discordgo.ApplicationCommandOptionInteger,
						Description: "Volume from 0 to 100.",
						Required:    true,
						MinValue:    &volumeMin,
						MaxValue:    100,
					},
				},
			},
			{
				Name:        "repeat",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Description: "Repeat the current sound until turned off",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Name:        "enabled",
						Type:        discordgo.ApplicationCommandOptionBoolean,
						Description: "Whether to repeat.",
						Required:    true,
					},
				},
			},
			{
				Name:        "queue",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Description: "Show what is playing and queued",
			},
			{
				Name:        "list",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Description: "List the sound library",
			},
			{
				Name:        "leave",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Description: "Disconnect from voice",
			},
			{
				Name:        "upload",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Description: "Add a sound to the library from an audio file",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Name:        "audio",
						Type:        discordgo.ApplicationCommandOptionAttachment,
						Description: "The audio file.",
						Required:    true,
					},
					{
						Name:        "name",
						Type:        discordgo.ApplicationCommandOptionString,
						Description: "The sound id. Defaults to the file name.",
					},
					{
						Name:        "category",
						Type:        discordgo.ApplicationCommandOptionString,
						Description: "The category to list the sound under.",
					},
				},
			},
		},
	},
	{
		Name:        "preference",
		Description: "Choose the sounds played when you join or leave voice",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        "entrance",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Description: "Set your entrance sound",
				Options:     preferenceOptions,
			},
			{
				Name:        "leave",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Description: "Set your leave sound",
				Options:     preferenceOptions,
			},
		},
	},
	{
		Name:        "soundcron",
		Description: "Manage and work with soundcrons",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        "list",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Description: "List all soundcrons",
			},
			{
				Name:        "add",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Description: "Play a sound on a schedule in the busiest voice channel",
				Options:     soundCronAddOptions,
			},
		},
	},
}

// EstablishCommands registers the commands for one guild, or globally when
// guildID is empty.
func EstablishCommands(s *discordgo.Session, guildID string) error {
	_, err := s.ApplicationCommandBulkOverwrite(s.State.User.ID, guildID, Commands)
	if err != nil {
		return fmt.Errorf("failed to establish commands: %w", err)
	}
	return nil
}
