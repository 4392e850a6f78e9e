package handler

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/soundboard/internal/generator"
)

// interactionTimeout bounds the work done for one interaction. Deferred
// responses can be edited for 15 minutes, but nothing here should take
// longer than a connect and a few queries.
const interactionTimeout = time.Minute

// DiscordSession is the part of *discordgo.Session the handlers use.
type DiscordSession interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

var _ DiscordSession = (*discordgo.Session)(nil)

type ReadyHandler = func(*discordgo.Session, *discordgo.Ready)
type InteractionCreateHandler = func(*discordgo.Session, *discordgo.InteractionCreate)
type VoiceStateUpdateHandler = func(*discordgo.Session, *discordgo.VoiceStateUpdate)

var ReadyLog = func(s *discordgo.Session, r *discordgo.Ready) {
	username := r.User.Username
	userID := r.User.ID
	slog.Info("Bot is ready", "username", username, "userID", userID, "guilds", len(r.Guilds))
}

type Handlers struct {
	Ready             ReadyHandler
	InteractionCreate InteractionCreateHandler
	VoiceStateUpdate  VoiceStateUpdateHandler
}

// NewSession creates a session with the intents the soundboard needs.
// Handlers left nil are not registered.
func NewSession(token string, handlers Handlers) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	s.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates

	if handlers.Ready != nil {
		s.AddHandler(handlers.Ready)
	}
	if handlers.InteractionCreate != nil {
		s.AddHandler(handlers.InteractionCreate)
	}
	if handlers.VoiceStateUpdate != nil {
		s.AddHandler(handlers.VoiceStateUpdate)
	}

	return s, nil
}

// NewInteractionHandler routes interactions through the registered flows.
// The returned function accepts any DiscordSession so it can be driven
// without a gateway connection.
func NewInteractionHandler(deps Deps, idGenerator generator.Generator[string]) func(DiscordSession, *discordgo.InteractionCreate) {
	fm := NewFlowManager(idGenerator)
	fm.RegisterFlow(PingFlow)

	h := &interactions{deps: deps}
	if deps.Player != nil {
		for _, f := range h.soundFlows() {
			fm.RegisterFlow(f)
		}
	}
	if deps.Preferences != nil {
		fm.RegisterFlow(h.preferenceFlow())
	}
	if deps.SoundCrons != nil {
		fm.RegisterFlow(h.soundCronListFlow())
		fm.RegisterFlow(h.soundCronAddFlow())
	}

	return func(s DiscordSession, i *discordgo.InteractionCreate) {
		ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
		defer cancel()

		if err := fm.Router(ctx, s, i); err != nil {
			slog.Error("failed to handle interaction",
				"guildID", i.GuildID,
				"command", interactionName(i),
				"error", err,
			)
		}
	}
}

// MakeInteractionCreateHandler adapts NewInteractionHandler to discordgo.
func MakeInteractionCreateHandler(deps Deps, idGenerator generator.Generator[string]) InteractionCreateHandler {
	handle := NewInteractionHandler(deps, idGenerator)
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		handle(s, i)
	}
}

func interactionName(i *discordgo.InteractionCreate) string {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		return strings.Join(commandPath(i), " ")
	case discordgo.InteractionMessageComponent:
		return i.MessageComponentData().CustomID
	default:
		return i.Type.String()
	}
}

// commandPath is the command name followed by any subcommand group and
// subcommand names.
func commandPath(i *discordgo.InteractionCreate) []string {
	data := i.ApplicationCommandData()
	path := []string{data.Name}
	options := data.Options
	for len(options) > 0 {
		o := options[0]
		if o.Type != discordgo.ApplicationCommandOptionSubCommand && o.Type != discordgo.ApplicationCommandOptionSubCommandGroup {
			break
		}
		path = append(path, o.Name)
		options = o.Options
	}
	return path
}

// commandOptions returns the options of the innermost subcommand by name.
func commandOptions(i *discordgo.InteractionCreate) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	options := i.ApplicationCommandData().Options
	for len(options) > 0 {
		o := options[0]
		if o.Type != discordgo.ApplicationCommandOptionSubCommand && o.Type != discordgo.ApplicationCommandOptionSubCommandGroup {
			break
		}
		options = o.Options
	}

	byName := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(options))
	for _, o := range options {
		byName[o.Name] = o
	}
	return byName
}

func isCommand(path ...string) func(*discordgo.InteractionCreate) bool {
	return func(i *discordgo.InteractionCreate) bool {
		if i.Type != discordgo.InteractionApplicationCommand {
			return false
		}
		return slices.Equal(commandPath(i), path)
	}
}

func isComponent(componentID string) func(*discordgo.InteractionCreate) bool {
	return func(i *discordgo.InteractionCreate) bool {
		if i.Type != discordgo.InteractionMessageComponent {
			return false
		}
		return strings.HasPrefix(i.MessageComponentData().CustomID, componentID+":")
	}
}

// interactionUser returns who triggered the interaction and how they are
// displayed in the guild.
func interactionUser(i *discordgo.InteractionCreate) (id, name string) {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID, i.Member.DisplayName()
	}
	if i.User != nil {
		return i.User.ID, i.User.Username
	}
	return "", ""
}

func respond(s DiscordSession, i *discordgo.InteractionCreate, content string) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
		},
	})
}

func respondEphemeral(s DiscordSession, i *discordgo.InteractionCreate, content string) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}

// respondError shows the user what went wrong. Errors the user cannot act
// on are also returned for logging.
func respondError(s DiscordSession, i *discordgo.InteractionCreate, err error) error {
	msg, expected := userMessage(err)
	if respErr := respondEphemeral(s, i, msg); respErr != nil {
		slog.Warn("failed to respond with error", "error", respErr)
	}
	if expected {
		return nil
	}
	return err
}

// deferred acknowledges the interaction, runs work and edits the response
// with its result. Voice connects can take longer than the three seconds
// Discord waits for a first response.
func deferred(ctx context.Context, s DiscordSession, i *discordgo.InteractionCreate, work func(ctx context.Context) (string, error)) error {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
	if err != nil {
		return err
	}

	content, workErr := work(ctx)
	expected := true
	if workErr != nil {
		content, expected = userMessage(workErr)
	}

	if _, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Content: &content}); err != nil {
		slog.Warn("failed to edit deferred response", "error", err)
	}
	if !expected {
		return workErr
	}
	return nil
}
