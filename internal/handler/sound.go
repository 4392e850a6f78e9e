package handler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/soundboard/internal/library"
	"github.com/glizzus/soundboard/internal/playback"
	"github.com/glizzus/soundboard/internal/presenters"
	"github.com/glizzus/soundboard/internal/repository"
	"github.com/glizzus/soundboard/internal/util"
)

// MaxUploadSize caps attachments added to the library.
const MaxUploadSize = 10 * 1024 * 1024 // 10 MB

// HTTPClient is an abstraction for making HTTP requests.
// The implementation is usually Go's stdlib http.Client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type soundCommand func(ctx context.Context, i *discordgo.InteractionCreate) (string, error)

func (h *interactions) soundFlows() []*Flow {
	deferredCommands := map[string]soundCommand{
		"play":    h.play,
		"now":     h.playNow,
		"random":  h.playRandom,
		"stop":    h.stop,
		"skip":    h.skip,
		"shuffle": h.shuffle,
		"volume":  h.volume,
		"repeat":  h.repeat,
		"queue":   h.queue,
		"leave":   h.leave,
	}
	if h.deps.Importer != nil {
		deferredCommands["upload"] = h.upload
	}

	var flows []*Flow
	for name, command := range deferredCommands {
		flows = append(flows, &Flow{
			ID: "sound_" + name,
			Root: &Node{
				ID:      "sound_" + name,
				Matcher: isCommand("sound", name),
				Handler: func(ctx context.Context, s DiscordSession, i *discordgo.InteractionCreate, _ *FlowContext) error {
					return deferred(ctx, s, i, func(ctx context.Context) (string, error) {
						return command(ctx, i)
					})
				},
			},
		})
	}

	if h.deps.Library != nil {
		flows = append(flows, &Flow{
			ID: "sound_list",
			Root: &Node{
				ID:      "sound_list",
				Matcher: isCommand("sound", "list"),
				Handler: func(ctx context.Context, s DiscordSession, i *discordgo.InteractionCreate, _ *FlowContext) error {
					return respondEphemeral(s, i, presenters.SoundList(h.deps.Library.List()))
				},
			},
		})
	}
	return flows
}

// playCommand builds a play request in the caller's voice channel. Without
// one, the sound plays wherever the bot already is.
func (h *interactions) playCommand(i *discordgo.InteractionCreate) playback.PlayCommand {
	userID, name := interactionUser(i)
	cmd := playback.PlayCommand{
		GuildID:     i.GuildID,
		RepeatCount: 1,
		Submitter:   name,
	}
	if h.deps.Locator != nil {
		if channelID, ok := h.deps.Locator.UserChannel(i.GuildID, userID); ok {
			cmd.ChannelID = channelID
		}
	}

	options := commandOptions(i)
	if o, ok := options["sound"]; ok {
		cmd.SoundID = strings.TrimSpace(o.StringValue())
	}
	if o, ok := options["repeat"]; ok {
		cmd.RepeatCount = int(o.IntValue())
	}
	return cmd
}

func describeRepeat(n int) string {
	switch {
	case n == playback.Forever:
		return " until stopped"
	case n > 1:
		return fmt.Sprintf(" %d times", n)
	default:
		return ""
	}
}

func (h *interactions) play(ctx context.Context, i *discordgo.InteractionCreate) (string, error) {
	cmd := h.playCommand(i)
	if err := h.deps.Player.Play(ctx, cmd); err != nil {
		return "", err
	}
	return fmt.Sprintf("Queued `%s`%s.", cmd.SoundID, describeRepeat(cmd.RepeatCount)), nil
}

func (h *interactions) playNow(ctx context.Context, i *discordgo.InteractionCreate) (string, error) {
	cmd := h.playCommand(i)
	if err := h.deps.Player.PlayNow(ctx, cmd); err != nil {
		return "", err
	}
	return fmt.Sprintf("Playing `%s`.", cmd.SoundID), nil
}

func (h *interactions) playRandom(ctx context.Context, i *discordgo.InteractionCreate) (string, error) {
	cmd := h.playCommand(i)
	cmd.Random = true
	if err := h.deps.Player.Play(ctx, cmd); err != nil {
		return "", err
	}
	return "Queued a random sound.", nil
}

func (h *interactions) stop(ctx context.Context, i *discordgo.InteractionCreate) (string, error) {
	if err := h.deps.Player.Stop(ctx, i.GuildID); err != nil {
		return "", err
	}
	return "Stopped.", nil
}

func (h *interactions) skip(ctx context.Context, i *discordgo.InteractionCreate) (string, error) {
	if err := h.deps.Player.Skip(ctx, i.GuildID); err != nil {
		return "", err
	}
	return "Skipped.", nil
}

func (h *interactions) shuffle(ctx context.Context, i *discordgo.InteractionCreate) (string, error) {
	if err := h.deps.Player.Shuffle(ctx, i.GuildID); err != nil {
		return "", err
	}
	return "Shuffled the queue.", nil
}

func (h *interactions) volume(ctx context.Context, i *discordgo.InteractionCreate) (string, error) {
	percent := 0
	if o, ok := commandOptions(i)["percent"]; ok {
		percent = int(o.IntValue())
	}
	if percent < 0 || percent > 100 {
		return "", &UserError{Message: "Volume must be between 0 and 100."}
	}
	if err := h.deps.Player.SetVolume(ctx, i.GuildID, float64(percent)/100); err != nil {
		return "", err
	}
	return fmt.Sprintf("Volume set to %d%%.", percent), nil
}

func (h *interactions) repeat(ctx context.Context, i *discordgo.InteractionCreate) (string, error) {
	enabled := false
	if o, ok := commandOptions(i)["enabled"]; ok {
		enabled = o.BoolValue()
	}
	if err := h.deps.Player.SetRepeating(ctx, i.GuildID, enabled); err != nil {
		return "", err
	}
	if enabled {
		return "Repeating the current sound.", nil
	}
	return "No longer repeating.", nil
}

func (h *interactions) queue(ctx context.Context, i *discordgo.InteractionCreate) (string, error) {
	st, err := h.deps.Player.Status(ctx, i.GuildID)
	if err != nil {
		return "", err
	}
	return presenters.Status(st), nil
}

func (h *interactions) leave(ctx context.Context, i *discordgo.InteractionCreate) (string, error) {
	if err := h.deps.Player.Disconnect(ctx, i.GuildID); err != nil {
		return "", err
	}
	return "Left the voice channel.", nil
}

// SoundUploadRequest is a validated sound upload command.
type SoundUploadRequest struct {
	Attachment *discordgo.MessageAttachment
	SoundID    string
	Category   string
}

func CommandToUploadRequest(
	attachments map[string]*discordgo.MessageAttachment,
	options map[string]*discordgo.ApplicationCommandInteractionDataOption,
) (*SoundUploadRequest, error) {
	attachment, err := util.GetOne(attachments)
	if err != nil {
		return nil, &UserError{Message: "Attach exactly one audio file."}
	}
	if attachment.Size > MaxUploadSize {
		return nil, &UserError{Message: fmt.Sprintf("Audio files can be at most %d MB.", MaxUploadSize/1024/1024)}
	}

	req := &SoundUploadRequest{Attachment: attachment}
	if o, ok := options["name"]; ok {
		if o.Type != discordgo.ApplicationCommandOptionString {
			return nil, fmt.Errorf("invalid type for name option")
		}
		req.SoundID = strings.TrimSpace(o.StringValue())
	}
	if o, ok := options["category"]; ok {
		if o.Type != discordgo.ApplicationCommandOptionString {
			return nil, fmt.Errorf("invalid type for category option")
		}
		req.Category = strings.TrimSpace(o.StringValue())
	}
	if req.SoundID == "" {
		req.SoundID = library.SoundIDFromFilename(attachment.Filename)
	}
	if err := library.ValidateSoundID(req.SoundID); err != nil {
		return nil, &UserError{Message: fmt.Sprintf("`%s` can't be used as a sound name: %v.", req.SoundID, err)}
	}
	return req, nil
}

func (h *interactions) upload(ctx context.Context, i *discordgo.InteractionCreate) (string, error) {
	var attachments map[string]*discordgo.MessageAttachment
	if resolved := i.ApplicationCommandData().Resolved; resolved != nil {
		attachments = resolved.Attachments
	}
	req, err := CommandToUploadRequest(attachments, commandOptions(i))
	if err != nil {
		return "", err
	}

	body, err := h.download(ctx, req.Attachment.URL)
	if err != nil {
		return "", err
	}
	defer body.Close()

	_, name := interactionUser(i)
	sound, err := h.deps.Importer.Import(ctx, repository.Sound{
		ID:          req.SoundID,
		DisplayName: req.SoundID,
		Category:    req.Category,
	}, body)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Added `%s`, thanks %s.", sound.ID, name), nil
}

// download fetches an attachment from Discord's CDN.
func (h *interactions) download(ctx context.Context, url string) (io.ReadCloser, error) {
	client := h.deps.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	slog.Debug("Downloading attachment", "url", url)
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("failed to download file: %s", resp.Status)
	}
	return http.MaxBytesReader(nil, resp.Body, MaxUploadSize), nil
}
