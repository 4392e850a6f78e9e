package handler_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/soundboard/internal/handler"
	"github.com/glizzus/soundboard/internal/playback"
	"github.com/glizzus/soundboard/internal/repository"
)

type mockSession struct {
	mu        sync.Mutex
	responses []*discordgo.InteractionResponse
	edits     []string
}

func (m *mockSession) InteractionRespond(i *discordgo.Interaction, resp *discordgo.InteractionResponse, opts ...discordgo.RequestOption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, resp)
	return nil
}

func (m *mockSession) InteractionResponseEdit(i *discordgo.Interaction, wh *discordgo.WebhookEdit, opts ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if wh.Content != nil {
		m.edits = append(m.edits, *wh.Content)
	}
	return &discordgo.Message{}, nil
}

// last returns the content the user ends up seeing.
func (m *mockSession) last(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.edits) > 0 {
		return m.edits[len(m.edits)-1]
	}
	if len(m.responses) == 0 {
		t.Fatal("no response was sent")
	}
	resp := m.responses[len(m.responses)-1]
	if resp.Data == nil {
		return ""
	}
	return resp.Data.Content
}

var _ handler.DiscordSession = (*mockSession)(nil)

type fixedIDs struct{}

func (fixedIDs) Next() (string, error) { return "instance", nil }

func stringOption(name, value string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionString, Value: value}
}

func intOption(name string, value int) *discordgo.ApplicationCommandInteractionDataOption {
	// Numbers arrive from the gateway as JSON floats.
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionInteger, Value: float64(value)}
}

func boolOption(name string, value bool) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionBoolean, Value: value}
}

func command(name, sub string, options ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			Type:    discordgo.InteractionApplicationCommand,
			GuildID: "g1",
			Member:  &discordgo.Member{User: &discordgo.User{ID: "u1", Username: "alice"}},
			Data: discordgo.ApplicationCommandInteractionData{
				Name: name,
				Options: []*discordgo.ApplicationCommandInteractionDataOption{
					{
						Name:    sub,
						Type:    discordgo.ApplicationCommandOptionSubCommand,
						Options: options,
					},
				},
			},
		},
	}
}

func component(customID string, values ...string) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			Type:    discordgo.InteractionMessageComponent,
			GuildID: "g1",
			Member:  &discordgo.Member{User: &discordgo.User{ID: "u1", Username: "alice"}},
			Data: discordgo.MessageComponentInteractionData{
				CustomID: customID,
				Values:   values,
			},
		},
	}
}

type fakePlayer struct {
	mu        sync.Mutex
	err       error
	plays     []playback.PlayCommand
	playNows  []playback.PlayCommand
	volume    float64
	repeating bool
	stops     int
}

func (p *fakePlayer) Play(ctx context.Context, cmd playback.PlayCommand) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.plays = append(p.plays, cmd)
	return p.err
}

func (p *fakePlayer) PlayNow(ctx context.Context, cmd playback.PlayCommand) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playNows = append(p.playNows, cmd)
	return p.err
}

func (p *fakePlayer) Stop(ctx context.Context, guildID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stops++
	return p.err
}

func (p *fakePlayer) Skip(ctx context.Context, guildID string) error       { return p.err }
func (p *fakePlayer) Shuffle(ctx context.Context, guildID string) error    { return p.err }
func (p *fakePlayer) Disconnect(ctx context.Context, guildID string) error { return p.err }

func (p *fakePlayer) SetVolume(ctx context.Context, guildID string, volume float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = volume
	return p.err
}

func (p *fakePlayer) SetRepeating(ctx context.Context, guildID string, repeating bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.repeating = repeating
	return p.err
}

func (p *fakePlayer) Status(ctx context.Context, guildID string) (playback.Status, error) {
	return playback.Status{GuildID: guildID, State: "disconnected", Volume: 0.75}, p.err
}

type staticLocator map[string]string

func (l staticLocator) UserChannel(guildID, userID string) (string, bool) {
	id, ok := l[userID]
	return id, ok
}

type fakeLibrary struct {
	sounds []repository.Sound
}

func (l *fakeLibrary) List() []repository.Sound { return l.sounds }

func (l *fakeLibrary) Lookup(ctx context.Context, id string) (string, bool) {
	for _, s := range l.sounds {
		if strings.EqualFold(s.ID, id) {
			return s.ID, true
		}
	}
	return "", false
}
