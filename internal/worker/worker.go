// Package worker turns pulled sound schedule jobs into playback on the
// guild's actor.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/glizzus/soundboard/internal/playback"
	"github.com/glizzus/soundboard/internal/schedule"
)

func logAttrs(job schedule.Job) []any {
	return []any{
		"soundCronID", job.SoundCronID,
		"jobName", job.Name,
		"guildID", job.GuildID,
		"soundID", job.SoundID,
		"runAt", job.RunTime.Format("2006-01-02 15:04:05"),
	}
}

type JobHandler interface {
	HandleJobs(ctx context.Context, jobs ...schedule.Job) error
}

// PrintingJobHandler only logs jobs. It backs dry runs.
type PrintingJobHandler struct{}

func (h *PrintingJobHandler) HandleJobs(ctx context.Context, jobs ...schedule.Job) error {
	for _, job := range jobs {
		slog.InfoContext(ctx, "Handling SoundCron Job", logAttrs(job)...)
	}
	return nil
}

type Player interface {
	Play(ctx context.Context, cmd playback.PlayCommand) error
}

type ChannelLocator interface {
	BusiestChannel(guildID string) (string, bool)
}

// PlayingJobHandler plays each job's sound at its run time in the guild's
// most attended voice channel.
type PlayingJobHandler struct {
	player  Player
	locator ChannelLocator
	pauses  PauseList
}

func NewPlayingJobHandler(player Player, locator ChannelLocator, pauses PauseList) *PlayingJobHandler {
	return &PlayingJobHandler{player: player, locator: locator, pauses: pauses}
}

func (h *PlayingJobHandler) HandleJobs(ctx context.Context, jobs ...schedule.Job) error {
	for _, job := range jobs {
		schedule.RunAt(ctx, job.RunTime, func(ctx context.Context) {
			if err := h.Run(ctx, job); err != nil {
				attrs := append(logAttrs(job), slog.Any("error", err))
				slog.Error("failed to execute scheduled job", attrs...)
			}
		})
	}
	return nil
}

// Run executes one job now. Paused schedules and guilds with nobody in voice
// are skipped without error.
func (h *PlayingJobHandler) Run(ctx context.Context, job schedule.Job) error {
	if h.pauses != nil {
		paused, err := h.pauses.IsPaused(ctx, job.SoundCronID)
		if err != nil {
			return fmt.Errorf("failed to check pause list: %w", err)
		}
		if paused {
			slog.Info("skipping paused job", logAttrs(job)...)
			return nil
		}
	}

	channelID, ok := h.locator.BusiestChannel(job.GuildID)
	if !ok {
		slog.Info("skipping job, nobody is in voice", logAttrs(job)...)
		return nil
	}

	return h.player.Play(ctx, playback.PlayCommand{
		GuildID:     job.GuildID,
		ChannelID:   channelID,
		SoundID:     job.SoundID,
		RepeatCount: 1,
		Submitter:   job.Name,
	})
}

type Puller interface {
	Pull(ctx context.Context, before time.Time) ([]schedule.Job, error)
}

// Poller pulls jobs due within the lookahead window and hands them off.
type Poller struct {
	puller    Puller
	handler   JobHandler
	interval  time.Duration
	lookahead time.Duration
}

func NewPoller(puller Puller, handler JobHandler, interval, lookahead time.Duration) *Poller {
	return &Poller{puller: puller, handler: handler, interval: interval, lookahead: lookahead}
}

func (p *Poller) Poll(ctx context.Context) error {
	jobs, err := p.puller.Pull(ctx, time.Now().Add(p.lookahead))
	if err != nil {
		return fmt.Errorf("failed to pull soundcrons: %w", err)
	}
	if len(jobs) == 0 {
		return nil
	}
	slog.Debug("pulled soundcron jobs", "count", len(jobs))
	return p.handler.HandleJobs(ctx, jobs...)
}

// Run polls until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if err := p.Poll(ctx); err != nil {
			slog.Error("failed to poll soundcrons", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
