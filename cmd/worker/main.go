package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/glizzus/soundboard/internal/config"
	"github.com/glizzus/soundboard/internal/datalayer"
	"github.com/glizzus/soundboard/internal/notify"
	"github.com/glizzus/soundboard/internal/repository"
	"github.com/glizzus/soundboard/internal/worker"
)

var (
	dryRun  = flag.Bool("dry-run", false, "Print the upcoming soundcron runs of --guild-id and exit")
	guildID = flag.String("guild-id", "", "Guild whose soundcrons are printed with --dry-run")
	within  = flag.Duration("within", time.Hour, "How far ahead --dry-run looks")
	from    = flag.String("from", "$", "Stream entry id to start following from, $ for new entries only")
)

// printUpcoming previews soundcron runs without claiming them from the bot.
func printUpcoming(ctx context.Context) error {
	if *guildID == "" {
		return fmt.Errorf("--guild-id is required with --dry-run")
	}

	pool, err := datalayer.NewPostgresPoolFromEnv(ctx)
	if err != nil {
		return fmt.Errorf("failed to create postgres pool: %w", err)
	}
	defer pool.Close()

	soundCrons, err := repository.NewPostgresSoundCronRepository(pool).List(ctx, *guildID)
	if err != nil {
		return fmt.Errorf("failed to list soundcrons: %w", err)
	}
	jobs, err := worker.Upcoming(soundCrons, time.Now(), *within)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		slog.Info("No soundcron runs are due", "guildID", *guildID, "within", *within)
		return nil
	}

	handler := &worker.PrintingJobHandler{}
	return handler.HandleJobs(ctx, jobs...)
}

// followPlayback logs the playback stream the bot publishes.
func followPlayback(ctx context.Context) error {
	rdb, cfg, err := datalayer.NewRedisClientFromEnv(ctx)
	if err != nil {
		return err
	}
	defer rdb.Close()

	slog.Info("Following playback stream", "stream", cfg.Stream, "from", *from)
	err = notify.Tail(ctx, rdb, cfg.Stream, *from, func(msg notify.Message) {
		attrs := []any{
			"id", msg.ID,
			"guildID", msg.GuildID,
			"soundID", msg.SoundID,
			"submitter", msg.Submitter,
			"at", msg.At.Format(time.RFC3339),
		}
		if msg.Reason != "" {
			attrs = append(attrs, "reason", msg.Reason)
		}
		slog.Info("Playback "+msg.Event, attrs...)
	})
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func runWorkerForever() error {
	flag.Parse()
	if err := config.LoadEnv(); err != nil {
		if os.IsNotExist(err) {
			slog.Warn("No .env file found, continuing without it")
		} else {
			return fmt.Errorf("failed to load .env file: %w", err)
		}
	}

	logConfig, err := config.NewLogConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load log config: %w", err)
	}
	slog.SetDefault(logConfig.Logger())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *dryRun {
		return printUpcoming(ctx)
	}
	return followPlayback(ctx)
}

func main() {
	if err := runWorkerForever(); err != nil {
		slog.Error("Worker encountered an error", slog.Any("error", err))
		os.Exit(1)
	}
}
