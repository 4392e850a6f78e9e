package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/glizzus/soundboard/internal/api"
	"github.com/glizzus/soundboard/internal/config"
	"github.com/glizzus/soundboard/internal/datalayer"
	"github.com/glizzus/soundboard/internal/generator"
	"github.com/glizzus/soundboard/internal/handler"
	"github.com/glizzus/soundboard/internal/library"
	"github.com/glizzus/soundboard/internal/notify"
	"github.com/glizzus/soundboard/internal/playback"
	"github.com/glizzus/soundboard/internal/presence"
	"github.com/glizzus/soundboard/internal/repository"
	"github.com/glizzus/soundboard/internal/voice"
	"github.com/glizzus/soundboard/internal/worker"
)

const (
	soundCronPollInterval = 27 * time.Second
	soundCronLookahead    = time.Minute
	shutdownTimeout       = 10 * time.Second
)

func playbackConfig(cfg *config.PlaybackConfig) (playback.Config, error) {
	idle, err := playback.ParseIdleAction(cfg.IdleAction)
	if err != nil {
		return playback.Config{}, err
	}
	return playback.Config{
		DefaultVolume:       cfg.DefaultVolume,
		ConnectTimeout:      cfg.ConnectTimeout,
		IdleAction:          idle,
		LeaveOnEmptyChannel: cfg.LeaveOnEmptyChannel,
		MailboxSize:         cfg.MailboxSize,
	}, nil
}

// openRedis connects to Redis when REDIS_ADDR is set. Without it the
// playback stream is not published and pauses are kept in memory.
func openRedis(ctx context.Context) (*redis.Client, *config.RedisConfig, error) {
	if os.Getenv("REDIS_ADDR") == "" {
		slog.Warn("REDIS_ADDR is not set, continuing without redis")
		return nil, nil, nil
	}
	return datalayer.NewRedisClientFromEnv(ctx)
}

func runBotForever() error {
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

	discordConfig, err := config.NewDiscordConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load discord config: %w", err)
	}
	playbackEnv, err := config.NewPlaybackConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load playback config: %w", err)
	}
	engineConfig, err := playbackConfig(playbackEnv)
	if err != nil {
		return fmt.Errorf("failed to load playback config: %w", err)
	}
	presenceConfig, err := config.NewPresenceConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load presence config: %w", err)
	}
	libraryConfig, err := config.NewLibraryConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load library config: %w", err)
	}
	httpConfig, err := config.NewHTTPConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load http config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := datalayer.NewPostgresPoolFromEnv(ctx)
	if err != nil {
		return fmt.Errorf("failed to create postgres pool: %w", err)
	}
	defer pool.Close()

	if err := datalayer.MigratePostgres(pool); err != nil {
		return fmt.Errorf("failed to migrate postgres: %w", err)
	}

	minioStorage, err := datalayer.NewMinioStorageFromEnv()
	if err != nil {
		return fmt.Errorf("failed to create minio storage: %w", err)
	}
	if err := minioStorage.EnsureBucket(ctx); err != nil {
		return fmt.Errorf("failed to ensure minio bucket: %w", err)
	}

	rdb, redisConfig, err := openRedis(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	if rdb != nil {
		defer rdb.Close()
	}

	sounds := repository.NewPostgresSoundRepository(pool)
	preferences := repository.NewPostgresPreferenceRepository(pool)
	soundCrons := repository.NewPostgresSoundCronRepository(pool)
	plays := repository.NewPostgresPlayEventRepository(pool)
	ids := &generator.UUIDV4Generator{}

	catalog := library.NewCatalog(sounds, minioStorage, library.Options{
		FFmpegPath: playbackEnv.FFmpegPath,
		Dir:        libraryConfig.SoundsDir,
	})
	if err := catalog.Refresh(ctx); err != nil {
		return fmt.Errorf("failed to load sound library: %w", err)
	}
	go catalog.Run(ctx, libraryConfig.RefreshInterval)

	importer := library.NewImporter(sounds, minioStorage, ids, playbackEnv.FFmpegPath)

	notifier := notify.Fanout{notify.LogSink{}, notify.NewPlayRecorder(plays, ids)}
	var pauses worker.PauseList = worker.NewMemoryPauseList()
	if rdb != nil {
		notifier = append(notifier, notify.NewRedisSink(rdb, redisConfig.Stream, redisConfig.StreamMaxLen))
		pauses = worker.NewRedisPauseList(rdb)
	}

	session, err := handler.NewSession(discordConfig.Token, handler.Handlers{
		Ready: handler.ReadyLog,
	})
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	locator := voice.NewLocator(session)
	roster := presence.NewDiscordRoster(session)
	manager := playback.NewManager(engineConfig, catalog, playback.Deps{
		Joiner:   voice.NewDiscordJoiner(session),
		Roster:   roster,
		Notifier: notifier,
	})
	defer manager.Close()

	cascade := presence.NewCascade(preferences, catalog, presenceConfig.EntranceForAll, presenceConfig.LeaveSuffix)
	router := presence.NewRouter(manager, cascade, presence.Flags{
		EntranceOnJoin: presenceConfig.EntranceOnJoin,
		EntranceOnMove: presenceConfig.EntranceOnMove,
		LeaveSounds:    presenceConfig.LeaveSounds,
	})
	session.AddHandler(presence.VoiceStateHandler(router, roster))

	session.AddHandler(handler.MakeInteractionCreateHandler(handler.Deps{
		Player:      manager,
		Locator:     locator,
		Library:     catalog,
		Importer:    importer,
		Preferences: preferences,
		SoundCrons:  soundCrons,
		Pauses:      pauses,
	}, ids))

	if err := session.Open(); err != nil {
		return fmt.Errorf("failed to open session: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			slog.Warn("failed to close session", "error", err)
		}
	}()

	guildID := discordConfig.GuildID
	if discordConfig.RunBotGlobally {
		guildID = ""
	}
	if err := handler.EstablishCommands(session, guildID); err != nil {
		return fmt.Errorf("failed to establish commands: %w", err)
	}

	jobs := worker.NewPlayingJobHandler(manager, locator, pauses)
	go worker.NewPoller(soundCrons, jobs, soundCronPollInterval, soundCronLookahead).Run(ctx)

	server := api.New(manager, locator, catalog, httpConfig.APIToken, slog.Default()).Server(httpConfig.Addr)
	serveErr := make(chan error, 1)
	go func() {
		slog.Info("HTTP control surface listening", "addr", httpConfig.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("Shutting down")
	case err := <-serveErr:
		return fmt.Errorf("http server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Warn("failed to shut down http server", "error", err)
	}
	return nil
}

func main() {
	if err := runBotForever(); err != nil {
		log.Fatalf("failed to run bot: %v", err)
	}
}
