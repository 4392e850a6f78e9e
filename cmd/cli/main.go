package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/glizzus/soundboard/internal/config"
	"github.com/glizzus/soundboard/internal/datalayer"
	"github.com/glizzus/soundboard/internal/generator"
	"github.com/glizzus/soundboard/internal/library"
	"github.com/glizzus/soundboard/internal/repository"
	"github.com/glizzus/soundboard/internal/schedule"
	"github.com/glizzus/soundboard/internal/worker"
)

var stdinReader = bufio.NewReader(os.Stdin)

var uuidGenerator = generator.UUIDV4Generator{}

func prompt(label string) string {
	fmt.Printf("%s: ", label)
	input, _ := stdinReader.ReadString('\n')
	return strings.TrimSpace(input)
}

// flagOrPrompt reads a string flag, asking on stdin when it was not given.
func flagOrPrompt(c *cli.Context, name, label string) string {
	if v := c.String(name); v != "" {
		return v
	}
	return prompt(label)
}

func openStorage(ctx context.Context) (*datalayer.MinioStorage, error) {
	storage, err := datalayer.NewMinioStorageFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to create minio storage: %w", err)
	}
	if err := storage.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure minio bucket: %w", err)
	}
	return storage, nil
}

func openPauseList(ctx context.Context) (*worker.RedisPauseList, error) {
	rdb, _, err := datalayer.NewRedisClientFromEnv(ctx)
	if err != nil {
		return nil, err
	}
	return worker.NewRedisPauseList(rdb), nil
}

var guildIDFlag = &cli.StringFlag{
	Name:     "guild-id",
	Usage:    "ID of the guild",
	Required: true,
}

func soundsCommand(sounds *repository.PostgresSoundRepository) *cli.Command {
	return &cli.Command{
		Name:  "sounds",
		Usage: "Manage the sound library",
		Subcommands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Transcode an audio file and store it in the library",
				ArgsUsage: "<file>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Usage: "Sound id, defaults to the file name"},
					&cli.StringFlag{Name: "category", Usage: "Category shown in listings"},
					&cli.StringFlag{Name: "ffmpeg", Usage: "Path to ffmpeg", Value: "ffmpeg"},
				},
				Action: func(c *cli.Context) error {
					path := c.Args().First()
					if path == "" {
						return cli.Exit("Please provide a file to add", 1)
					}
					f, err := os.Open(path)
					if err != nil {
						return cli.Exit("Failed to open file: "+err.Error(), 1)
					}
					defer f.Close()

					storage, err := openStorage(c.Context)
					if err != nil {
						return cli.Exit(err.Error(), 1)
					}

					id := c.String("id")
					if id == "" {
						id = library.SoundIDFromFilename(filepath.Base(path))
					}
					importer := library.NewImporter(sounds, storage, &uuidGenerator, c.String("ffmpeg"))
					sound, err := importer.Import(c.Context, repository.Sound{ID: id, Category: c.String("category")}, f)
					if err != nil {
						return cli.Exit("Failed to add sound: "+err.Error(), 1)
					}
					log.Printf("Added %s (%s).", sound.ID, sound.Source)
					return nil
				},
			},
			{
				Name:  "link",
				Usage: "Register a sound played from a local path or an http(s) URL",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Required: true},
					&cli.StringFlag{Name: "source", Usage: "File path or URL", Required: true},
					&cli.StringFlag{Name: "category"},
				},
				Action: func(c *cli.Context) error {
					id := c.String("id")
					if err := library.ValidateSoundID(id); err != nil {
						return cli.Exit(err.Error(), 1)
					}
					source := c.String("source")
					kind := repository.SoundFile
					if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
						kind = repository.SoundURL
					}
					err := sounds.SaveSound(c.Context, repository.Sound{
						ID:       id,
						Category: c.String("category"),
						Kind:     kind,
						Source:   source,
					})
					if err != nil {
						return cli.Exit("Failed to save sound: "+err.Error(), 1)
					}
					log.Printf("Linked %s to %s.", id, source)
					return nil
				},
			},
			{
				Name:  "list",
				Usage: "List every sound in the library",
				Action: func(c *cli.Context) error {
					list, err := sounds.ListSounds(c.Context)
					if err != nil {
						return cli.Exit("Failed to list sounds: "+err.Error(), 1)
					}
					w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
					fmt.Fprintln(w, "ID\tCATEGORY\tKIND\tPLAYS\tADDED")
					for _, s := range list {
						fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", s.ID, s.Category, s.Kind, s.TimesPlayed, s.AddedAt.Format("2006-01-02"))
					}
					return w.Flush()
				},
			},
			{
				Name:      "remove",
				Usage:     "Remove a sound and its stored audio",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					id := c.Args().First()
					if id == "" {
						return cli.Exit("Please provide the id of the sound to remove", 1)
					}
					storage, err := openStorage(c.Context)
					if err != nil {
						return cli.Exit(err.Error(), 1)
					}
					removed, err := library.Remove(c.Context, sounds, storage, id)
					if err != nil {
						return cli.Exit("Failed to remove sound: "+err.Error(), 1)
					}
					if removed == nil {
						return cli.Exit("No sound named "+id, 1)
					}
					log.Printf("Removed %s.", removed.ID)
					return nil
				},
			},
		},
	}
}

func usersCommand(sounds *repository.PostgresSoundRepository, prefs *repository.PostgresPreferenceRepository) *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{Name: "user-id", Required: true},
		&cli.StringFlag{Name: "username", Usage: "Name used when the id is unknown"},
		&cli.StringFlag{Name: "sound", Usage: "Sound id, empty to clear"},
	}

	set := func(save func(ctx context.Context, userID, username, soundID string) error) cli.ActionFunc {
		return func(c *cli.Context) error {
			soundID := c.String("sound")
			if soundID != "" {
				sound, err := sounds.FindSound(c.Context, soundID)
				if err != nil {
					return cli.Exit("Failed to find sound: "+err.Error(), 1)
				}
				if sound == nil {
					return cli.Exit("No sound named "+soundID, 1)
				}
				soundID = sound.ID
			}
			if err := save(c.Context, c.String("user-id"), c.String("username"), soundID); err != nil {
				return cli.Exit("Failed to save preference: "+err.Error(), 1)
			}
			log.Println("Preference saved.")
			return nil
		}
	}

	return &cli.Command{
		Name:  "users",
		Usage: "Manage per-user entrance and leave sounds",
		Subcommands: []*cli.Command{
			{
				Name:   "set-entrance",
				Usage:  "Set the sound played when the user joins a channel",
				Flags:  flags,
				Action: set(prefs.SaveEntranceSound),
			},
			{
				Name:   "set-leave",
				Usage:  "Set the sound played when the user leaves a channel",
				Flags:  flags,
				Action: set(prefs.SaveLeaveSound),
			},
			{
				Name:  "show",
				Usage: "Show a user's preferences",
				Flags: flags[:2],
				Action: func(c *cli.Context) error {
					pref, err := prefs.GetPreference(c.Context, c.String("user-id"), c.String("username"))
					if err != nil {
						return cli.Exit("Failed to get preference: "+err.Error(), 1)
					}
					if pref == nil {
						log.Println("No preferences saved for this user.")
						return nil
					}
					log.Printf("entrance=%q leave=%q", pref.EntranceSound, pref.LeaveSound)
					return nil
				},
			},
		},
	}
}

func scheduleCommand(repo *repository.PostgresSoundCronRepository) *cli.Command {
	setPaused := func(paused bool) cli.ActionFunc {
		return func(c *cli.Context) error {
			id := c.String("id")
			pauses, err := openPauseList(c.Context)
			if err != nil {
				return cli.Exit("Failed to connect to redis: "+err.Error(), 1)
			}
			change := pauses.Resume
			if paused {
				change = pauses.Pause
			}
			if err := change(c.Context, id); err != nil {
				return cli.Exit("Failed to update pause list: "+err.Error(), 1)
			}
			log.Println("Pause list updated.")
			return nil
		}
	}
	idFlag := &cli.StringFlag{Name: "id", Usage: "ID of the soundcron", Required: true}

	return &cli.Command{
		Name:  "schedule",
		Usage: "Manage soundcrons",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List all soundcrons for a specific guild",
				Flags: []cli.Flag{guildIDFlag},
				Action: func(c *cli.Context) error {
					jobs, err := repo.List(c.Context, c.String("guild-id"))
					if err != nil {
						return cli.Exit("Failed to retrieve soundcrons: "+err.Error(), 1)
					}

					if len(jobs) == 0 {
						log.Println("No soundcrons found for the specified guild.")
						return nil
					}

					for _, job := range jobs {
						log.Printf("%+v", job)
					}
					return nil
				},
			},
			{
				Name:  "add",
				Usage: "Add a soundcron",
				Flags: []cli.Flag{
					guildIDFlag,
					&cli.StringFlag{Name: "name"},
					&cli.StringFlag{Name: "sound"},
					&cli.StringFlag{Name: "cron"},
				},
				Action: func(c *cli.Context) error {
					name := flagOrPrompt(c, "name", "Enter soundcron name")
					soundID := flagOrPrompt(c, "sound", "Enter sound id")
					cron := flagOrPrompt(c, "cron", "Enter cron expression (e.g., '0 0 * * *')")
					if err := schedule.ValidateCron(cron); err != nil {
						return cli.Exit("Invalid cron expression: "+err.Error(), 1)
					}

					id, _ := uuidGenerator.Next()
					sc := repository.SoundCron{
						ID:      id,
						GuildID: c.String("guild-id"),
						Name:    name,
						SoundID: soundID,
						Cron:    cron,
					}

					if err := repo.Save(c.Context, sc); err != nil {
						return cli.Exit("Failed to save soundcron: "+err.Error(), 1)
					}

					log.Printf("Soundcron %s added.", id)
					return nil
				},
			},
			{
				Name:  "remove",
				Usage: "Remove a soundcron",
				Flags: []cli.Flag{guildIDFlag, idFlag},
				Action: func(c *cli.Context) error {
					deleted, err := repo.Delete(c.Context, c.String("guild-id"), c.String("id"))
					if err != nil {
						return cli.Exit("Failed to remove soundcron: "+err.Error(), 1)
					}
					if !deleted {
						return cli.Exit("No such soundcron", 1)
					}
					log.Println("Soundcron removed.")
					return nil
				},
			},
			{
				Name:   "pause",
				Usage:  "Skip a soundcron's runs until it is resumed",
				Flags:  []cli.Flag{idFlag},
				Action: setPaused(true),
			},
			{
				Name:   "resume",
				Usage:  "Resume a paused soundcron",
				Flags:  []cli.Flag{idFlag},
				Action: setPaused(false),
			},
		},
	}
}

func main() {
	if err := config.LoadEnv(); err != nil && !os.IsNotExist(err) {
		log.Fatalf("Failed to load .env file: %v", err)
	}

	ctx := context.Background()
	pool, err := datalayer.NewPostgresPoolFromEnv(ctx)
	if err != nil {
		log.Fatalf("Failed to create postgres pool: %v", err)
	}
	defer pool.Close()
	if err := datalayer.MigratePostgres(pool); err != nil {
		log.Fatalf("Failed to migrate postgres: %v", err)
	}
	sounds := repository.NewPostgresSoundRepository(pool)

	app := &cli.App{
		Name:        "soundctl",
		Description: "Manage the soundboard library, user preferences and soundcrons without Discord",
		Commands: []*cli.Command{
			soundsCommand(sounds),
			usersCommand(sounds, repository.NewPostgresPreferenceRepository(pool)),
			scheduleCommand(repository.NewPostgresSoundCronRepository(pool)),
		},
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Fatalf("Error running CLI: %v", err)
	}
}
