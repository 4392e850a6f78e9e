package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/glizzus/soundboard/internal/schedule"
	"github.com/jackc/pgx/v5/pgxpool"
)

// upcomingRuns is how many future runs are materialized per schedule.
const upcomingRuns = 5

type SoundCron struct {
	ID      string
	Name    string
	GuildID string
	SoundID string
	Cron    string
}

type SoundCronPersister interface {
	Save(ctx context.Context, soundCron SoundCron) error
}

type SoundCronRepository interface {
	SoundCronPersister
	List(ctx context.Context, guildID string) ([]SoundCron, error)
	Delete(ctx context.Context, guildID, id string) (bool, error)
	Pull(ctx context.Context, before time.Time) ([]schedule.Job, error)
}

type PostgresSoundCronRepository struct {
	db *pgxpool.Pool
}

func NewPostgresSoundCronRepository(db *pgxpool.Pool) *PostgresSoundCronRepository {
	return &PostgresSoundCronRepository{db: db}
}

var _ SoundCronRepository = (*PostgresSoundCronRepository)(nil)

func SoundCronToRowParams(soundCron SoundCron) []any {
	return []any{
		soundCron.ID,
		soundCron.Name,
		soundCron.GuildID,
		soundCron.SoundID,
		soundCron.Cron,
	}
}

const soundCronJobsQuery = `
	INSERT INTO soundcron_jobs (soundcron_id, run_time)
	SELECT $1::uuid, unnest($2::timestamptz[])
	ON CONFLICT (soundcron_id, run_time) DO NOTHING
	`

func (r *PostgresSoundCronRepository) Save(ctx context.Context, soundCron SoundCron) error {
	const soundCronQuery = `
	INSERT INTO soundcron (id, soundcron_name, guild_id, sound_id, cron)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (id) DO UPDATE SET
		soundcron_name = EXCLUDED.soundcron_name,
		guild_id = EXCLUDED.guild_id,
		sound_id = EXCLUDED.sound_id,
		cron = EXCLUDED.cron
	`

	nextTimes, err := schedule.NextRunTimes(soundCron.Cron, upcomingRuns)
	if err != nil {
		return fmt.Errorf("failed to get next run times: %w", err)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(ctx, tx)

	_, err = tx.Exec(ctx, soundCronQuery, SoundCronToRowParams(soundCron)...)
	if err != nil {
		return fmt.Errorf("failed to execute sound cron query: %w", err)
	}

	// A changed expression invalidates the runs computed for the old one.
	_, err = tx.Exec(ctx, `DELETE FROM soundcron_jobs WHERE soundcron_id = $1`, soundCron.ID)
	if err != nil {
		return fmt.Errorf("failed to clear sound cron jobs: %w", err)
	}

	_, err = tx.Exec(ctx, soundCronJobsQuery, soundCron.ID, nextTimes)
	if err != nil {
		return fmt.Errorf("failed to execute sound cron jobs query: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (r *PostgresSoundCronRepository) List(ctx context.Context, guildID string) ([]SoundCron, error) {
	rows, err := r.db.Query(ctx, `
	SELECT id::text, soundcron_name, guild_id, sound_id, cron
	FROM soundcron
	WHERE guild_id = $1
	ORDER BY soundcron_name
	`, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sound crons: %w", err)
	}
	defer rows.Close()

	var soundCrons []SoundCron
	for rows.Next() {
		var sc SoundCron
		if err := rows.Scan(&sc.ID, &sc.Name, &sc.GuildID, &sc.SoundID, &sc.Cron); err != nil {
			return nil, fmt.Errorf("failed to scan sound cron: %w", err)
		}
		soundCrons = append(soundCrons, sc)
	}
	return soundCrons, rows.Err()
}

func (r *PostgresSoundCronRepository) Delete(ctx context.Context, guildID, id string) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM soundcron WHERE guild_id = $1 AND id = $2`, guildID, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete sound cron %s: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

// Pull claims every job due before the given time and tops each schedule
// back up to its upcoming runs. Claimed jobs are removed, so concurrent
// pullers never get the same job.
func (r *PostgresSoundCronRepository) Pull(ctx context.Context, before time.Time) ([]schedule.Job, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(ctx, tx)

	rows, err := tx.Query(ctx, `
	DELETE FROM soundcron_jobs j
	USING soundcron s
	WHERE j.soundcron_id = s.id AND j.run_time <= $1
	RETURNING s.id::text, s.soundcron_name, s.guild_id, s.sound_id, s.cron, j.run_time
	`, before)
	if err != nil {
		return nil, fmt.Errorf("failed to claim due jobs: %w", err)
	}

	var jobs []schedule.Job
	crons := make(map[string]string)
	for rows.Next() {
		var (
			job  schedule.Job
			cron string
		)
		if err := rows.Scan(&job.SoundCronID, &job.Name, &job.GuildID, &job.SoundID, &cron, &job.RunTime); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
		crons[job.SoundCronID] = cron
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read due jobs: %w", err)
	}

	for id, cron := range crons {
		nextTimes, err := schedule.NextRunTimesAfter(cron, before, upcomingRuns)
		if err != nil {
			return nil, fmt.Errorf("failed to get next run times for %s: %w", id, err)
		}
		if _, err := tx.Exec(ctx, soundCronJobsQuery, id, nextTimes); err != nil {
			return nil, fmt.Errorf("failed to top up jobs for %s: %w", id, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return jobs, nil
}
