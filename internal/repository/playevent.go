package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PlayEvent struct {
	ID       string
	GuildID  string
	SoundID  string
	Username string
	PlayedAt time.Time
}

type PlayEventRecorder interface {
	RecordPlay(ctx context.Context, ev PlayEvent) error
}

type PostgresPlayEventRepository struct {
	db *pgxpool.Pool
}

func NewPostgresPlayEventRepository(db *pgxpool.Pool) *PostgresPlayEventRepository {
	return &PostgresPlayEventRepository{db: db}
}

var _ PlayEventRecorder = (*PostgresPlayEventRepository)(nil)

// RecordPlay stores ev and bumps the sound's play count in one transaction.
func (r *PostgresPlayEventRepository) RecordPlay(ctx context.Context, ev PlayEvent) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(ctx, tx)

	_, err = tx.Exec(ctx, `
	INSERT INTO play_events (id, guild_id, sound_id, username, played_at)
	VALUES ($1, $2, $3, $4, $5)
	`, ev.ID, ev.GuildID, ev.SoundID, ev.Username, ev.PlayedAt)
	if err != nil {
		return fmt.Errorf("failed to insert play event: %w", err)
	}

	_, err = tx.Exec(ctx, `UPDATE sounds SET times_played = times_played + 1 WHERE lower(id) = lower($1)`, ev.SoundID)
	if err != nil {
		return fmt.Errorf("failed to update times played: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// CountPlays returns how many plays were recorded for a sound.
func (r *PostgresPlayEventRepository) CountPlays(ctx context.Context, soundID string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM play_events WHERE lower(sound_id) = lower($1)`, soundID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count plays: %w", err)
	}
	return n, nil
}
