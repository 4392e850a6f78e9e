package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SoundKind string

const (
	// SoundBlob sources are object keys of stored Opus frames.
	SoundBlob SoundKind = "blob"
	SoundFile SoundKind = "file"
	SoundURL  SoundKind = "url"
)

type Sound struct {
	ID          string
	DisplayName string
	Category    string
	Kind        SoundKind
	Source      string
	TimesPlayed int
	AddedAt     time.Time
}

type SoundRepository interface {
	SaveSound(ctx context.Context, sound Sound) error
	FindSound(ctx context.Context, id string) (*Sound, error)
	ListSounds(ctx context.Context) ([]Sound, error)
	DeleteSound(ctx context.Context, id string) (*Sound, error)
}

type PostgresSoundRepository struct {
	db *pgxpool.Pool
}

func NewPostgresSoundRepository(db *pgxpool.Pool) *PostgresSoundRepository {
	return &PostgresSoundRepository{db: db}
}

var _ SoundRepository = (*PostgresSoundRepository)(nil)

const soundColumns = "id, display_name, category, kind, source, times_played, added_at"

func scanSound(row pgx.Row) (*Sound, error) {
	var s Sound
	if err := row.Scan(&s.ID, &s.DisplayName, &s.Category, &s.Kind, &s.Source, &s.TimesPlayed, &s.AddedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

// SaveSound inserts a sound or updates the one whose id matches ignoring
// case. Play counts and the date added are kept on update.
func (r *PostgresSoundRepository) SaveSound(ctx context.Context, sound Sound) error {
	const query = `
	INSERT INTO sounds (id, display_name, category, kind, source)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT ((lower(id))) DO UPDATE SET
		display_name = EXCLUDED.display_name,
		category = EXCLUDED.category,
		kind = EXCLUDED.kind,
		source = EXCLUDED.source
	`
	if sound.DisplayName == "" {
		sound.DisplayName = sound.ID
	}
	_, err := r.db.Exec(ctx, query, sound.ID, sound.DisplayName, sound.Category, sound.Kind, sound.Source)
	if err != nil {
		return fmt.Errorf("failed to save sound %s: %w", sound.ID, err)
	}
	return nil
}

// FindSound looks a sound up ignoring case. It returns nil if there is none.
func (r *PostgresSoundRepository) FindSound(ctx context.Context, id string) (*Sound, error) {
	row := r.db.QueryRow(ctx, `SELECT `+soundColumns+` FROM sounds WHERE lower(id) = lower($1)`, id)
	sound, err := scanSound(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find sound %s: %w", id, err)
	}
	return sound, nil
}

// ListSounds returns every sound ordered by id, ignoring case.
func (r *PostgresSoundRepository) ListSounds(ctx context.Context) ([]Sound, error) {
	rows, err := r.db.Query(ctx, `SELECT `+soundColumns+` FROM sounds ORDER BY lower(id)`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sounds: %w", err)
	}
	defer rows.Close()

	var sounds []Sound
	for rows.Next() {
		sound, err := scanSound(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sound: %w", err)
		}
		sounds = append(sounds, *sound)
	}
	return sounds, rows.Err()
}

// DeleteSound removes a sound and returns it, or nil if it did not exist.
func (r *PostgresSoundRepository) DeleteSound(ctx context.Context, id string) (*Sound, error) {
	row := r.db.QueryRow(ctx, `DELETE FROM sounds WHERE lower(id) = lower($1) RETURNING `+soundColumns, id)
	sound, err := scanSound(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to delete sound %s: %w", id, err)
	}
	return sound, nil
}
