package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserPreference struct {
	UserID        string
	Username      string
	EntranceSound string
	LeaveSound    string
}

type PreferenceRepository interface {
	GetPreference(ctx context.Context, userID, username string) (*UserPreference, error)
	SaveEntranceSound(ctx context.Context, userID, username, soundID string) error
	SaveLeaveSound(ctx context.Context, userID, username, soundID string) error
}

type PostgresPreferenceRepository struct {
	db *pgxpool.Pool
}

func NewPostgresPreferenceRepository(db *pgxpool.Pool) *PostgresPreferenceRepository {
	return &PostgresPreferenceRepository{db: db}
}

var _ PreferenceRepository = (*PostgresPreferenceRepository)(nil)

// GetPreference finds a user by id, falling back to a case-insensitive
// username match. It returns nil if neither matches.
func (r *PostgresPreferenceRepository) GetPreference(ctx context.Context, userID, username string) (*UserPreference, error) {
	const query = `
	SELECT user_id, username, entrance_sound, leave_sound
	FROM user_preferences
	WHERE user_id = $1 OR ($2 <> '' AND lower(username) = lower($2))
	ORDER BY (user_id = $1) DESC
	LIMIT 1
	`
	var p UserPreference
	err := r.db.QueryRow(ctx, query, userID, username).Scan(&p.UserID, &p.Username, &p.EntranceSound, &p.LeaveSound)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get preference for user %s: %w", userID, err)
	}
	return &p, nil
}

// SaveEntranceSound sets the user's entrance sound. An empty soundID clears it.
func (r *PostgresPreferenceRepository) SaveEntranceSound(ctx context.Context, userID, username, soundID string) error {
	const query = `
	INSERT INTO user_preferences (user_id, username, entrance_sound)
	VALUES ($1, $2, $3)
	ON CONFLICT (user_id) DO UPDATE SET
		username = EXCLUDED.username,
		entrance_sound = EXCLUDED.entrance_sound,
		updated_at = now()
	`
	if _, err := r.db.Exec(ctx, query, userID, username, soundID); err != nil {
		return fmt.Errorf("failed to save entrance sound for user %s: %w", userID, err)
	}
	return nil
}

// SaveLeaveSound sets the user's leave sound. An empty soundID clears it.
func (r *PostgresPreferenceRepository) SaveLeaveSound(ctx context.Context, userID, username, soundID string) error {
	const query = `
	INSERT INTO user_preferences (user_id, username, leave_sound)
	VALUES ($1, $2, $3)
	ON CONFLICT (user_id) DO UPDATE SET
		username = EXCLUDED.username,
		leave_sound = EXCLUDED.leave_sound,
		updated_at = now()
	`
	if _, err := r.db.Exec(ctx, query, userID, username, soundID); err != nil {
		return fmt.Errorf("failed to save leave sound for user %s: %w", userID, err)
	}
	return nil
}
