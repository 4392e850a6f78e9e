package worker

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

const pausedKey = "soundcron_paused"

// PauseList holds schedules that keep their cron but do not play.
type PauseList interface {
	Pause(ctx context.Context, soundCronID string) error
	Resume(ctx context.Context, soundCronID string) error
	IsPaused(ctx context.Context, soundCronID string) (bool, error)
}

type RedisPauseList struct {
	client *redis.Client
}

func NewRedisPauseList(client *redis.Client) *RedisPauseList {
	return &RedisPauseList{client: client}
}

func (l *RedisPauseList) Pause(ctx context.Context, soundCronID string) error {
	if err := l.client.SAdd(ctx, pausedKey, soundCronID).Err(); err != nil {
		return fmt.Errorf("failed to pause soundCronID %s: %w", soundCronID, err)
	}
	return nil
}

func (l *RedisPauseList) Resume(ctx context.Context, soundCronID string) error {
	if err := l.client.SRem(ctx, pausedKey, soundCronID).Err(); err != nil {
		return fmt.Errorf("failed to resume soundCronID %s: %w", soundCronID, err)
	}
	return nil
}

func (l *RedisPauseList) IsPaused(ctx context.Context, soundCronID string) (bool, error) {
	paused, err := l.client.SIsMember(ctx, pausedKey, soundCronID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check soundCronID %s: %w", soundCronID, err)
	}
	return paused, nil
}

type MemoryPauseList struct {
	mu     sync.Mutex
	paused map[string]struct{}
}

func NewMemoryPauseList() *MemoryPauseList {
	return &MemoryPauseList{
		paused: make(map[string]struct{}),
	}
}

func (l *MemoryPauseList) Pause(ctx context.Context, soundCronID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.paused[soundCronID] = struct{}{}
	return nil
}

func (l *MemoryPauseList) Resume(ctx context.Context, soundCronID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.paused, soundCronID)
	return nil
}

func (l *MemoryPauseList) IsPaused(ctx context.Context, soundCronID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.paused[soundCronID]
	return ok, nil
}
