package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/glizzus/soundboard/internal/playback"
	"github.com/redis/go-redis/v9"
)

const (
	EventStarted = "started"
	EventEnded   = "ended"
)

// RedisSink appends notifications to a capped Redis stream that live
// feeds can tail.
type RedisSink struct {
	client *redis.Client
	stream string
	maxLen int64
}

var _ playback.Notifier = (*RedisSink)(nil)

func NewRedisSink(client *redis.Client, stream string, maxLen int64) *RedisSink {
	return &RedisSink{client: client, stream: stream, maxLen: maxLen}
}

func (s *RedisSink) TrackStarted(ctx context.Context, ev playback.TrackEvent) error {
	return s.add(ctx, EventStarted, ev)
}

func (s *RedisSink) TrackEnded(ctx context.Context, ev playback.TrackEvent) error {
	return s.add(ctx, EventEnded, ev)
}

func (s *RedisSink) add(ctx context.Context, kind string, ev playback.TrackEvent) error {
	err := s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Approx: true,
		Values: Values(kind, ev),
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to add %s event to %s: %w", kind, s.stream, err)
	}
	return nil
}

// Values flattens an event into stream fields.
func Values(kind string, ev playback.TrackEvent) map[string]any {
	values := map[string]any{
		"event":       kind,
		"guildID":     ev.GuildID,
		"soundID":     ev.SoundID,
		"displayName": ev.DisplayName,
		"submitter":   ev.Submitter,
		"at":          ev.At.Format(time.RFC3339Nano),
	}
	if ev.Reason != "" {
		values["reason"] = string(ev.Reason)
	}
	return values
}

// Message is a decoded stream entry.
type Message struct {
	ID    string
	Event string
	playback.TrackEvent
}

// ParseMessage reads back an entry written by RedisSink.
func ParseMessage(msg redis.XMessage) (Message, error) {
	str := func(key string) string {
		v, _ := msg.Values[key].(string)
		return v
	}

	m := Message{
		ID:    msg.ID,
		Event: str("event"),
		TrackEvent: playback.TrackEvent{
			GuildID:     str("guildID"),
			SoundID:     str("soundID"),
			DisplayName: str("displayName"),
			Submitter:   str("submitter"),
			Reason:      playback.EndReason(str("reason")),
		},
	}
	if m.Event == "" {
		return Message{}, fmt.Errorf("entry %s has no event", msg.ID)
	}
	if at := str("at"); at != "" {
		parsed, err := time.Parse(time.RFC3339Nano, at)
		if err != nil {
			return Message{}, fmt.Errorf("entry %s has a bad timestamp: %w", msg.ID, err)
		}
		m.At = parsed
	}
	return m, nil
}

// Tail reads the stream from lastID onwards, calling fn for each entry,
// until ctx is done. Use "$" to start with new entries only.
func Tail(ctx context.Context, client *redis.Client, stream, lastID string, fn func(Message)) error {
	for {
		res, err := client.XRead(ctx, &redis.XReadArgs{
			Streams: []string{stream, lastID},
			Count:   100,
			Block:   5 * time.Second,
		}).Result()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err == redis.Nil {
				continue
			}
			return fmt.Errorf("failed to read %s: %w", stream, err)
		}

		for _, s := range res {
			for _, entry := range s.Messages {
				lastID = entry.ID
				msg, err := ParseMessage(entry)
				if err != nil {
					continue
				}
				fn(msg)
			}
		}
	}
}
