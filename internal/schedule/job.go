package schedule

import "time"

// Job is one pending run of a scheduled sound.
type Job struct {
	SoundCronID string
	Name        string
	GuildID     string
	SoundID     string
	RunTime     time.Time
}
