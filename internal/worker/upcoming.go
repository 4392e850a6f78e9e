package worker

import (
	"fmt"
	"slices"
	"time"

	"github.com/glizzus/soundboard/internal/repository"
	"github.com/glizzus/soundboard/internal/schedule"
)

// maxRunsPerSoundCron bounds how many runs one schedule contributes to a preview.
const maxRunsPerSoundCron = 60

// Upcoming lists the runs of soundCrons after now and no later than
// now+within, earliest first. It does not claim anything.
func Upcoming(soundCrons []repository.SoundCron, now time.Time, within time.Duration) ([]schedule.Job, error) {
	end := now.Add(within)

	var jobs []schedule.Job
	for _, sc := range soundCrons {
		runs, err := schedule.NextRunTimesAfter(sc.Cron, now, maxRunsPerSoundCron)
		if err != nil {
			return nil, fmt.Errorf("failed to get next run times for %s: %w", sc.ID, err)
		}
		for _, run := range runs {
			if run.After(end) {
				break
			}
			jobs = append(jobs, schedule.Job{
				SoundCronID: sc.ID,
				Name:        sc.Name,
				GuildID:     sc.GuildID,
				SoundID:     sc.SoundID,
				RunTime:     run,
			})
		}
	}

	slices.SortStableFunc(jobs, func(a, b schedule.Job) int {
		return a.RunTime.Compare(b.RunTime)
	})
	return jobs, nil
}
