package schedule

import (
	"context"
	"time"
)

// RunAt calls execute at runAt, or immediately if runAt has passed. Nothing
// runs if ctx is done before then.
func RunAt(ctx context.Context, runAt time.Time, execute func(ctx context.Context)) {
	go func() {
		timer := time.NewTimer(max(time.Until(runAt), 0))
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		execute(ctx)
	}()
}
