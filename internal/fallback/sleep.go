package fallback

import (
	"context"
	"time"
)

// Sleeper waits between attempts. It returns ctx.Err() when cancelled.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepWithContext blocks for d unless ctx is done first.
func SleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
