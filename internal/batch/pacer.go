package batch

import (
	"context"
	"time"
)

// Pacer waits between consecutive requests.
type Pacer interface {
	Pause(ctx context.Context, d time.Duration) error
}

// TimerPacer sleeps for d or until ctx is done, whichever comes first.
type TimerPacer struct{}

// Pause implements Pacer.
func (TimerPacer) Pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// SleepDuration converts a pause given in (fractional) seconds. Negative
// values clamp to zero.
func SleepDuration(seconds float64) time.Duration {
	if seconds <= 0 {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}
