package worker

import "time"

// RetryScheduler computes exponential backoff between delivery attempts.
type RetryScheduler struct {
	MaxRetry  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// NextDelay returns how long to wait after the given failed attempt (1-based)
// before the next one, or false once MaxRetry attempts were made.
func (r *RetryScheduler) NextDelay(attempt int) (time.Duration, bool) {
	if attempt >= r.MaxRetry {
		return 0, false
	}
	if attempt < 1 {
		attempt = 1
	}

	// past 2^30 every realistic base already exceeds MaxDelay
	if attempt > 30 {
		return r.MaxDelay, true
	}

	delay := min(r.BaseDelay*time.Duration(1<<(attempt-1)), r.MaxDelay)
	return delay, true
}
