package realtime

import "time"

// Backoff decides how long to wait before each reconnection attempt.
type Backoff interface {
	// Delay returns the wait before reconnection attempt n, counting from 1.
	// ok is false once no further attempts should be made.
	Delay(attempt int) (delay time.Duration, ok bool)
}

const (
	defaultInitialDelay = time.Second
	defaultMaxDelay     = 5 * time.Second
	defaultMaxAttempts  = 5
)

// CappedExponential doubles the delay from Initial up to Max, for at most MaxAttempts attempts.
type CappedExponential struct {
	Initial     time.Duration
	Max         time.Duration
	MaxAttempts int
}

// DefaultBackoff waits 1s, 2s, 4s, 5s, 5s and then gives up.
func DefaultBackoff() CappedExponential {
	return CappedExponential{Initial: defaultInitialDelay, Max: defaultMaxDelay, MaxAttempts: defaultMaxAttempts}
}

func (b CappedExponential) Delay(attempt int) (time.Duration, bool) {
	if attempt < 1 || attempt > b.MaxAttempts {
		return 0, false
	}
	delay := b.Initial
	for i := 1; i < attempt && delay < b.Max; i++ {
		delay *= 2
	}
	if b.Max > 0 && delay > b.Max {
		delay = b.Max
	}
	return delay, true
}
