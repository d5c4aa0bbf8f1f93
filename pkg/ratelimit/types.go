package ratelimit

import "time"

// Config defines a fixed-window limit: at most Limit hits per Window.
type Config struct {
	Limit  int
	Window time.Duration
}

// Result is the outcome of a rate limit check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter returns how long to wait before the window resets. Zero when
// the hit was allowed.
func (r Result) RetryAfter() time.Duration {
	if r.Allowed {
		return 0
	}
	return time.Until(r.ResetAt)
}
