package ratelimit

import (
	"context"
	"time"
)

// Store counts hits per key within fixed windows.
type Store interface {
	// Incr adds one hit to the key's current window and returns the total
	// count for the window together with the window's reset time. The
	// increment must be atomic across concurrent callers.
	Incr(ctx context.Context, key string, window time.Duration) (count int64, resetAt time.Time, err error)

	// Reset clears the key's current window.
	Reset(ctx context.Context, key string) error
}
