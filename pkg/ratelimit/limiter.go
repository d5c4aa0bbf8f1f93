package ratelimit

import (
	"context"
	"fmt"
)

// Limiter answers whether a keyed hit is allowed right now.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// Window is a fixed-window rate limiter: the count for a key resets at the
// start of each window. Simple and predictable; the worst case admits up to
// 2x the limit across a window boundary, which is acceptable for abuse
// throttling.
type Window struct {
	store  Store
	config Config
}

// NewWindow creates a fixed-window limiter over the given store.
func NewWindow(store Store, config Config) (*Window, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store is required", ErrInvalidConfig)
	}
	if config.Limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", ErrInvalidConfig, config.Limit)
	}
	if config.Window <= 0 {
		return nil, fmt.Errorf("%w: window must be positive, got %v", ErrInvalidConfig, config.Window)
	}

	return &Window{store: store, config: config}, nil
}

// Allow records one hit for the key and reports whether it is within the
// limit.
func (w *Window) Allow(ctx context.Context, key string) (Result, error) {
	count, resetAt, err := w.store.Incr(ctx, key, w.config.Window)
	if err != nil {
		return Result{}, err
	}

	remaining := w.config.Limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Allowed:   count <= int64(w.config.Limit),
		Limit:     w.config.Limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}

// Reset clears the key's current window, typically after a successful
// verification ends a run of failed attempts.
func (w *Window) Reset(ctx context.Context, key string) error {
	return w.store.Reset(ctx, key)
}
