package limits

import (
	"errors"
	"fmt"
)

var (
	ErrTierNotFound        = errors.New("limits: plan tier not found")
	ErrInvalidResource     = errors.New("limits: unknown resource")
	ErrNoCounterRegistered = errors.New("limits: no counter registered for resource")
	ErrLimitExceeded       = errors.New("limits: plan limit exceeded")
	ErrFailedToLoadPlans   = errors.New("limits: failed to load plans")
	ErrFailedToCountUsage  = errors.New("limits: failed to count resource usage")
)

// LimitExceededError carries the resource, ceiling, and current usage so
// callers can render an upgrade prompt. Matches ErrLimitExceeded with
// errors.Is.
type LimitExceededError struct {
	Resource Resource
	Limit    int64
	Current  int64
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("limits: %s limit of %d reached (current %d)", e.Resource, e.Limit, e.Current)
}

func (e *LimitExceededError) Unwrap() error {
	return ErrLimitExceeded
}
