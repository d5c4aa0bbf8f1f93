package limits

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// TierResolver resolves the plan tier for an organization, typically by
// reading the organization row owned by the tenant-CRUD subsystem.
type TierResolver func(ctx context.Context, orgID uuid.UUID) (Tier, error)

// Service resolves plan tiers to resource ceilings and checks current
// usage against them.
type Service struct {
	// plans is immutable after construction; thread-safety relies on no
	// runtime modification.
	plans    map[Tier]Plan
	counters CounterRegistry
	resolver TierResolver
}

// NewService creates the plan gate. A nil plans map falls back to the
// built-in tier table.
func NewService(plans map[Tier]Plan, counters CounterRegistry, resolver TierResolver) (*Service, error) {
	if resolver == nil {
		return nil, errors.Join(ErrFailedToLoadPlans, errors.New("tier resolver is required"))
	}
	if plans == nil {
		plans = DefaultPlans()
	}
	if counters == nil {
		counters = NewRegistry()
	}

	return &Service{
		plans:    plans,
		counters: counters,
		resolver: resolver,
	}, nil
}

// CheckLimit reports whether the organization may create one more instance
// of the resource. Exceeding the ceiling returns a *LimitExceededError
// carrying resource, limit, and current usage.
func (s *Service) CheckLimit(ctx context.Context, orgID uuid.UUID, res Resource) error {
	plan, err := s.planFor(ctx, orgID)
	if err != nil {
		return err
	}

	limit, ok := plan.Ceiling(res)
	if !ok {
		return ErrInvalidResource
	}
	if limit == Unlimited {
		return nil
	}

	counter, ok := s.counters[res]
	if !ok {
		return ErrNoCounterRegistered
	}

	current, err := counter(ctx, orgID)
	if err != nil {
		return errors.Join(ErrFailedToCountUsage, err)
	}

	if current >= limit {
		return &LimitExceededError{Resource: res, Limit: limit, Current: current}
	}
	return nil
}

// GetUsage returns the current usage and ceiling for a resource.
func (s *Service) GetUsage(ctx context.Context, orgID uuid.UUID, res Resource) (UsageInfo, error) {
	plan, err := s.planFor(ctx, orgID)
	if err != nil {
		return UsageInfo{}, err
	}

	limit, ok := plan.Ceiling(res)
	if !ok {
		return UsageInfo{}, ErrInvalidResource
	}

	counter, ok := s.counters[res]
	if !ok {
		return UsageInfo{}, ErrNoCounterRegistered
	}

	current, err := counter(ctx, orgID)
	if err != nil {
		return UsageInfo{}, errors.Join(ErrFailedToCountUsage, err)
	}
	return UsageInfo{Current: current, Limit: limit}, nil
}

// PlanSatisfies reports whether the organization's tier meets the minimum
// among the allowed tiers.
func (s *Service) PlanSatisfies(ctx context.Context, orgID uuid.UUID, allowed ...Tier) (bool, error) {
	tier, err := s.resolver(ctx, orgID)
	if err != nil {
		return false, err
	}
	if _, ok := s.plans[tier]; !ok {
		return false, ErrTierNotFound
	}
	return tier.Satisfies(allowed...), nil
}

func (s *Service) planFor(ctx context.Context, orgID uuid.UUID) (Plan, error) {
	tier, err := s.resolver(ctx, orgID)
	if err != nil {
		return Plan{}, err
	}

	plan, ok := s.plans[tier]
	if !ok {
		return Plan{}, ErrTierNotFound
	}
	return plan, nil
}
