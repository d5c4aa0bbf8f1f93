package apikey

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/plantops/trustkit/pkg/audit"
	"github.com/plantops/trustkit/pkg/limits"
	"github.com/plantops/trustkit/pkg/scopes"

	"github.com/google/uuid"
)

// Service drives the API key lifecycle: create, authorize, revoke, update,
// delete. Every state change writes an audit entry before returning;
// authorization failures are audit-logged with full detail while callers
// receive the uniform ErrNotAuthorized.
type Service struct {
	store     Store
	auditor   *audit.Logger
	gate      *limits.Service
	namespace string
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithQuotaGate enables plan-quota enforcement on key creation.
func WithQuotaGate(gate *limits.Service) Option {
	return func(s *Service) { s.gate = gate }
}

// WithNamespace overrides the plaintext namespace prefix.
func WithNamespace(namespace string) Option {
	return func(s *Service) {
		if namespace != "" {
			s.namespace = namespace
		}
	}
}

// WithClock overrides the wall clock, used in tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates the lifecycle manager. Storage and auditor are
// required: no key mutation may happen without an audit sink.
func NewService(store Store, auditor *audit.Logger, opts ...Option) *Service {
	if store == nil {
		panic("apikey: store cannot be nil")
	}
	if auditor == nil {
		panic("apikey: auditor cannot be nil")
	}

	s := &Service{
		store:     store,
		auditor:   auditor,
		namespace: DefaultNamespace,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateParams describes a new key.
type CreateParams struct {
	OrgID         uuid.UUID
	Name          string
	Scopes        []string
	RateLimit     int
	ExpiresInDays int
	CreatedBy     uuid.UUID
}

// Create generates a new key, persists its digest, and returns the stored
// record together with the plaintext. The plaintext is shown exactly once
// and is unrecoverable afterwards.
func (s *Service) Create(ctx context.Context, params CreateParams) (Key, string, error) {
	if params.OrgID == uuid.Nil {
		return Key{}, "", fmt.Errorf("%w: organization is required", ErrValidation)
	}
	if params.Name == "" {
		return Key{}, "", fmt.Errorf("%w: name is required", ErrValidation)
	}
	if len(params.Scopes) == 0 {
		return Key{}, "", fmt.Errorf("%w: at least one scope is required", ErrValidation)
	}
	if err := scopes.Validate(params.Scopes, vocabulary); err != nil {
		return Key{}, "", errors.Join(ErrValidation, err)
	}
	if params.RateLimit < 0 || params.ExpiresInDays < 0 {
		return Key{}, "", fmt.Errorf("%w: rate limit and expiry must not be negative", ErrValidation)
	}

	if s.gate != nil {
		if err := s.gate.CheckLimit(ctx, params.OrgID, limits.ResourceAPIKeys); err != nil {
			return Key{}, "", err
		}
	}

	plaintext, err := generatePlaintext(s.namespace)
	if err != nil {
		return Key{}, "", err
	}

	now := s.now().UTC()
	key := Key{
		ID:        uuid.New(),
		OrgID:     params.OrgID,
		Name:      params.Name,
		KeyHash:   HashKey(plaintext),
		KeyPrefix: displayPrefix(plaintext),
		Scopes:    scopes.Normalize(params.Scopes),
		RateLimit: params.RateLimit,
		Status:    StatusActive,
		CreatedBy: params.CreatedBy,
		CreatedAt: now,
	}
	if params.ExpiresInDays > 0 {
		expiresAt := now.AddDate(0, 0, params.ExpiresInDays)
		key.ExpiresAt = &expiresAt
	}

	if err := s.store.Create(ctx, key); err != nil {
		return Key{}, "", errors.Join(ErrStoreFailed, err)
	}

	if _, err := s.auditor.Record(ctx, audit.ActionAPIKeyCreated,
		audit.WithOrg(key.OrgID),
		audit.WithActor(params.CreatedBy),
		audit.WithEntity("api_key", key.ID.String()),
		audit.WithChange(nil, snapshot(key)),
	); err != nil {
		return Key{}, "", err
	}

	return key.sanitized(), plaintext, nil
}

// Authorize authenticates a plaintext candidate and checks that it grants
// the required scope. On success the key's last-used timestamp is updated
// and the key context returned. All failure modes collapse into
// ErrNotAuthorized so the response does not reveal whether the key was
// unknown, revoked, expired, or under-scoped.
func (s *Service) Authorize(ctx context.Context, plaintext, requiredScope string) (Key, error) {
	key, err := s.store.GetByHash(ctx, HashKey(plaintext))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Unknown digest: there is no organization to attribute the
			// attempt to, so nothing is written to the tenant audit trail.
			return Key{}, ErrNotAuthorized
		}
		return Key{}, errors.Join(ErrStoreFailed, err)
	}

	now := s.now().UTC()
	switch {
	case key.Status != StatusActive:
		s.recordAuthFailure(ctx, key, "revoked")
		return Key{}, ErrNotAuthorized
	case !key.IsValid(now):
		s.recordAuthFailure(ctx, key, "expired")
		return Key{}, ErrNotAuthorized
	case !scopes.Has(key.Scopes, requiredScope):
		s.recordAuthFailure(ctx, key, "insufficient_scope")
		return Key{}, ErrNotAuthorized
	}

	if err := s.store.TouchLastUsed(ctx, key.ID, now); err != nil {
		return Key{}, errors.Join(ErrStoreFailed, err)
	}
	key.LastUsedAt = &now

	return key.sanitized(), nil
}

// recordAuthFailure writes the detailed failure reason to the audit trail.
// Best effort: an audit write failure must not turn a denied request into
// an internal error.
func (s *Service) recordAuthFailure(ctx context.Context, key Key, reason string) {
	_, _ = s.auditor.Record(ctx, audit.ActionAPIKeyAuthFailed,
		audit.WithOrg(key.OrgID),
		audit.WithEntity("api_key", key.ID.String()),
		audit.WithChange(nil, map[string]any{"reason": reason, "key_prefix": key.KeyPrefix}),
	)
}

// Revoke transitions the key to revoked, unconditionally and irreversibly.
// Revoking an already-revoked key returns ErrAlreadyRevoked, which callers
// may treat as a harmless conflict.
func (s *Service) Revoke(ctx context.Context, orgID, keyID, actorID uuid.UUID) error {
	affected, err := s.store.Revoke(ctx, orgID, keyID)
	if err != nil {
		return errors.Join(ErrStoreFailed, err)
	}
	if affected == 0 {
		// The conditional update did not match: either the key never
		// existed or it is already revoked. Zero rows is never success.
		if _, err := s.store.GetByID(ctx, orgID, keyID); err != nil {
			return err
		}
		return ErrAlreadyRevoked
	}

	if _, err := s.auditor.Record(ctx, audit.ActionAPIKeyRevoked,
		audit.WithOrg(orgID),
		audit.WithActor(actorID),
		audit.WithEntity("api_key", keyID.String()),
		audit.WithChange(map[string]any{"status": string(StatusActive)}, map[string]any{"status": string(StatusRevoked)}),
	); err != nil {
		return err
	}
	return nil
}

// UpdateParams carries the mutable fields. Nil pointers leave the current
// value untouched.
type UpdateParams struct {
	Name      *string
	Scopes    []string
	RateLimit *int
}

// Update changes name, scopes, or rate limit while the key is active.
// Updates to revoked keys are rejected with ErrKeyRevoked.
func (s *Service) Update(ctx context.Context, orgID, keyID uuid.UUID, params UpdateParams, actorID uuid.UUID) (Key, error) {
	current, err := s.store.GetByID(ctx, orgID, keyID)
	if err != nil {
		return Key{}, err
	}

	updated := current
	if params.Name != nil {
		if *params.Name == "" {
			return Key{}, fmt.Errorf("%w: name is required", ErrValidation)
		}
		updated.Name = *params.Name
	}
	if params.Scopes != nil {
		if len(params.Scopes) == 0 {
			return Key{}, fmt.Errorf("%w: at least one scope is required", ErrValidation)
		}
		if err := scopes.Validate(params.Scopes, vocabulary); err != nil {
			return Key{}, errors.Join(ErrValidation, err)
		}
		updated.Scopes = scopes.Normalize(params.Scopes)
	}
	if params.RateLimit != nil {
		if *params.RateLimit < 0 {
			return Key{}, fmt.Errorf("%w: rate limit must not be negative", ErrValidation)
		}
		updated.RateLimit = *params.RateLimit
	}

	// Single conditional statement: the store applies the change only if
	// the key is still active, closing the race with a concurrent revoke.
	affected, err := s.store.Update(ctx, updated)
	if err != nil {
		return Key{}, errors.Join(ErrStoreFailed, err)
	}
	if affected == 0 {
		if _, err := s.store.GetByID(ctx, orgID, keyID); err != nil {
			return Key{}, err
		}
		return Key{}, ErrKeyRevoked
	}

	if _, err := s.auditor.Record(ctx, audit.ActionAPIKeyUpdated,
		audit.WithOrg(orgID),
		audit.WithActor(actorID),
		audit.WithEntity("api_key", keyID.String()),
		audit.WithChange(snapshot(current), snapshot(updated)),
	); err != nil {
		return Key{}, err
	}

	return updated.sanitized(), nil
}

// Delete hard-removes the key. Distinct from revoke: the row disappears,
// so the audit entry records the prior state first.
func (s *Service) Delete(ctx context.Context, orgID, keyID, actorID uuid.UUID) error {
	prior, err := s.store.GetByID(ctx, orgID, keyID)
	if err != nil {
		return err
	}

	affected, err := s.store.Delete(ctx, orgID, keyID)
	if err != nil {
		return errors.Join(ErrStoreFailed, err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	if _, err := s.auditor.Record(ctx, audit.ActionAPIKeyDeleted,
		audit.WithOrg(orgID),
		audit.WithActor(actorID),
		audit.WithEntity("api_key", keyID.String()),
		audit.WithChange(snapshot(prior), nil),
	); err != nil {
		return err
	}
	return nil
}

// Get returns a single key without its digest.
func (s *Service) Get(ctx context.Context, orgID, keyID uuid.UUID) (Key, error) {
	key, err := s.store.GetByID(ctx, orgID, keyID)
	if err != nil {
		return Key{}, err
	}
	return key.sanitized(), nil
}

// List returns the organization's keys without digests.
func (s *Service) List(ctx context.Context, orgID uuid.UUID) ([]Key, error) {
	keys, err := s.store.List(ctx, orgID)
	if err != nil {
		return nil, errors.Join(ErrStoreFailed, err)
	}
	for i := range keys {
		keys[i] = keys[i].sanitized()
	}
	return keys, nil
}

// Counter adapts the store to a limits.CounterFunc so the plan gate can
// count an organization's keys.
func (s *Service) Counter() limits.CounterFunc {
	return func(ctx context.Context, orgID uuid.UUID) (int64, error) {
		return s.store.CountByOrg(ctx, orgID)
	}
}

// snapshot captures the auditable state of a key. The digest is never
// included.
func snapshot(key Key) map[string]any {
	snap := map[string]any{
		"name":       key.Name,
		"key_prefix": key.KeyPrefix,
		"scopes":     key.Scopes,
		"rate_limit": key.RateLimit,
		"status":     string(key.Status),
	}
	if key.ExpiresAt != nil {
		snap["expires_at"] = key.ExpiresAt.Format(time.RFC3339)
	}
	return snap
}
