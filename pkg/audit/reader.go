package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Reader serves filtered queries and maintenance operations over the audit
// trail.
type Reader struct {
	storage Storage
}

// NewReader creates an audit reader over the given storage.
func NewReader(storage Storage) *Reader {
	if storage == nil {
		panic("audit: storage cannot be nil")
	}
	return &Reader{storage: storage}
}

// Find returns the matching page of entries together with the total number
// of entries matching the criteria, so callers can paginate.
func (r *Reader) Find(ctx context.Context, criteria Criteria) ([]Entry, int64, error) {
	if criteria.OrgID == uuid.Nil {
		return nil, 0, ErrOrgRequired
	}

	entries, err := r.storage.Query(ctx, criteria)
	if err != nil {
		return nil, 0, err
	}

	total, err := r.storage.Count(ctx, criteria)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// FindSecurity returns the page of entries restricted to the fixed
// security-relevant action subset.
func (r *Reader) FindSecurity(ctx context.Context, criteria Criteria) ([]Entry, int64, error) {
	criteria.Actions = SecurityActions()
	return r.Find(ctx, criteria)
}

// FindByActor returns the activity trail of a single user.
func (r *Reader) FindByActor(ctx context.Context, orgID, actorID uuid.UUID, limit, offset int) ([]Entry, int64, error) {
	return r.Find(ctx, Criteria{
		OrgID:   orgID,
		ActorID: actorID,
		Limit:   limit,
		Offset:  offset,
	})
}

// Purge deletes entries older than retentionDays for the organization and
// returns the number of rows removed. This is the only sanctioned deletion
// path and is operator-invoked, never scheduled by this package.
func (r *Reader) Purge(ctx context.Context, orgID uuid.UUID, retentionDays int) (int64, error) {
	if orgID == uuid.Nil {
		return 0, ErrOrgRequired
	}
	if retentionDays <= 0 {
		return 0, ErrInvalidRetention
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
	return r.storage.Purge(ctx, orgID, cutoff)
}
