package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Criteria narrows audit queries. All filters combine conjunctively; zero
// values mean "any". OrgID is required since the log is tenant-scoped.
type Criteria struct {
	OrgID      uuid.UUID
	Actions    []Action
	EntityType string
	ActorID    uuid.UUID
	From       time.Time
	To         time.Time
	Limit      int
	Offset     int
}

// Storage persists audit entries. Store is insert-only; nothing updates or
// deletes individual rows.
type Storage interface {
	// Store appends one entry and fills in its store-assigned sequence.
	Store(ctx context.Context, entry *Entry) error

	// Query returns entries matching the criteria, newest first.
	Query(ctx context.Context, criteria Criteria) ([]Entry, error)

	// Count returns the total number of entries matching the criteria,
	// ignoring Limit and Offset.
	Count(ctx context.Context, criteria Criteria) (int64, error)

	// Purge deletes entries for the organization older than the cutoff
	// and returns the number of rows removed. Operator-invoked only.
	Purge(ctx context.Context, orgID uuid.UUID, olderThan time.Time) (int64, error)
}
