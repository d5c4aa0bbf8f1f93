package audit

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStorage is an in-memory Storage implementation for tests and
// single-process development setups.
type MemoryStorage struct {
	mu      sync.RWMutex
	entries []Entry
	seq     int64
}

// NewMemoryStorage returns an empty in-memory audit store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// Store appends the entry and assigns the next sequence number.
func (s *MemoryStorage) Store(ctx context.Context, entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	entry.Sequence = s.seq
	s.entries = append(s.entries, *entry)
	return nil
}

// Query returns matching entries, newest first.
func (s *MemoryStorage) Query(ctx context.Context, criteria Criteria) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]Entry, 0)
	for _, entry := range s.entries {
		if matches(entry, criteria) {
			matched = append(matched, entry)
		}
	}

	slices.SortFunc(matched, func(a, b Entry) int {
		switch {
		case a.Sequence > b.Sequence:
			return -1
		case a.Sequence < b.Sequence:
			return 1
		default:
			return 0
		}
	})

	if criteria.Offset > 0 {
		if criteria.Offset >= len(matched) {
			return []Entry{}, nil
		}
		matched = matched[criteria.Offset:]
	}
	if criteria.Limit > 0 && len(matched) > criteria.Limit {
		matched = matched[:criteria.Limit]
	}
	return matched, nil
}

// Count returns the number of matching entries ignoring pagination.
func (s *MemoryStorage) Count(ctx context.Context, criteria Criteria) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total int64
	for _, entry := range s.entries {
		if matches(entry, criteria) {
			total++
		}
	}
	return total, nil
}

// Purge removes entries for the organization older than the cutoff.
func (s *MemoryStorage) Purge(ctx context.Context, orgID uuid.UUID, olderThan time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.entries[:0]
	var removed int64
	for _, entry := range s.entries {
		if entry.OrgID == orgID && entry.CreatedAt.Before(olderThan) {
			removed++
			continue
		}
		kept = append(kept, entry)
	}
	s.entries = kept
	return removed, nil
}

func matches(entry Entry, criteria Criteria) bool {
	if criteria.OrgID != uuid.Nil && entry.OrgID != criteria.OrgID {
		return false
	}
	if len(criteria.Actions) > 0 && !slices.Contains(criteria.Actions, entry.Action) {
		return false
	}
	if criteria.EntityType != "" && entry.EntityType != criteria.EntityType {
		return false
	}
	if criteria.ActorID != uuid.Nil && (entry.ActorID == nil || *entry.ActorID != criteria.ActorID) {
		return false
	}
	if !criteria.From.IsZero() && entry.CreatedAt.Before(criteria.From) {
		return false
	}
	if !criteria.To.IsZero() && entry.CreatedAt.After(criteria.To) {
		return false
	}
	return true
}
