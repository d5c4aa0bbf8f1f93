package apikey

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store for tests and development. Conditional
// mutations hold the lock for the whole check-and-write, matching the
// atomicity the Postgres store gets from single conditional statements.
type MemoryStore struct {
	mu   sync.RWMutex
	keys map[uuid.UUID]Key
}

// NewMemoryStore returns an empty in-memory key store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{keys: make(map[uuid.UUID]Key)}
}

func (s *MemoryStore) Create(ctx context.Context, key Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.keys[key.ID] = cloneKey(key)
	return nil
}

func (s *MemoryStore) GetByID(ctx context.Context, orgID, id uuid.UUID) (Key, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key, ok := s.keys[id]
	if !ok || key.OrgID != orgID {
		return Key{}, ErrNotFound
	}
	return cloneKey(key), nil
}

func (s *MemoryStore) GetByHash(ctx context.Context, keyHash string) (Key, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, key := range s.keys {
		if key.KeyHash == keyHash {
			return cloneKey(key), nil
		}
	}
	return Key{}, ErrNotFound
}

func (s *MemoryStore) List(ctx context.Context, orgID uuid.UUID) ([]Key, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Key, 0)
	for _, key := range s.keys {
		if key.OrgID == orgID {
			out = append(out, cloneKey(key))
		}
	}
	slices.SortFunc(out, func(a, b Key) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) Update(ctx context.Context, key Key) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.keys[key.ID]
	if !ok || current.OrgID != key.OrgID || current.Status != StatusActive {
		return 0, nil
	}

	current.Name = key.Name
	current.Scopes = slices.Clone(key.Scopes)
	current.RateLimit = key.RateLimit
	s.keys[key.ID] = current
	return 1, nil
}

func (s *MemoryStore) Revoke(ctx context.Context, orgID, id uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.keys[id]
	if !ok || key.OrgID != orgID || key.Status != StatusActive {
		return 0, nil
	}

	key.Status = StatusRevoked
	s.keys[id] = key
	return 1, nil
}

func (s *MemoryStore) Delete(ctx context.Context, orgID, id uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.keys[id]
	if !ok || key.OrgID != orgID {
		return 0, nil
	}

	delete(s.keys, id)
	return 1, nil
}

func (s *MemoryStore) TouchLastUsed(ctx context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.keys[id]
	if !ok {
		return ErrNotFound
	}
	key.LastUsedAt = &at
	s.keys[id] = key
	return nil
}

func (s *MemoryStore) CountByOrg(ctx context.Context, orgID uuid.UUID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, key := range s.keys {
		if key.OrgID == orgID {
			count++
		}
	}
	return count, nil
}

func cloneKey(key Key) Key {
	key.Scopes = slices.Clone(key.Scopes)
	if key.ExpiresAt != nil {
		expiresAt := *key.ExpiresAt
		key.ExpiresAt = &expiresAt
	}
	if key.LastUsedAt != nil {
		lastUsedAt := *key.LastUsedAt
		key.LastUsedAt = &lastUsedAt
	}
	return key
}
