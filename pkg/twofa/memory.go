package twofa

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store for tests and development. Recovery code
// consumption holds the write lock for the whole check-and-delete, matching
// the atomicity of the Postgres conditional delete.
type MemoryStore struct {
	mu       sync.RWMutex
	settings map[uuid.UUID]Settings
	codes    map[uuid.UUID]map[string]struct{}
}

// NewMemoryStore returns an empty in-memory two-factor store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		settings: make(map[uuid.UUID]Settings),
		codes:    make(map[uuid.UUID]map[string]struct{}),
	}
}

func (s *MemoryStore) GetSettings(ctx context.Context, userID uuid.UUID) (Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	settings, ok := s.settings[userID]
	if !ok {
		return Settings{}, ErrSettingsNotFound
	}
	return cloneSettings(settings), nil
}

func (s *MemoryStore) SaveSettings(ctx context.Context, settings Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.settings[settings.UserID] = cloneSettings(settings)
	return nil
}

func (s *MemoryStore) DeleteSettings(ctx context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.settings, userID)
	delete(s.codes, userID)
	return nil
}

func (s *MemoryStore) ReplaceRecoveryCodes(ctx context.Context, userID uuid.UUID, hashes []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	set := make(map[string]struct{}, len(hashes))
	for _, hash := range hashes {
		set[hash] = struct{}{}
	}
	s.codes[userID] = set
	return nil
}

func (s *MemoryStore) ConsumeRecoveryCode(ctx context.Context, userID uuid.UUID, hash string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.codes[userID]
	if !ok {
		return 0, nil
	}
	if _, ok := set[hash]; !ok {
		return 0, nil
	}
	delete(set, hash)
	return 1, nil
}

func (s *MemoryStore) CountRecoveryCodes(ctx context.Context, userID uuid.UUID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.codes[userID])), nil
}

func cloneSettings(settings Settings) Settings {
	if settings.PendingExpiresAt != nil {
		expiresAt := *settings.PendingExpiresAt
		settings.PendingExpiresAt = &expiresAt
	}
	if settings.EnabledAt != nil {
		enabledAt := *settings.EnabledAt
		settings.EnabledAt = &enabledAt
	}
	return settings
}
