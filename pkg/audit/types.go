package audit

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Entry is a single append-only audit record. Once stored it is never
// mutated; the only sanctioned deletion is an operator-invoked retention
// purge.
type Entry struct {
	ID         uuid.UUID      `json:"id"`
	OrgID      uuid.UUID      `json:"org_id"`
	ActorID    *uuid.UUID     `json:"actor_id,omitempty"`
	Action     Action         `json:"action"`
	EntityType string         `json:"entity_type,omitempty"`
	EntityID   string         `json:"entity_id,omitempty"`
	OldValue   map[string]any `json:"old_value,omitempty"`
	NewValue   map[string]any `json:"new_value,omitempty"`
	IP         string         `json:"ip_address,omitempty"`
	UserAgent  string         `json:"user_agent,omitempty"`

	// Sequence is assigned by the store on insert and increases
	// monotonically with commit order. Wall-clock timestamps alone cannot
	// order concurrent writers.
	Sequence int64 `json:"sequence"`

	CreatedAt time.Time `json:"created_at"`
}

// Validate checks that the entry carries the required fields and a
// registered action.
func (e *Entry) Validate() error {
	if e.OrgID == uuid.Nil {
		return fmt.Errorf("%w: organization is required", ErrInvalidEntry)
	}
	if !e.Action.Valid() {
		return fmt.Errorf("%w: unknown action %q", ErrInvalidEntry, e.Action)
	}
	return nil
}

// EntryOption applies additional data to an Entry during recording.
type EntryOption func(*Entry)

// WithEntity sets the entity the action was performed on.
func WithEntity(entityType, entityID string) EntryOption {
	return func(e *Entry) {
		e.EntityType = entityType
		e.EntityID = entityID
	}
}

// WithChange attaches before/after snapshots of the mutated entity. Either
// side may be nil (creations have no old value, deletions no new value).
func WithChange(oldValue, newValue map[string]any) EntryOption {
	return func(e *Entry) {
		e.OldValue = oldValue
		e.NewValue = newValue
	}
}

// WithActor overrides the actor extracted from context. Used when the
// acting user is known to the caller but not present in the request
// context, e.g. during 2FA verification before a session exists.
func WithActor(actorID uuid.UUID) EntryOption {
	return func(e *Entry) {
		e.ActorID = &actorID
	}
}

// WithOrg overrides the organization extracted from context.
func WithOrg(orgID uuid.UUID) EntryOption {
	return func(e *Entry) {
		e.OrgID = orgID
	}
}
