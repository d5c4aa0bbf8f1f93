package apikey

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store persists API keys. Mutating operations return the number of rows
// affected so callers can distinguish "nothing matched the condition" from
// success without a read-then-write race: revocation and updates must be
// single conditional statements, never read-modify-write.
type Store interface {
	Create(ctx context.Context, key Key) error

	// GetByID returns the key scoped to the organization, or ErrNotFound.
	GetByID(ctx context.Context, orgID, id uuid.UUID) (Key, error)

	// GetByHash returns the key with the given digest regardless of
	// organization, or ErrNotFound. Used by authorization.
	GetByHash(ctx context.Context, keyHash string) (Key, error)

	// List returns the organization's keys, newest first.
	List(ctx context.Context, orgID uuid.UUID) ([]Key, error)

	// Update applies name/scopes/rate-limit changes in one statement
	// conditioned on the key still being active. Zero affected rows means
	// the key is missing or revoked.
	Update(ctx context.Context, key Key) (int64, error)

	// Revoke transitions active → revoked in one conditional statement.
	// Zero affected rows means the key is missing or already revoked.
	Revoke(ctx context.Context, orgID, id uuid.UUID) (int64, error)

	// Delete hard-removes the row in any status.
	Delete(ctx context.Context, orgID, id uuid.UUID) (int64, error)

	// TouchLastUsed records a successful authorization.
	TouchLastUsed(ctx context.Context, id uuid.UUID, at time.Time) error

	// CountByOrg counts the organization's non-deleted keys, for the plan
	// gate.
	CountByOrg(ctx context.Context, orgID uuid.UUID) (int64, error)
}
