package twofa

import (
	"context"

	"github.com/google/uuid"
)

// Store persists per-user two-factor settings and the recovery code set.
//
// Recovery codes are stored one row per code digest so consumption can be a
// single conditional delete: ConsumeRecoveryCode removes the matching row
// and reports how many rows were affected. Zero means the code was unknown
// or already used; concurrent submissions of the same code cannot both see
// one.
type Store interface {
	// GetSettings returns the user's settings or ErrSettingsNotFound.
	GetSettings(ctx context.Context, userID uuid.UUID) (Settings, error)
	// SaveSettings inserts or fully replaces the user's settings row.
	SaveSettings(ctx context.Context, settings Settings) error
	// DeleteSettings removes the settings and all recovery codes.
	DeleteSettings(ctx context.Context, userID uuid.UUID) error

	// ReplaceRecoveryCodes atomically swaps the user's code set for the
	// given digests.
	ReplaceRecoveryCodes(ctx context.Context, userID uuid.UUID, hashes []string) error
	// ConsumeRecoveryCode deletes the row matching the digest and returns
	// the number of rows removed.
	ConsumeRecoveryCode(ctx context.Context, userID uuid.UUID, hash string) (int64, error)
	// CountRecoveryCodes returns how many unused codes remain.
	CountRecoveryCodes(ctx context.Context, userID uuid.UUID) (int64, error)
}
