package twofa

import (
	"context"
	"errors"

	"github.com/plantops/trustkit/pkg/pg"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists two-factor settings and recovery codes. Codes live
// one row per digest in twofa_recovery_codes so consumption is a single
// conditional DELETE; settings are upserted on the user_id primary key.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed two-factor store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("twofa: pool cannot be nil")
	}
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) GetSettings(ctx context.Context, userID uuid.UUID) (Settings, error) {
	var settings Settings
	err := s.pool.QueryRow(ctx, `
		SELECT user_id, org_id, enabled, pending, encrypted_secret, pending_expires_at, enabled_at, updated_at
		FROM twofa_settings WHERE user_id = $1`, userID,
	).Scan(&settings.UserID, &settings.OrgID, &settings.Enabled, &settings.Pending,
		&settings.EncryptedSecret, &settings.PendingExpiresAt, &settings.EnabledAt, &settings.UpdatedAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return Settings{}, ErrSettingsNotFound
		}
		return Settings{}, errors.Join(ErrStoreFailed, err)
	}
	return settings, nil
}

func (s *PostgresStore) SaveSettings(ctx context.Context, settings Settings) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO twofa_settings (user_id, org_id, enabled, pending, encrypted_secret, pending_expires_at, enabled_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id) DO UPDATE SET
			org_id = EXCLUDED.org_id,
			enabled = EXCLUDED.enabled,
			pending = EXCLUDED.pending,
			encrypted_secret = EXCLUDED.encrypted_secret,
			pending_expires_at = EXCLUDED.pending_expires_at,
			enabled_at = EXCLUDED.enabled_at,
			updated_at = EXCLUDED.updated_at`,
		settings.UserID, settings.OrgID, settings.Enabled, settings.Pending,
		settings.EncryptedSecret, settings.PendingExpiresAt, settings.EnabledAt, settings.UpdatedAt)
	return err
}

func (s *PostgresStore) DeleteSettings(ctx context.Context, userID uuid.UUID) error {
	// Recovery codes reference twofa_settings with ON DELETE CASCADE.
	_, err := s.pool.Exec(ctx, `DELETE FROM twofa_settings WHERE user_id = $1`, userID)
	return err
}

func (s *PostgresStore) ReplaceRecoveryCodes(ctx context.Context, userID uuid.UUID, hashes []string) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`DELETE FROM twofa_recovery_codes WHERE user_id = $1`, userID); err != nil {
			return err
		}
		for _, hash := range hashes {
			if _, err := tx.Exec(ctx, `
				INSERT INTO twofa_recovery_codes (user_id, code_hash)
				VALUES ($1, $2)`, userID, hash); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *PostgresStore) ConsumeRecoveryCode(ctx context.Context, userID uuid.UUID, hash string) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM twofa_recovery_codes
		WHERE user_id = $1 AND code_hash = $2`, userID, hash)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) CountRecoveryCodes(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM twofa_recovery_codes WHERE user_id = $1`, userID).Scan(&count)
	return count, err
}
