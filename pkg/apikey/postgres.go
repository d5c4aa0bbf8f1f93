package apikey

import (
	"context"
	"errors"
	"time"

	"github.com/plantops/trustkit/pkg/pg"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists API keys in the api_keys table. Revocation and
// updates are single conditional statements so concurrent mutations cannot
// interleave: zero affected rows reports the condition did not hold.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed key store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("apikey: pool cannot be nil")
	}
	return &PostgresStore{pool: pool}
}

const keyColumns = `id, org_id, name, key_hash, key_prefix, scopes, rate_limit, status, expires_at, last_used_at, created_by, created_at`

func (s *PostgresStore) Create(ctx context.Context, key Key) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO api_keys (`+keyColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		key.ID, key.OrgID, key.Name, key.KeyHash, key.KeyPrefix, key.Scopes,
		key.RateLimit, string(key.Status), key.ExpiresAt, key.LastUsedAt, key.CreatedBy, key.CreatedAt,
	)
	return err
}

func (s *PostgresStore) GetByID(ctx context.Context, orgID, id uuid.UUID) (Key, error) {
	return s.scanOne(s.pool.QueryRow(ctx,
		`SELECT `+keyColumns+` FROM api_keys WHERE org_id = $1 AND id = $2`, orgID, id))
}

func (s *PostgresStore) GetByHash(ctx context.Context, keyHash string) (Key, error) {
	return s.scanOne(s.pool.QueryRow(ctx,
		`SELECT `+keyColumns+` FROM api_keys WHERE key_hash = $1`, keyHash))
}

func (s *PostgresStore) List(ctx context.Context, orgID uuid.UUID) ([]Key, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+keyColumns+` FROM api_keys WHERE org_id = $1 ORDER BY created_at DESC`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := make([]Key, 0)
	for rows.Next() {
		key, err := s.scanOne(rows)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func (s *PostgresStore) Update(ctx context.Context, key Key) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE api_keys SET name = $1, scopes = $2, rate_limit = $3
		WHERE id = $4 AND org_id = $5 AND status = 'active'`,
		key.Name, key.Scopes, key.RateLimit, key.ID, key.OrgID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) Revoke(ctx context.Context, orgID, id uuid.UUID) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE api_keys SET status = 'revoked'
		WHERE id = $1 AND org_id = $2 AND status = 'active'`, id, orgID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) Delete(ctx context.Context, orgID, id uuid.UUID) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM api_keys WHERE id = $1 AND org_id = $2`, id, orgID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) TouchLastUsed(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET last_used_at = $1 WHERE id = $2`, at, id)
	return err
}

func (s *PostgresStore) CountByOrg(ctx context.Context, orgID uuid.UUID) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM api_keys WHERE org_id = $1`, orgID).Scan(&count)
	return count, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *PostgresStore) scanOne(row rowScanner) (Key, error) {
	var (
		key        Key
		status     string
		expiresAt  *time.Time
		lastUsedAt *time.Time
	)
	err := row.Scan(&key.ID, &key.OrgID, &key.Name, &key.KeyHash, &key.KeyPrefix, &key.Scopes,
		&key.RateLimit, &status, &expiresAt, &lastUsedAt, &key.CreatedBy, &key.CreatedAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return Key{}, ErrNotFound
		}
		return Key{}, errors.Join(ErrStoreFailed, err)
	}

	key.Status = Status(status)
	key.ExpiresAt = expiresAt
	key.LastUsedAt = lastUsedAt
	return key, nil
}
