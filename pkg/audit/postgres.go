package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStorage persists audit entries in the audit_log table. The table
// grants no UPDATE path; sequence numbers come from a bigserial column so
// ordering follows commit order.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresStorage creates a Postgres-backed audit store.
func NewPostgresStorage(pool *pgxpool.Pool) *PostgresStorage {
	if pool == nil {
		panic("audit: pool cannot be nil")
	}
	return &PostgresStorage{pool: pool}
}

func (s *PostgresStorage) Store(ctx context.Context, entry *Entry) error {
	oldValue, err := marshalSnapshot(entry.OldValue)
	if err != nil {
		return errors.Join(ErrStoreFailed, err)
	}
	newValue, err := marshalSnapshot(entry.NewValue)
	if err != nil {
		return errors.Join(ErrStoreFailed, err)
	}

	var actorID uuid.NullUUID
	if entry.ActorID != nil {
		actorID = uuid.NullUUID{UUID: *entry.ActorID, Valid: true}
	}

	err = s.pool.QueryRow(ctx, `
		INSERT INTO audit_log (id, org_id, actor_id, action, entity_type, entity_id, old_value, new_value, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING sequence`,
		entry.ID, entry.OrgID, actorID, string(entry.Action), entry.EntityType,
		nullableString(entry.EntityID), oldValue, newValue, entry.IP, entry.UserAgent, entry.CreatedAt,
	).Scan(&entry.Sequence)
	if err != nil {
		return errors.Join(ErrStoreFailed, err)
	}
	return nil
}

func (s *PostgresStorage) Query(ctx context.Context, criteria Criteria) ([]Entry, error) {
	where, args := buildWhere(criteria)

	query := `
		SELECT id, org_id, actor_id, action, entity_type, entity_id, old_value, new_value, ip_address, user_agent, sequence, created_at
		FROM audit_log ` + where + ` ORDER BY sequence DESC`

	if criteria.Limit > 0 {
		args = append(args, criteria.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if criteria.Offset > 0 {
		args = append(args, criteria.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Join(ErrStoreFailed, err)
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		var (
			entry     Entry
			actorID   uuid.NullUUID
			entityID  *string
			oldValue  []byte
			newValue  []byte
			createdAt time.Time
		)
		if err := rows.Scan(&entry.ID, &entry.OrgID, &actorID, &entry.Action, &entry.EntityType,
			&entityID, &oldValue, &newValue, &entry.IP, &entry.UserAgent, &entry.Sequence, &createdAt); err != nil {
			return nil, errors.Join(ErrStoreFailed, err)
		}

		if actorID.Valid {
			id := actorID.UUID
			entry.ActorID = &id
		}
		if entityID != nil {
			entry.EntityID = *entityID
		}
		if entry.OldValue, err = unmarshalSnapshot(oldValue); err != nil {
			return nil, errors.Join(ErrStoreFailed, err)
		}
		if entry.NewValue, err = unmarshalSnapshot(newValue); err != nil {
			return nil, errors.Join(ErrStoreFailed, err)
		}
		entry.CreatedAt = createdAt

		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(ErrStoreFailed, err)
	}
	return entries, nil
}

func (s *PostgresStorage) Count(ctx context.Context, criteria Criteria) (int64, error) {
	where, args := buildWhere(criteria)

	var total int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM audit_log `+where, args...).Scan(&total); err != nil {
		return 0, errors.Join(ErrStoreFailed, err)
	}
	return total, nil
}

func (s *PostgresStorage) Purge(ctx context.Context, orgID uuid.UUID, olderThan time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM audit_log WHERE org_id = $1 AND created_at < $2`, orgID, olderThan)
	if err != nil {
		return 0, errors.Join(ErrStoreFailed, err)
	}
	return tag.RowsAffected(), nil
}

func buildWhere(criteria Criteria) (string, []any) {
	conditions := make([]string, 0, 6)
	args := make([]any, 0, 6)

	add := func(condition string, arg any) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(condition, len(args)))
	}

	if criteria.OrgID != uuid.Nil {
		add("org_id = $%d", criteria.OrgID)
	}
	if len(criteria.Actions) > 0 {
		actions := make([]string, len(criteria.Actions))
		for i, a := range criteria.Actions {
			actions[i] = string(a)
		}
		add("action = ANY($%d)", actions)
	}
	if criteria.EntityType != "" {
		add("entity_type = $%d", criteria.EntityType)
	}
	if criteria.ActorID != uuid.Nil {
		add("actor_id = $%d", criteria.ActorID)
	}
	if !criteria.From.IsZero() {
		add("created_at >= $%d", criteria.From)
	}
	if !criteria.To.IsZero() {
		add("created_at <= $%d", criteria.To)
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func marshalSnapshot(snapshot map[string]any) ([]byte, error) {
	if len(snapshot) == 0 {
		return nil, nil
	}
	return json.Marshal(snapshot)
}

func unmarshalSnapshot(data []byte) (map[string]any, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var snapshot map[string]any
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, err
	}
	return snapshot, nil
}
