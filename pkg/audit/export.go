package audit

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
)

// csvHeader is the fixed, stable column order of exported audit trails.
// encoding/csv handles quoting of embedded delimiters and newlines.
var csvHeader = []string{"timestamp", "actor", "action", "entity_type", "entity_id", "ip_address"}

// ExportCSV writes all entries matching the criteria as CSV. Limit and
// Offset are ignored: an export always covers the full matching range, in
// ascending sequence order for determinism.
func (r *Reader) ExportCSV(ctx context.Context, w io.Writer, criteria Criteria) error {
	if criteria.OrgID == uuid.Nil {
		return ErrOrgRequired
	}
	criteria.Limit = 0
	criteria.Offset = 0

	entries, err := r.storage.Query(ctx, criteria)
	if err != nil {
		return err
	}

	// Query returns newest first; exports read oldest first.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return errors.Join(ErrExportFailed, err)
	}

	for _, entry := range entries {
		actor := ""
		if entry.ActorID != nil {
			actor = entry.ActorID.String()
		}
		entityID := entry.EntityID

		record := []string{
			entry.CreatedAt.UTC().Format(time.RFC3339),
			actor,
			string(entry.Action),
			entry.EntityType,
			entityID,
			entry.IP,
		}
		if err := cw.Write(record); err != nil {
			return errors.Join(ErrExportFailed, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Join(ErrExportFailed, err)
	}
	return nil
}
