package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/google/uuid"

	"github.com/c360studio/soc2scan/model"
	"github.com/c360studio/soc2scan/soc2err"
)

// RecordAuditEvent appends an audit event. The audit log is append-only:
// there is no update or delete path, matching the original
// create_audit_event builder's single responsibility of producing a new
// row.
func (s *Store) RecordAuditEvent(ctx context.Context, e *model.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e.ID = uuid.New().String()
	e.CreatedAt = nowUTC()

	var metadata any
	if e.Metadata != nil {
		b, err := json.Marshal(e.Metadata)
		if err != nil {
			return soc2err.NewStorageError(soc2err.StorageIO, "record-audit-event:marshal-metadata", err)
		}
		metadata = string(b)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_events (id, event_type, project_id, violation_id, fix_id, description, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, string(e.EventType), nullableString(e.ProjectID), nullableString(e.ViolationID),
		nullableString(e.FixID), e.Description, metadata, rfc3339(e.CreatedAt))
	return classifyExecError("record-audit-event", err)
}

// ListAuditEvents returns audit events, most recent first, optionally
// filtered to a single project.
func (s *Store) ListAuditEvents(ctx context.Context, projectID string) ([]model.AuditEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `SELECT id, event_type, project_id, violation_id, fix_id, description, metadata, created_at
	          FROM audit_events`
	args := []any{}
	if projectID != "" {
		query += ` WHERE project_id = ?`
		args = append(args, projectID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classifyExecError("list-audit-events", err)
	}
	defer rows.Close()

	var out []model.AuditEvent
	for rows.Next() {
		e, err := scanAuditEventRow(rows)
		if err != nil {
			return nil, classifyExecError("list-audit-events:scan", err)
		}
		out = append(out, *e)
	}
	return out, classifyExecError("list-audit-events:rows", rows.Err())
}

func scanAuditEventRow(row rowScanner) (*model.AuditEvent, error) {
	var e model.AuditEvent
	var eventType, createdAt string
	var projectID, violationID, fixID, metadata sql.NullString

	err := row.Scan(&e.ID, &eventType, &projectID, &violationID, &fixID, &e.Description, &metadata, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, soc2err.ErrNotFound
	}
	if err != nil {
		return nil, classifyExecError("scan-audit-event-row", err)
	}

	e.EventType = model.AuditEventType(eventType)
	e.ProjectID = projectID.String
	e.ViolationID = violationID.String
	e.FixID = fixID.String
	e.CreatedAt, _ = parseRFC3339(createdAt)
	if metadata.Valid {
		var m map[string]interface{}
		if err := json.Unmarshal([]byte(metadata.String), &m); err == nil {
			e.Metadata = m
		}
	}
	return &e, nil
}
