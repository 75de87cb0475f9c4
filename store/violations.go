package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/c360studio/soc2scan/model"
	"github.com/c360studio/soc2scan/soc2err"
)

// CreateViolation inserts v, stamping id, status=open, and detected_at.
// Dedup policy (regex is authoritative on an exact file/line/control
// coincidence; otherwise both findings are kept) is enforced by the
// orchestrator before calling this, not here — the store persists
// whatever it's given.
func (s *Store) CreateViolation(ctx context.Context, v *model.Violation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v.ID = uuid.New().String()
	v.Status = model.ViolationStatusOpen
	v.DetectedAt = nowUTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO violations (id, scan_id, control_id, severity, description, file_path, line_number,
		 code_snippet, status, detected_at, detection_method, confidence_score, llm_reasoning,
		 regex_reasoning, function_name, class_name)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.ScanID, v.ControlID, string(v.Severity), v.Description, v.FilePath, v.LineNumber,
		v.CodeSnippet, string(v.Status), rfc3339(v.DetectedAt), string(v.DetectionMethod),
		nullableInt(v.ConfidenceScore), nullableString(v.LLMReasoning), nullableString(v.RegexReasoning),
		nullableString(v.FunctionName), nullableString(v.ClassName))
	return classifyExecError("create-violation", err)
}

// ExistsAt reports whether an open-or-any-status violation already exists
// for (scanID, filePath, lineNumber, controlID), the exact coincidence the
// dedup policy keys off of.
func (s *Store) ExistsAt(ctx context.Context, scanID, filePath string, lineNumber int, controlID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM violations WHERE scan_id = ? AND file_path = ? AND line_number = ? AND control_id = ?`,
		scanID, filePath, lineNumber, controlID).Scan(&n)
	if err != nil {
		return false, classifyExecError("violation-exists-at", err)
	}
	return n > 0, nil
}

// GetViolation retrieves a violation by id.
func (s *Store) GetViolation(ctx context.Context, id string) (*model.Violation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRowContext(ctx, violationSelect+` WHERE id = ?`, id)
	return scanViolationRow(row)
}

// ListViolations returns every violation for a scan.
func (s *Store) ListViolations(ctx context.Context, scanID string) ([]model.Violation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, violationSelect+` WHERE scan_id = ? ORDER BY line_number`, scanID)
	if err != nil {
		return nil, classifyExecError("list-violations", err)
	}
	defer rows.Close()

	var out []model.Violation
	for rows.Next() {
		v, err := scanViolationRow(rows)
		if err != nil {
			return nil, classifyExecError("list-violations:scan", err)
		}
		out = append(out, *v)
	}
	return out, classifyExecError("list-violations:rows", rows.Err())
}

// SetViolationStatus transitions a violation's status (fixed, dismissed).
func (s *Store) SetViolationStatus(ctx context.Context, id string, status model.ViolationStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `UPDATE violations SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return classifyExecError("set-violation-status", err)
	}
	return checkAffected(res, "set-violation-status")
}

const violationSelect = `SELECT id, scan_id, control_id, severity, description, file_path, line_number,
	code_snippet, status, detected_at, detection_method, confidence_score, llm_reasoning,
	regex_reasoning, function_name, class_name FROM violations`

func scanViolationRow(row rowScanner) (*model.Violation, error) {
	var v model.Violation
	var severity, status, method, detectedAt string
	var confidence sql.NullInt64
	var llmReasoning, regexReasoning, functionName, className sql.NullString

	err := row.Scan(&v.ID, &v.ScanID, &v.ControlID, &severity, &v.Description, &v.FilePath, &v.LineNumber,
		&v.CodeSnippet, &status, &detectedAt, &method, &confidence, &llmReasoning, &regexReasoning,
		&functionName, &className)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, soc2err.ErrNotFound
	}
	if err != nil {
		return nil, classifyExecError("scan-violation-row", err)
	}

	v.Severity = model.Severity(severity)
	v.Status = model.ViolationStatus(status)
	v.DetectionMethod = model.DetectionMethod(method)
	v.DetectedAt, _ = parseRFC3339(detectedAt)
	if confidence.Valid {
		c := int(confidence.Int64)
		v.ConfidenceScore = &c
	}
	v.LLMReasoning = llmReasoning.String
	v.RegexReasoning = regexReasoning.String
	v.FunctionName = functionName.String
	v.ClassName = className.String
	return &v, nil
}

func nullableInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}
