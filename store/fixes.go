package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/c360studio/soc2scan/model"
	"github.com/c360studio/soc2scan/soc2err"
)

// CreateFix inserts a newly generated, unapplied fix.
func (s *Store) CreateFix(ctx context.Context, f *model.Fix) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f.ID = uuid.New().String()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO fixes (id, violation_id, original_code, fixed_code, explanation, trust_level)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		f.ID, f.ViolationID, f.OriginalCode, f.FixedCode, f.Explanation, string(f.TrustLevel))
	return classifyExecError("create-fix", err)
}

// GetFix retrieves a fix by id.
func (s *Store) GetFix(ctx context.Context, id string) (*model.Fix, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRowContext(ctx, fixSelect+` WHERE id = ?`, id)
	return scanFixRow(row)
}

// ListFixesForViolation returns every fix proposed for a violation,
// newest-generated last (insertion order, since fixes have no own
// timestamp column beyond applied_at).
func (s *Store) ListFixesForViolation(ctx context.Context, violationID string) ([]model.Fix, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, fixSelect+` WHERE violation_id = ? ORDER BY rowid`, violationID)
	if err != nil {
		return nil, classifyExecError("list-fixes", err)
	}
	defer rows.Close()

	var out []model.Fix
	for rows.Next() {
		f, err := scanFixRow(rows)
		if err != nil {
			return nil, classifyExecError("list-fixes:scan", err)
		}
		out = append(out, *f)
	}
	return out, classifyExecError("list-fixes:rows", rows.Err())
}

// MarkFixApplied stamps applied_at, applied_by, and backup_path on an
// already-generated fix.
func (s *Store) MarkFixApplied(ctx context.Context, id, appliedBy, backupPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE fixes SET applied_at = ?, applied_by = ?, backup_path = ? WHERE id = ?`,
		rfc3339(nowUTC()), appliedBy, backupPath, id)
	if err != nil {
		return classifyExecError("mark-fix-applied", err)
	}
	return checkAffected(res, "mark-fix-applied")
}

// ClearFixApplied reverses MarkFixApplied, used by Restore after a
// successful backup rollback.
func (s *Store) ClearFixApplied(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE fixes SET applied_at = NULL, applied_by = NULL, backup_path = NULL WHERE id = ?`, id)
	if err != nil {
		return classifyExecError("clear-fix-applied", err)
	}
	return checkAffected(res, "clear-fix-applied")
}

const fixSelect = `SELECT id, violation_id, original_code, fixed_code, explanation, trust_level,
	applied_at, applied_by, backup_path FROM fixes`

func scanFixRow(row rowScanner) (*model.Fix, error) {
	var f model.Fix
	var trustLevel string
	var appliedAt, appliedBy, backupPath sql.NullString

	err := row.Scan(&f.ID, &f.ViolationID, &f.OriginalCode, &f.FixedCode, &f.Explanation, &trustLevel,
		&appliedAt, &appliedBy, &backupPath)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, soc2err.ErrNotFound
	}
	if err != nil {
		return nil, classifyExecError("scan-fix-row", err)
	}

	f.TrustLevel = model.TrustLevel(trustLevel)
	if appliedAt.Valid {
		t, _ := parseRFC3339(appliedAt.String)
		f.AppliedAt = &t
	}
	f.AppliedBy = appliedBy.String
	f.BackupPath = backupPath.String
	return &f, nil
}
