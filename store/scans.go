package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/c360studio/soc2scan/model"
	"github.com/c360studio/soc2scan/soc2err"
)

// CreateScan inserts a new running scan for projectID under the given
// mode, stamping id and started_at.
func (s *Store) CreateScan(ctx context.Context, projectID string, mode model.ScanMode) (*model.Scan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sc := &model.Scan{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		StartedAt: nowUTC(),
		Status:    model.ScanStatusRunning,
		ScanMode:  mode,
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scans (id, project_id, started_at, status, scan_mode) VALUES (?, ?, ?, ?, ?)`,
		sc.ID, sc.ProjectID, rfc3339(sc.StartedAt), string(sc.Status), string(sc.ScanMode))
	if err != nil {
		return nil, classifyExecError("create-scan", err)
	}
	return sc, nil
}

// GetScan retrieves a scan by id.
func (s *Store) GetScan(ctx context.Context, id string) (*model.Scan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRowContext(ctx, scanSelect+` WHERE id = ?`, id)
	return scanScanRow(row)
}

// ListScans returns every scan for a project, most recent first.
func (s *Store) ListScans(ctx context.Context, projectID string) ([]model.Scan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, scanSelect+` WHERE project_id = ? ORDER BY started_at DESC`, projectID)
	if err != nil {
		return nil, classifyExecError("list-scans", err)
	}
	defer rows.Close()

	var out []model.Scan
	for rows.Next() {
		sc, err := scanScanRow(rows)
		if err != nil {
			return nil, classifyExecError("list-scans:scan", err)
		}
		out = append(out, *sc)
	}
	return out, classifyExecError("list-scans:rows", rows.Err())
}

// UpdateScanProgress persists the files_scanned counter, the every-50-files
// checkpoint the orchestrator drives during its walk.
func (s *Store) UpdateScanProgress(ctx context.Context, id string, filesScanned, totalFiles int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE scans SET files_scanned = ?, total_files = ? WHERE id = ?`,
		filesScanned, totalFiles, id)
	if err != nil {
		return classifyExecError("update-scan-progress", err)
	}
	return checkAffected(res, "update-scan-progress")
}

// SeverityCounts is the breakdown of a scan's violation counts by
// severity, across every status, plus the total found.
type SeverityCounts struct {
	Critical, High, Medium, Low, Total int
}

// ComputeSeverityCounts tallies violations currently on record for scanID,
// the derived counts the Scan row caches at finalization time.
func (s *Store) ComputeSeverityCounts(ctx context.Context, scanID string) (SeverityCounts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT severity, COUNT(*) FROM violations WHERE scan_id = ? GROUP BY severity`, scanID)
	if err != nil {
		return SeverityCounts{}, classifyExecError("compute-severity-counts", err)
	}
	defer rows.Close()

	var counts SeverityCounts
	for rows.Next() {
		var sev string
		var n int
		if err := rows.Scan(&sev, &n); err != nil {
			return SeverityCounts{}, classifyExecError("compute-severity-counts:scan", err)
		}
		counts.Total += n
		switch model.Severity(sev) {
		case model.SeverityCritical:
			counts.Critical = n
		case model.SeverityHigh:
			counts.High = n
		case model.SeverityMedium:
			counts.Medium = n
		case model.SeverityLow:
			counts.Low = n
		}
	}
	return counts, classifyExecError("compute-severity-counts:rows", rows.Err())
}

// FinalizeScan stamps completed_at, status, and the derived severity
// counts on a scan in one statement.
func (s *Store) FinalizeScan(ctx context.Context, id string, status model.ScanStatus, counts SeverityCounts) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE scans SET completed_at = ?, status = ?, violations_found = ?,
		 critical_count = ?, high_count = ?, medium_count = ?, low_count = ? WHERE id = ?`,
		rfc3339(nowUTC()), string(status), counts.Total,
		counts.Critical, counts.High, counts.Medium, counts.Low, id)
	if err != nil {
		return classifyExecError("finalize-scan", err)
	}
	return checkAffected(res, "finalize-scan")
}

// FailOrphanedScans marks every scan still in status=running as failed.
// A start-up sweep calls this to recover scans whose process exited
// mid-walk without reaching finalization.
func (s *Store) FailOrphanedScans(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE scans SET status = ?, completed_at = ? WHERE status = ?`,
		string(model.ScanStatusFailed), rfc3339(nowUTC()), string(model.ScanStatusRunning))
	if err != nil {
		return 0, classifyExecError("fail-orphaned-scans", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, classifyExecError("fail-orphaned-scans:rows-affected", err)
	}
	return n, nil
}

const scanSelect = `SELECT id, project_id, started_at, completed_at, files_scanned, total_files,
	violations_found, status, scan_mode, critical_count, high_count, medium_count, low_count FROM scans`

func scanScanRow(row rowScanner) (*model.Scan, error) {
	var sc model.Scan
	var startedAt string
	var completedAt sql.NullString
	var status, mode string

	err := row.Scan(&sc.ID, &sc.ProjectID, &startedAt, &completedAt, &sc.FilesScanned, &sc.TotalFiles,
		&sc.ViolationsFound, &status, &mode, &sc.CriticalCount, &sc.HighCount, &sc.MediumCount, &sc.LowCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, soc2err.ErrNotFound
	}
	if err != nil {
		return nil, classifyExecError("scan-scan-row", err)
	}

	sc.StartedAt, _ = parseRFC3339(startedAt)
	if completedAt.Valid {
		t, _ := parseRFC3339(completedAt.String)
		sc.CompletedAt = &t
	}
	sc.Status = model.ScanStatus(status)
	sc.ScanMode = model.ScanMode(mode)
	return &sc, nil
}
