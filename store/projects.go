package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/c360studio/soc2scan/model"
	"github.com/c360studio/soc2scan/soc2err"
)

// CreateProject inserts a new project, stamping id and timestamps.
func (s *Store) CreateProject(ctx context.Context, p *model.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.ID = uuid.New().String()
	now := rfc3339(nowUTC())
	p.CreatedAt, p.UpdatedAt = nowUTC(), nowUTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO projects (id, name, path, framework, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Path, nullableString(p.Framework), now, now,
	)
	return classifyExecError("create-project", err)
}

// GetProject retrieves a project by id.
func (s *Store) GetProject(ctx context.Context, id string) (*model.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, path, framework, created_at, updated_at FROM projects WHERE id = ?`, id)
	return scanProject(row)
}

// GetProjectByPath retrieves a project by its unique filesystem path.
func (s *Store) GetProjectByPath(ctx context.Context, path string) (*model.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, path, framework, created_at, updated_at FROM projects WHERE path = ?`, path)
	return scanProject(row)
}

// ListProjects returns every project, most recently created first.
func (s *Store) ListProjects(ctx context.Context) ([]model.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, path, framework, created_at, updated_at FROM projects ORDER BY created_at DESC`)
	if err != nil {
		return nil, classifyExecError("list-projects", err)
	}
	defer rows.Close()

	var out []model.Project
	for rows.Next() {
		p, err := scanProjectRows(rows)
		if err != nil {
			return nil, classifyExecError("list-projects:scan", err)
		}
		out = append(out, *p)
	}
	return out, classifyExecError("list-projects:rows", rows.Err())
}

// SetProjectFramework persists the detected framework for a project.
func (s *Store) SetProjectFramework(ctx context.Context, id, framework string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE projects SET framework = ?, updated_at = ? WHERE id = ?`,
		nullableString(framework), rfc3339(nowUTC()), id)
	if err != nil {
		return classifyExecError("set-project-framework", err)
	}
	return checkAffected(res, "set-project-framework")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*model.Project, error) {
	var p model.Project
	var framework sql.NullString
	var createdAt, updatedAt string
	err := row.Scan(&p.ID, &p.Name, &p.Path, &framework, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, soc2err.ErrNotFound
	}
	if err != nil {
		return nil, classifyExecError("scan-project", err)
	}
	p.Framework = framework.String
	p.CreatedAt, _ = parseRFC3339(createdAt)
	p.UpdatedAt, _ = parseRFC3339(updatedAt)
	return &p, nil
}

func scanProjectRows(rows *sql.Rows) (*model.Project, error) {
	return scanProject(rows)
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func checkAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return classifyExecError(op, err)
	}
	if n == 0 {
		return soc2err.ErrNotFound
	}
	return nil
}
