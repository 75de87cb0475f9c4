package store

import (
	"context"

	"github.com/c360studio/soc2scan/model"
)

// ListControls returns the seeded SOC 2 control catalog from the
// database, rather than catalog.All() directly, so callers observe
// whatever is actually on record (relevant if an operator ever edits the
// controls table by hand).
func (s *Store) ListControls(ctx context.Context) ([]model.Control, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, description, requirement, category FROM controls ORDER BY id`)
	if err != nil {
		return nil, classifyExecError("list-controls", err)
	}
	defer rows.Close()

	var out []model.Control
	for rows.Next() {
		var c model.Control
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.Requirement, &c.Category); err != nil {
			return nil, classifyExecError("list-controls:scan", err)
		}
		out = append(out, c)
	}
	return out, classifyExecError("list-controls:rows", rows.Err())
}
