package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/c360studio/soc2scan/model"
	"github.com/c360studio/soc2scan/soc2err"
)

// GetSetting retrieves a single setting by key.
func (s *Store) GetSetting(ctx context.Context, key string) (*model.Setting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var value, updatedAt string
	err := s.db.QueryRowContext(ctx, `SELECT value, updated_at FROM settings WHERE key = ?`, key).
		Scan(&value, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, soc2err.ErrNotFound
	}
	if err != nil {
		return nil, classifyExecError("get-setting", err)
	}
	t, _ := parseRFC3339(updatedAt)
	return &model.Setting{Key: key, Value: value, UpdatedAt: t}, nil
}

// ListSettings returns every stored setting.
func (s *Store) ListSettings(ctx context.Context) ([]model.Setting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `SELECT key, value, updated_at FROM settings ORDER BY key`)
	if err != nil {
		return nil, classifyExecError("list-settings", err)
	}
	defer rows.Close()

	var out []model.Setting
	for rows.Next() {
		var st model.Setting
		var updatedAt string
		if err := rows.Scan(&st.Key, &st.Value, &updatedAt); err != nil {
			return nil, classifyExecError("list-settings:scan", err)
		}
		st.UpdatedAt, _ = parseRFC3339(updatedAt)
		out = append(out, st)
	}
	return out, classifyExecError("list-settings:rows", rows.Err())
}

// UpsertSetting writes a setting, creating or overwriting the existing
// key, and stamps updated_at.
func (s *Store) UpsertSetting(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, rfc3339(nowUTC()))
	return classifyExecError("upsert-setting", err)
}

// ClearDatabase deletes every row from every entity table except the
// control catalog and the migration tracking table, the operation behind
// the clear_database IPC call. Controls are reseeded from the static
// catalog, not from user data, so they're left untouched.
func (s *Store) ClearDatabase(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return soc2err.NewStorageError(soc2err.StorageIO, "clear-database:begin", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"audit_events", "fixes", "violations", "scan_costs", "scans", "settings", "projects"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return soc2err.NewStorageError(soc2err.StorageIO, "clear-database:"+table, err)
		}
	}
	return wrapCommit(tx, "clear-database:commit")
}
