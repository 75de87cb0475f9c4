package store

import (
	"path/filepath"
	"testing"
)

// NewTemp opens a fresh Store backed by a temp-dir SQLite file, closed
// automatically via t.Cleanup. Intended for package tests across the
// scanner that need a real, migrated, isolated database.
func NewTemp(t testing.TB) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := New(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("store.NewTemp: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}
