// Package store persists the scanner's entities in an embedded SQLite
// database, the way rpm/sqlite.Open opens a single on-disk file through
// modernc.org/sqlite and wraps it in a typed handle. Unlike that
// read-only handle, this Store serializes all access behind a mutex and
// a single connection, since SQLite's single-writer model makes a
// connection pool pure overhead for an embedded desktop-scale database.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"net/url"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/c360studio/soc2scan/catalog"
	"github.com/c360studio/soc2scan/soc2err"
)

//go:embed sql/schema.sql
var schemaSQL string

// schemaVersion is bumped whenever sql/schema.sql changes in a way existing
// databases need migrating for. migrate is idempotent: running it against
// an up-to-date database is a no-op.
const schemaVersion = 1

// Store is a serialized handle to the scanner's SQLite database. The zero
// value is not usable; construct with New or NewTemp.
type Store struct {
	db     *sql.DB
	mu     sync.Mutex
	logger logger
}

// logger is the minimal subset of *slog.Logger the store needs, kept
// narrow so tests can supply a no-op implementation without importing
// log/slog's full surface.
type logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for migration diagnostics.
func WithLogger(l logger) Option {
	return func(s *Store) { s.logger = l }
}

// New opens (creating if necessary) the SQLite database at path, applies
// pending migrations, and seeds the SOC 2 control catalog. path must be a
// file path, matching modernc.org/sqlite's on-disk-only limitation.
func New(path string, opts ...Option) (*Store, error) {
	u := url.URL{
		Scheme: "file",
		Opaque: path,
		RawQuery: url.Values{
			"_pragma": {
				"foreign_keys(1)",
				"busy_timeout(5000)",
				"journal_mode(WAL)",
			},
		}.Encode(),
	}
	db, err := sql.Open("sqlite", u.String())
	if err != nil {
		return nil, soc2err.NewStorageError(soc2err.StorageIO, "open", err)
	}
	// A single connection turns SQLite's single-writer constraint into a
	// non-issue: every statement already runs through one physical
	// connection, so WAL mode and busy_timeout never have to arbitrate
	// between goroutines at the driver level.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, soc2err.NewStorageError(soc2err.StorageIO, "ping", err)
	}

	s := &Store{db: db, logger: noopLogger{}}
	for _, opt := range opts {
		opt(s)
	}

	ctx := context.Background()
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.seedControls(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate applies sql/schema.sql once, gated on schema_migrations holding
// schemaVersion, following the table-existence check in the original
// implementation's run_migrations but tracking an explicit version row
// instead of probing for a single well-known table, so future schema
// revisions have somewhere to record themselves.
func (s *Store) migrate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER NOT NULL PRIMARY KEY)`); err != nil {
		return soc2err.NewStorageError(soc2err.StorageIO, "migrate:create-tracking-table", err)
	}

	var current int
	row := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`)
	if err := row.Scan(&current); err != nil {
		return soc2err.NewStorageError(soc2err.StorageIO, "migrate:read-version", err)
	}
	if current >= schemaVersion {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return soc2err.NewStorageError(soc2err.StorageIO, "migrate:begin", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return soc2err.NewStorageError(soc2err.StorageIO, "migrate:apply-schema", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, schemaVersion); err != nil {
		return soc2err.NewStorageError(soc2err.StorageIO, "migrate:record-version", err)
	}
	if err := tx.Commit(); err != nil {
		return soc2err.NewStorageError(soc2err.StorageIO, "migrate:commit", err)
	}

	s.logger.Debug("applied schema migration", "version", schemaVersion)
	return nil
}

// seedControls inserts the static SOC 2 catalog if the controls table is
// empty, mirroring the original's count-then-insert idempotency check.
func (s *Store) seedControls(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM controls`).Scan(&count); err != nil {
		return soc2err.NewStorageError(soc2err.StorageIO, "seed-controls:count", err)
	}
	if count > 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return soc2err.NewStorageError(soc2err.StorageIO, "seed-controls:begin", err)
	}
	defer tx.Rollback()

	for _, c := range catalog.All() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO controls (id, name, description, requirement, category) VALUES (?, ?, ?, ?, ?)`,
			c.ID, c.Name, c.Description, c.Requirement, c.Category,
		); err != nil {
			return soc2err.NewStorageError(soc2err.StorageIO, fmt.Sprintf("seed-controls:insert:%s", c.ID), err)
		}
	}
	return wrapCommit(tx, "seed-controls:commit")
}

// wrapCommit commits tx, translating any failure into a StorageError
// tagged with op.
func wrapCommit(tx *sql.Tx, op string) error {
	if err := tx.Commit(); err != nil {
		return soc2err.NewStorageError(soc2err.StorageIO, op, err)
	}
	return nil
}

// classifyExecError maps a raw sqlite error into the appropriate
// StorageKind, distinguishing constraint violations (caller error, not
// retryable) from everything else.
func classifyExecError(op string, err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case containsAny(msg, "UNIQUE constraint", "FOREIGN KEY constraint", "CHECK constraint", "NOT NULL constraint"):
		return soc2err.NewStorageError(soc2err.StorageConstraint, op, err)
	case containsAny(msg, "database is locked", "busy"):
		return soc2err.NewStorageError(soc2err.StorageLock, op, err)
	default:
		return soc2err.NewStorageError(soc2err.StorageIO, op, err)
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if len(s) >= len(sub) && indexOf(s, sub) >= 0 {
			return true
		}
	}
	return false
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

// rfc3339 formats t the way the original models stamp created_at/
// updated_at columns, so timestamps sort lexicographically.
func rfc3339(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000000Z07:00")
}

func parseRFC3339(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
