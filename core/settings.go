package core

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/c360studio/soc2scan/model"
)

// backupDirName is where database backups land, grounded on
// original_source/.../commands/settings.rs's clear_database
// (~/.ryn/backups/db-backup-<ts>.sqlite).
const backupDirName = ".soc2scan/backups"

// GetSettings returns every stored setting.
func (c *Core) GetSettings(ctx context.Context) ([]model.Setting, error) {
	return c.store.ListSettings(ctx)
}

// UpdateSettings upserts key=value and records the audit trail entry.
func (c *Core) UpdateSettings(ctx context.Context, key, value string) error {
	if key == "" {
		return fmt.Errorf("core: update settings: key is required")
	}
	if err := c.store.UpsertSetting(ctx, key, value); err != nil {
		return fmt.Errorf("core: update settings: %w", err)
	}
	_ = c.audit.SettingsUpdated(ctx, fmt.Sprintf("updated setting: %s = %s", key, value))
	return nil
}

// ClearDatabase backs up the database file, then deletes every entity
// row, returning the backup path. The backup happens first and
// unconditionally, so a failure partway through the clear still leaves a
// pre-clear snapshot on disk.
func (c *Core) ClearDatabase(ctx context.Context) (string, error) {
	backupPath, err := c.backupDatabaseFile()
	if err != nil {
		return "", fmt.Errorf("core: clear database: backup: %w", err)
	}
	if err := c.store.ClearDatabase(ctx); err != nil {
		return "", fmt.Errorf("core: clear database: %w", err)
	}
	_ = c.audit.DatabaseCleared(ctx)
	return backupPath, nil
}

func (c *Core) backupDatabaseFile() (string, error) {
	if c.dbPath == "" {
		return "", fmt.Errorf("no database file configured")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determine home directory: %w", err)
	}
	dir := filepath.Join(home, backupDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create backup directory: %w", err)
	}

	stamp := time.Now().UTC().Format("20060102_150405")
	backupPath := filepath.Join(dir, fmt.Sprintf("db-backup-%s%s", stamp, filepath.Ext(c.dbPath)))

	src, err := os.Open(c.dbPath)
	if err != nil {
		return "", fmt.Errorf("open database file: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(backupPath)
	if err != nil {
		return "", fmt.Errorf("create backup file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("copy database file: %w", err)
	}
	return backupPath, nil
}

// ExportData is a single JSON-able document of every project, scan,
// violation and audit event, ids included, grounded on the
// aggregate-report shape in original_source/.../commands/analytics.rs.
// Fixes, settings, controls and scan costs are not exported.
type ExportData struct {
	Projects   []model.Project    `json:"projects"`
	Scans      []model.Scan       `json:"scans"`
	Violations []model.Violation  `json:"violations"`
	AuditLog   []model.AuditEvent `json:"audit_log"`
}

// ExportData assembles the full export document.
func (c *Core) ExportData(ctx context.Context) (*ExportData, error) {
	projects, err := c.store.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("core: export data: list projects: %w", err)
	}

	export := &ExportData{Projects: projects}
	for _, p := range projects {
		scans, err := c.store.ListScans(ctx, p.ID)
		if err != nil {
			return nil, fmt.Errorf("core: export data: list scans: %w", err)
		}
		export.Scans = append(export.Scans, scans...)
		for _, sc := range scans {
			violations, err := c.store.ListViolations(ctx, sc.ID)
			if err != nil {
				return nil, fmt.Errorf("core: export data: list violations: %w", err)
			}
			export.Violations = append(export.Violations, violations...)
		}
	}

	auditLog, err := c.store.ListAuditEvents(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("core: export data: list audit events: %w", err)
	}
	export.AuditLog = auditLog
	return export, nil
}

// CompleteOnboarding records the onboarding_completed audit event. There
// is no dedicated onboarding-state table: completion is a fact recorded
// once in the audit trail, not a flag a caller can un-set.
func (c *Core) CompleteOnboarding(ctx context.Context) error {
	if err := c.audit.OnboardingCompleted(ctx); err != nil {
		return fmt.Errorf("core: complete onboarding: %w", err)
	}
	return nil
}

// GetAuditEvents lists audit events, optionally scoped to a project.
func (c *Core) GetAuditEvents(ctx context.Context, projectID string) ([]model.AuditEvent, error) {
	events, err := c.store.ListAuditEvents(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("core: get audit events: %w", err)
	}
	return events, nil
}
