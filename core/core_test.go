package core_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/soc2scan/core"
)

// newTestCore opens a Core against a temp database and points $HOME at a
// temp directory too, so ClearDatabase's backup step never touches the
// real user's home.
func newTestCore(t *testing.T) *core.Core {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)

	c, err := core.New(core.Config{DBPath: filepath.Join(dir, "soc2scan.db")})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestNewRequiresDBPath(t *testing.T) {
	_, err := core.New(core.Config{})
	require.Error(t, err)
}

func TestCreateProjectIsIdempotentByPath(t *testing.T) {
	c := newTestCore(t)
	ctx := context.Background()
	projectDir := t.TempDir()

	p1, err := c.CreateProject(ctx, core.CreateProjectRequest{Path: projectDir, Name: "demo"})
	require.NoError(t, err)
	assert.Equal(t, "demo", p1.Name)

	p2, err := c.CreateProject(ctx, core.CreateProjectRequest{Path: projectDir, Name: "renamed"})
	require.NoError(t, err)
	assert.Equal(t, p1.ID, p2.ID)
	assert.Equal(t, "demo", p2.Name, "second call should return the existing row, not rename it")

	projects, err := c.GetProjects(ctx)
	require.NoError(t, err)
	assert.Len(t, projects, 1)
}

func TestCreateProjectRejectsEmptyPath(t *testing.T) {
	c := newTestCore(t)
	_, err := c.CreateProject(context.Background(), core.CreateProjectRequest{})
	require.Error(t, err)
}

func TestCreateProjectRejectsSystemRoot(t *testing.T) {
	c := newTestCore(t)
	_, err := c.CreateProject(context.Background(), core.CreateProjectRequest{Path: "/"})
	require.Error(t, err)
}

func TestDetectFrameworkDoesNotRegisterProject(t *testing.T) {
	c := newTestCore(t)
	ctx := context.Background()
	projectDir := t.TempDir()

	_, err := c.DetectFramework(ctx, projectDir)
	require.NoError(t, err)

	projects, err := c.GetProjects(ctx)
	require.NoError(t, err)
	assert.Empty(t, projects)
}

func TestSettingsRoundTrip(t *testing.T) {
	c := newTestCore(t)
	ctx := context.Background()

	require.NoError(t, c.UpdateSettings(ctx, "llm_scan_mode", "smart"))
	settings, err := c.GetSettings(ctx)
	require.NoError(t, err)

	found := false
	for _, s := range settings {
		if s.Key == "llm_scan_mode" {
			found = true
			assert.Equal(t, "smart", s.Value)
		}
	}
	assert.True(t, found, "expected llm_scan_mode to be persisted")

	events, err := c.GetAuditEvents(ctx, "")
	require.NoError(t, err)
	require.NotEmpty(t, events)
	assert.Equal(t, "settings_updated", string(events[len(events)-1].EventType))
}

func TestUpdateSettingsRejectsEmptyKey(t *testing.T) {
	c := newTestCore(t)
	require.Error(t, c.UpdateSettings(context.Background(), "", "value"))
}

func TestClearDatabaseBacksUpBeforeClearing(t *testing.T) {
	c := newTestCore(t)
	ctx := context.Background()

	_, err := c.CreateProject(ctx, core.CreateProjectRequest{Path: t.TempDir(), Name: "demo"})
	require.NoError(t, err)

	backupPath, err := c.ClearDatabase(ctx)
	require.NoError(t, err)

	info, err := os.Stat(backupPath)
	require.NoError(t, err, "backup file should exist at the returned path")
	assert.Greater(t, info.Size(), int64(0))

	projects, err := c.GetProjects(ctx)
	require.NoError(t, err)
	assert.Empty(t, projects, "projects should be gone after clearing")
}

func TestCompleteOnboardingRecordsAuditEvent(t *testing.T) {
	c := newTestCore(t)
	ctx := context.Background()

	require.NoError(t, c.CompleteOnboarding(ctx))

	events, err := c.GetAuditEvents(ctx, "")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "onboarding_completed", string(events[0].EventType))
}

func TestGetScanCostsRejectsNothingForAllRange(t *testing.T) {
	c := newTestCore(t)
	costs, err := c.GetScanCosts(context.Background(), core.TimeRangeAll)
	require.NoError(t, err)
	assert.Empty(t, costs)
}

func TestExportDataIsEmptyForFreshDatabase(t *testing.T) {
	c := newTestCore(t)
	data, err := c.ExportData(context.Background())
	require.NoError(t, err)
	assert.Empty(t, data.Projects)
	assert.Empty(t, data.Scans)
	assert.Empty(t, data.Violations)
	assert.Empty(t, data.AuditLog)
}
