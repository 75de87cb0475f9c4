package core_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/soc2scan/core"
	"github.com/c360studio/soc2scan/model"
)

const vulnerablePythonFile = `def handler(request):
    user_id = 12345
    return lookup(user_id)
`

func writeProjectFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestScanProjectRegexOnlyEndToEnd(t *testing.T) {
	c := newTestCore(t)
	ctx := context.Background()

	projectDir := t.TempDir()
	writeProjectFile(t, projectDir, "app/views.py", vulnerablePythonFile)

	p, err := c.CreateProject(ctx, core.CreateProjectRequest{Path: projectDir, Name: "demo"})
	require.NoError(t, err)
	require.NoError(t, c.UpdateSettings(ctx, "llm_scan_mode", string(model.ScanModeRegexOnly)))

	sc, err := c.ScanProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ScanStatusCompleted, sc.Status)
	assert.Equal(t, 1, sc.TotalFiles)
	assert.GreaterOrEqual(t, sc.ViolationsFound, 1)

	progress, err := c.GetScanProgress(ctx, sc.ID)
	require.NoError(t, err)
	assert.Equal(t, sc.ViolationsFound, progress.ViolationsFound)

	violations, err := c.GetViolations(ctx, sc.ID, core.ViolationFilters{})
	require.NoError(t, err)
	require.NotEmpty(t, violations)
	for _, v := range violations {
		assert.Equal(t, model.DetectionRegex, v.DetectionMethod)
		assert.Equal(t, model.ViolationStatusOpen, v.Status)
	}

	detail, err := c.GetViolation(ctx, violations[0].ID)
	require.NoError(t, err)
	assert.Equal(t, violations[0].ID, detail.Violation.ID)
	require.NotNil(t, detail.Scan)
	assert.Equal(t, sc.ID, detail.Scan.ID)
	assert.Nil(t, detail.Fix, "no fix has been generated yet")

	require.NoError(t, c.DismissViolation(ctx, violations[0].ID))
	dismissed, err := c.GetViolations(ctx, sc.ID, core.ViolationFilters{Status: model.ViolationStatusDismissed})
	require.NoError(t, err)
	assert.Len(t, dismissed, 1)
	assert.Equal(t, violations[0].ID, dismissed[0].ID)

	open, err := c.GetViolations(ctx, sc.ID, core.ViolationFilters{Status: model.ViolationStatusOpen})
	require.NoError(t, err)
	assert.Len(t, open, len(violations)-1)
}

func TestGetViolationsFiltersBySeverity(t *testing.T) {
	c := newTestCore(t)
	ctx := context.Background()

	projectDir := t.TempDir()
	writeProjectFile(t, projectDir, "app/views.py", vulnerablePythonFile)

	p, err := c.CreateProject(ctx, core.CreateProjectRequest{Path: projectDir, Name: "demo"})
	require.NoError(t, err)

	sc, err := c.ScanProject(ctx, p.ID)
	require.NoError(t, err)

	none, err := c.GetViolations(ctx, sc.ID, core.ViolationFilters{Severity: model.SeverityLow})
	require.NoError(t, err)
	assert.Empty(t, none, "the seeded file trips a High severity rule, never Low")
}

func TestScanProjectRejectsUnknownProject(t *testing.T) {
	c := newTestCore(t)
	_, err := c.ScanProject(context.Background(), "does-not-exist")
	require.Error(t, err)
}
