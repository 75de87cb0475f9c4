package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/soc2scan/model"
	"github.com/c360studio/soc2scan/store"
)

func TestNewSeedsControls(t *testing.T) {
	s := store.NewTemp(t)
	controls, err := s.ListControls(context.Background())
	require.NoError(t, err)
	require.Len(t, controls, 4)

	ids := make([]string, len(controls))
	for i, c := range controls {
		ids[i] = c.ID
	}
	assert.ElementsMatch(t, []string{"A1.2", "CC6.1", "CC6.7", "CC7.2"}, ids)
}

func TestNewIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/idempotent.db"

	s1, err := store.New(path)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := store.New(path)
	require.NoError(t, err)
	defer s2.Close()

	controls, err := s2.ListControls(context.Background())
	require.NoError(t, err)
	assert.Len(t, controls, 4)
}

func TestProjectLifecycle(t *testing.T) {
	s := store.NewTemp(t)
	ctx := context.Background()

	p := &model.Project{Name: "demo", Path: "/tmp/demo"}
	require.NoError(t, s.CreateProject(ctx, p))
	require.NotEmpty(t, p.ID)

	got, err := s.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "demo", got.Name)
	assert.Empty(t, got.Framework)

	require.NoError(t, s.SetProjectFramework(ctx, p.ID, "Django"))
	got, err = s.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Django", got.Framework)

	byPath, err := s.GetProjectByPath(ctx, "/tmp/demo")
	require.NoError(t, err)
	assert.Equal(t, p.ID, byPath.ID)

	all, err := s.ListProjects(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestScanAndViolationLifecycle(t *testing.T) {
	s := store.NewTemp(t)
	ctx := context.Background()

	p := &model.Project{Name: "demo", Path: "/tmp/demo2"}
	require.NoError(t, s.CreateProject(ctx, p))

	sc, err := s.CreateScan(ctx, p.ID, model.ScanModeSmart)
	require.NoError(t, err)
	assert.Equal(t, model.ScanStatusRunning, sc.Status)

	require.NoError(t, s.UpdateScanProgress(ctx, sc.ID, 5, 10))

	v := &model.Violation{
		ScanID:          sc.ID,
		ControlID:       "CC6.1",
		Severity:        model.SeverityHigh,
		Description:     "missing auth check",
		FilePath:        "app/views.py",
		LineNumber:      42,
		CodeSnippet:     "def get_user(id):",
		DetectionMethod: model.DetectionRegex,
	}
	require.NoError(t, s.CreateViolation(ctx, v))
	assert.Equal(t, model.ViolationStatusOpen, v.Status)

	exists, err := s.ExistsAt(ctx, sc.ID, "app/views.py", 42, "CC6.1")
	require.NoError(t, err)
	assert.True(t, exists)

	counts, err := s.ComputeSeverityCounts(ctx, sc.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, counts.High)
	assert.Equal(t, 1, counts.Total)

	require.NoError(t, s.FinalizeScan(ctx, sc.ID, model.ScanStatusCompleted, counts))
	final, err := s.GetScan(ctx, sc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ScanStatusCompleted, final.Status)
	assert.Equal(t, 1, final.HighCount)
	require.NotNil(t, final.CompletedAt)
}

func TestFailOrphanedScans(t *testing.T) {
	s := store.NewTemp(t)
	ctx := context.Background()

	p := &model.Project{Name: "demo", Path: "/tmp/demo3"}
	require.NoError(t, s.CreateProject(ctx, p))
	sc, err := s.CreateScan(ctx, p.ID, model.ScanModeRegexOnly)
	require.NoError(t, err)

	n, err := s.FailOrphanedScans(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := s.GetScan(ctx, sc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ScanStatusFailed, got.Status)
}

func TestSettingsUpsert(t *testing.T) {
	s := store.NewTemp(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertSetting(ctx, "scan_on_save", "true"))
	got, err := s.GetSetting(ctx, "scan_on_save")
	require.NoError(t, err)
	assert.Equal(t, "true", got.Value)

	require.NoError(t, s.UpsertSetting(ctx, "scan_on_save", "false"))
	got, err = s.GetSetting(ctx, "scan_on_save")
	require.NoError(t, err)
	assert.Equal(t, "false", got.Value)
}

func TestScanCostAccumulation(t *testing.T) {
	s := store.NewTemp(t)
	ctx := context.Background()

	p := &model.Project{Name: "demo", Path: "/tmp/demo4"}
	require.NoError(t, s.CreateProject(ctx, p))
	sc, err := s.CreateScan(ctx, p.ID, model.ScanModeSmart)
	require.NoError(t, err)

	require.NoError(t, s.RecordScanCost(ctx, &model.ScanCost{
		ScanID: sc.ID, FilesAnalyzedWithLLM: 1, InputTokens: 1000, OutputTokens: 200, TotalCostUSD: 0.002,
	}))
	require.NoError(t, s.RecordScanCost(ctx, &model.ScanCost{
		ScanID: sc.ID, FilesAnalyzedWithLLM: 1, InputTokens: 1000, OutputTokens: 200, TotalCostUSD: 0.002,
	}))

	total, err := s.TotalCostForScan(ctx, sc.ID)
	require.NoError(t, err)
	assert.InDelta(t, 0.004, total, 1e-9)
}

func TestForeignKeyEnforced(t *testing.T) {
	s := store.NewTemp(t)
	ctx := context.Background()

	err := s.CreateViolation(ctx, &model.Violation{
		ScanID:          "does-not-exist",
		ControlID:       "CC6.1",
		Severity:        model.SeverityHigh,
		Description:     "x",
		FilePath:        "x.py",
		LineNumber:      1,
		CodeSnippet:     "x",
		DetectionMethod: model.DetectionRegex,
	})
	assert.Error(t, err)
}
