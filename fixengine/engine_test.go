package fixengine_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/soc2scan/fixengine"
	"github.com/c360studio/soc2scan/llmclient"
	"github.com/c360studio/soc2scan/model"
)

type fakeStore struct {
	projects   map[string]*model.Project
	scans      map[string]*model.Scan
	violations map[string]*model.Violation
	fixes      map[string]*model.Fix
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		projects:   map[string]*model.Project{},
		scans:      map[string]*model.Scan{},
		violations: map[string]*model.Violation{},
		fixes:      map[string]*model.Fix{},
	}
}

func (f *fakeStore) GetViolation(ctx context.Context, id string) (*model.Violation, error) {
	v, ok := f.violations[id]
	if !ok {
		return nil, assert.AnError
	}
	cp := *v
	return &cp, nil
}

func (f *fakeStore) GetScan(ctx context.Context, id string) (*model.Scan, error) {
	s, ok := f.scans[id]
	if !ok {
		return nil, assert.AnError
	}
	cp := *s
	return &cp, nil
}

func (f *fakeStore) GetProject(ctx context.Context, id string) (*model.Project, error) {
	p, ok := f.projects[id]
	if !ok {
		return nil, assert.AnError
	}
	cp := *p
	return &cp, nil
}

func (f *fakeStore) CreateFix(ctx context.Context, fx *model.Fix) error {
	fx.ID = "fix-1"
	cp := *fx
	f.fixes[fx.ID] = &cp
	return nil
}

func (f *fakeStore) GetFix(ctx context.Context, id string) (*model.Fix, error) {
	fx, ok := f.fixes[id]
	if !ok {
		return nil, assert.AnError
	}
	cp := *fx
	return &cp, nil
}

func (f *fakeStore) MarkFixApplied(ctx context.Context, id, appliedBy, backupPath string) error {
	fx := f.fixes[id]
	fx.AppliedBy = appliedBy
	fx.BackupPath = backupPath
	now := time.Now().UTC()
	fx.AppliedAt = &now
	return nil
}

func (f *fakeStore) ClearFixApplied(ctx context.Context, id string) error {
	fx := f.fixes[id]
	fx.AppliedAt = nil
	fx.AppliedBy = ""
	fx.BackupPath = ""
	return nil
}

func (f *fakeStore) SetViolationStatus(ctx context.Context, id string, status model.ViolationStatus) error {
	f.violations[id].Status = status
	return nil
}

type fakeLLM struct {
	fixedCode string
}

func (l *fakeLLM) GenerateFix(ctx context.Context, req llmclient.FixRequest) (*llmclient.FixResult, error) {
	return &llmclient.FixResult{FixedCode: l.fixedCode}, nil
}

func setupScenario(t *testing.T, fileContent string) (*fakeStore, string, *model.Project, *model.Scan, *model.Violation) {
	t.Helper()
	dir := t.TempDir()
	filePath := "views.py"
	require.NoError(t, os.WriteFile(filepath.Join(dir, filePath), []byte(fileContent), 0o644))

	p := &model.Project{ID: "p1", Name: "demo", Path: dir}
	sc := &model.Scan{ID: "s1", ProjectID: p.ID, Status: model.ScanStatusRunning}
	v := &model.Violation{
		ID:          "v1",
		ScanID:      sc.ID,
		ControlID:   "CC6.1",
		Severity:    model.SeverityHigh,
		Description: "missing auth check",
		FilePath:    filePath,
		LineNumber:  2,
		CodeSnippet: "def get_user(id):",
		Status:      model.ViolationStatusOpen,
	}

	fs := newFakeStore()
	fs.projects[p.ID] = p
	fs.scans[sc.ID] = sc
	fs.violations[v.ID] = v

	return fs, dir, p, sc, v
}

func TestEngine_GenerateAndApply(t *testing.T) {
	content := "line1\ndef get_user(id):\n    return User.query.get(id)\nline4\n"
	fs, dir, _, _, v := setupScenario(t, content)

	eng := fixengine.New(fs, &fakeLLM{fixedCode: "def get_user(id):\n    check_auth()\n    return User.query.get(id)"}, nil, nil)

	fix, err := eng.Generate(context.Background(), v.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TrustReview, fix.TrustLevel)
	assert.Contains(t, fix.FixedCode, "check_auth")

	applied, err := eng.Apply(context.Background(), fix.ID)
	require.NoError(t, err)
	require.NotNil(t, applied.AppliedAt)
	assert.Equal(t, fixengine.AppliedBy, applied.AppliedBy)
	assert.NotEmpty(t, applied.BackupPath)

	newContent, err := os.ReadFile(filepath.Join(dir, v.FilePath))
	require.NoError(t, err)
	assert.Contains(t, string(newContent), "check_auth")

	backup, err := os.ReadFile(applied.BackupPath)
	require.NoError(t, err)
	assert.Equal(t, content, string(backup))

	assert.Equal(t, model.ViolationStatusFixed, fs.violations[v.ID].Status)

	require.NoError(t, eng.Restore(context.Background(), fix.ID))
	restored, err := os.ReadFile(filepath.Join(dir, v.FilePath))
	require.NoError(t, err)
	assert.Equal(t, content, string(restored))
	assert.Equal(t, model.ViolationStatusOpen, fs.violations[v.ID].Status)
	_, err = os.Stat(applied.BackupPath)
	assert.True(t, os.IsNotExist(err))
}

func TestEngine_GenerateRejectsPathEscape(t *testing.T) {
	fs, _, p, sc, v := setupScenario(t, "x\n")
	v.FilePath = "../../../etc/passwd"
	fs.violations[v.ID] = v
	fs.projects[p.ID] = p
	fs.scans[sc.ID] = sc

	eng := fixengine.New(fs, &fakeLLM{fixedCode: "y"}, nil, nil)
	_, err := eng.Generate(context.Background(), v.ID)
	require.Error(t, err)
}
