package fixengine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/c360studio/soc2scan/audit"
	"github.com/c360studio/soc2scan/llmclient"
	"github.com/c360studio/soc2scan/model"
	"github.com/c360studio/soc2scan/pathsafety"
	"github.com/c360studio/soc2scan/ratelimit"
)

// AppliedBy is stamped on every fix this process applies, matching the
// original's default applied_by value.
const AppliedBy = "ryn-ai"

// backupDirName is the sibling directory fix application writes
// timestamped backups into, per spec.md §4.8 and §6.
const backupDirName = ".ryn-backups"

// llmGenerator is the subset of *llmclient.Client this package needs.
type llmGenerator interface {
	GenerateFix(ctx context.Context, req llmclient.FixRequest) (*llmclient.FixResult, error)
}

// explanations gives a one-line, control-specific rationale for a
// generated fix, since the LLM prompt asks only for replacement code.
var explanations = map[string]string{
	"CC6.1": "Adds the missing authentication/authorization check flagged for this access control boundary.",
	"CC6.7": "Removes or protects the flagged secret so credentials are no longer exposed in source.",
	"CC7.2": "Adds the missing audit logging call for this security-relevant operation.",
	"A1.2":  "Adds the missing error handling, timeout, or retry logic flagged for this external call or database operation.",
}

func explanationFor(controlID string) string {
	if e, ok := explanations[controlID]; ok {
		return e
	}
	return "Applies a minimal fix for the flagged compliance violation."
}

// storeDeps is the subset of *store.Store the engine needs, kept narrow
// for testability.
type storeDeps interface {
	GetViolation(ctx context.Context, id string) (*model.Violation, error)
	GetScan(ctx context.Context, id string) (*model.Scan, error)
	GetProject(ctx context.Context, id string) (*model.Project, error)
	CreateFix(ctx context.Context, f *model.Fix) error
	GetFix(ctx context.Context, id string) (*model.Fix, error)
	MarkFixApplied(ctx context.Context, id, appliedBy, backupPath string) error
	ClearFixApplied(ctx context.Context, id string) error
	SetViolationStatus(ctx context.Context, id string, status model.ViolationStatus) error
}

// Engine generates and applies fixes, the stateful wrapper around
// ApplyFixToContent grounded on fix_applicator.rs's apply/backup/restore
// trio.
type Engine struct {
	store   storeDeps
	llm     llmGenerator
	limiter *ratelimit.Limiter
	audit   *audit.Recorder
}

// New constructs an Engine. limiter and rec may be nil in tests that
// don't exercise rate limiting or audit recording.
func New(store storeDeps, llm llmGenerator, limiter *ratelimit.Limiter, rec *audit.Recorder) *Engine {
	return &Engine{store: store, llm: llm, limiter: limiter, audit: rec}
}

// Generate produces a proposed fix for violationID: reads the violation,
// its scan, and its project, validates the file path stays within the
// project root, checks the rate limiter, asks the LLM for a replacement,
// and persists a Fix with trust_level=review.
func (e *Engine) Generate(ctx context.Context, violationID string) (*model.Fix, error) {
	v, err := e.store.GetViolation(ctx, violationID)
	if err != nil {
		return nil, fmt.Errorf("generate fix: %w", err)
	}
	sc, err := e.store.GetScan(ctx, v.ScanID)
	if err != nil {
		return nil, fmt.Errorf("generate fix: %w", err)
	}
	p, err := e.store.GetProject(ctx, sc.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("generate fix: %w", err)
	}

	absPath, err := pathsafety.EnsureWithin(p.Path, v.FilePath)
	if err != nil {
		return nil, fmt.Errorf("generate fix: %w", err)
	}
	if _, err := os.ReadFile(absPath); err != nil {
		return nil, fmt.Errorf("generate fix: read %s: %w", absPath, err)
	}

	if e.limiter != nil {
		if err := e.limiter.Allow(); err != nil {
			return nil, err
		}
	}

	res, err := e.llm.GenerateFix(ctx, llmclient.FixRequest{
		Violation: *v,
		Framework: p.Framework,
	})
	if err != nil {
		return nil, fmt.Errorf("generate fix: %w", err)
	}

	fix := &model.Fix{
		ViolationID:  v.ID,
		OriginalCode: v.CodeSnippet,
		FixedCode:    res.FixedCode,
		Explanation:  explanationFor(v.ControlID),
		TrustLevel:   model.TrustReview,
	}
	if err := e.store.CreateFix(ctx, fix); err != nil {
		return nil, fmt.Errorf("generate fix: %w", err)
	}
	if e.audit != nil {
		_ = e.audit.FixGenerated(ctx, v.ID, fix.ID, fmt.Sprintf("fix generated for %s at %s:%d", v.ControlID, v.FilePath, v.LineNumber))
	}
	return fix, nil
}

// Apply writes fixID's fixed code to disk: reads the target file, runs
// ApplyFixToContent, writes a timestamped backup, writes the new
// contents, stamps the fix as applied, marks the violation fixed, and
// records an audit event.
func (e *Engine) Apply(ctx context.Context, fixID string) (*model.Fix, error) {
	fix, err := e.store.GetFix(ctx, fixID)
	if err != nil {
		return nil, fmt.Errorf("apply fix: %w", err)
	}
	v, err := e.store.GetViolation(ctx, fix.ViolationID)
	if err != nil {
		return nil, fmt.Errorf("apply fix: %w", err)
	}
	sc, err := e.store.GetScan(ctx, v.ScanID)
	if err != nil {
		return nil, fmt.Errorf("apply fix: %w", err)
	}
	p, err := e.store.GetProject(ctx, sc.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("apply fix: %w", err)
	}

	absPath, err := pathsafety.EnsureWithin(p.Path, v.FilePath)
	if err != nil {
		return nil, fmt.Errorf("apply fix: %w", err)
	}
	original, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("apply fix: read %s: %w", absPath, err)
	}

	updated, err := ApplyFixToContent(string(original), v.LineNumber, fix.OriginalCode, fix.FixedCode)
	if err != nil {
		return nil, fmt.Errorf("apply fix: %w", err)
	}

	backupPath, err := writeBackup(p.Path, absPath, original)
	if err != nil {
		return nil, fmt.Errorf("apply fix: backup: %w", err)
	}
	if err := os.WriteFile(absPath, []byte(updated), 0o644); err != nil {
		return nil, fmt.Errorf("apply fix: write %s: %w", absPath, err)
	}

	if err := e.store.MarkFixApplied(ctx, fix.ID, AppliedBy, backupPath); err != nil {
		return nil, fmt.Errorf("apply fix: %w", err)
	}
	if err := e.store.SetViolationStatus(ctx, v.ID, model.ViolationStatusFixed); err != nil {
		return nil, fmt.Errorf("apply fix: %w", err)
	}

	applied, err := e.store.GetFix(ctx, fix.ID)
	if err != nil {
		return nil, fmt.Errorf("apply fix: %w", err)
	}
	if e.audit != nil {
		_ = e.audit.FixApplied(ctx, v.ID, fix.ID, fmt.Sprintf("fix applied to %s, backup at %s", v.FilePath, backupPath))
	}
	return applied, nil
}

// Restore reverses a previously applied fix: copies the backup back over
// the live file, removes the backup, clears the applied stamp on the
// fix, and reopens the violation.
func (e *Engine) Restore(ctx context.Context, fixID string) error {
	fix, err := e.store.GetFix(ctx, fixID)
	if err != nil {
		return fmt.Errorf("restore fix: %w", err)
	}
	if fix.BackupPath == "" {
		return fmt.Errorf("restore fix: fix %s has no backup", fixID)
	}
	v, err := e.store.GetViolation(ctx, fix.ViolationID)
	if err != nil {
		return fmt.Errorf("restore fix: %w", err)
	}
	sc, err := e.store.GetScan(ctx, v.ScanID)
	if err != nil {
		return fmt.Errorf("restore fix: %w", err)
	}
	p, err := e.store.GetProject(ctx, sc.ProjectID)
	if err != nil {
		return fmt.Errorf("restore fix: %w", err)
	}

	absPath, err := pathsafety.EnsureWithin(p.Path, v.FilePath)
	if err != nil {
		return fmt.Errorf("restore fix: %w", err)
	}
	backup, err := os.ReadFile(fix.BackupPath)
	if err != nil {
		return fmt.Errorf("restore fix: read backup %s: %w", fix.BackupPath, err)
	}
	if err := os.WriteFile(absPath, backup, 0o644); err != nil {
		return fmt.Errorf("restore fix: write %s: %w", absPath, err)
	}
	if err := os.Remove(fix.BackupPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("restore fix: remove backup %s: %w", fix.BackupPath, err)
	}

	if err := e.store.ClearFixApplied(ctx, fix.ID); err != nil {
		return fmt.Errorf("restore fix: %w", err)
	}
	if err := e.store.SetViolationStatus(ctx, v.ID, model.ViolationStatusOpen); err != nil {
		return fmt.Errorf("restore fix: %w", err)
	}
	if e.audit != nil {
		_ = e.audit.Record(ctx, audit.Event{
			Type:        model.EventFixApplied,
			ViolationID: v.ID,
			FixID:       fix.ID,
			Description: fmt.Sprintf("fix restored from backup for %s", v.FilePath),
		})
	}
	return nil
}

// writeBackup writes original under <projectRoot>/.ryn-backups/<basename>_<YYYYMMDD_HHMMSS>
// and returns the backup's absolute path.
func writeBackup(projectRoot, targetPath string, original []byte) (string, error) {
	dir := filepath.Join(projectRoot, backupDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	stamp := time.Now().UTC().Format("20060102_150405")
	base := filepath.Base(targetPath)
	backupPath := filepath.Join(dir, fmt.Sprintf("%s_%s", base, stamp))
	if err := os.WriteFile(backupPath, original, 0o644); err != nil {
		return "", err
	}
	return backupPath, nil
}
