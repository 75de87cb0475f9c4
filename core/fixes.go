package core

import (
	"context"
	"fmt"

	"github.com/c360studio/soc2scan/model"
)

// GenerateFix asks the LLM for a proposed fix for violationID and
// persists it at TrustReview.
func (c *Core) GenerateFix(ctx context.Context, violationID string) (*model.Fix, error) {
	fx, err := c.fixes.Generate(ctx, violationID)
	if err != nil {
		return nil, fmt.Errorf("core: generate fix: %w", err)
	}
	return fx, nil
}

// ApplyFix writes fixID's proposed replacement into the live file,
// backing up the original first, and returns a confirmation string per
// spec.md §6.
func (c *Core) ApplyFix(ctx context.Context, fixID string) (string, error) {
	fx, err := c.fixes.Apply(ctx, fixID)
	if err != nil {
		return "", fmt.Errorf("core: apply fix: %w", err)
	}
	return fmt.Sprintf("fix %s applied, backup at %s", fx.ID, fx.BackupPath), nil
}

// RestoreFix reverts a previously applied fix from its backup.
func (c *Core) RestoreFix(ctx context.Context, fixID string) error {
	if err := c.fixes.Restore(ctx, fixID); err != nil {
		return fmt.Errorf("core: restore fix: %w", err)
	}
	return nil
}
