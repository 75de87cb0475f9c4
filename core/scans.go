package core

import (
	"context"
	"fmt"
	"time"

	"github.com/c360studio/soc2scan/model"
)

// ScanProject runs a full scan for projectID and returns the finalized
// scan row. It blocks for the whole scan; callers that want progress
// events configure a Sink on Config before calling New.
func (c *Core) ScanProject(ctx context.Context, projectID string) (*model.Scan, error) {
	sc, err := c.orchestrator.Scan(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("core: scan project: %w", err)
	}
	return sc, nil
}

// GetScanProgress returns the scan row with its current severity counts.
func (c *Core) GetScanProgress(ctx context.Context, scanID string) (*model.Scan, error) {
	sc, err := c.store.GetScan(ctx, scanID)
	if err != nil {
		return nil, fmt.Errorf("core: get scan progress: %w", err)
	}
	counts, err := c.store.ComputeSeverityCounts(ctx, scanID)
	if err != nil {
		return nil, fmt.Errorf("core: compute severity counts: %w", err)
	}
	sc.CriticalCount, sc.HighCount, sc.MediumCount, sc.LowCount = counts.Critical, counts.High, counts.Medium, counts.Low
	sc.ViolationsFound = counts.Total
	return sc, nil
}

// GetScans lists every scan for a project.
func (c *Core) GetScans(ctx context.Context, projectID string) ([]model.Scan, error) {
	return c.store.ListScans(ctx, projectID)
}

// RespondToCostLimit forwards the user's continue/stop decision for a
// scan that is blocked on cost_limit_wait.
func (c *Core) RespondToCostLimit(scanID string, continueScan bool) error {
	if err := c.orchestrator.Respond(scanID, continueScan); err != nil {
		return fmt.Errorf("core: respond to cost limit: %w", err)
	}
	return nil
}

// TimeRange is the small enum spec.md §6 serializes as "24h"|"7d"|"30d"|"all".
type TimeRange string

const (
	TimeRange24h TimeRange = "24h"
	TimeRange7d  TimeRange = "7d"
	TimeRange30d TimeRange = "30d"
	TimeRangeAll TimeRange = "all"
)

// since returns the cutoff time for r relative to now, and whether r is
// unbounded ("all").
func (r TimeRange) since(now time.Time) (cutoff time.Time, unbounded bool) {
	switch r {
	case TimeRange24h:
		return now.Add(-24 * time.Hour), false
	case TimeRange7d:
		return now.Add(-7 * 24 * time.Hour), false
	case TimeRange30d:
		return now.Add(-30 * 24 * time.Hour), false
	default:
		return time.Time{}, true
	}
}
