package core

import (
	"context"
	"fmt"
	"sort"

	"github.com/c360studio/soc2scan/model"
)

// ViolationFilters narrows get_violations results. A zero value matches
// everything.
type ViolationFilters struct {
	Status   model.ViolationStatus
	Severity model.Severity
}

func (f ViolationFilters) matches(v model.Violation) bool {
	if f.Status != "" && v.Status != f.Status {
		return false
	}
	if f.Severity != "" && v.Severity != f.Severity {
		return false
	}
	return true
}

var severityRank = map[model.Severity]int{
	model.SeverityCritical: 0,
	model.SeverityHigh:     1,
	model.SeverityMedium:   2,
	model.SeverityLow:      3,
}

// GetViolations returns scanID's violations matching filters, sorted by
// severity (critical first) then by line number, per spec.md §6.
func (c *Core) GetViolations(ctx context.Context, scanID string, filters ViolationFilters) ([]model.Violation, error) {
	all, err := c.store.ListViolations(ctx, scanID)
	if err != nil {
		return nil, fmt.Errorf("core: get violations: %w", err)
	}

	out := all[:0:0]
	for _, v := range all {
		if filters.matches(v) {
			out = append(out, v)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := severityRank[out[i].Severity], severityRank[out[j].Severity]
		if ri != rj {
			return ri < rj
		}
		return out[i].LineNumber < out[j].LineNumber
	})
	return out, nil
}

// ViolationDetail bundles a violation with its control, most recent fix,
// and owning scan, matching spec.md §6's get_violation result shape.
type ViolationDetail struct {
	Violation model.Violation
	Control   *model.Control
	Fix       *model.Fix
	Scan      *model.Scan
}

// GetViolation assembles a ViolationDetail for violationID.
func (c *Core) GetViolation(ctx context.Context, violationID string) (*ViolationDetail, error) {
	v, err := c.store.GetViolation(ctx, violationID)
	if err != nil {
		return nil, fmt.Errorf("core: get violation: %w", err)
	}

	detail := &ViolationDetail{Violation: *v}

	if controls, err := c.store.ListControls(ctx); err == nil {
		for i := range controls {
			if controls[i].ID == v.ControlID {
				detail.Control = &controls[i]
				break
			}
		}
	}

	if fixes, err := c.store.ListFixesForViolation(ctx, violationID); err == nil && len(fixes) > 0 {
		detail.Fix = &fixes[len(fixes)-1]
	}

	if sc, err := c.store.GetScan(ctx, v.ScanID); err == nil {
		detail.Scan = sc
	}

	return detail, nil
}

// DismissViolation marks a violation dismissed and records the audit
// trail entry.
func (c *Core) DismissViolation(ctx context.Context, violationID string) error {
	if err := c.store.SetViolationStatus(ctx, violationID, model.ViolationStatusDismissed); err != nil {
		return fmt.Errorf("core: dismiss violation: %w", err)
	}
	_ = c.audit.ViolationDismissed(ctx, violationID, "violation dismissed")
	return nil
}
