package core

import (
	"context"
	"fmt"
	"time"

	"github.com/c360studio/soc2scan/model"
)

// GetScanCosts returns every recorded LLM cost row since the start of r.
func (c *Core) GetScanCosts(ctx context.Context, r TimeRange) ([]model.ScanCost, error) {
	cutoff, unbounded := r.since(time.Now().UTC())
	if unbounded {
		cutoff = time.Unix(0, 0).UTC()
	}
	costs, err := c.store.SelectScanCostsSince(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("core: get scan costs: %w", err)
	}
	return costs, nil
}
