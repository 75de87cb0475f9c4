package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/c360studio/soc2scan/model"
)

// RecordScanCost appends a cost accounting row for one LLM call (one
// file); the orchestrator sums these rows after every chunk to check the
// cost limit.
func (s *Store) RecordScanCost(ctx context.Context, c *model.ScanCost) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c.ID = uuid.New().String()
	c.CreatedAt = nowUTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scan_costs (id, scan_id, files_analyzed_with_llm, input_tokens, output_tokens,
		 cache_read_tokens, cache_write_tokens, total_cost_usd, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.ScanID, c.FilesAnalyzedWithLLM, c.InputTokens, c.OutputTokens,
		c.CacheReadTokens, c.CacheWriteTokens, c.TotalCostUSD, rfc3339(c.CreatedAt))
	return classifyExecError("record-scan-cost", err)
}

// TotalCostForScan sums every scan_costs row recorded so far for scanID,
// the running total the orchestrator compares against the configured
// cost limit after each LLM chunk.
func (s *Store) TotalCostForScan(ctx context.Context, scanID string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total float64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(total_cost_usd), 0) FROM scan_costs WHERE scan_id = ?`, scanID).Scan(&total)
	return total, classifyExecError("total-cost-for-scan", err)
}

// SelectScanCostsSince returns every scan_costs row created at or after
// since, the query backing the get_scan_costs analytics IPC operation's
// time-range filter.
func (s *Store) SelectScanCostsSince(ctx context.Context, since time.Time) ([]model.ScanCost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, scan_id, files_analyzed_with_llm, input_tokens, output_tokens, cache_read_tokens,
		 cache_write_tokens, total_cost_usd, created_at FROM scan_costs WHERE created_at >= ? ORDER BY created_at`,
		rfc3339(since))
	if err != nil {
		return nil, classifyExecError("select-scan-costs-since", err)
	}
	defer rows.Close()

	var out []model.ScanCost
	for rows.Next() {
		var c model.ScanCost
		var createdAt string
		if err := rows.Scan(&c.ID, &c.ScanID, &c.FilesAnalyzedWithLLM, &c.InputTokens, &c.OutputTokens,
			&c.CacheReadTokens, &c.CacheWriteTokens, &c.TotalCostUSD, &createdAt); err != nil {
			return nil, classifyExecError("select-scan-costs-since:scan", err)
		}
		c.CreatedAt, _ = parseRFC3339(createdAt)
		out = append(out, c)
	}
	return out, classifyExecError("select-scan-costs-since:rows", rows.Err())
}
