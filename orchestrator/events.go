package orchestrator

// ProgressEvent mirrors spec.md §6's scan-progress payload, grounded on
// ScanProgressEvent in original_source/src-tauri/src/commands/scan.rs.
type ProgressEvent struct {
	ScanID          string `json:"scan_id"`
	FilesScanned    int    `json:"files_scanned"`
	TotalFiles      int    `json:"total_files"`
	ViolationsFound int    `json:"violations_found"`
	CurrentFile     string `json:"current_file"`
}

// CostLimitEvent mirrors spec.md §6's cost-limit-reached payload,
// grounded on CostLimitEvent in the same original source file.
type CostLimitEvent struct {
	ScanID         string  `json:"scan_id"`
	CurrentCostUSD float64 `json:"current_cost_usd"`
	LimitUSD       float64 `json:"limit_usd"`
	FilesAnalyzed  int     `json:"files_analyzed"`
	FilesRemaining int     `json:"files_remaining"`
}

// EventSink receives scan lifecycle events. CostLimitReached returns an
// error when the event could not be delivered (e.g. the IPC transport is
// gone); per spec.md §4.7 step 6, an emit failure stops LLM processing
// for the scan exactly like a continue_scan=false response, since there
// is no way to learn the user's decision once the channel to them is
// broken.
type EventSink interface {
	Progress(ProgressEvent)
	CostLimitReached(CostLimitEvent) error
}

// NoopSink discards every event, useful for tests and for library
// callers that don't need progress reporting.
type NoopSink struct{}

func (NoopSink) Progress(ProgressEvent) {}

func (NoopSink) CostLimitReached(CostLimitEvent) error { return nil }
