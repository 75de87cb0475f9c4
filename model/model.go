// Package model defines the persisted entities of the compliance scanner:
// projects, scans, violations, fixes, audit events, controls, settings,
// and scan costs, plus their closed enum domains.
package model

import "time"

// Severity is the closed severity domain for a Violation.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Valid reports whether s is one of the closed Severity values.
func (s Severity) Valid() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
		return true
	}
	return false
}

// ScanStatus is the closed status domain for a Scan.
type ScanStatus string

const (
	ScanStatusRunning   ScanStatus = "running"
	ScanStatusCompleted ScanStatus = "completed"
	ScanStatusFailed    ScanStatus = "failed"
)

func (s ScanStatus) Valid() bool {
	switch s {
	case ScanStatusRunning, ScanStatusCompleted, ScanStatusFailed:
		return true
	}
	return false
}

// ScanMode selects how aggressively the hybrid selector admits files to
// LLM analysis.
type ScanMode string

const (
	ScanModeRegexOnly ScanMode = "regex_only"
	ScanModeSmart     ScanMode = "smart"
	ScanModeAnalyzeAll ScanMode = "analyze_all"
)

func (m ScanMode) Valid() bool {
	switch m {
	case ScanModeRegexOnly, ScanModeSmart, ScanModeAnalyzeAll:
		return true
	}
	return false
}

// ViolationStatus is the closed status domain for a Violation. Restoring
// a fix moves its violation from fixed back to open.
type ViolationStatus string

const (
	ViolationStatusOpen      ViolationStatus = "open"
	ViolationStatusFixed     ViolationStatus = "fixed"
	ViolationStatusDismissed ViolationStatus = "dismissed"
)

func (s ViolationStatus) Valid() bool {
	switch s {
	case ViolationStatusOpen, ViolationStatusFixed, ViolationStatusDismissed:
		return true
	}
	return false
}

// DetectionMethod records how a Violation was found.
type DetectionMethod string

const (
	DetectionRegex  DetectionMethod = "regex"
	DetectionLLM    DetectionMethod = "llm"
	DetectionHybrid DetectionMethod = "hybrid"
)

func (d DetectionMethod) Valid() bool {
	switch d {
	case DetectionRegex, DetectionLLM, DetectionHybrid:
		return true
	}
	return false
}

// TrustLevel describes how ready a Fix is for unattended application.
type TrustLevel string

const (
	TrustAuto   TrustLevel = "auto"
	TrustReview TrustLevel = "review"
	TrustManual TrustLevel = "manual"
)

func (t TrustLevel) Valid() bool {
	switch t {
	case TrustAuto, TrustReview, TrustManual:
		return true
	}
	return false
}

// AuditEventType is the closed, extensible set of audit event kinds.
type AuditEventType string

const (
	EventProjectCreated      AuditEventType = "project_created"
	EventScanCompleted       AuditEventType = "scan_completed"
	EventFixGenerated        AuditEventType = "fix_generated"
	EventFixApplied          AuditEventType = "fix_applied"
	EventViolationDismissed  AuditEventType = "violation_dismissed"
	EventSettingsUpdated     AuditEventType = "settings_updated"
	EventDatabaseCleared     AuditEventType = "database_cleared"
	EventOnboardingCompleted AuditEventType = "onboarding_completed"
)

// TimeRange is the closed enum of scan-cost analytics windows.
// core.GetScanCosts takes core.TimeRange, not this type.
type TimeRange string

const (
	TimeRange24h TimeRange = "24h"
	TimeRange7d  TimeRange = "7d"
	TimeRange30d TimeRange = "30d"
	TimeRangeAll TimeRange = "all"
)

func (t TimeRange) Valid() bool {
	switch t {
	case TimeRange24h, TimeRange7d, TimeRange30d, TimeRangeAll:
		return true
	}
	return false
}

// Since returns the lower time bound for the range, relative to now.
// TimeRangeAll returns the zero time.
func (t TimeRange) Since(now time.Time) time.Time {
	switch t {
	case TimeRange24h:
		return now.Add(-24 * time.Hour)
	case TimeRange7d:
		return now.Add(-7 * 24 * time.Hour)
	case TimeRange30d:
		return now.Add(-30 * 24 * time.Hour)
	default:
		return time.Time{}
	}
}

// Project is a scanned codebase root. Path uniquely identifies a project.
type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	Framework string    `json:"framework,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Scan is a single traversal of a Project.
type Scan struct {
	ID              string     `json:"id"`
	ProjectID       string     `json:"project_id"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	FilesScanned    int        `json:"files_scanned"`
	TotalFiles      int        `json:"total_files"`
	ViolationsFound int        `json:"violations_found"`
	Status          ScanStatus `json:"status"`
	ScanMode        ScanMode   `json:"scan_mode"`

	// Derived severity counts, recomputed at read time and stamped at
	// finalization. Never an independent source of truth.
	CriticalCount int `json:"critical_count"`
	HighCount     int `json:"high_count"`
	MediumCount   int `json:"medium_count"`
	LowCount      int `json:"low_count"`
}

// Violation is a single occurrence of a control being contradicted.
type Violation struct {
	ID              string          `json:"id"`
	ScanID          string          `json:"scan_id"`
	ControlID       string          `json:"control_id"`
	Severity        Severity        `json:"severity"`
	Description     string          `json:"description"`
	FilePath        string          `json:"file_path"`
	LineNumber      int             `json:"line_number"`
	CodeSnippet     string          `json:"code_snippet"`
	Status          ViolationStatus `json:"status"`
	DetectedAt      time.Time       `json:"detected_at"`
	DetectionMethod DetectionMethod `json:"detection_method"`
	ConfidenceScore *int            `json:"confidence_score,omitempty"`
	LLMReasoning    string          `json:"llm_reasoning,omitempty"`
	RegexReasoning  string          `json:"regex_reasoning,omitempty"`
	FunctionName    string          `json:"function_name,omitempty"`
	ClassName       string          `json:"class_name,omitempty"`
}

// Fix is a proposed replacement for a Violation's offending snippet.
type Fix struct {
	ID            string     `json:"id"`
	ViolationID   string     `json:"violation_id"`
	OriginalCode  string     `json:"original_code"`
	FixedCode     string     `json:"fixed_code"`
	Explanation   string     `json:"explanation"`
	TrustLevel    TrustLevel `json:"trust_level"`
	AppliedAt     *time.Time `json:"applied_at,omitempty"`
	AppliedBy     string     `json:"applied_by,omitempty"`
	BackupPath    string     `json:"backup_path,omitempty"`
}

// Applied reports whether the fix has been written to disk.
func (f *Fix) Applied() bool {
	return f.AppliedAt != nil
}

// AuditEvent is an append-only record of a significant state transition.
type AuditEvent struct {
	ID          string                 `json:"id"`
	EventType   AuditEventType         `json:"event_type"`
	ProjectID   string                 `json:"project_id,omitempty"`
	ViolationID string                 `json:"violation_id,omitempty"`
	FixID       string                 `json:"fix_id,omitempty"`
	Description string                 `json:"description"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
}

// Control is a static SOC 2 catalog entry.
type Control struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Requirement string `json:"requirement"`
	Category    string `json:"category"`
}

// Setting is a single string key/value configuration row.
type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ScanCost records LLM spend for one scan.
type ScanCost struct {
	ID                   string    `json:"id"`
	ScanID               string    `json:"scan_id"`
	FilesAnalyzedWithLLM int       `json:"files_analyzed_with_llm"`
	InputTokens          int64     `json:"input_tokens"`
	OutputTokens         int64     `json:"output_tokens"`
	CacheReadTokens      int64     `json:"cache_read_tokens"`
	CacheWriteTokens     int64     `json:"cache_write_tokens"`
	TotalCostUSD         float64   `json:"total_cost_usd"`
	CreatedAt            time.Time `json:"created_at"`
}
