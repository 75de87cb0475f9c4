// Package audit builds and records the append-only trail of significant
// state transitions, grounded on utils/audit.rs's create_audit_event
// builder: construct the event value, then hand it to the store.
package audit

import (
	"context"

	"github.com/c360studio/soc2scan/model"
)

// recorder is the subset of *store.Store this package needs, kept narrow
// so callers can supply a stub in tests without depending on store.
type recorder interface {
	RecordAuditEvent(ctx context.Context, e *model.AuditEvent) error
}

// Recorder appends audit events through an underlying store.
type Recorder struct {
	store recorder
}

// New wraps store in a Recorder.
func New(store recorder) *Recorder {
	return &Recorder{store: store}
}

// Event builds an AuditEvent. The zero value's ID and CreatedAt are
// filled in by the store at insert time; callers only ever set the
// descriptive fields here.
type Event struct {
	Type        model.AuditEventType
	ProjectID   string
	ViolationID string
	FixID       string
	Description string
	Metadata    map[string]interface{}
}

// Record persists e.
func (r *Recorder) Record(ctx context.Context, e Event) error {
	return r.store.RecordAuditEvent(ctx, &model.AuditEvent{
		EventType:   e.Type,
		ProjectID:   e.ProjectID,
		ViolationID: e.ViolationID,
		FixID:       e.FixID,
		Description: e.Description,
		Metadata:    e.Metadata,
	})
}

// ProjectCreated records a project_created event.
func (r *Recorder) ProjectCreated(ctx context.Context, projectID, description string) error {
	return r.Record(ctx, Event{Type: model.EventProjectCreated, ProjectID: projectID, Description: description})
}

// ScanCompleted records a scan_completed event with the scan's final
// counters attached as metadata.
func (r *Recorder) ScanCompleted(ctx context.Context, projectID, description string, metadata map[string]interface{}) error {
	return r.Record(ctx, Event{Type: model.EventScanCompleted, ProjectID: projectID, Description: description, Metadata: metadata})
}

// FixGenerated records a fix_generated event.
func (r *Recorder) FixGenerated(ctx context.Context, violationID, fixID, description string) error {
	return r.Record(ctx, Event{Type: model.EventFixGenerated, ViolationID: violationID, FixID: fixID, Description: description})
}

// FixApplied records a fix_applied event.
func (r *Recorder) FixApplied(ctx context.Context, violationID, fixID, description string) error {
	return r.Record(ctx, Event{Type: model.EventFixApplied, ViolationID: violationID, FixID: fixID, Description: description})
}

// ViolationDismissed records a violation_dismissed event.
func (r *Recorder) ViolationDismissed(ctx context.Context, violationID, description string) error {
	return r.Record(ctx, Event{Type: model.EventViolationDismissed, ViolationID: violationID, Description: description})
}

// SettingsUpdated records a settings_updated event.
func (r *Recorder) SettingsUpdated(ctx context.Context, description string) error {
	return r.Record(ctx, Event{Type: model.EventSettingsUpdated, Description: description})
}

// DatabaseCleared records a database_cleared event.
func (r *Recorder) DatabaseCleared(ctx context.Context) error {
	return r.Record(ctx, Event{Type: model.EventDatabaseCleared, Description: "database cleared"})
}

// OnboardingCompleted records an onboarding_completed event.
func (r *Recorder) OnboardingCompleted(ctx context.Context) error {
	return r.Record(ctx, Event{Type: model.EventOnboardingCompleted, Description: "onboarding completed"})
}
