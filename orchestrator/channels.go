package orchestrator

import (
	"fmt"
	"sync"
)

// ResponseChannels holds one-shot decision channels keyed by scan id,
// grounded on ScanResponseChannels in
// original_source/src-tauri/src/commands/scan.rs: when a scan's LLM
// spend crosses the configured limit, a channel is registered here, a
// cost-limit-reached event is emitted, and the orchestrator blocks on
// the channel until a decision arrives (or it is dropped).
type ResponseChannels struct {
	mu       sync.Mutex
	channels map[string]chan bool
}

// NewResponseChannels constructs an empty channel map.
func NewResponseChannels() *ResponseChannels {
	return &ResponseChannels{channels: make(map[string]chan bool)}
}

// Create registers a new one-shot decision channel for scanID, replacing
// any existing one. The returned channel is closed by Respond after it
// delivers a decision, or by Cancel without one.
func (r *ResponseChannels) Create(scanID string) <-chan bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch := make(chan bool, 1)
	r.channels[scanID] = ch
	return ch
}

// Respond delivers continueScan to the pending channel for scanID and
// removes it. It returns an error if no channel is registered, mirroring
// respond_to_cost_limit's "no pending cost limit prompt" failure.
func (r *ResponseChannels) Respond(scanID string, continueScan bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch, ok := r.channels[scanID]
	if !ok {
		return fmt.Errorf("no pending cost limit prompt for scan %s", scanID)
	}
	delete(r.channels, scanID)
	ch <- continueScan
	close(ch)
	return nil
}

// Cancel removes scanID's pending channel without sending a decision,
// closing it so an in-flight receive observes a zero value immediately
// — the "dropping the receiver is equivalent to continue_scan=false"
// cancellation path.
func (r *ResponseChannels) Cancel(scanID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ch, ok := r.channels[scanID]; ok {
		delete(r.channels, scanID)
		close(ch)
	}
}
