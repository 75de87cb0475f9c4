// Package rules implements the four SOC 2 control rule engines: pure,
// line-oriented regex/heuristic scanners over source text. Each engine
// is grounded on the corresponding control module in the original
// implementation (rules/cc6_1_access_control.rs, cc6_7_secrets.rs,
// cc7_2_logging.rs, a1_2_resilience.rs) and reimplemented as small
// table-driven Go functions in the teacher's pure-function style
// (source/analyzer.go takes no I/O, returns a result or error).
package rules

import (
	"strings"
	"time"

	"github.com/c360studio/soc2scan/catalog"
	"github.com/c360studio/soc2scan/model"
	"github.com/google/uuid"
)

// Engine is the common shape of a single-control rule engine.
type Engine interface {
	ControlID() string
	Analyze(source, relativePath, scanID string) []model.Violation
}

// All returns one instance of each of the four control engines, in a
// stable order (CC6.1, CC6.7, CC7.2, A1.2) matching spec.md §4.4.
func All() []Engine {
	return []Engine{
		CC61{}, CC67{}, CC72{}, A12{},
	}
}

// newViolation fills the fields common to every regex-detected finding.
func newViolation(controlID string, severity model.Severity, description, relPath string, line int, snippet string) model.Violation {
	return model.Violation{
		ID:              uuid.New().String(),
		ControlID:       controlID,
		Severity:        severity,
		Description:     description,
		FilePath:        relPath,
		LineNumber:      line,
		CodeSnippet:     snippet,
		Status:          model.ViolationStatusOpen,
		DetectedAt:      time.Now().UTC(),
		DetectionMethod: model.DetectionRegex,
	}
}

// withScan stamps a ScanID onto a batch of violations built by
// newViolation, keeping individual detector functions free of the
// scanID plumbing.
func withScan(scanID string, vs []model.Violation) []model.Violation {
	for i := range vs {
		vs[i].ScanID = scanID
	}
	return vs
}

// isCommentLine reports whether the trimmed line starts with a line
// comment marker, per spec.md §4.4: "Line-comment lines (#, //) are
// always skipped as the first character of the trimmed line."
func isCommentLine(line string) bool {
	t := strings.TrimSpace(line)
	return strings.HasPrefix(t, "#") || strings.HasPrefix(t, "//")
}

// lines splits source into lines without the trailing newline, matching
// the line-by-line walk every engine performs.
func lines(source string) []string {
	return strings.Split(source, "\n")
}

// window returns up to n lines starting at (0-based) idx, inclusive,
// clipped to the slice bounds — the "small window of lookaround" named
// throughout spec.md §4.4.
func window(ls []string, idx, n int) []string {
	end := idx + n
	if end > len(ls) {
		end = len(ls)
	}
	if idx > end {
		return nil
	}
	return ls[idx:end]
}

func joinWindow(w []string) string {
	return strings.Join(w, "\n")
}

func containsAnyFold(s string, needles ...string) bool {
	lower := strings.ToLower(s)
	for _, n := range needles {
		if strings.Contains(lower, strings.ToLower(n)) {
			return true
		}
	}
	return false
}

// controlName returns the catalog name for a control id, or the id
// itself when the catalog has no such control. Nothing calls it.
func controlName(id string) string {
	if c, ok := catalog.Get(id); ok {
		return c.Name
	}
	return id
}
