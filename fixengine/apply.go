// Package fixengine generates and applies AI-proposed fixes for
// violations. The pure splicing algorithm is grounded on the shape of
// fix_generator/fix_applicator.rs's apply/backup/restore trio, adapted
// from that implementation's whole-file overwrite into a byte-precise
// single-occurrence replacement so a fix only ever touches the lines it
// names.
package fixengine

import (
	"strings"

	"github.com/c360studio/soc2scan/soc2err"
)

// ApplyFixToContent is the pure core of fix application: locate original
// within content at (or nearest to) lineNumber and replace it with
// replacement, returning the new file content. It never touches disk.
//
//  1. lineNumber must be positive.
//  2. content must be non-empty.
//  3. Line-start byte offsets are computed once so any match can be
//     mapped back to the line it starts on.
//  4. Every non-overlapping byte occurrence of original in content is
//     found, advancing by at least 1 byte so a pathological empty
//     original can't loop forever.
//  5. Each occurrence's line span is derived from the newlines it
//     contains (span = newlines + 1).
//  6. The occurrence whose span covers lineNumber wins. If none covers
//     it but exactly one occurrence exists anywhere in the file, that
//     lone occurrence is used as a fallback, since a single unambiguous
//     match is still a safe edit even off its reported line. Two or
//     more occurrences with none covering lineNumber is ambiguous and
//     fails.
//  7. The winning occurrence's span is spliced out and replacement
//     spliced in.
func ApplyFixToContent(content string, lineNumber int, original, replacement string) (string, error) {
	if lineNumber <= 0 {
		return "", wrapFixLocation("line number must be positive")
	}
	if content == "" {
		return "", wrapFixLocation("file is empty")
	}

	lineStarts := computeLineStarts(content)

	matches := findAllOccurrences(content, original)
	if len(matches) == 0 {
		return "", wrapFixLocation("original snippet not found in file")
	}

	var chosen *occurrence
	for i := range matches {
		m := &matches[i]
		m.startLine = lineForOffset(lineStarts, m.start)
		m.endLine = m.startLine + strings.Count(original, "\n")
		if lineNumber >= m.startLine && lineNumber <= m.endLine {
			chosen = m
			break
		}
	}
	if chosen == nil {
		if len(matches) == 1 {
			chosen = &matches[0]
		} else {
			return "", wrapFixLocation("multiple occurrences of original snippet, none at the reported line")
		}
	}

	var b strings.Builder
	b.Grow(len(content) - len(original) + len(replacement))
	b.WriteString(content[:chosen.start])
	b.WriteString(replacement)
	b.WriteString(content[chosen.end:])
	return b.String(), nil
}

type occurrence struct {
	start, end         int
	startLine, endLine int
}

// findAllOccurrences returns every non-overlapping byte range where
// needle occurs in haystack, advancing by max(1, len(needle)) so a zero
// width or pathological needle can't cause an infinite scan.
func findAllOccurrences(haystack, needle string) []occurrence {
	var out []occurrence
	step := len(needle)
	if step == 0 {
		step = 1
	}
	pos := 0
	for {
		idx := strings.Index(haystack[pos:], needle)
		if idx < 0 {
			break
		}
		start := pos + idx
		out = append(out, occurrence{start: start, end: start + len(needle)})
		pos = start + step
		if pos > len(haystack) {
			break
		}
	}
	return out
}

// computeLineStarts returns the byte offset each 1-based line begins at;
// computeLineStarts[0] is unused so indices line up 1:1 with line
// numbers.
func computeLineStarts(content string) []int {
	starts := []int{0, 0}
	for i, c := range content {
		if c == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// lineForOffset returns the 1-based line number the given byte offset
// falls on, via binary search over lineStarts.
func lineForOffset(lineStarts []int, offset int) int {
	lo, hi := 1, len(lineStarts)-1
	line := 1
	for lo <= hi {
		mid := (lo + hi) / 2
		if lineStarts[mid] <= offset {
			line = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	return line
}

func wrapFixLocation(msg string) error {
	return &locationError{msg: msg}
}

type locationError struct{ msg string }

func (e *locationError) Error() string { return "fix location: " + e.msg }
func (e *locationError) Unwrap() error { return soc2err.ErrFixLocation }
