// Package pathsafety canonicalizes and validates that a path stays within
// an owning root, the way processor/repo-ingester/handler.go validates
// slugs before joining them into a filesystem path.
package pathsafety

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/c360studio/soc2scan/soc2err"
)

// EnsureWithin resolves candidate relative to root (if not already
// absolute), canonicalizes both through symlinks, and verifies the
// result is root or a descendant of root. It returns the canonical
// absolute path on success.
//
// candidate does not need to exist on disk yet (fix application writes
// new files); only the existing portion of the path is resolved through
// symlinks, mirroring filepath.EvalSymlinks' behavior on the deepest
// existing ancestor.
func EnsureWithin(root, candidate string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve root %q: %w", root, err)
	}
	canonRoot, err := resolveExisting(absRoot)
	if err != nil {
		return "", fmt.Errorf("resolve root %q: %w", root, err)
	}

	absCandidate := candidate
	if !filepath.IsAbs(absCandidate) {
		absCandidate = filepath.Join(absRoot, candidate)
	}
	canonCandidate, err := resolveExisting(absCandidate)
	if err != nil {
		return "", fmt.Errorf("resolve path %q: %w", candidate, err)
	}

	if canonCandidate != canonRoot && !strings.HasPrefix(canonCandidate, canonRoot+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q escapes root %q", soc2err.ErrPathSecurity, candidate, root)
	}
	return canonCandidate, nil
}

// resolveExisting canonicalizes path through symlinks on its deepest
// existing ancestor, then rejoins the non-existent suffix untouched.
func resolveExisting(path string) (string, error) {
	clean := filepath.Clean(path)
	dir, base := filepath.Split(clean)
	resolved, err := filepath.EvalSymlinks(clean)
	if err == nil {
		return resolved, nil
	}
	if dir == "" || dir == clean {
		return clean, nil
	}
	resolvedDir, derr := resolveExisting(filepath.Clean(dir))
	if derr != nil {
		return "", derr
	}
	return filepath.Join(resolvedDir, base), nil
}

// IsSystemRoot reports whether path is (or resolves to) a filesystem root
// the scanner must refuse to operate on, per spec.md §6.
func IsSystemRoot(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	clean := filepath.Clean(abs)
	switch clean {
	case "/", "/root", "/home", "/etc", "/usr", "/bin", "/sbin", "/var":
		return true
	}
	return false
}
