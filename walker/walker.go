// Package walker traverses a project root yielding candidate source
// files, skipping vendored/build/VCS directories and dotfiles, matching
// user-supplied glob exclusions, and verifying every yielded path
// resolves within the project root.
package walker

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/c360studio/soc2scan/pathsafety"
)

// skipDirs are path components that stop descent entirely, per spec.md §4.2.
var skipDirs = map[string]bool{
	"node_modules":     true,
	".git":             true,
	"venv":             true,
	".venv":            true,
	"__pycache__":      true,
	"dist":             true,
	"build":            true,
	".cargo":           true,
	"target":           true,
	"vendor":           true,
	".next":            true,
	"out":              true,
	".cache":           true,
	"coverage":         true,
	".pytest_cache":    true,
}

// File is a single walked regular file.
type File struct {
	// AbsPath is the canonicalized absolute path, verified to be a
	// descendant of the project root.
	AbsPath string
	// RelPath is AbsPath relative to the project root, using forward
	// slashes, as stored on Violation.FilePath.
	RelPath string
}

func skippable(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	return skipDirs[name]
}

// excluded reports whether relPath matches any of the caller-supplied
// doublestar glob patterns (e.g. "**/*.generated.go", "fixtures/**"),
// letting a project exclude paths the fixed skipDirs set has no opinion
// on. An invalid pattern never matches rather than aborting the walk.
func excluded(patterns []string, relPath string) bool {
	for _, p := range patterns {
		if p == "" {
			continue
		}
		if ok, err := doublestar.Match(p, relPath); err == nil && ok {
			return true
		}
	}
	return false
}

// Walk yields every regular file under root, applying the fixed skip
// rules plus any caller-supplied glob exclusions. Each yielded file's
// path is guaranteed to canonicalize to a descendant of root; a file
// that fails that check is omitted rather than failing the whole walk,
// since a single stray symlink shouldn't abort a scan.
func Walk(root string, excludePatterns []string) ([]File, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve project root: %w", err)
	}
	if pathsafety.IsSystemRoot(absRoot) {
		return nil, fmt.Errorf("refusing to scan system root %q", absRoot)
	}

	var files []File
	walkErr := filepath.WalkDir(absRoot, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			// Unreadable entries are skipped, not fatal, per spec.md §7's
			// propagation policy for degraded results.
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		name := d.Name()
		if path != absRoot && skippable(name) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		canon, serr := pathsafety.EnsureWithin(absRoot, path)
		if serr != nil {
			return nil
		}
		rel, rerr := filepath.Rel(absRoot, canon)
		if rerr != nil {
			return nil
		}
		relSlash := filepath.ToSlash(rel)
		if excluded(excludePatterns, relSlash) {
			return nil
		}
		files = append(files, File{
			AbsPath: canon,
			RelPath: relSlash,
		})
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("walk %q: %w", absRoot, walkErr)
	}
	return files, nil
}

// Count returns the number of files Walk would yield, for the
// orchestrator's first-pass total_files computation.
func Count(root string, excludePatterns []string) (int, error) {
	files, err := Walk(root, excludePatterns)
	if err != nil {
		return 0, err
	}
	return len(files), nil
}
