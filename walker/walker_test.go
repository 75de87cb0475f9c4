package walker_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/soc2scan/walker"
)

func writeFile(t *testing.T, dir, name string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func relPaths(files []walker.File) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.RelPath
	}
	return out
}

func TestWalkSkipsFixedDirsAndDotfiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "app/views.py")
	writeFile(t, dir, "node_modules/pkg/index.js")
	writeFile(t, dir, ".git/HEAD")
	writeFile(t, dir, ".env")

	files, err := walker.Walk(dir, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"app/views.py"}, relPaths(files))
}

func TestWalkAppliesExcludePatterns(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "app/views.py")
	writeFile(t, dir, "app/views_generated.py")
	writeFile(t, dir, "fixtures/sample.py")

	files, err := walker.Walk(dir, []string{"**/*_generated.py", "fixtures/**"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"app/views.py"}, relPaths(files))
}

func TestWalkIgnoresInvalidExcludePattern(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "app/views.py")

	files, err := walker.Walk(dir, []string{"["})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"app/views.py"}, relPaths(files))
}

func TestCountMatchesWalkLength(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.py")
	writeFile(t, dir, "b.py")

	n, err := walker.Count(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestWalkRejectsSystemRoot(t *testing.T) {
	_, err := walker.Walk("/", nil)
	require.Error(t, err)
}
