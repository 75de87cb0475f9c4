package main

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCLI executes newRootCmd with args against a fresh database under a
// temp $HOME, capturing stdout. Each call is a separate process in real
// usage; here each gets its own root command but shares dbPath so state
// carries across calls within one test, the way separate CLI invocations
// against the same --db flag would. Output is captured by redirecting
// os.Stdout rather than cmd.SetOut, since printResult writes straight to
// os.Stdout rather than through the cobra command's writer.
func runCLI(t *testing.T, dbPath string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	cmd.SetArgs(append([]string{"--db", dbPath}, args...))

	realStdout := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	execErr := cmd.Execute()

	os.Stdout = realStdout
	require.NoError(t, w.Close())
	out, err := io.ReadAll(r)
	require.NoError(t, err)

	return string(out), execErr
}

// extractJSONString pulls a top-level string field out of a
// printResult(true, ...) JSON document.
func extractJSONString(t *testing.T, jsonText, field string) string {
	t.Helper()
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(jsonText), &doc))
	v, _ := doc[field].(string)
	return v
}

// writeProjectFile writes content to name under dir, creating parent
// directories as needed.
func writeProjectFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestCLIProjectCreateAndList(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	dbPath := filepath.Join(dir, "soc2scan.db")
	projectDir := t.TempDir()

	_, err := runCLI(t, dbPath, "project", "create", projectDir, "--name", "demo")
	require.NoError(t, err)

	out, err := runCLI(t, dbPath, "--json", "project", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "demo")
	assert.Contains(t, out, projectDir)
}

func TestCLISettingsSetAndGet(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	dbPath := filepath.Join(dir, "soc2scan.db")

	_, err := runCLI(t, dbPath, "settings", "set", "llm_scan_mode", "smart")
	require.NoError(t, err)

	out, err := runCLI(t, dbPath, "--json", "settings", "get")
	require.NoError(t, err)
	assert.Contains(t, out, "llm_scan_mode")
	assert.Contains(t, out, "smart")
}

func TestCLIScanRunRegexOnly(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	dbPath := filepath.Join(dir, "soc2scan.db")
	projectDir := t.TempDir()
	writeProjectFile(t, projectDir, "app/views.py",
		"def handler(request):\n    user_id = 12345\n    return lookup(user_id)\n")

	createOut, err := runCLI(t, dbPath, "--json", "project", "create", projectDir)
	require.NoError(t, err)
	id := extractJSONString(t, createOut, "id")
	require.NotEmpty(t, id)

	_, err = runCLI(t, dbPath, "settings", "set", "llm_scan_mode", "regex_only")
	require.NoError(t, err)

	scanOut, err := runCLI(t, dbPath, "--json", "scan", "run", id)
	require.NoError(t, err)
	assert.Contains(t, scanOut, `"status": "completed"`)

	scanID := extractJSONString(t, scanOut, "id")
	require.NotEmpty(t, scanID)

	violationsOut, err := runCLI(t, dbPath, "--json", "violations", "list", scanID)
	require.NoError(t, err)
	assert.Contains(t, violationsOut, "CC6.1")
}

func TestCLIUnknownCommandFails(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	dbPath := filepath.Join(dir, "soc2scan.db")

	_, err := runCLI(t, dbPath, "not-a-real-command")
	assert.Error(t, err)
}

func TestCLICostsRejectsInvalidRange(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	dbPath := filepath.Join(dir, "soc2scan.db")

	_, err := runCLI(t, dbPath, "costs", "--range", "nonsense")
	assert.Error(t, err)
}
