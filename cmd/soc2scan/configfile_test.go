package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFlagSet struct {
	changed map[string]bool
}

func (f fakeFlagSet) Changed(name string) bool { return f.changed[name] }

func TestLoadFileConfigMissingPathIsNotAnError(t *testing.T) {
	fc, err := loadFileConfig("")
	require.NoError(t, err)
	assert.Equal(t, fileConfig{}, fc)

	fc, err = loadFileConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, fileConfig{}, fc)
}

func TestLoadFileConfigParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
db: /tmp/soc2scan.db
llm:
  base_url: http://localhost:11434/v1
  model: qwen2.5-coder
exclude_patterns:
  - "**/*.generated.py"
  - "fixtures/**"
`), 0o644))

	fc, err := loadFileConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/soc2scan.db", fc.DB)
	assert.Equal(t, "http://localhost:11434/v1", fc.LLM.BaseURL)
	assert.Equal(t, "qwen2.5-coder", fc.LLM.Model)
	assert.Equal(t, []string{"**/*.generated.py", "fixtures/**"}, fc.ExcludePatterns)
}

func TestApplyFileConfigDoesNotOverrideExplicitFlags(t *testing.T) {
	flags := &globalFlags{dbPath: "/explicit.db"}
	fc := fileConfig{DB: "/from-config.db"}

	applyFileConfig(fakeFlagSet{changed: map[string]bool{"db": true}}, flags, fc)

	assert.Equal(t, "/explicit.db", flags.dbPath)
}

func TestApplyFileConfigFillsUnsetFlags(t *testing.T) {
	flags := &globalFlags{}
	fc := fileConfig{DB: "/from-config.db"}
	fc.LLM.BaseURL = "http://example.test"
	fc.ExcludePatterns = []string{"vendor/**"}

	applyFileConfig(fakeFlagSet{}, flags, fc)

	assert.Equal(t, "/from-config.db", flags.dbPath)
	assert.Equal(t, "http://example.test", flags.llmBaseURL)
	assert.Equal(t, []string{"vendor/**"}, flags.defaultExcludePatterns)
}
