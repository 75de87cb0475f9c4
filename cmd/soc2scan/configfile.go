package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileConfig is the on-disk shape of the scanner's optional YAML config
// file, grounded on the teacher's config.Config/LoadFromFile
// (config/config.go), narrowed from NATS/model/tool settings down to
// the handful of flag defaults this CLI actually has. Flags explicitly
// passed on the command line always win; the file only supplies
// defaults for flags left unset.
type fileConfig struct {
	DB  string `yaml:"db"`
	LLM struct {
		BaseURL string `yaml:"base_url"`
		Model   string `yaml:"model"`
	} `yaml:"llm"`
	// ExcludePatterns seeds the global scan_exclude_patterns setting,
	// which applies to every project's scans, the first time a command
	// runs with it against a database where that setting is unset.
	ExcludePatterns []string `yaml:"exclude_patterns"`
}

// loadFileConfig reads and parses path, returning a zero fileConfig
// (not an error) when path is empty or the file doesn't exist, since
// the config file is optional and flags/defaults stand on their own
// without it.
func loadFileConfig(path string) (fileConfig, error) {
	var fc fileConfig
	if path == "" {
		return fc, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fc, nil
		}
		return fc, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, fmt.Errorf("parse config file %q: %w", path, err)
	}
	return fc, nil
}

// applyFileConfig fills in flags left at their zero value (i.e. not
// explicitly passed on the command line) from fc, so `--db` or
// `--llm-model` on the command line always overrides the config file.
func applyFileConfig(cmd cobraFlagSet, flags *globalFlags, fc fileConfig) {
	if fc.DB != "" && !cmd.Changed("db") {
		flags.dbPath = fc.DB
	}
	if fc.LLM.BaseURL != "" && !cmd.Changed("llm-base-url") {
		flags.llmBaseURL = fc.LLM.BaseURL
	}
	if fc.LLM.Model != "" && !cmd.Changed("llm-model") {
		flags.llmModel = fc.LLM.Model
	}
	flags.defaultExcludePatterns = fc.ExcludePatterns
}

// cobraFlagSet is the one *pflag.FlagSet method applyFileConfig needs,
// narrowed to a local interface so it can be exercised in tests without
// constructing a full cobra.Command.
type cobraFlagSet interface {
	Changed(name string) bool
}
