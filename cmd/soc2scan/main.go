// Package main implements the soc2scan CLI, the text-console substitute
// for the desktop shell's IPC surface described in spec.md §6. Each IPC
// operation is a Cobra subcommand, grounded on cmd/semspec/main.go's
// root-command wiring and on original_source's commands/*.go one-file-
// per-operation layout.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/c360studio/soc2scan/core"
	"github.com/c360studio/soc2scan/orchestrator"
)

// Build information (set via ldflags).
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// globalFlags carries the options every subcommand needs to construct a
// core.Core, kept in one struct instead of package-level vars so tests
// can build a command tree without touching global state.
type globalFlags struct {
	dbPath     string
	llmBaseURL string
	llmModel   string
	jsonOutput bool
	configPath string
	// defaultExcludePatterns is populated from the config file's
	// exclude_patterns list, which openCore seeds into the global
	// scan_exclude_patterns setting when that setting is unset. There is
	// no flag for it; it only ever comes from --config.
	defaultExcludePatterns []string
}

func run() error {
	rootCmd := newRootCmd()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return rootCmd.ExecuteContext(ctx)
}

// newRootCmd assembles the command tree around a fresh globalFlags, split
// out from run so tests can build and drive it without touching os.Args
// or process-level signal handling.
func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:     "soc2scan",
		Short:   "SOC 2 compliance scanner",
		Version: fmt.Sprintf("%s (built %s)", Version, BuildTime),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			fc, err := loadFileConfig(flags.configPath)
			if err != nil {
				return err
			}
			applyFileConfig(cmd.Flags(), flags, fc)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&flags.dbPath, "db", defaultDBPath(), "path to the scanner's database file")
	rootCmd.PersistentFlags().StringVar(&flags.llmBaseURL, "llm-base-url", "", "override the LLM endpoint")
	rootCmd.PersistentFlags().StringVar(&flags.llmModel, "llm-model", "", "override the LLM model identifier")
	rootCmd.PersistentFlags().BoolVar(&flags.jsonOutput, "json", false, "emit JSON instead of human-readable text")
	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", defaultConfigPath(), "path to an optional YAML config file supplying flag defaults")

	rootCmd.AddCommand(
		newProjectCmd(flags),
		newScanCmd(flags),
		newViolationsCmd(flags),
		newFixCmd(flags),
		newSettingsCmd(flags),
		newAuditCmd(flags),
		newCostsCmd(flags),
		newMetricsCmd(flags),
	)

	return rootCmd
}

func defaultDBPath() string {
	dir, err := os.UserHomeDir()
	if err != nil {
		return "soc2scan.db"
	}
	return filepath.Join(dir, ".soc2scan", "soc2scan.db")
}

func defaultConfigPath() string {
	dir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	path := filepath.Join(dir, ".soc2scan", "config.yaml")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

func openCore(flags *globalFlags, sink *cliSink) (*core.Core, error) {
	if err := os.MkdirAll(filepath.Dir(flags.dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}
	c, err := core.New(core.Config{
		DBPath:     flags.dbPath,
		LLMBaseURL: flags.llmBaseURL,
		LLMModel:   flags.llmModel,
		Sink:       sink,
	})
	if err != nil {
		return nil, err
	}
	if err := seedExcludePatterns(c, flags.defaultExcludePatterns); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// seedExcludePatterns writes the config file's exclude_patterns list to
// the scan_exclude_patterns setting the first time it's seen, so a
// fresh database picks up the config file's defaults without a
// separate "settings set" call. It never overwrites a value a user
// already set with "settings set".
func seedExcludePatterns(c *core.Core, patterns []string) error {
	if len(patterns) == 0 {
		return nil
	}
	settings, err := c.GetSettings(context.Background())
	if err != nil {
		return fmt.Errorf("seed exclude patterns: %w", err)
	}
	for _, s := range settings {
		if s.Key == orchestrator.SettingExcludePatterns {
			return nil
		}
	}
	return c.UpdateSettings(context.Background(), orchestrator.SettingExcludePatterns, strings.Join(patterns, ","))
}
