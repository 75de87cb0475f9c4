package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/c360studio/soc2scan/core"
)

func newScanCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "run and inspect scans",
	}
	cmd.AddCommand(
		newScanRunCmd(flags),
		newScanProgressCmd(flags),
		newScanListCmd(flags),
		newScanRespondCmd(flags),
		newScanWatchCmd(flags),
	)
	return cmd
}

func newScanRunCmd(flags *globalFlags) *cobra.Command {
	var continueOverLimit bool
	cmd := &cobra.Command{
		Use:   "run <project-id>",
		Short: "run a full scan for a project, blocking until it finalizes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sink := newCLISink(flags.jsonOutput, continueOverLimit)
			c, err := openCore(flags, sink)
			if err != nil {
				return err
			}
			defer c.Close()
			sink.respond = c.RespondToCostLimit

			sc, err := c.ScanProject(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printResult(flags.jsonOutput, sc)
			return nil
		},
	}
	cmd.Flags().BoolVar(&continueOverLimit, "continue-over-limit", false,
		"automatically continue LLM analysis whenever the scan's cost limit is reached, instead of stopping")
	return cmd
}

func newScanProgressCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "progress <scan-id>",
		Short: "show a scan's current progress and severity counts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openCore(flags, newCLISink(flags.jsonOutput, false))
			if err != nil {
				return err
			}
			defer c.Close()

			sc, err := c.GetScanProgress(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printResult(flags.jsonOutput, sc)
			return nil
		},
	}
}

func newScanListCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list <project-id>",
		Short: "list every scan for a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openCore(flags, newCLISink(flags.jsonOutput, false))
			if err != nil {
				return err
			}
			defer c.Close()

			scans, err := c.GetScans(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printResult(flags.jsonOutput, scans)
			return nil
		},
	}
}

// newScanRespondCmd exists for IPC-surface parity with respond_to_cost_limit,
// but a scan only ever blocks on a cost-limit decision inside the same
// "scan run" process that hit the limit — there is no separate long-lived
// session for this command to reach, so it always reports "no pending
// cost limit prompt". Use "scan run --continue-over-limit" to decide the
// outcome up front instead.
func newScanRespondCmd(flags *globalFlags) *cobra.Command {
	var continueScan bool
	cmd := &cobra.Command{
		Use:   "respond <scan-id>",
		Short: "answer a pending cost-limit prompt for a running scan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openCore(flags, newCLISink(flags.jsonOutput, false))
			if err != nil {
				return err
			}
			defer c.Close()

			return c.RespondToCostLimit(args[0], continueScan)
		},
	}
	cmd.Flags().BoolVar(&continueScan, "continue", false, "continue LLM analysis past the configured cost limit")
	return cmd
}

// newScanWatchCmd runs a scan immediately, then re-runs one every time a
// file changes under the project's root, until interrupted. There is no
// IPC-surface equivalent in spec.md §6 — a text-console-only addition for
// the edit/scan loop a desktop shell would otherwise drive from its own
// file watcher.
func newScanWatchCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <project-id>",
		Short: "re-run a scan every time a file changes under the project root",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sink := newCLISink(flags.jsonOutput, true)
			c, err := openCore(flags, sink)
			if err != nil {
				return err
			}
			defer c.Close()
			sink.respond = c.RespondToCostLimit

			projectID := args[0]
			root, err := projectRoot(cmd.Context(), c, projectID)
			if err != nil {
				return err
			}

			runOnce := func() {
				sc, err := c.ScanProject(cmd.Context(), projectID)
				if err != nil {
					fmt.Fprintf(cmd.OutOrStderr(), "scan failed: %v\n", err)
					return
				}
				printResult(flags.jsonOutput, sc)
			}
			runOnce()

			pw, err := newProjectWatcher(root, runOnce)
			if err != nil {
				return fmt.Errorf("start watcher: %w", err)
			}
			return pw.Run(cmd.Context())
		},
	}
}

func projectRoot(ctx context.Context, c *core.Core, projectID string) (string, error) {
	projects, err := c.GetProjects(ctx)
	if err != nil {
		return "", err
	}
	for _, p := range projects {
		if p.ID == projectID {
			return p.Path, nil
		}
	}
	return "", fmt.Errorf("project %q not found", projectID)
}
