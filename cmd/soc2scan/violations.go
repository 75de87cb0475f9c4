package main

import (
	"github.com/spf13/cobra"

	"github.com/c360studio/soc2scan/core"
	"github.com/c360studio/soc2scan/model"
)

func newViolationsCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "violations",
		Short: "inspect and triage violations",
	}
	cmd.AddCommand(newViolationsListCmd(flags), newViolationGetCmd(flags), newViolationDismissCmd(flags))
	return cmd
}

func newViolationsListCmd(flags *globalFlags) *cobra.Command {
	var status, severity string
	cmd := &cobra.Command{
		Use:   "list <scan-id>",
		Short: "list a scan's violations, sorted by severity then line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openCore(flags, newCLISink(flags.jsonOutput, false))
			if err != nil {
				return err
			}
			defer c.Close()

			violations, err := c.GetViolations(cmd.Context(), args[0], core.ViolationFilters{
				Status:   model.ViolationStatus(status),
				Severity: model.Severity(severity),
			})
			if err != nil {
				return err
			}
			printResult(flags.jsonOutput, violations)
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "filter by status: open, fixed, dismissed")
	cmd.Flags().StringVar(&severity, "severity", "", "filter by severity: critical, high, medium, low")
	return cmd
}

func newViolationGetCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "get <violation-id>",
		Short: "show a violation with its control, most recent fix, and owning scan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openCore(flags, newCLISink(flags.jsonOutput, false))
			if err != nil {
				return err
			}
			defer c.Close()

			detail, err := c.GetViolation(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printResult(flags.jsonOutput, detail)
			return nil
		},
	}
}

func newViolationDismissCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "dismiss <violation-id>",
		Short: "mark a violation dismissed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openCore(flags, newCLISink(flags.jsonOutput, false))
			if err != nil {
				return err
			}
			defer c.Close()

			return c.DismissViolation(cmd.Context(), args[0])
		},
	}
}
