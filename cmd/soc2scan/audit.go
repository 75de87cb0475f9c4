package main

import (
	"github.com/spf13/cobra"
)

func newAuditCmd(flags *globalFlags) *cobra.Command {
	var projectID string
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "list audit trail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openCore(flags, newCLISink(flags.jsonOutput, false))
			if err != nil {
				return err
			}
			defer c.Close()

			events, err := c.GetAuditEvents(cmd.Context(), projectID)
			if err != nil {
				return err
			}
			printResult(flags.jsonOutput, events)
			return nil
		},
	}
	cmd.Flags().StringVar(&projectID, "project-id", "", "restrict to a single project")
	return cmd
}
