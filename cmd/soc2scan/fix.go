package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newFixCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fix",
		Short: "generate, apply, and restore AI-proposed fixes",
	}
	cmd.AddCommand(newFixGenerateCmd(flags), newFixApplyCmd(flags), newFixRestoreCmd(flags))
	return cmd
}

func newFixGenerateCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "generate <violation-id>",
		Short: "ask the LLM for a proposed fix, persisted at review trust level",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openCore(flags, newCLISink(flags.jsonOutput, false))
			if err != nil {
				return err
			}
			defer c.Close()

			fx, err := c.GenerateFix(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printResult(flags.jsonOutput, fx)
			return nil
		},
	}
}

func newFixApplyCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "apply <fix-id>",
		Short: "apply a proposed fix to the live file, backing up the original first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openCore(flags, newCLISink(flags.jsonOutput, false))
			if err != nil {
				return err
			}
			defer c.Close()

			msg, err := c.ApplyFix(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Println(msg)
			return nil
		},
	}
}

func newFixRestoreCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <fix-id>",
		Short: "revert a previously applied fix from its backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openCore(flags, newCLISink(flags.jsonOutput, false))
			if err != nil {
				return err
			}
			defer c.Close()

			return c.RestoreFix(cmd.Context(), args[0])
		},
	}
}
