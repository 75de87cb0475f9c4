package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/c360studio/soc2scan/core"
)

func newProjectCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "manage scanned projects",
	}
	cmd.AddCommand(newProjectCreateCmd(flags), newProjectListCmd(flags), newProjectDetectCmd(flags))
	return cmd
}

func newProjectCreateCmd(flags *globalFlags) *cobra.Command {
	var name, framework string
	cmd := &cobra.Command{
		Use:   "create <path>",
		Short: "register a project at path, reusing the existing row if one matches",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openCore(flags, newCLISink(flags.jsonOutput, false))
			if err != nil {
				return err
			}
			defer c.Close()

			p, err := c.CreateProject(cmd.Context(), core.CreateProjectRequest{
				Path: args[0], Name: name, Framework: framework,
			})
			if err != nil {
				return err
			}
			printResult(flags.jsonOutput, p)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "project display name")
	cmd.Flags().StringVar(&framework, "framework", "", "override framework detection")
	return cmd
}

func newProjectListCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list registered projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openCore(flags, newCLISink(flags.jsonOutput, false))
			if err != nil {
				return err
			}
			defer c.Close()

			projects, err := c.GetProjects(cmd.Context())
			if err != nil {
				return err
			}
			printResult(flags.jsonOutput, projects)
			return nil
		},
	}
}

func newProjectDetectCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "detect-framework <path>",
		Short: "detect the framework a path appears to use, without registering a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openCore(flags, newCLISink(flags.jsonOutput, false))
			if err != nil {
				return err
			}
			defer c.Close()

			fw, err := c.DetectFramework(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if flags.jsonOutput {
				printResult(true, map[string]string{"framework": string(fw)})
				return nil
			}
			fmt.Println(fw)
			return nil
		},
	}
}
