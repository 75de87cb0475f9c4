package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSettingsCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "read and update scanner settings",
	}
	cmd.AddCommand(
		newSettingsGetCmd(flags),
		newSettingsSetCmd(flags),
		newSettingsClearCmd(flags),
		newSettingsExportCmd(flags),
		newSettingsOnboardCmd(flags),
	)
	return cmd
}

func newSettingsGetCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "list every stored setting",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openCore(flags, newCLISink(flags.jsonOutput, false))
			if err != nil {
				return err
			}
			defer c.Close()

			settings, err := c.GetSettings(cmd.Context())
			if err != nil {
				return err
			}
			printResult(flags.jsonOutput, settings)
			return nil
		},
	}
}

func newSettingsSetCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "upsert a setting",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openCore(flags, newCLISink(flags.jsonOutput, false))
			if err != nil {
				return err
			}
			defer c.Close()

			return c.UpdateSettings(cmd.Context(), args[0], args[1])
		},
	}
}

func newSettingsClearCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "back up and clear the entire database",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openCore(flags, newCLISink(flags.jsonOutput, false))
			if err != nil {
				return err
			}
			defer c.Close()

			backupPath, err := c.ClearDatabase(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("database cleared, backup saved to %s\n", backupPath)
			return nil
		},
	}
}

func newSettingsExportCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "export every project, scan, violation, and audit event as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openCore(flags, newCLISink(flags.jsonOutput, false))
			if err != nil {
				return err
			}
			defer c.Close()

			data, err := c.ExportData(cmd.Context())
			if err != nil {
				return err
			}
			printResult(true, data)
			return nil
		},
	}
}

func newSettingsOnboardCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "complete-onboarding",
		Short: "record the onboarding_completed audit event",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openCore(flags, newCLISink(flags.jsonOutput, false))
			if err != nil {
				return err
			}
			defer c.Close()

			return c.CompleteOnboarding(cmd.Context())
		},
	}
}
