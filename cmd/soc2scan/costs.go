package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/c360studio/soc2scan/core"
)

func newCostsCmd(flags *globalFlags) *cobra.Command {
	var rangeFlag string
	cmd := &cobra.Command{
		Use:   "costs",
		Short: "list recorded LLM scan costs",
		RunE: func(cmd *cobra.Command, args []string) error {
			r := core.TimeRange(rangeFlag)
			switch r {
			case core.TimeRange24h, core.TimeRange7d, core.TimeRange30d, core.TimeRangeAll:
			default:
				return fmt.Errorf("invalid --range %q: must be one of 24h, 7d, 30d, all", rangeFlag)
			}

			c, err := openCore(flags, newCLISink(flags.jsonOutput, false))
			if err != nil {
				return err
			}
			defer c.Close()

			costs, err := c.GetScanCosts(cmd.Context(), r)
			if err != nil {
				return err
			}
			printResult(flags.jsonOutput, costs)
			return nil
		},
	}
	cmd.Flags().StringVar(&rangeFlag, "range", "7d", "time range: 24h, 7d, 30d, all")
	return cmd
}
