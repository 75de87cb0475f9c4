package main

import (
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
)

// newMetricsCmd dumps the process's Prometheus counters in text
// exposition format. A short-lived CLI invocation has nothing to scrape
// it, so this renders the registry straight to stdout instead of
// serving /metrics.
func newMetricsCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "print scan counters collected during this invocation, in Prometheus text format",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openCore(flags, newCLISink(flags.jsonOutput, false))
			if err != nil {
				return err
			}
			defer c.Close()

			families, err := c.Metrics().Gatherer().Gather()
			if err != nil {
				return err
			}
			enc := expfmt.NewEncoder(cmd.OutOrStdout(), expfmt.FmtText)
			for _, mf := range families {
				if err := enc.Encode(mf); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
