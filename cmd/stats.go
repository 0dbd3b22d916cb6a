package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var statsByType bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate backup statistics",
	Long: `Show total/success/failed/running counts, total bytes stored, and
success rate (spec.md §4.8 statistics()). With --by-type, break the
counts down per device_type instead (SPEC_FULL.md §4 supplement).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		d, closeFn, err := openEngine(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		if statsByType {
			byType, err := d.Orch.StatisticsByDeviceType(ctx)
			if err != nil {
				return err
			}
			return printJSON(byType)
		}
		stats, err := d.Orch.Statistics(ctx)
		if err != nil {
			return err
		}
		return printJSON(stats)
	},
}

func init() {
	statsCmd.Flags().BoolVar(&statsByType, "by-type", false, "break down by device_type")
}
