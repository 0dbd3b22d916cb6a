package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var statusLimit int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the most recent backup tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		d, closeFn, err := openEngine(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		tasks, err := d.Orch.RecentTasks(ctx, statusLimit)
		if err != nil {
			return err
		}
		return printJSON(tasks)
	},
}

func init() {
	statusCmd.Flags().IntVar(&statusLimit, "limit", 10, "number of recent tasks to show")
}
