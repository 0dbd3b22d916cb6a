package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var reloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Reinstall every active ScheduledTask into a fresh Scheduler instance",
	Long: `Re-reads every active ScheduledTask from the Task Store and installs
it (spec.md §4.7 install) into this command's own Scheduler, logging
any whose cron expression fails to parse. That Scheduler stops when
the command exits; a running serve process is not affected.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		d, closeFn, err := openEngine(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		if err := d.Orch.LoadSchedules(ctx); err != nil {
			return err
		}
		fmt.Println("schedules reloaded")
		return nil
	},
}
