package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"firestige.xyz/netbackup/internal/models"
	"firestige.xyz/netbackup/internal/scheduler"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Manage recurring ScheduledTasks",
}

var (
	scheduleName      string
	scheduleFreqType  string
	scheduleHour      int
	scheduleMinute    int
	scheduleWeekday   int
	scheduleDay       int
	scheduleCron      string
	scheduleDevices   string
	scheduleCommandFl string
)

var scheduleInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Derive a cron expression from --freq-type and its fields, then install a recurring job",
	RunE: func(cmd *cobra.Command, args []string) error {
		deviceIDs, err := parseIDList(scheduleDevices)
		if err != nil {
			return err
		}
		freq := models.FrequencyConfig{
			Type:    models.FrequencyType(scheduleFreqType),
			Hour:    scheduleHour,
			Minute:  scheduleMinute,
			Weekday: scheduleWeekday,
			Day:     scheduleDay,
			Cron:    scheduleCron,
		}
		cron, err := scheduler.DeriveCronExpression(freq)
		if err != nil {
			return err
		}

		ctx := context.Background()
		d, closeFn, err := openEngine(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		created, err := d.Orch.InstallSchedule(ctx, models.ScheduledTask{
			Name:            scheduleName,
			TaskType:        models.TaskTypeScheduled,
			FrequencyType:   freq.Type,
			CronExpression:  cron,
			Frequency:       freq,
			TargetDeviceIDs: deviceIDs,
			Command:         scheduleCommandFl,
			Active:          true,
		})
		if err != nil {
			return err
		}
		fmt.Printf("installed schedule %d, cron=%q\n", created.ID, created.CronExpression)
		return nil
	},
}

var scheduleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active ScheduledTasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		d, closeFn, err := openEngine(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		tasks, err := d.Orch.ListSchedules(ctx)
		if err != nil {
			return err
		}
		return printJSON(tasks)
	},
}

var scheduleRemoveCmd = &cobra.Command{
	Use:   "remove <scheduled_task_id>",
	Short: "Deactivate a ScheduledTask and uninstall its job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		ctx := context.Background()
		d, closeFn, err := openEngine(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		if err := d.Orch.UninstallSchedule(ctx, id); err != nil {
			return err
		}
		fmt.Printf("removed schedule %d\n", id)
		return nil
	},
}

func init() {
	scheduleInstallCmd.Flags().StringVar(&scheduleName, "name", "", "schedule name")
	scheduleInstallCmd.Flags().StringVar(&scheduleFreqType, "freq-type", "daily", "daily, weekly, monthly, or custom")
	scheduleInstallCmd.Flags().IntVar(&scheduleHour, "hour", 0, "hour (daily/weekly/monthly)")
	scheduleInstallCmd.Flags().IntVar(&scheduleMinute, "minute", 0, "minute (daily/weekly/monthly)")
	scheduleInstallCmd.Flags().IntVar(&scheduleWeekday, "weekday", 0, "day of week, 0=Sunday (weekly)")
	scheduleInstallCmd.Flags().IntVar(&scheduleDay, "day", 1, "day of month (monthly)")
	scheduleInstallCmd.Flags().StringVar(&scheduleCron, "cron", "", "raw five-field cron expression (custom)")
	scheduleInstallCmd.Flags().StringVar(&scheduleDevices, "devices", "", "comma-separated target device ids")
	scheduleInstallCmd.Flags().StringVar(&scheduleCommandFl, "command", "", "capture command override")
	_ = scheduleInstallCmd.MarkFlagRequired("name")
	_ = scheduleInstallCmd.MarkFlagRequired("devices")

	scheduleCmd.AddCommand(scheduleInstallCmd)
	scheduleCmd.AddCommand(scheduleListCmd)
	scheduleCmd.AddCommand(scheduleRemoveCmd)
}
