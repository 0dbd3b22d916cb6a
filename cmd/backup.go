package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Submit backup tasks",
}

var (
	backupCommand   string
	backupTestFirst bool
	backupDevices   string
)

var backupSingleCmd = &cobra.Command{
	Use:   "single <device_id>",
	Short: "Submit a single-device backup task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deviceID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid device id %q: %w", args[0], err)
		}
		ctx := context.Background()
		d, closeFn, err := openEngine(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		var command *string
		if backupCommand != "" {
			command = &backupCommand
		}
		taskID, err := d.Orch.BackupSingle(ctx, deviceID, 0, command, backupTestFirst)
		if err != nil {
			return err
		}
		fmt.Printf("submitted task %d\n", taskID)
		return nil
	},
}

var backupBatchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Submit backup tasks for a comma-separated list of device ids",
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseIDList(backupDevices)
		if err != nil {
			return err
		}
		ctx := context.Background()
		d, closeFn, err := openEngine(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		var command *string
		if backupCommand != "" {
			command = &backupCommand
		}
		taskIDs, err := d.Orch.BackupBatch(ctx, ids, 0, command)
		if err != nil {
			return err
		}
		fmt.Printf("submitted %d tasks: %v\n", len(taskIDs), taskIDs)
		return nil
	},
}

func init() {
	backupSingleCmd.Flags().StringVar(&backupCommand, "command", "", "capture command override")
	backupSingleCmd.Flags().BoolVar(&backupTestFirst, "test-first", false, "test connectivity before submitting")
	backupBatchCmd.Flags().StringVar(&backupCommand, "command", "", "capture command override")
	backupBatchCmd.Flags().StringVar(&backupDevices, "devices", "", "comma-separated device ids")
	_ = backupBatchCmd.MarkFlagRequired("devices")

	backupCmd.AddCommand(backupSingleCmd)
	backupCmd.AddCommand(backupBatchCmd)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q: %w", s, err)
	}
	return id, nil
}

func parseIDList(s string) ([]int64, error) {
	fields := strings.Split(s, ",")
	ids := make([]int64, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		id, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid device id %q: %w", f, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
