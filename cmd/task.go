package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"firestige.xyz/netbackup/internal/artifact"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Inspect and manage individual backup tasks",
}

var taskShowCmd = &cobra.Command{
	Use:   "show <task_id>",
	Short: "Show a task's status, timings, and recent log rows",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		taskID, err := parseID(args[0])
		if err != nil {
			return err
		}
		ctx := context.Background()
		d, closeFn, err := openEngine(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		view, err := d.Orch.TaskStatus(ctx, taskID)
		if err != nil {
			return err
		}
		return printJSON(view)
	},
}

var taskRetryCmd = &cobra.Command{
	Use:   "retry <task_id>",
	Short: "Resubmit a terminal task as a fresh run, incrementing retry_count",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		taskID, err := parseID(args[0])
		if err != nil {
			return err
		}
		ctx := context.Background()
		d, closeFn, err := openEngine(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		task, err := d.Orch.RetryTask(ctx, taskID)
		if err != nil {
			return err
		}
		fmt.Printf("retrying task %d (retry_count=%d)\n", task.ID, task.RetryCount)
		return nil
	},
}

var taskDeleteCmd = &cobra.Command{
	Use:   "delete <task_id>",
	Short: "Unlink a task's artifact and delete its row (cascades its logs)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		taskID, err := parseID(args[0])
		if err != nil {
			return err
		}
		ctx := context.Background()
		d, closeFn, err := openEngine(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		if err := d.Orch.DeleteTask(ctx, taskID); err != nil {
			return err
		}
		fmt.Printf("deleted task %d\n", taskID)
		return nil
	},
}

var (
	compareIgnoreWhitespace bool
	compareIgnoreCase       bool
)

var taskCompareCmd = &cobra.Command{
	Use:   "compare <task_a_id> <task_b_id>",
	Short: "Diff two task artifacts",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := parseID(args[0])
		if err != nil {
			return err
		}
		b, err := parseID(args[1])
		if err != nil {
			return err
		}
		ctx := context.Background()
		d, closeFn, err := openEngine(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		opts := artifact.CompareOptions{IgnoreWhitespace: compareIgnoreWhitespace, IgnoreCase: compareIgnoreCase}
		report, err := d.Orch.CompareTasks(ctx, a, b, opts)
		if err != nil {
			return err
		}
		return printJSON(report)
	},
}

func init() {
	taskCompareCmd.Flags().BoolVar(&compareIgnoreWhitespace, "ignore-whitespace", true, "normalize whitespace before diffing")
	taskCompareCmd.Flags().BoolVar(&compareIgnoreCase, "ignore-case", false, "normalize case before diffing")

	taskCmd.AddCommand(taskShowCmd)
	taskCmd.AddCommand(taskRetryCmd)
	taskCmd.AddCommand(taskDeleteCmd)
	taskCmd.AddCommand(taskCompareCmd)
}

func printJSON(v any) error {
	return printJSONTo(os.Stdout, v)
}

func printJSONTo(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
