package orchestrator

import (
	"context"
	"fmt"
	"os"
	"time"

	"firestige.xyz/netbackup/internal/errs"
	"firestige.xyz/netbackup/internal/log"
	"firestige.xyz/netbackup/internal/models"
	"firestige.xyz/netbackup/internal/taskstore"
)

// BackupSingle submits one backup task for a device (spec.md §4.8).
// When testFirst is true, a connectivity check runs before the task
// is even inserted, so the caller gets a fast failure instead of a
// task that immediately fails in the worker pool.
func (o *Orchestrator) BackupSingle(ctx context.Context, deviceID, submitterID int64, command *string, testFirst bool) (int64, error) {
	device, err := o.tasks.GetDevice(ctx, deviceID)
	if err != nil {
		return 0, err
	}

	if testFirst {
		if err := o.TestConnection(ctx, deviceID); err != nil {
			return 0, fmt.Errorf("orchestrator: test_first failed: %w", err)
		}
	}

	effective := device.Command
	if command != nil && *command != "" {
		effective = *command
	}

	task, err := o.tasks.InsertTask(ctx, models.BackupTask{
		DeviceID: deviceID, SubmitterID: submitterID, TaskType: models.TaskTypeManual, EffectiveCommand: effective,
	})
	if err != nil {
		return 0, err
	}
	o.pool.Submit(task.ID)
	return task.ID, nil
}

// BackupBatch inserts one pending task per requested active device
// (inactive or unknown ids get no task) and
// submits each to the Worker Pool, returning the created task ids
// immediately; execution is asynchronous (spec.md §4.6 submitBatch,
// §4.8 backupBatch).
func (o *Orchestrator) BackupBatch(ctx context.Context, deviceIDs []int64, submitterID int64, command *string) ([]int64, error) {
	devices, err := o.tasks.ListDevicesByIDs(ctx, deviceIDs)
	if err != nil {
		return nil, err
	}
	return o.submitBatch(ctx, devices, submitterID, models.TaskTypeBatch, command)
}

// submitBatch is the shared insert-then-submit loop used by
// BackupBatch and RunScheduled.
func (o *Orchestrator) submitBatch(ctx context.Context, devices []models.Device, submitterID int64, taskType models.TaskType, command *string) ([]int64, error) {
	taskIDs := make([]int64, 0, len(devices))
	for _, device := range devices {
		effective := device.Command
		if command != nil && *command != "" {
			effective = *command
		}
		task, err := o.tasks.InsertTask(ctx, models.BackupTask{
			DeviceID: device.ID, SubmitterID: submitterID, TaskType: taskType, EffectiveCommand: effective,
		})
		if err != nil {
			log.GetLogger().WithField("device_id", device.ID).WithError(err).Error("orchestrator: insert task failed during batch submit")
			continue
		}
		o.pool.Submit(task.ID)
		taskIDs = append(taskIDs, task.ID)
	}
	return taskIDs, nil
}

// TaskStatusView is the taskStatus() response shape (spec.md §4.8):
// status, timings, and recent log lines.
type TaskStatusView struct {
	Task models.BackupTask
	Logs []models.BackupLog
}

// TaskStatus reports a task's current state and its log trail.
func (o *Orchestrator) TaskStatus(ctx context.Context, taskID int64) (TaskStatusView, error) {
	task, err := o.tasks.GetTask(ctx, taskID)
	if err != nil {
		return TaskStatusView{}, err
	}
	logs, err := o.tasks.LogsForTask(ctx, taskID)
	if err != nil {
		return TaskStatusView{}, err
	}
	return TaskStatusView{Task: task, Logs: logs}, nil
}

// RecentTasks returns the most recent limit tasks (default 10).
func (o *Orchestrator) RecentTasks(ctx context.Context, limit int) ([]models.BackupTask, error) {
	if limit <= 0 {
		limit = 10
	}
	return o.tasks.RecentTasks(ctx, limit)
}

// TasksForDevice returns every task recorded against a device.
func (o *Orchestrator) TasksForDevice(ctx context.Context, deviceID int64) ([]models.BackupTask, error) {
	return o.tasks.TasksForDevice(ctx, deviceID)
}

// History paginates tasks across all devices.
func (o *Orchestrator) History(ctx context.Context, page, perPage int) ([]models.BackupTask, error) {
	return o.tasks.History(ctx, page, perPage)
}

// Statistics reports aggregate counters (spec.md §4.8 statistics()).
func (o *Orchestrator) Statistics(ctx context.Context) (taskstore.Statistics, error) {
	return o.tasks.Statistics(ctx)
}

// StatisticsByDeviceType reports the SPEC_FULL.md-supplemented
// per-device-type breakdown.
func (o *Orchestrator) StatisticsByDeviceType(ctx context.Context) ([]taskstore.DeviceTypeStatistics, error) {
	return o.tasks.StatisticsByDeviceType(ctx)
}

// DownloadArtifact resolves a task's artifact path and a suggested
// download filename: <alias_or_ip>_<yyyymmdd_HHMMSS>_backup.txt
// (spec.md §4.8).
func (o *Orchestrator) DownloadArtifact(ctx context.Context, taskID int64) (path, filename string, err error) {
	task, err := o.tasks.GetTask(ctx, taskID)
	if err != nil {
		return "", "", err
	}
	if task.Status != models.TaskSuccess || task.ArtifactPath == nil {
		return "", "", fmt.Errorf("orchestrator: task %d has no artifact: %w", taskID, errs.ErrNotFound)
	}
	device, err := o.tasks.GetDevice(ctx, task.DeviceID)
	if err != nil {
		return "", "", err
	}
	ts := time.Now().UTC()
	if task.CompletedAt != nil {
		ts = *task.CompletedAt
	}
	filename = fmt.Sprintf("%s_%s_backup.txt", device.Slug(), ts.Format("20060102_150405"))
	return *task.ArtifactPath, filename, nil
}

// DeleteTask unlinks the artifact file (if any) then deletes the task
// row, cascading its logs (spec.md §4.8 deleteTask).
func (o *Orchestrator) DeleteTask(ctx context.Context, taskID int64) error {
	task, err := o.tasks.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	if task.ArtifactPath != nil {
		if err := os.Remove(*task.ArtifactPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("orchestrator: unlink artifact: %w", errs.ErrStorage)
		}
	}
	return o.tasks.DeleteTask(ctx, taskID)
}

// RetryTask re-enters a terminal task into the Worker Pool as a fresh
// submission, incrementing retry_count and respecting per-device
// serialization (SPEC_FULL.md §4's documented-but-not-auto-run retry
// path, exposed here as an operator-triggered verb).
func (o *Orchestrator) RetryTask(ctx context.Context, taskID int64) (models.BackupTask, error) {
	task, err := o.tasks.IncrementRetry(ctx, taskID)
	if err != nil {
		return models.BackupTask{}, err
	}
	o.pool.Submit(task.ID)
	return task, nil
}
