package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"firestige.xyz/netbackup/internal/log"
	"firestige.xyz/netbackup/internal/models"
)

// scheduledWaitPoll is how often RunScheduled re-checks child
// BackupTask status while waiting for a fire's batch to finish.
const scheduledWaitPoll = 2 * time.Second

// scheduledWaitTimeout bounds how long RunScheduled waits for a
// fire's children to reach a terminal state before closing the
// TaskExecution anyway with whatever counts it has so far; a task
// wedged past the worker pool's own execute timeout should never wedge
// the scheduler's run loop indefinitely.
const scheduledWaitTimeout = 10 * time.Minute

// RunScheduled implements scheduler.Runner (spec.md §4.7): reload the
// ScheduledTask, skip inactive or misfired fires (bookkeeping
// last_run_at only), else open a TaskExecution, submitBatch the
// target devices, wait for the child BackupTasks to reach a terminal
// state (bounded by scheduledWaitTimeout), and close the TaskExecution
// with their success/failed counts: completed only when every child
// succeeded, failed otherwise.
func (o *Orchestrator) RunScheduled(ctx context.Context, scheduledTaskID int64, misfired bool) error {
	logger := log.GetLogger().WithField("scheduled_task_id", scheduledTaskID)

	task, err := o.tasks.GetScheduledTask(ctx, scheduledTaskID)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if !task.Active {
		logger.Warn("orchestrator: scheduled task inactive, skipping fire")
		_ = o.tasks.UpdateScheduledTaskRun(ctx, scheduledTaskID, now, now)
		return nil
	}
	if misfired {
		logger.Warn("orchestrator: misfired fire, bookkeeping only")
		_ = o.tasks.UpdateScheduledTaskRun(ctx, scheduledTaskID, now, now)
		return nil
	}

	execution, err := o.tasks.InsertTaskExecution(ctx, scheduledTaskID)
	if err != nil {
		return err
	}

	devices, err := o.tasks.ListDevicesByIDs(ctx, task.TargetDeviceIDs)
	if err != nil {
		_ = o.tasks.FinalizeTaskExecution(ctx, execution.ID, models.ExecutionFailed, "", err.Error(), "")
		return err
	}

	var command *string
	if task.Command != "" {
		command = &task.Command
	}
	taskIDs, err := o.submitBatch(ctx, devices, 0, models.TaskTypeScheduled, command)
	if err != nil {
		_ = o.tasks.FinalizeTaskExecution(ctx, execution.ID, models.ExecutionFailed, "", err.Error(), "")
		return err
	}

	_ = o.tasks.UpdateScheduledTaskRun(ctx, scheduledTaskID, now, now)

	successCount, failCount, execLog := o.awaitChildTasks(ctx, taskIDs)
	status := models.ExecutionCompleted
	if failCount > 0 || successCount+failCount < len(taskIDs) {
		status = models.ExecutionFailed
	}
	summary := fmt.Sprintf("success %d, failed %d", successCount, failCount)
	return o.tasks.FinalizeTaskExecution(ctx, execution.ID, status, summary, "", execLog)
}

// awaitChildTasks blocks until every BackupTask in taskIDs reaches a
// terminal status (or scheduledWaitTimeout elapses), then tallies
// success/failure counts and per-device notes for the TaskExecution's
// execution_log (spec.md §4.7: "summarize and close the
// TaskExecution... per-device notes in execution_log").
func (o *Orchestrator) awaitChildTasks(ctx context.Context, taskIDs []int64) (success, failed int, execLog string) {
	deadline := time.Now().Add(scheduledWaitTimeout)
	notes := make([]string, 0, len(taskIDs))
	done := make(map[int64]bool, len(taskIDs))

	for len(done) < len(taskIDs) && time.Now().Before(deadline) {
		for _, id := range taskIDs {
			if done[id] {
				continue
			}
			task, err := o.tasks.GetTask(ctx, id)
			if err != nil {
				continue
			}
			if !task.IsTerminal() {
				continue
			}
			done[id] = true
			switch task.Status {
			case models.TaskSuccess:
				success++
				notes = append(notes, fmt.Sprintf("device %d: success", task.DeviceID))
			default:
				failed++
				notes = append(notes, fmt.Sprintf("device %d: %s (%s)", task.DeviceID, task.Status, task.ErrorMessage))
			}
		}
		if len(done) < len(taskIDs) {
			time.Sleep(scheduledWaitPoll)
		}
	}

	for _, id := range taskIDs {
		if !done[id] {
			notes = append(notes, fmt.Sprintf("task %d: timed out waiting for terminal state", id))
		}
	}

	return success, failed, strings.Join(notes, "\n")
}

// InstallSchedule persists a new ScheduledTask and registers it with
// the Scheduler in one step (spec.md §4.7).
func (o *Orchestrator) InstallSchedule(ctx context.Context, task models.ScheduledTask) (models.ScheduledTask, error) {
	created, err := o.tasks.InsertScheduledTask(ctx, task)
	if err != nil {
		return models.ScheduledTask{}, err
	}
	if created.Active {
		if err := o.sched.Install(created); err != nil {
			return models.ScheduledTask{}, err
		}
	}
	return created, nil
}

// UninstallSchedule deactivates a ScheduledTask and stops its
// Scheduler job without deleting the row (spec.md §4.7).
func (o *Orchestrator) UninstallSchedule(ctx context.Context, scheduledTaskID int64) error {
	if err := o.tasks.SetScheduledTaskActive(ctx, scheduledTaskID, false); err != nil {
		return err
	}
	o.sched.Uninstall(scheduledTaskID)
	return nil
}

// ListSchedules returns every currently-active ScheduledTask.
func (o *Orchestrator) ListSchedules(ctx context.Context) ([]models.ScheduledTask, error) {
	return o.tasks.ListActiveScheduledTasks(ctx)
}

// LoadSchedules reinstalls every active ScheduledTask into the
// Scheduler. Called once at daemon startup, after SetScheduler.
func (o *Orchestrator) LoadSchedules(ctx context.Context) error {
	tasks, err := o.tasks.ListActiveScheduledTasks(ctx)
	if err != nil {
		return err
	}
	for _, task := range tasks {
		if err := o.sched.Install(task); err != nil {
			log.GetLogger().WithField("scheduled_task_id", task.ID).WithError(err).Error("orchestrator: failed to install schedule at startup")
		}
	}
	return nil
}
