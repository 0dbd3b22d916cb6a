package taskstore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"firestige.xyz/netbackup/internal/errs"
	"firestige.xyz/netbackup/internal/models"
)

// InsertScheduledTask creates a recurring job definition. Callers
// must populate CronExpression via scheduler.DeriveCronExpression
// before calling, since the cron string is the authoritative trigger
// (spec.md §3, §4.7).
func (s *Store) InsertScheduledTask(ctx context.Context, t models.ScheduledTask) (models.ScheduledTask, error) {
	t.CreatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO scheduled_tasks (name, description, task_type, frequency_type, cron_expression,
			frequency_hour, frequency_minute, frequency_weekday, frequency_day, frequency_cron,
			target_device_ids, command, active, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.Name, t.Description, string(t.TaskType), string(t.FrequencyType), t.CronExpression,
		t.Frequency.Hour, t.Frequency.Minute, t.Frequency.Weekday, t.Frequency.Day, t.Frequency.Cron,
		joinIDs(t.TargetDeviceIDs), t.Command, boolToInt(t.Active), t.CreatedBy,
		t.CreatedAt.Format(timeLayout))
	if err != nil {
		return models.ScheduledTask{}, fmt.Errorf("taskstore: insert scheduled task: %w", errs.ErrStorage)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.ScheduledTask{}, fmt.Errorf("taskstore: insert scheduled task: %w", errs.ErrStorage)
	}
	t.ID = id
	return t, nil
}

// GetScheduledTask loads one ScheduledTask by id.
func (s *Store) GetScheduledTask(ctx context.Context, id int64) (models.ScheduledTask, error) {
	row := s.db.QueryRowContext(ctx, scheduledTaskSelect+" WHERE id = ?", id)
	return scanScheduledTask(row)
}

// ListActiveScheduledTasks returns every active ScheduledTask, used
// at startup to reinstall jobs into the Scheduler.
func (s *Store) ListActiveScheduledTasks(ctx context.Context) ([]models.ScheduledTask, error) {
	rows, err := s.db.QueryContext(ctx, scheduledTaskSelect+" WHERE active = 1 ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("taskstore: list active scheduled tasks: %w", errs.ErrStorage)
	}
	defer rows.Close()

	var out []models.ScheduledTask
	for rows.Next() {
		t, err := scanScheduledTaskRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// SetScheduledTaskActive toggles a job's active flag; the Orchestrator
// uninstalls/installs the corresponding Scheduler job accordingly.
func (s *Store) SetScheduledTaskActive(ctx context.Context, id int64, active bool) error {
	_, err := s.db.ExecContext(ctx, `UPDATE scheduled_tasks SET active = ? WHERE id = ?`, boolToInt(active), id)
	if err != nil {
		return fmt.Errorf("taskstore: set scheduled task %d active: %w", id, errs.ErrStorage)
	}
	return nil
}

// UpdateScheduledTaskRun stamps last_run_at/next_run_at after a fire.
func (s *Store) UpdateScheduledTaskRun(ctx context.Context, id int64, lastRun, nextRun time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE scheduled_tasks SET last_run_at = ?, next_run_at = ? WHERE id = ?`,
		lastRun.UTC().Format(timeLayout), nextRun.UTC().Format(timeLayout), id)
	if err != nil {
		return fmt.Errorf("taskstore: update scheduled task %d run: %w", id, errs.ErrStorage)
	}
	return nil
}

const scheduledTaskSelect = `SELECT id, name, description, task_type, frequency_type, cron_expression,
	frequency_hour, frequency_minute, frequency_weekday, frequency_day, frequency_cron,
	target_device_ids, command, active, created_by, created_at, last_run_at, next_run_at
	FROM scheduled_tasks`

func scanScheduledTask(row *sql.Row) (models.ScheduledTask, error) {
	var t models.ScheduledTask
	var taskType, freqType, active, createdAt string
	var lastRunAt, nextRunAt, targetIDs sql.NullString

	err := row.Scan(&t.ID, &t.Name, &t.Description, &taskType, &freqType, &t.CronExpression,
		&t.Frequency.Hour, &t.Frequency.Minute, &t.Frequency.Weekday, &t.Frequency.Day, &t.Frequency.Cron,
		&targetIDs, &t.Command, &active, &t.CreatedBy, &createdAt, &lastRunAt, &nextRunAt)
	if err == sql.ErrNoRows {
		return models.ScheduledTask{}, errs.ErrNotFound
	}
	if err != nil {
		return models.ScheduledTask{}, fmt.Errorf("taskstore: scan scheduled task: %w", errs.ErrStorage)
	}
	return finishScheduledTask(t, taskType, freqType, active, createdAt, lastRunAt, nextRunAt, targetIDs)
}

func scanScheduledTaskRows(rows *sql.Rows) (models.ScheduledTask, error) {
	var t models.ScheduledTask
	var taskType, freqType, active, createdAt string
	var lastRunAt, nextRunAt, targetIDs sql.NullString

	err := rows.Scan(&t.ID, &t.Name, &t.Description, &taskType, &freqType, &t.CronExpression,
		&t.Frequency.Hour, &t.Frequency.Minute, &t.Frequency.Weekday, &t.Frequency.Day, &t.Frequency.Cron,
		&targetIDs, &t.Command, &active, &t.CreatedBy, &createdAt, &lastRunAt, &nextRunAt)
	if err != nil {
		return models.ScheduledTask{}, fmt.Errorf("taskstore: scan scheduled task: %w", errs.ErrStorage)
	}
	return finishScheduledTask(t, taskType, freqType, active, createdAt, lastRunAt, nextRunAt, targetIDs)
}

func finishScheduledTask(t models.ScheduledTask, taskType, freqType, active, createdAt string, lastRunAt, nextRunAt, targetIDs sql.NullString) (models.ScheduledTask, error) {
	t.TaskType = models.TaskType(taskType)
	t.FrequencyType = models.FrequencyType(freqType)
	t.Frequency.Type = t.FrequencyType
	t.Active = active == "1"

	created, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return models.ScheduledTask{}, fmt.Errorf("taskstore: parse created_at: %w", errs.ErrStorage)
	}
	t.CreatedAt = created

	if lastRunAt.Valid {
		if v, err := time.Parse(timeLayout, lastRunAt.String); err == nil {
			t.LastRunAt = &v
		}
	}
	if nextRunAt.Valid {
		if v, err := time.Parse(timeLayout, nextRunAt.String); err == nil {
			t.NextRunAt = &v
		}
	}
	if targetIDs.Valid {
		t.TargetDeviceIDs = splitIDs(targetIDs.String)
	}
	return t, nil
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

func splitIDs(s string) []int64 {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(p, 10, 64)
		if err == nil {
			out = append(out, id)
		}
	}
	return out
}

// InsertTaskExecution opens a TaskExecution row with status=running
// (spec.md §4.7 runScheduled).
func (s *Store) InsertTaskExecution(ctx context.Context, scheduledID int64) (models.TaskExecution, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO task_executions (scheduled_id, status, started_at) VALUES (?, ?, ?)`,
		scheduledID, string(models.ExecutionRunning), now.Format(timeLayout))
	if err != nil {
		return models.TaskExecution{}, fmt.Errorf("taskstore: insert task execution: %w", errs.ErrStorage)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.TaskExecution{}, fmt.Errorf("taskstore: insert task execution: %w", errs.ErrStorage)
	}
	return models.TaskExecution{ID: id, ScheduledID: scheduledID, Status: models.ExecutionRunning, StartedAt: now}, nil
}

// FinalizeTaskExecution closes a TaskExecution with a summary
// (spec.md §4.7: "success N, failed M").
func (s *Store) FinalizeTaskExecution(ctx context.Context, id int64, status models.ExecutionStatus, summary, errMsg, execLog string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE task_executions SET status = ?, completed_at = ?, result_summary = ?,
			error_message = ?, execution_log = ? WHERE id = ?`,
		string(status), time.Now().UTC().Format(timeLayout), summary, errMsg, execLog, id)
	if err != nil {
		return fmt.Errorf("taskstore: finalize task execution %d: %w", id, errs.ErrStorage)
	}
	return nil
}
