package taskstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"firestige.xyz/netbackup/internal/errs"
	"firestige.xyz/netbackup/internal/models"
)

// InsertTask creates a BackupTask row with status=pending (spec.md
// §4.5 insertTask).
func (s *Store) InsertTask(ctx context.Context, t models.BackupTask) (models.BackupTask, error) {
	t.Status = models.TaskPending
	t.CreatedAt = time.Now().UTC()
	if t.MaxRetries == 0 {
		t.MaxRetries = 3
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO backup_tasks (device_id, submitter_id, task_type, status, effective_command,
			created_at, retry_count, max_retries)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.DeviceID, t.SubmitterID, string(t.TaskType), string(t.Status), t.EffectiveCommand,
		t.CreatedAt.Format(timeLayout), t.RetryCount, t.MaxRetries)
	if err != nil {
		return models.BackupTask{}, fmt.Errorf("taskstore: insert task: %w", errs.ErrStorage)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.BackupTask{}, fmt.Errorf("taskstore: insert task: %w", errs.ErrStorage)
	}
	t.ID = id
	return t, nil
}

// Claim atomically transitions a task from pending to running,
// stamping started_at=now. Returns errs.ErrBusy if the task was not
// pending (another worker already has it, or it was already
// finalized) — spec.md §4.5/§4.6 step 2.
func (s *Store) Claim(ctx context.Context, taskID int64) error {
	now := time.Now().UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx, `
		UPDATE backup_tasks SET status = ?, started_at = ? WHERE id = ? AND status = ?`,
		string(models.TaskRunning), now, taskID, string(models.TaskPending))
	if err != nil {
		return fmt.Errorf("taskstore: claim task %d: %w", taskID, errs.ErrStorage)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("taskstore: claim task %d: %w", taskID, errs.ErrStorage)
	}
	if n == 0 {
		return fmt.Errorf("taskstore: task %d already claimed: %w", taskID, errs.ErrBusy)
	}
	return nil
}

// FinalizeResult carries the outcome arguments for Finalize.
type FinalizeResult struct {
	Status       models.TaskStatus
	ArtifactPath *string
	SizeBytes    *int64
	SHA256       *string
	ErrorMessage string
}

// Finalize transitions a running task to a terminal status, stamping
// completed_at=now (spec.md §4.5 finalize). status must be one of
// success, failed, or cancelled.
func (s *Store) Finalize(ctx context.Context, taskID int64, r FinalizeResult) error {
	now := time.Now().UTC().Format(timeLayout)
	_, err := s.db.ExecContext(ctx, `
		UPDATE backup_tasks SET status = ?, completed_at = ?, artifact_path = ?,
			artifact_size_bytes = ?, artifact_sha256 = ?, error_message = ?
		WHERE id = ?`,
		string(r.Status), now, r.ArtifactPath, r.SizeBytes, r.SHA256, r.ErrorMessage, taskID)
	if err != nil {
		return fmt.Errorf("taskstore: finalize task %d: %w", taskID, errs.ErrStorage)
	}
	return nil
}

// IncrementRetry bumps retry_count and resets the task to pending so
// it can re-enter the worker pool as a fresh submission (SPEC_FULL.md
// §4's documented, not-auto-run, retry path).
func (s *Store) IncrementRetry(ctx context.Context, taskID int64) (models.BackupTask, error) {
	task, err := s.GetTask(ctx, taskID)
	if err != nil {
		return models.BackupTask{}, err
	}
	if !task.IsTerminal() {
		return models.BackupTask{}, fmt.Errorf("taskstore: task %d not terminal: %w", taskID, errs.ErrBusy)
	}
	if task.RetryCount >= task.MaxRetries {
		return models.BackupTask{}, fmt.Errorf("taskstore: task %d exceeded max_retries: %w", taskID, errs.ErrSchedule)
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE backup_tasks SET status = ?, retry_count = retry_count + 1, started_at = NULL,
			completed_at = NULL, error_message = '' WHERE id = ?`,
		string(models.TaskPending), taskID)
	if err != nil {
		return models.BackupTask{}, fmt.Errorf("taskstore: increment retry for task %d: %w", taskID, errs.ErrStorage)
	}
	return s.GetTask(ctx, taskID)
}

// GetTask loads one BackupTask by id.
func (s *Store) GetTask(ctx context.Context, id int64) (models.BackupTask, error) {
	row := s.db.QueryRowContext(ctx, taskSelect+" WHERE id = ?", id)
	return scanTask(row)
}

// TasksForDevice returns every BackupTask for a device, most recent
// first.
func (s *Store) TasksForDevice(ctx context.Context, deviceID int64) ([]models.BackupTask, error) {
	rows, err := s.db.QueryContext(ctx, taskSelect+" WHERE device_id = ? ORDER BY created_at DESC", deviceID)
	if err != nil {
		return nil, fmt.Errorf("taskstore: tasks for device %d: %w", deviceID, errs.ErrStorage)
	}
	defer rows.Close()
	return scanTasks(rows)
}

// RecentTasks returns the most recent limit tasks across all devices.
func (s *Store) RecentTasks(ctx context.Context, limit int) ([]models.BackupTask, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, taskSelect+" ORDER BY created_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("taskstore: recent tasks: %w", errs.ErrStorage)
	}
	defer rows.Close()
	return scanTasks(rows)
}

// History paginates tasks across all devices, most recent first.
func (s *Store) History(ctx context.Context, page, perPage int) ([]models.BackupTask, error) {
	if page < 1 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 20
	}
	offset := (page - 1) * perPage
	rows, err := s.db.QueryContext(ctx, taskSelect+" ORDER BY created_at DESC LIMIT ? OFFSET ?", perPage, offset)
	if err != nil {
		return nil, fmt.Errorf("taskstore: history: %w", errs.ErrStorage)
	}
	defer rows.Close()
	return scanTasks(rows)
}

// LatestSuccessfulArtifact finds the most recent prior successful
// BackupTask for a device, excluding excludeTaskID (the task whose
// artifact is currently being diffed). Resolves the Open Question in
// spec.md §9: "the BackupTask with the largest completed_at where
// status=success and id != current task id".
func (s *Store) LatestSuccessfulArtifact(ctx context.Context, deviceID, excludeTaskID int64) (models.BackupTask, error) {
	row := s.db.QueryRowContext(ctx, taskSelect+`
		WHERE device_id = ? AND status = ? AND id != ? AND artifact_path IS NOT NULL
		ORDER BY completed_at DESC LIMIT 1`,
		deviceID, string(models.TaskSuccess), excludeTaskID)
	return scanTask(row)
}

// DeleteTask removes a task row (and, via cascade, its logs). Callers
// are expected to unlink the artifact file first (spec.md §4.8
// deleteTask).
func (s *Store) DeleteTask(ctx context.Context, taskID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM backup_tasks WHERE id = ?`, taskID)
	if err != nil {
		return fmt.Errorf("taskstore: delete task %d: %w", taskID, errs.ErrStorage)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("taskstore: delete task %d: %w", taskID, errs.ErrStorage)
	}
	if n == 0 {
		return fmt.Errorf("taskstore: task %d: %w", taskID, errs.ErrNotFound)
	}
	return nil
}

const taskSelect = `SELECT id, device_id, submitter_id, task_type, status, effective_command,
	artifact_path, artifact_size_bytes, artifact_sha256, started_at, completed_at, created_at,
	error_message, retry_count, max_retries FROM backup_tasks`

func scanTask(row *sql.Row) (models.BackupTask, error) {
	var t models.BackupTask
	var taskType, status string
	var artifactPath, artifactSHA256, startedAt, completedAt sql.NullString
	var artifactSize sql.NullInt64
	var createdAt string

	err := row.Scan(&t.ID, &t.DeviceID, &t.SubmitterID, &taskType, &status, &t.EffectiveCommand,
		&artifactPath, &artifactSize, &artifactSHA256, &startedAt, &completedAt, &createdAt,
		&t.ErrorMessage, &t.RetryCount, &t.MaxRetries)
	if err == sql.ErrNoRows {
		return models.BackupTask{}, errs.ErrNotFound
	}
	if err != nil {
		return models.BackupTask{}, fmt.Errorf("taskstore: scan task: %w", errs.ErrStorage)
	}
	return finishTask(t, taskType, status, artifactPath, artifactSHA256, startedAt, completedAt, artifactSize, createdAt)
}

func scanTasks(rows *sql.Rows) ([]models.BackupTask, error) {
	var out []models.BackupTask
	for rows.Next() {
		var t models.BackupTask
		var taskType, status string
		var artifactPath, artifactSHA256, startedAt, completedAt sql.NullString
		var artifactSize sql.NullInt64
		var createdAt string

		if err := rows.Scan(&t.ID, &t.DeviceID, &t.SubmitterID, &taskType, &status, &t.EffectiveCommand,
			&artifactPath, &artifactSize, &artifactSHA256, &startedAt, &completedAt, &createdAt,
			&t.ErrorMessage, &t.RetryCount, &t.MaxRetries); err != nil {
			return nil, fmt.Errorf("taskstore: scan task: %w", errs.ErrStorage)
		}
		task, err := finishTask(t, taskType, status, artifactPath, artifactSHA256, startedAt, completedAt, artifactSize, createdAt)
		if err != nil {
			return nil, err
		}
		out = append(out, task)
	}
	return out, rows.Err()
}

func finishTask(t models.BackupTask, taskType, status string, artifactPath, artifactSHA256, startedAt, completedAt sql.NullString, artifactSize sql.NullInt64, createdAt string) (models.BackupTask, error) {
	t.TaskType = models.TaskType(taskType)
	t.Status = models.TaskStatus(status)

	created, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return models.BackupTask{}, fmt.Errorf("taskstore: parse created_at: %w", errs.ErrStorage)
	}
	t.CreatedAt = created

	if artifactPath.Valid {
		v := artifactPath.String
		t.ArtifactPath = &v
	}
	if artifactSHA256.Valid {
		v := artifactSHA256.String
		t.ArtifactSHA256 = &v
	}
	if artifactSize.Valid {
		v := artifactSize.Int64
		t.ArtifactSizeBytes = &v
	}
	if startedAt.Valid {
		if v, err := time.Parse(timeLayout, startedAt.String); err == nil {
			t.StartedAt = &v
		}
	}
	if completedAt.Valid {
		if v, err := time.Parse(timeLayout, completedAt.String); err == nil {
			t.CompletedAt = &v
		}
	}
	return t, nil
}
