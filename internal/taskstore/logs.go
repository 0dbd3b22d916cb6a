package taskstore

import (
	"context"
	"fmt"
	"time"

	"firestige.xyz/netbackup/internal/errs"
	"firestige.xyz/netbackup/internal/models"
)

// AppendLog inserts one append-only BackupLog row (spec.md §4.5
// appendLog), stamped with the current time.
func (s *Store) AppendLog(ctx context.Context, taskID int64, level models.LogLevel, message string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO backup_logs (task_id, level, message, timestamp) VALUES (?, ?, ?, ?)`,
		taskID, string(level), message, time.Now().UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("taskstore: append log for task %d: %w", taskID, errs.ErrStorage)
	}
	return nil
}

// LogsForTask returns a task's BackupLog rows in insertion order,
// used by taskStatus's recent_logs (spec.md §4.8).
func (s *Store) LogsForTask(ctx context.Context, taskID int64) ([]models.BackupLog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, task_id, level, message, timestamp FROM backup_logs
		WHERE task_id = ? ORDER BY id ASC`, taskID)
	if err != nil {
		return nil, fmt.Errorf("taskstore: logs for task %d: %w", taskID, errs.ErrStorage)
	}
	defer rows.Close()

	var out []models.BackupLog
	for rows.Next() {
		var l models.BackupLog
		var level, ts string
		if err := rows.Scan(&l.ID, &l.TaskID, &level, &l.Message, &ts); err != nil {
			return nil, fmt.Errorf("taskstore: scan log: %w", errs.ErrStorage)
		}
		l.Level = models.LogLevel(level)
		parsed, err := time.Parse(timeLayout, ts)
		if err != nil {
			return nil, fmt.Errorf("taskstore: parse log timestamp: %w", errs.ErrStorage)
		}
		l.Timestamp = parsed
		out = append(out, l)
	}
	return out, rows.Err()
}
