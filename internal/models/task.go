package models

import "time"

// TaskType classifies who/what submitted a BackupTask.
type TaskType string

const (
	TaskTypeManual    TaskType = "manual"
	TaskTypeBatch     TaskType = "batch"
	TaskTypeScheduled TaskType = "scheduled"
	TaskTypeImmediate TaskType = "immediate"
)

// TaskStatus is the BackupTask state machine. Transitions form a
// monotone DAG: Pending -> Running -> {Success, Failed, Cancelled}.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskSuccess   TaskStatus = "success"
	TaskFailed    TaskStatus = "failed"
	TaskCancelled TaskStatus = "cancelled"
)

// BackupTask is one capture attempt against one Device.
type BackupTask struct {
	ID                int64
	DeviceID          int64
	SubmitterID       int64
	TaskType          TaskType
	Status            TaskStatus
	EffectiveCommand  string
	ArtifactPath      *string
	ArtifactSizeBytes *int64
	ArtifactSHA256    *string
	StartedAt         *time.Time
	CompletedAt       *time.Time
	CreatedAt         time.Time
	ErrorMessage      string
	RetryCount        int
	MaxRetries        int
}

// IsTerminal reports whether Status is one from which no further
// transition is allowed.
func (t BackupTask) IsTerminal() bool {
	switch t.Status {
	case TaskSuccess, TaskFailed, TaskCancelled:
		return true
	default:
		return false
	}
}

// LogLevel is the severity of a BackupLog row.
type LogLevel string

const (
	LogDebug   LogLevel = "debug"
	LogInfo    LogLevel = "info"
	LogWarning LogLevel = "warning"
	LogError   LogLevel = "error"
)

// BackupLog is one append-only structured log row belonging to a
// BackupTask. Deleted in cascade with its parent task.
type BackupLog struct {
	ID        int64
	TaskID    int64
	Level     LogLevel
	Message   string
	Timestamp time.Time
}
