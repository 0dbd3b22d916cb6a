package models

import "time"

// FrequencyType names the structured-intent shape preserved alongside
// the authoritative cron_expression (spec.md §3, §4.7).
type FrequencyType string

const (
	FrequencyDaily   FrequencyType = "daily"
	FrequencyWeekly  FrequencyType = "weekly"
	FrequencyMonthly FrequencyType = "monthly"
	FrequencyCustom  FrequencyType = "custom"
)

// FrequencyConfig preserves operator intent for UI round-trip; the
// cron expression derived from it is what the Scheduler actually runs.
type FrequencyConfig struct {
	Type    FrequencyType
	Hour    int
	Minute  int
	Weekday int // 0=Sunday, used when Type == FrequencyWeekly
	Day     int // day of month, used when Type == FrequencyMonthly
	Cron    string // raw cron expression, used when Type == FrequencyCustom
}

// ScheduledTask is a persistent recurring job definition.
type ScheduledTask struct {
	ID              int64
	Name            string
	Description     string
	TaskType        TaskType
	FrequencyType   FrequencyType
	CronExpression  string
	Frequency       FrequencyConfig
	TargetDeviceIDs []int64
	Command         string
	Active          bool
	CreatedBy       int64
	CreatedAt       time.Time
	LastRunAt       *time.Time
	NextRunAt       *time.Time
}

// ExecutionStatus is TaskExecution.Status.
type ExecutionStatus string

const (
	ExecutionRunning   ExecutionStatus = "running"
	ExecutionCompleted ExecutionStatus = "completed"
	ExecutionFailed    ExecutionStatus = "failed"
)

// TaskExecution is one fire of a ScheduledTask, aggregating the child
// BackupTasks it spawned across the target device set.
type TaskExecution struct {
	ID            int64
	ScheduledID   int64
	Status        ExecutionStatus
	StartedAt     time.Time
	CompletedAt   *time.Time
	ResultSummary string
	ErrorMessage  string
	ExecutionLog  string
}
