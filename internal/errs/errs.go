// Package errs defines the sentinel error kinds surfaced by the backup
// engine (spec.md §7). Callers compare with errors.Is/errors.As; the
// Worker Pool translates any of these into a terminal BackupTask state
// and a structured log row without crashing the pool.
package errs

import "errors"

// Sentinel errors. Wrap with fmt.Errorf("...: %w", ErrX) to attach
// context while keeping errors.Is(err, ErrX) true.
var (
	// ErrAuth means the device rejected the supplied credentials.
	// Terminal for the task; never retried automatically.
	ErrAuth = errors.New("device authentication rejected")

	// ErrTimeout means a connect/auth/banner/session timeout elapsed.
	// Terminal; max_retries is reserved but no auto-retry runs.
	ErrTimeout = errors.New("device operation timed out")

	// ErrTransport means the underlying SSH/Telnet transport failed.
	// The Connection Pool disposes the session before the task is
	// marked failed.
	ErrTransport = errors.New("device transport error")

	// ErrUnreachable means the device could not be dialed at all.
	ErrUnreachable = errors.New("device unreachable")

	// ErrCredentialDecrypt means the Credential Vault could not decrypt
	// a stored password. The message returned to callers must never
	// include key material.
	ErrCredentialDecrypt = errors.New("credential decryption failed")

	// ErrStorage means a filesystem write or rename failed while
	// persisting an artifact.
	ErrStorage = errors.New("artifact storage error")

	// ErrSchedule means a cron expression or FrequencyConfig failed
	// validation. Surfaced at the API layer; never reaches a worker.
	ErrSchedule = errors.New("invalid schedule")

	// ErrBusy is a concurrency guard, not a user-visible failure: the
	// caller retries or defers. Returned by the Task Store's Claim and
	// IncrementRetry when a task is not in the expected state.
	ErrBusy = errors.New("resource busy")

	// ErrNotFound means an unknown device, task, schedule, or artifact
	// was referenced.
	ErrNotFound = errors.New("not found")
)
