// Package workerpool implements the Worker Pool (spec.md §4.6): a
// bounded-parallelism executor that drains submitted backup tasks
// through the Connection Pool, Device Session, and Artifact Store,
// finalizing each in the Task Store.
//
// No repo in the retrieved example pack imports sourcegraph/conc
// directly (it only ever appears as an indirect, transitively-pulled
// dependency) — this package is the direct consumer SPEC_FULL.md
// commits to. The bounded-goroutine pool shape (pool.New().WithMaxGoroutines)
// is conc's documented idiom for exactly this "N workers draining a
// queue" problem.
package workerpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	uuid "github.com/satori/go.uuid"
	"github.com/sourcegraph/conc/pool"

	"firestige.xyz/netbackup/internal/artifact"
	"firestige.xyz/netbackup/internal/connpool"
	"firestige.xyz/netbackup/internal/errs"
	"firestige.xyz/netbackup/internal/log"
	"firestige.xyz/netbackup/internal/models"
	"firestige.xyz/netbackup/internal/taskstore"
)

// Config tunes worker pool size and the per-task execute timeout
// (spec.md §4.6, §6 MAX_CONCURRENT_BACKUPS/BACKUP_TIMEOUT).
type Config struct {
	MaxConcurrent  int
	ExecuteTimeout time.Duration
	EnableDiff     bool
	CompareOptions artifact.CompareOptions
}

// DefaultConfig matches spec.md's defaults: 10 workers, 300s timeout.
func DefaultConfig() Config {
	return Config{
		MaxConcurrent:  10,
		ExecuteTimeout: 300 * time.Second,
		EnableDiff:     true,
		CompareOptions: artifact.DefaultCompareOptions(),
	}
}

// Pool drains submitted task ids with bounded parallelism. Per-device
// serialization is inherited entirely from the Connection Pool's
// per-device mutex (spec.md §4.6) — this type only bounds the global
// fan-out.
type Pool struct {
	cfg       Config
	tasks     *taskstore.Store
	conns     *connpool.Pool
	artifacts *artifact.Store

	exec *pool.Pool

	mu      sync.Mutex
	closed  bool
	pending sync.WaitGroup
}

// New builds a Pool wired to the given Task Store, Connection Pool,
// and Artifact Store.
func New(cfg Config, tasks *taskstore.Store, conns *connpool.Pool, artifacts *artifact.Store) *Pool {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 10
	}
	if cfg.ExecuteTimeout <= 0 {
		cfg.ExecuteTimeout = 300 * time.Second
	}
	return &Pool{
		cfg:       cfg,
		tasks:     tasks,
		conns:     conns,
		artifacts: artifacts,
		exec:      pool.New().WithMaxGoroutines(cfg.MaxConcurrent),
	}
}

// Submit runs the full task lifecycle for taskID asynchronously
// (spec.md §4.6 steps 1-9). It returns immediately; the caller learns
// the outcome via taskStatus.
func (p *Pool) Submit(taskID int64) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		log.GetLogger().WithField("task_id", taskID).Warn("workerpool: submit after shutdown, dropping")
		return
	}
	p.pending.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.pending.Done()
		p.exec.Go(func() { p.run(taskID) })
	}()
}

// Shutdown stops accepting new submissions and waits for in-flight
// tasks to finish. Called after the Scheduler stops but before the
// Connection Pool closes (spec.md §5).
func (p *Pool) Shutdown() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.pending.Wait() // every Submit has at least reached exec.Go
	p.exec.Wait()    // every accepted task has finished running
}

func (p *Pool) run(taskID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.ExecuteTimeout)
	defer cancel()

	logger := log.GetLogger().WithField("task_id", taskID).WithField("run_id", newRunID())

	task, err := p.tasks.GetTask(ctx, taskID)
	if err != nil {
		logger.WithError(err).Error("workerpool: task not found, dropping")
		return
	}
	device, err := p.tasks.GetDevice(ctx, task.DeviceID)
	if err != nil {
		_ = p.tasks.Finalize(ctx, taskID, taskstore.FinalizeResult{
			Status: models.TaskFailed, ErrorMessage: "device not found",
		})
		return
	}

	if err := p.tasks.Claim(ctx, taskID); err != nil {
		if errors.Is(err, errs.ErrBusy) {
			return // another worker already has this task
		}
		logger.WithError(err).Error("workerpool: claim failed")
		return
	}

	_ = p.tasks.AppendLog(ctx, taskID, models.LogInfo, fmt.Sprintf("starting backup of %s", device.IPAddress))

	session, err := p.conns.Acquire(ctx, device)
	if err != nil {
		p.finalizeFailed(ctx, taskID, device, "cannot establish device connection", err)
		return
	}

	output, err := session.Execute(ctx, task.EffectiveCommand)
	if err != nil {
		p.conns.Dispose(device)
		p.finalizeFailed(ctx, taskID, device, "device command failed", err)
		return
	}

	startedAt := time.Now().UTC()
	if task.StartedAt != nil {
		startedAt = *task.StartedAt
	}
	path := artifact.Path(p.artifacts.Root, device, startedAt, task.EffectiveCommand)
	res, err := p.artifacts.Save(path, []byte(output))
	if err != nil {
		p.conns.Release(device)
		p.finalizeFailed(ctx, taskID, device, "failed to persist artifact", err)
		return
	}
	p.conns.Release(device)

	if err := p.tasks.Finalize(ctx, taskID, taskstore.FinalizeResult{
		Status: models.TaskSuccess, ArtifactPath: &res.Path, SizeBytes: &res.SizeBytes, SHA256: &res.SHA256,
	}); err != nil {
		logger.WithError(err).Error("workerpool: finalize success failed")
		return
	}
	_ = p.tasks.UpdateLastBackup(ctx, device.ID, models.BackupStatusSuccess, time.Now().UTC())
	_ = p.tasks.AppendLog(ctx, taskID, models.LogInfo, "backup completed successfully")

	if p.cfg.EnableDiff {
		go p.diffAgainstPrior(device, taskID, res.Path)
	}
}

func (p *Pool) finalizeFailed(ctx context.Context, taskID int64, device models.Device, message string, cause error) {
	logger := log.GetLogger().WithField("task_id", taskID).WithField("device_id", device.ID)
	logger.WithError(cause).Warn("workerpool: " + message)

	errMsg := message
	if cause != nil {
		errMsg = fmt.Sprintf("%s: %v", message, cause)
	}
	if err := p.tasks.Finalize(ctx, taskID, taskstore.FinalizeResult{Status: models.TaskFailed, ErrorMessage: errMsg}); err != nil {
		logger.WithError(err).Error("workerpool: finalize failed-task failed")
	}
	_ = p.tasks.UpdateLastBackup(ctx, device.ID, models.BackupStatusFailed, time.Now().UTC())
	_ = p.tasks.AppendLog(ctx, taskID, models.LogError, errMsg)
}

// diffAgainstPrior fire-and-forgets a unified diff against the
// device's most recent prior successful artifact (spec.md §4.6 step
// 8). Errors here never affect the task's own success status.
func (p *Pool) diffAgainstPrior(device models.Device, taskID int64, currentPath string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	prior, err := p.tasks.LatestSuccessfulArtifact(ctx, device.ID, taskID)
	if err != nil {
		return // no prior successful capture; nothing to diff against
	}
	if prior.ArtifactPath == nil || !artifact.Exists(*prior.ArtifactPath) {
		return
	}

	if _, err := artifact.Diff(*prior.ArtifactPath, currentPath); err != nil {
		log.GetLogger().WithField("task_id", taskID).WithError(err).Warn("workerpool: diff against prior artifact failed")
	}
}

// newRunID mints a correlation id for one task run's log lines, so an
// operator grepping the process log for a single execution doesn't
// have to rely on timestamps alone when several tasks race through
// the pool concurrently.
func newRunID() string {
	id, err := uuid.NewV4()
	if err != nil {
		return "unavailable"
	}
	return id.String()
}
