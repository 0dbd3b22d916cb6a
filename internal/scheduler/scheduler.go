package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/tevino/abool"

	"firestige.xyz/netbackup/internal/log"
	"firestige.xyz/netbackup/internal/models"
)

// Runner executes one fire of a ScheduledTask. Implemented by the
// Orchestrator façade (spec.md §4.7's runScheduled): reload the
// ScheduledTask, no-op if inactive, open/close the TaskExecution, and
// submitBatch the target device set. Scheduler itself owns only cron
// timing and the max_instances=1/coalesce guarantee; misfired is true
// when the fire arrived more than the configured grace period late,
// in which case the Runner is expected to skip the actual batch but
// still bookkeep last_run_at (SPEC_FULL.md §4).
type Runner interface {
	RunScheduled(ctx context.Context, scheduledTaskID int64, misfired bool) error
}

// Config tunes scheduler-wide defaults (spec.md §4.7, §5).
type Config struct {
	Location     *time.Location
	MisfireGrace time.Duration
}

// DefaultConfig matches spec.md's defaults: Asia/Shanghai, 300s grace.
func DefaultConfig() Config {
	loc, err := time.LoadLocation("Asia/Shanghai")
	if err != nil {
		loc = time.UTC
	}
	return Config{Location: loc, MisfireGrace: 5 * time.Minute}
}

// Scheduler fires ScheduledTask jobs from five-field cron expressions.
// Job defaults follow spec.md §4.7/§5 exactly: coalesce late fires
// into one, max_instances=1 per job (no overlap), misfire grace 300s.
type Scheduler struct {
	cfg    Config
	runner Runner

	mu   sync.Mutex
	jobs map[int64]*job
}

// New builds a Scheduler. runner is invoked on every fire, including
// skipped misfires.
func New(cfg Config, runner Runner) *Scheduler {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.MisfireGrace <= 0 {
		cfg.MisfireGrace = 5 * time.Minute
	}
	return &Scheduler{cfg: cfg, runner: runner, jobs: make(map[int64]*job)}
}

// Install parses task.CronExpression and registers a job that invokes
// runScheduled on every fire. Replaces any existing job with the same
// id (spec.md §4.7).
func (s *Scheduler) Install(task models.ScheduledTask) error {
	expr, err := Parse(task.CronExpression)
	if err != nil {
		return err
	}

	s.Uninstall(task.ID)

	ctx, cancel := context.WithCancel(context.Background())
	j := &job{id: task.ID, expr: expr, cancel: cancel, running: abool.New()}

	s.mu.Lock()
	s.jobs[task.ID] = j
	s.mu.Unlock()

	go s.runLoop(ctx, j)
	return nil
}

// Uninstall stops and removes a job, if registered.
func (s *Scheduler) Uninstall(id int64) {
	s.mu.Lock()
	j, ok := s.jobs[id]
	if ok {
		delete(s.jobs, id)
	}
	s.mu.Unlock()
	if ok {
		j.cancel()
	}
}

// Installed reports whether id currently has a registered job.
func (s *Scheduler) Installed(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.jobs[id]
	return ok
}

// Shutdown stops every registered job. Called first in the process
// shutdown sequence (spec.md §5), before the worker pool drains.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	jobs := s.jobs
	s.jobs = make(map[int64]*job)
	s.mu.Unlock()
	for _, j := range jobs {
		j.cancel()
	}
}

func (s *Scheduler) runLoop(ctx context.Context, j *job) {
	for {
		next := j.expr.NextFireTime(time.Now(), s.cfg.Location)
		if next.IsZero() {
			log.GetLogger().WithField("job_id", j.id).Warn("scheduler: expression never matches, stopping job")
			return
		}

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.fire(ctx, j, next)
		}
	}
}

// fire enforces max_instances=1/coalesce: if the previous fire hasn't
// returned yet, this fire is dropped rather than queued.
func (s *Scheduler) fire(ctx context.Context, j *job, scheduledFor time.Time) {
	if !j.running.SetToIf(false, true) {
		log.GetLogger().WithField("job_id", j.id).Warn("scheduler: previous fire still running, skipping (max_instances=1)")
		return
	}
	defer j.running.UnSet()

	misfired := time.Since(scheduledFor) > s.cfg.MisfireGrace
	if err := s.runner.RunScheduled(ctx, j.id, misfired); err != nil {
		log.GetLogger().WithField("job_id", j.id).WithError(err).Error("scheduler: run failed")
	}
}
