// Package daemon manages the netbackupd process lifecycle: component
// bootstrap, pidfile handling, and signal-driven shutdown
// (SPEC_FULL.md §2.4), grounded on the teacher's
// internal/daemon/daemon.go New/Start/signal-wait/Stop shape.
package daemon

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"firestige.xyz/netbackup/internal/artifact"
	"firestige.xyz/netbackup/internal/config"
	"firestige.xyz/netbackup/internal/connpool"
	"firestige.xyz/netbackup/internal/log"
	"firestige.xyz/netbackup/internal/orchestrator"
	"firestige.xyz/netbackup/internal/scheduler"
	"firestige.xyz/netbackup/internal/taskstore"
	"firestige.xyz/netbackup/internal/vault"
	"firestige.xyz/netbackup/internal/workerpool"
)

// Daemon owns every long-lived backup-engine component and the
// sequence that brings them up and tears them down together.
type Daemon struct {
	cfg     *config.GlobalConfig
	pidFile string

	Tasks     *taskstore.Store
	Conns     *connpool.Pool
	Artifacts *artifact.Store
	Vault     *vault.Vault
	Pool      *workerpool.Pool
	Scheduler *scheduler.Scheduler
	Orch      *orchestrator.Orchestrator

	cancel context.CancelFunc
}

// New loads cfg's components and wires them exactly as
// orchestrator.New/SetScheduler expects (spec.md §2 data flow):
// Vault -> Task Store -> Artifact Store -> Connection Pool -> Worker
// Pool -> Orchestrator -> Scheduler, with the circular
// Orchestrator<->Scheduler reference completed by SetScheduler.
func New(ctx context.Context, cfg *config.GlobalConfig, pidFile string) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logCfg := cfg.Log
	if logCfg == (log.LoggerConfig{}) {
		logCfg = log.DefaultConfig
	}
	if err := log.Init(logCfg); err != nil {
		return nil, fmt.Errorf("daemon: init logging: %w", err)
	}
	if cfg.Vault.EncryptionKey == "" || cfg.Vault.EncryptionKey == config.InsecureDefaultVaultKey {
		log.GetLogger().Warn("daemon: ENCRYPTION_KEY not set, using insecure default vault key")
	}
	key := vault.DeriveKey(orDefault(cfg.Vault.EncryptionKey, config.InsecureDefaultVaultKey))
	v, err := vault.New(key)
	if err != nil {
		return nil, fmt.Errorf("daemon: init vault: %w", err)
	}

	tasks, err := taskstore.Open(ctx, cfg.Server.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("daemon: open task store: %w", err)
	}

	artifacts := artifact.NewStore(cfg.Server.ArtifactRoot, cfg.Artifact.CompressBackups)

	// CredentialFunc only needs the Vault, but orchestrator.New wants
	// the full component set; build the façade once the Connection
	// Pool and Worker Pool exist, using a vault-only instance just to
	// hand connpool.New its decrypt function in the meantime.
	credFunc := orchestrator.New(tasks, nil, nil, artifacts, v).CredentialFunc()
	conns := connpool.New(connpool.DefaultConfig, credFunc)

	workerCfg := workerpool.DefaultConfig()
	workerCfg.MaxConcurrent = cfg.Worker.MaxConcurrentBackups
	workerCfg.ExecuteTimeout = cfg.Worker.BackupTimeout()
	workerCfg.EnableDiff = cfg.Artifact.EnableDiff
	pool := workerpool.New(workerCfg, tasks, conns, artifacts)

	o := orchestrator.New(tasks, pool, conns, artifacts, v)

	sched := scheduler.New(scheduler.Config{
		Location:     cfg.Scheduler.Location(),
		MisfireGrace: cfg.Scheduler.MisfireGrace(),
	}, o)
	o.SetScheduler(sched)

	if err := o.LoadSchedules(ctx); err != nil {
		log.GetLogger().WithError(err).Warn("daemon: failed to load schedules at startup")
	}

	return &Daemon{
		cfg:       cfg,
		pidFile:   pidFile,
		Tasks:     tasks,
		Conns:     conns,
		Artifacts: artifacts,
		Vault:     v,
		Pool:      pool,
		Scheduler: sched,
		Orch:      o,
	}, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// Serve blocks until SIGINT/SIGTERM arrives, then runs the shutdown
// sequence spec.md §5 mandates: scheduler stopped first (no new
// tasks), then the worker pool drains, then the Connection Pool
// closes all sessions.
func (d *Daemon) Serve(ctx context.Context) error {
	if err := d.writePIDFile(); err != nil {
		return err
	}
	defer d.removePIDFile()

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	d.cancel = cancel
	defer cancel()

	log.GetLogger().WithField("pid", os.Getpid()).Info("daemon: netbackupd serving")
	<-ctx.Done()
	log.GetLogger().Info("daemon: shutdown signal received")
	d.Shutdown()
	return nil
}

// Shutdown runs the component teardown sequence; safe to call once,
// either from Serve's signal wait or directly by a one-shot CLI
// command that built a Daemon just to reach its components.
func (d *Daemon) Shutdown() {
	d.Scheduler.Shutdown()
	d.Pool.Shutdown()
	d.Conns.Shutdown()
	if err := d.Tasks.Close(); err != nil {
		log.GetLogger().WithError(err).Warn("daemon: error closing task store")
	}
}

func (d *Daemon) writePIDFile() error {
	if d.pidFile == "" {
		return nil
	}
	return os.WriteFile(d.pidFile, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func (d *Daemon) removePIDFile() {
	if d.pidFile == "" {
		return
	}
	_ = os.Remove(d.pidFile)
}

// ReadPID reads a running daemon's pid from pidFile, for the CLI's
// "stop" command.
func ReadPID(pidFile string) (int, error) {
	data, err := os.ReadFile(pidFile)
	if err != nil {
		return 0, fmt.Errorf("daemon: read pidfile: %w", err)
	}
	pid, err := strconv.Atoi(string(data))
	if err != nil {
		return 0, fmt.Errorf("daemon: parse pidfile: %w", err)
	}
	return pid, nil
}
