package cmd

import (
	"context"
	"fmt"

	"firestige.xyz/netbackup/internal/config"
	"firestige.xyz/netbackup/internal/daemon"
)

// loadConfig reads GlobalConfig from the --config flag (or the
// defaults config.Load falls back to).
func loadConfig() (*config.GlobalConfig, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// openEngine builds a Daemon (and therefore every wired component)
// for one-shot CLI commands that need the Orchestrator without
// running Serve's signal-driven loop. Callers must call close() when
// done so the Task Store and Connection Pool release their handles.
func openEngine(ctx context.Context) (d *daemon.Daemon, closeFn func(), err error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	d, err = daemon.New(ctx, cfg, "")
	if err != nil {
		return nil, nil, err
	}
	return d, d.Shutdown, nil
}
