package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"firestige.xyz/netbackup/internal/daemon"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the backup engine daemon",
	Long: `Run the scheduler, worker pool, and connection pool until SIGINT or
SIGTERM is received, then drain outstanding work and shut down cleanly
(spec.md §5: scheduler stopped first, then the worker pool drains,
then the Connection Pool closes all sessions).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := context.Background()
		d, err := daemon.New(ctx, cfg, pidFile)
		if err != nil {
			return err
		}
		return d.Serve(ctx)
	},
}
