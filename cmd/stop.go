package cmd

import (
	"fmt"
	"syscall"

	"github.com/spf13/cobra"

	"firestige.xyz/netbackup/internal/daemon"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop a running netbackupd daemon",
	Long: `Signal a running "netbackupd serve" process (found via --pidfile) to
shut down gracefully, the same sequence serve runs on SIGINT/SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		pid, err := daemon.ReadPID(pidFile)
		if err != nil {
			exitWithError("read pidfile", err)
		}
		if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
			exitWithError("signal daemon", err)
		}
		fmt.Printf("sent SIGTERM to pid %d\n", pid)
		return nil
	},
}
