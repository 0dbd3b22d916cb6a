// Package cmd implements netbackupd's CLI commands, a
// github.com/spf13/cobra tree mirroring the teacher's cmd/root.go,
// cmd/daemon.go, cmd/start.go, cmd/stop.go, cmd/status.go,
// cmd/task.go (SPEC_FULL.md §2.4).
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configFile string
	pidFile    string
)

var rootCmd = &cobra.Command{
	Use:   "netbackupd",
	Short: "netbackupd - network device configuration backup engine",
	Long: `netbackupd captures, persists, and compares running configurations
from a fleet of Cisco IOS/XE/NX-OS and compatible CLI-driven devices
reachable over SSH or Telnet.

Features:
  - Bounded-concurrency worker pool draining pending backup tasks
  - Per-device session serialization over SSH or Telnet
  - Content-hashed, deterministic artifact storage with unified diffs
  - Cron-style scheduler for recurring fleet-wide captures`,
	Version: "0.1.0",
}

// Execute adds all child commands to the root command and runs it.
// Called once by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "",
		"config file path (defaults to ./config.yaml or /etc/netbackup/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&pidFile, "pidfile", "netbackupd.pid",
		"pidfile path used by serve and stop")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(deviceCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(reloadCmd)
	rootCmd.AddCommand(configCmd)
}

// exitWithError prints an error to stderr and exits 1, matching the
// teacher's cmd package helper of the same name.
func exitWithError(msg string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
	}
	os.Exit(1)
}
