// Command netbackupd captures, persists, and compares running
// configurations from a fleet of SSH/Telnet network devices.
package main

import (
	"fmt"
	"os"

	"firestige.xyz/netbackup/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
