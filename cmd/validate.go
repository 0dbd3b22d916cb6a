package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"firestige.xyz/netbackup/internal/scheduler"
)

var validateCmd = &cobra.Command{
	Use:   "validate <cron_expression>",
	Short: "Validate a five-field cron expression without installing a schedule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ok, reason := scheduler.Validate(args[0])
		if !ok {
			fmt.Printf("invalid: %s\n", reason)
			exitWithError("validate", errors.New(reason))
		}
		fmt.Println("valid")
		return nil
	},
}
