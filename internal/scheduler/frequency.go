package scheduler

import (
	"fmt"

	"firestige.xyz/netbackup/internal/models"
)

// DeriveCronExpression converts a ScheduledTask's structured
// FrequencyConfig into the authoritative cron_expression spec.md §3
// requires: the cron string is what the Scheduler actually runs, the
// structured config is preserved only for UI round-trip.
func DeriveCronExpression(cfg models.FrequencyConfig) (string, error) {
	switch cfg.Type {
	case models.FrequencyDaily:
		return fmt.Sprintf("%d %d * * *", cfg.Minute, cfg.Hour), nil
	case models.FrequencyWeekly:
		return fmt.Sprintf("%d %d * * %d", cfg.Minute, cfg.Hour, cfg.Weekday), nil
	case models.FrequencyMonthly:
		return fmt.Sprintf("%d %d %d * *", cfg.Minute, cfg.Hour, cfg.Day), nil
	case models.FrequencyCustom:
		if cfg.Cron == "" {
			return "", fmt.Errorf("scheduler: custom frequency requires a cron expression")
		}
		return cfg.Cron, nil
	default:
		return "", fmt.Errorf("scheduler: unknown frequency type %q", cfg.Type)
	}
}
