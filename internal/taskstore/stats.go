package taskstore

import (
	"context"
	"fmt"

	"firestige.xyz/netbackup/internal/errs"
	"firestige.xyz/netbackup/internal/models"
)

// Statistics is the aggregate counters returned by Orchestrator's
// statistics() verb (spec.md §4.8).
type Statistics struct {
	Total       int
	Success     int
	Failed      int
	Running     int
	TotalBytes  int64
	SuccessRate float64
}

// Statistics computes counts by status and the sum of
// artifact_size_bytes over successful tasks (spec.md §4.5).
func (s *Store) Statistics(ctx context.Context) (Statistics, error) {
	var stats Statistics
	row := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = ? THEN artifact_size_bytes ELSE 0 END), 0)
		FROM backup_tasks`,
		string(models.TaskSuccess), string(models.TaskFailed), string(models.TaskRunning), string(models.TaskSuccess))

	if err := row.Scan(&stats.Total, &stats.Success, &stats.Failed, &stats.Running, &stats.TotalBytes); err != nil {
		return Statistics{}, fmt.Errorf("taskstore: statistics: %w", errs.ErrStorage)
	}
	if stats.Total > 0 {
		stats.SuccessRate = float64(stats.Success) / float64(stats.Total)
	}
	return stats, nil
}

// DeviceTypeStatistics is one row of the SPEC_FULL.md-supplemented
// device-type breakdown: total/success/failed counts per
// device_type, joining backup_tasks to devices.
type DeviceTypeStatistics struct {
	DeviceType string
	Total      int
	Success    int
	Failed     int
}

// StatisticsByDeviceType breaks the same counts down per
// Device.device_type, letting an operator see which platforms are
// least reliable (SPEC_FULL.md §4 supplemented feature, absent from
// the distilled spec but present in the original source's reporting
// views).
func (s *Store) StatisticsByDeviceType(ctx context.Context) ([]DeviceTypeStatistics, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.device_type,
			COUNT(*),
			COALESCE(SUM(CASE WHEN t.status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN t.status = ? THEN 1 ELSE 0 END), 0)
		FROM backup_tasks t
		JOIN devices d ON d.id = t.device_id
		GROUP BY d.device_type
		ORDER BY d.device_type`,
		string(models.TaskSuccess), string(models.TaskFailed))
	if err != nil {
		return nil, fmt.Errorf("taskstore: statistics by device type: %w", errs.ErrStorage)
	}
	defer rows.Close()

	var out []DeviceTypeStatistics
	for rows.Next() {
		var st DeviceTypeStatistics
		if err := rows.Scan(&st.DeviceType, &st.Total, &st.Success, &st.Failed); err != nil {
			return nil, fmt.Errorf("taskstore: scan device type statistics: %w", errs.ErrStorage)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}
