package taskstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"firestige.xyz/netbackup/internal/errs"
	"firestige.xyz/netbackup/internal/models"
)

const timeLayout = time.RFC3339Nano

// InsertDevice creates a Device row. Fails with errs.ErrStorage
// wrapping a uniqueness violation when ip_address is already taken
// (spec.md §3 invariant).
func (s *Store) InsertDevice(ctx context.Context, d models.Device) (models.Device, error) {
	now := time.Now().UTC()
	d.CreatedAt, d.UpdatedAt = now, now

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO devices (alias, ip_address, port, protocol, device_type, username,
			password_cipher, enable_password_cipher, command, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.Alias, d.IPAddress, d.EffectivePort(), string(d.Protocol), d.DeviceType, d.Username,
		d.PasswordCipher, d.EnablePasswordCipher, d.Command, boolToInt(d.Active),
		now.Format(timeLayout), now.Format(timeLayout))
	if err != nil {
		if isUniqueViolation(err) {
			return models.Device{}, fmt.Errorf("taskstore: device ip_address %q already registered: %w", d.IPAddress, errs.ErrStorage)
		}
		return models.Device{}, fmt.Errorf("taskstore: insert device: %w", errs.ErrStorage)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Device{}, fmt.Errorf("taskstore: insert device: %w", errs.ErrStorage)
	}
	d.ID = id
	return d, nil
}

// GetDevice loads one Device by id.
func (s *Store) GetDevice(ctx context.Context, id int64) (models.Device, error) {
	row := s.db.QueryRowContext(ctx, deviceSelect+" WHERE id = ?", id)
	return scanDevice(row)
}

// GetDeviceByIPAddress loads one Device by its unique ip_address.
func (s *Store) GetDeviceByIPAddress(ctx context.Context, ip string) (models.Device, error) {
	row := s.db.QueryRowContext(ctx, deviceSelect+" WHERE ip_address = ?", ip)
	return scanDevice(row)
}

// ListActiveDevices returns every Device with active=true, ordered by
// id, for batch submission and scheduled-task fan-out.
func (s *Store) ListActiveDevices(ctx context.Context) ([]models.Device, error) {
	rows, err := s.db.QueryContext(ctx, deviceSelect+" WHERE active = 1 ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("taskstore: list active devices: %w", errs.ErrStorage)
	}
	defer rows.Close()
	return scanDevices(rows)
}

// ListDevicesByIDs loads a specific set of devices, e.g. a
// ScheduledTask's target_device_ids.
func (s *Store) ListDevicesByIDs(ctx context.Context, ids []int64) ([]models.Device, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	query := deviceSelect + fmt.Sprintf(" WHERE id IN (%s) AND active = 1 ORDER BY id", strings.Join(placeholders, ","))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("taskstore: list devices by ids: %w", errs.ErrStorage)
	}
	defer rows.Close()
	return scanDevices(rows)
}

// UpdateLastBackup sets Device.last_backup_at/last_backup_status,
// the only fields the engine itself mutates on a Device (spec.md §3).
func (s *Store) UpdateLastBackup(ctx context.Context, deviceID int64, status models.BackupStatus, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE devices SET last_backup_at = ?, last_backup_status = ?, updated_at = ? WHERE id = ?`,
		at.UTC().Format(timeLayout), string(status), time.Now().UTC().Format(timeLayout), deviceID)
	if err != nil {
		return fmt.Errorf("taskstore: update last backup: %w", errs.ErrStorage)
	}
	return nil
}

const deviceSelect = `SELECT id, alias, ip_address, port, protocol, device_type, username,
	password_cipher, enable_password_cipher, command, active, created_at, updated_at,
	last_backup_at, last_backup_status FROM devices`

func scanDevice(row *sql.Row) (models.Device, error) {
	var d models.Device
	var protocol, active string
	var createdAt, updatedAt string
	var lastBackupAt, lastBackupStatus sql.NullString

	err := row.Scan(&d.ID, &d.Alias, &d.IPAddress, &d.Port, &protocol, &d.DeviceType, &d.Username,
		&d.PasswordCipher, &d.EnablePasswordCipher, &d.Command, &active, &createdAt, &updatedAt,
		&lastBackupAt, &lastBackupStatus)
	if err == sql.ErrNoRows {
		return models.Device{}, errs.ErrNotFound
	}
	if err != nil {
		return models.Device{}, fmt.Errorf("taskstore: scan device: %w", errs.ErrStorage)
	}
	return finishDevice(d, protocol, active, createdAt, updatedAt, lastBackupAt, lastBackupStatus)
}

func scanDevices(rows *sql.Rows) ([]models.Device, error) {
	var out []models.Device
	for rows.Next() {
		var d models.Device
		var protocol, active string
		var createdAt, updatedAt string
		var lastBackupAt, lastBackupStatus sql.NullString

		if err := rows.Scan(&d.ID, &d.Alias, &d.IPAddress, &d.Port, &protocol, &d.DeviceType, &d.Username,
			&d.PasswordCipher, &d.EnablePasswordCipher, &d.Command, &active, &createdAt, &updatedAt,
			&lastBackupAt, &lastBackupStatus); err != nil {
			return nil, fmt.Errorf("taskstore: scan device: %w", errs.ErrStorage)
		}
		dev, err := finishDevice(d, protocol, active, createdAt, updatedAt, lastBackupAt, lastBackupStatus)
		if err != nil {
			return nil, err
		}
		out = append(out, dev)
	}
	return out, rows.Err()
}

func finishDevice(d models.Device, protocol, active, createdAt, updatedAt string, lastBackupAt, lastBackupStatus sql.NullString) (models.Device, error) {
	d.Protocol = models.Protocol(protocol)
	d.Active = active == "1"

	t, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return models.Device{}, fmt.Errorf("taskstore: parse created_at: %w", errs.ErrStorage)
	}
	d.CreatedAt = t
	t, err = time.Parse(timeLayout, updatedAt)
	if err != nil {
		return models.Device{}, fmt.Errorf("taskstore: parse updated_at: %w", errs.ErrStorage)
	}
	d.UpdatedAt = t

	if lastBackupAt.Valid {
		t, err := time.Parse(timeLayout, lastBackupAt.String)
		if err == nil {
			d.LastBackupAt = &t
		}
	}
	if lastBackupStatus.Valid {
		st := models.BackupStatus(lastBackupStatus.String)
		d.LastBackupStatus = &st
	}
	return d, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint
// failure, used to translate the devices.ip_address index into a
// specific error (spec.md §8 "Uniqueness" property).
func isUniqueViolation(err error) bool {
	sqliteErr, ok := err.(sqlite3.Error)
	return ok && sqliteErr.Code == sqlite3.ErrConstraint
}
