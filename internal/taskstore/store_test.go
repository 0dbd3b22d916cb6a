package taskstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/netbackup/internal/errs"
	"firestige.xyz/netbackup/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func insertTestDevice(t *testing.T, s *Store, ip string) models.Device {
	t.Helper()
	d, err := s.InsertDevice(context.Background(), models.Device{
		Alias: "R1", IPAddress: ip, Protocol: models.ProtocolSSH,
		DeviceType: "cisco_ios", Username: "admin", PasswordCipher: "cipher",
		Command: "show running-config", Active: true,
	})
	require.NoError(t, err)
	return d
}

func TestInsertDeviceRejectsDuplicateIP(t *testing.T) {
	s := newTestStore(t)
	insertTestDevice(t, s, "10.0.0.2")

	_, err := s.InsertDevice(context.Background(), models.Device{
		IPAddress: "10.0.0.2", Protocol: models.ProtocolSSH, DeviceType: "cisco_ios",
		Username: "admin", PasswordCipher: "c", Command: "show version", Active: true,
	})
	assert.ErrorIs(t, err, errs.ErrStorage)
}

func TestTaskLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	d := insertTestDevice(t, s, "10.0.0.3")

	task, err := s.InsertTask(ctx, models.BackupTask{DeviceID: d.ID, TaskType: models.TaskTypeManual, EffectiveCommand: "show version"})
	require.NoError(t, err)
	assert.Equal(t, models.TaskPending, task.Status)

	require.NoError(t, s.Claim(ctx, task.ID))
	running, err := s.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskRunning, running.Status)
	require.NotNil(t, running.StartedAt)

	err = s.Claim(ctx, task.ID)
	assert.ErrorIs(t, err, errs.ErrBusy)

	path := "/backups/R1/x.txt"
	size := int64(42)
	hash := "deadbeef"
	require.NoError(t, s.Finalize(ctx, task.ID, FinalizeResult{Status: models.TaskSuccess, ArtifactPath: &path, SizeBytes: &size, SHA256: &hash}))

	done, err := s.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskSuccess, done.Status)
	assert.Equal(t, path, *done.ArtifactPath)
	require.NotNil(t, done.CompletedAt)
}

func TestClaimRejectsNonPendingTask(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	d := insertTestDevice(t, s, "10.0.0.4")
	task, err := s.InsertTask(ctx, models.BackupTask{DeviceID: d.ID, TaskType: models.TaskTypeManual, EffectiveCommand: "show version"})
	require.NoError(t, err)

	require.NoError(t, s.Claim(ctx, task.ID))
	require.NoError(t, s.Finalize(ctx, task.ID, FinalizeResult{Status: models.TaskFailed, ErrorMessage: "boom"}))

	err = s.Claim(ctx, task.ID)
	assert.True(t, errors.Is(err, errs.ErrBusy))
}

func TestAppendLogAndLogsForTask(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	d := insertTestDevice(t, s, "10.0.0.5")
	task, err := s.InsertTask(ctx, models.BackupTask{DeviceID: d.ID, TaskType: models.TaskTypeManual, EffectiveCommand: "show version"})
	require.NoError(t, err)

	require.NoError(t, s.AppendLog(ctx, task.ID, models.LogInfo, "starting backup of 10.0.0.5"))
	require.NoError(t, s.AppendLog(ctx, task.ID, models.LogError, "device unreachable"))

	logs, err := s.LogsForTask(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, models.LogInfo, logs[0].Level)
	assert.Equal(t, models.LogError, logs[1].Level)
}

func TestStatistics(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	d := insertTestDevice(t, s, "10.0.0.6")

	ok, err := s.InsertTask(ctx, models.BackupTask{DeviceID: d.ID, TaskType: models.TaskTypeManual, EffectiveCommand: "show version"})
	require.NoError(t, err)
	require.NoError(t, s.Claim(ctx, ok.ID))
	size := int64(100)
	require.NoError(t, s.Finalize(ctx, ok.ID, FinalizeResult{Status: models.TaskSuccess, SizeBytes: &size}))

	bad, err := s.InsertTask(ctx, models.BackupTask{DeviceID: d.ID, TaskType: models.TaskTypeManual, EffectiveCommand: "show version"})
	require.NoError(t, err)
	require.NoError(t, s.Claim(ctx, bad.ID))
	require.NoError(t, s.Finalize(ctx, bad.ID, FinalizeResult{Status: models.TaskFailed, ErrorMessage: "auth failed"}))

	stats, err := s.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Success)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, int64(100), stats.TotalBytes)
	assert.Equal(t, 0.5, stats.SuccessRate)
}

func TestLatestSuccessfulArtifactExcludesCurrentTask(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	d := insertTestDevice(t, s, "10.0.0.7")

	first, err := s.InsertTask(ctx, models.BackupTask{DeviceID: d.ID, TaskType: models.TaskTypeManual, EffectiveCommand: "show version"})
	require.NoError(t, err)
	require.NoError(t, s.Claim(ctx, first.ID))
	path := "/backups/R1/first.txt"
	require.NoError(t, s.Finalize(ctx, first.ID, FinalizeResult{Status: models.TaskSuccess, ArtifactPath: &path}))

	second, err := s.InsertTask(ctx, models.BackupTask{DeviceID: d.ID, TaskType: models.TaskTypeManual, EffectiveCommand: "show version"})
	require.NoError(t, err)
	require.NoError(t, s.Claim(ctx, second.ID))

	prior, err := s.LatestSuccessfulArtifact(ctx, d.ID, second.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, prior.ID)
}

func TestScheduledTaskRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	d := insertTestDevice(t, s, "10.0.0.8")

	st, err := s.InsertScheduledTask(ctx, models.ScheduledTask{
		Name: "nightly", TaskType: models.TaskTypeScheduled, FrequencyType: models.FrequencyDaily,
		CronExpression: "0 2 * * *", Frequency: models.FrequencyConfig{Type: models.FrequencyDaily, Hour: 2},
		TargetDeviceIDs: []int64{d.ID}, Command: "show running-config", Active: true,
	})
	require.NoError(t, err)

	loaded, err := s.GetScheduledTask(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, "0 2 * * *", loaded.CronExpression)
	assert.Equal(t, []int64{d.ID}, loaded.TargetDeviceIDs)

	active, err := s.ListActiveScheduledTasks(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}
