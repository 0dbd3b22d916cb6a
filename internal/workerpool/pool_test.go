package workerpool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/netbackup/internal/artifact"
	"firestige.xyz/netbackup/internal/models"
	"firestige.xyz/netbackup/internal/taskstore"
)

func newTestPool(t *testing.T) (*Pool, *taskstore.Store) {
	t.Helper()
	ts, err := taskstore.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { ts.Close() })

	store := artifact.NewStore(t.TempDir(), false)
	p := New(DefaultConfig(), ts, nil, store)
	return p, ts
}

func TestSubmitAfterShutdownIsDropped(t *testing.T) {
	p, _ := newTestPool(t)
	p.Shutdown()

	// Should not panic and should return promptly rather than blocking
	// forever on a closed pool.
	p.Submit(1)
	p.Shutdown()
}

func TestFinalizeFailedWritesErrorAndLog(t *testing.T) {
	ctx := context.Background()
	p, ts := newTestPool(t)

	device, err := ts.InsertDevice(ctx, models.Device{
		IPAddress: "10.0.0.9", Protocol: models.ProtocolSSH, DeviceType: "cisco_ios",
		Username: "admin", PasswordCipher: "c", Command: "show version", Active: true,
	})
	require.NoError(t, err)

	task, err := ts.InsertTask(ctx, models.BackupTask{DeviceID: device.ID, TaskType: models.TaskTypeManual, EffectiveCommand: "show version"})
	require.NoError(t, err)
	require.NoError(t, ts.Claim(ctx, task.ID))

	p.finalizeFailed(ctx, task.ID, device, "cannot establish device connection", assert.AnError)

	done, err := ts.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskFailed, done.Status)
	assert.Contains(t, done.ErrorMessage, "cannot establish device connection")

	logs, err := ts.LogsForTask(ctx, task.ID)
	require.NoError(t, err)
	require.NotEmpty(t, logs)
	assert.Equal(t, models.LogError, logs[len(logs)-1].Level)

	reloaded, err := ts.GetDevice(ctx, device.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.LastBackupStatus)
	assert.Equal(t, models.BackupStatusFailed, *reloaded.LastBackupStatus)
}

func TestDiffAgainstPriorNoopWhenNoPriorArtifact(t *testing.T) {
	ctx := context.Background()
	p, ts := newTestPool(t)

	device, err := ts.InsertDevice(ctx, models.Device{
		IPAddress: "10.0.0.10", Protocol: models.ProtocolSSH, DeviceType: "cisco_ios",
		Username: "admin", PasswordCipher: "c", Command: "show version", Active: true,
	})
	require.NoError(t, err)
	task, err := ts.InsertTask(ctx, models.BackupTask{DeviceID: device.ID, TaskType: models.TaskTypeManual, EffectiveCommand: "show version"})
	require.NoError(t, err)

	// Should return without panicking even though no prior success exists.
	p.diffAgainstPrior(device, task.ID, "/nonexistent/path.txt")
}
