package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/netbackup/internal/models"
	"firestige.xyz/netbackup/internal/taskstore"
)

func newScheduleTestOrchestrator(t *testing.T) (*Orchestrator, *taskstore.Store) {
	t.Helper()
	ts, err := taskstore.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { ts.Close() })
	return New(ts, nil, nil, nil, nil), ts
}

func insertTerminalTask(t *testing.T, ts *taskstore.Store, device models.Device, status models.TaskStatus, errMsg string) models.BackupTask {
	t.Helper()
	ctx := context.Background()
	task, err := ts.InsertTask(ctx, models.BackupTask{
		DeviceID: device.ID, TaskType: models.TaskTypeScheduled, EffectiveCommand: "show running-config",
	})
	require.NoError(t, err)
	require.NoError(t, ts.Claim(ctx, task.ID))

	result := taskstore.FinalizeResult{Status: status, ErrorMessage: errMsg}
	if status == models.TaskSuccess {
		path := "/tmp/doesnotmatter.txt"
		size := int64(10)
		sha := "deadbeef"
		result.ArtifactPath, result.SizeBytes, result.SHA256 = &path, &size, &sha
	}
	require.NoError(t, ts.Finalize(ctx, task.ID, result))

	done, err := ts.GetTask(ctx, task.ID)
	require.NoError(t, err)
	return done
}

func TestAwaitChildTasksTalliesSuccessAndFailure(t *testing.T) {
	o, ts := newScheduleTestOrchestrator(t)
	ctx := context.Background()

	d1, err := ts.InsertDevice(ctx, models.Device{
		IPAddress: "10.1.1.1", Protocol: models.ProtocolSSH, DeviceType: "cisco_ios",
		Username: "admin", PasswordCipher: "c", Command: "show running-config", Active: true,
	})
	require.NoError(t, err)
	d2, err := ts.InsertDevice(ctx, models.Device{
		IPAddress: "10.1.1.2", Protocol: models.ProtocolSSH, DeviceType: "cisco_ios",
		Username: "admin", PasswordCipher: "c", Command: "show running-config", Active: true,
	})
	require.NoError(t, err)

	okTask := insertTerminalTask(t, ts, d1, models.TaskSuccess, "")
	failTask := insertTerminalTask(t, ts, d2, models.TaskFailed, "device command failed: boom")

	success, failed, execLog := o.awaitChildTasks(ctx, []int64{okTask.ID, failTask.ID})

	assert.Equal(t, 1, success)
	assert.Equal(t, 1, failed)
	assert.Contains(t, execLog, "device 1: success")
	assert.Contains(t, execLog, "boom")
}

func TestRunScheduledInactiveStillBumpsLastRunAt(t *testing.T) {
	o, ts := newScheduleTestOrchestrator(t)
	ctx := context.Background()

	created, err := ts.InsertScheduledTask(ctx, models.ScheduledTask{
		Name: "inactive-job", TaskType: models.TaskTypeScheduled,
		FrequencyType: models.FrequencyDaily, CronExpression: "0 2 * * *",
		Active: false,
	})
	require.NoError(t, err)
	require.Nil(t, created.LastRunAt)

	require.NoError(t, o.RunScheduled(ctx, created.ID, false))

	reloaded, err := ts.GetScheduledTask(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.LastRunAt, "last_run_at must be bumped even on an inactive no-op fire")
}

func TestAwaitChildTasksAllSuccess(t *testing.T) {
	o, ts := newScheduleTestOrchestrator(t)
	ctx := context.Background()

	d1, err := ts.InsertDevice(ctx, models.Device{
		IPAddress: "10.1.1.3", Protocol: models.ProtocolSSH, DeviceType: "cisco_ios",
		Username: "admin", PasswordCipher: "c", Command: "show running-config", Active: true,
	})
	require.NoError(t, err)

	okTask := insertTerminalTask(t, ts, d1, models.TaskSuccess, "")

	success, failed, _ := o.awaitChildTasks(ctx, []int64{okTask.ID})
	assert.Equal(t, 1, success)
	assert.Equal(t, 0, failed)
}
