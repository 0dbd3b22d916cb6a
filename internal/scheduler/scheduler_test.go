package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tevino/abool"

	"firestige.xyz/netbackup/internal/models"
)

type recordingRunner struct {
	mu        sync.Mutex
	fires     int
	misfires  int
	blockTime time.Duration
}

func (r *recordingRunner) RunScheduled(ctx context.Context, id int64, misfired bool) error {
	r.mu.Lock()
	r.fires++
	if misfired {
		r.misfires++
	}
	block := r.blockTime
	r.mu.Unlock()
	if block > 0 {
		time.Sleep(block)
	}
	return nil
}

func (r *recordingRunner) count() (fires, misfires int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fires, r.misfires
}

// The "* * * * *" expression used below fires every minute; since
// NextFireTime works at minute granularity and we can't
// mock time.Now here, so these tests exercise install/uninstall
// semantics rather than waiting a full minute for a real fire.
func TestInstallReplacesExistingJob(t *testing.T) {
	runner := &recordingRunner{}
	s := New(DefaultConfig(), runner)

	task := models.ScheduledTask{ID: 1, CronExpression: "* * * * *"}
	require.NoError(t, s.Install(task))
	assert.True(t, s.Installed(1))

	require.NoError(t, s.Install(task))
	assert.True(t, s.Installed(1))

	s.Uninstall(1)
	assert.False(t, s.Installed(1))
}

func TestInstallRejectsInvalidExpression(t *testing.T) {
	s := New(DefaultConfig(), &recordingRunner{})
	err := s.Install(models.ScheduledTask{ID: 2, CronExpression: "not a cron"})
	assert.Error(t, err)
	assert.False(t, s.Installed(2))
}

func TestShutdownStopsAllJobs(t *testing.T) {
	s := New(DefaultConfig(), &recordingRunner{})
	require.NoError(t, s.Install(models.ScheduledTask{ID: 1, CronExpression: "* * * * *"}))
	require.NoError(t, s.Install(models.ScheduledTask{ID: 2, CronExpression: "* * * * *"}))

	s.Shutdown()
	assert.False(t, s.Installed(1))
	assert.False(t, s.Installed(2))
}

func TestFireSkipsOverlappingRunMaxInstancesOne(t *testing.T) {
	runner := &recordingRunner{blockTime: 200 * time.Millisecond}
	s := New(DefaultConfig(), runner)
	j := &job{id: 1, running: abool.New()}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); s.fire(context.Background(), j, time.Now()) }()
	go func() {
		defer wg.Done()
		time.Sleep(20 * time.Millisecond)
		s.fire(context.Background(), j, time.Now())
	}()
	wg.Wait()

	fires, _ := runner.count()
	assert.Equal(t, 1, fires, "second overlapping fire should have been dropped")
}

func TestFireMarksMisfireWhenLate(t *testing.T) {
	runner := &recordingRunner{}
	cfg := DefaultConfig()
	cfg.MisfireGrace = 100 * time.Millisecond
	s := New(cfg, runner)
	j := &job{id: 1, running: abool.New()}

	scheduledFor := time.Now().Add(-time.Second) // well past the grace window
	s.fire(context.Background(), j, scheduledFor)

	fires, misfires := runner.count()
	assert.Equal(t, 1, fires)
	assert.Equal(t, 1, misfires)
}
