package daemon

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/netbackup/internal/config"
)

func testConfig(t *testing.T) *config.GlobalConfig {
	t.Helper()
	return &config.GlobalConfig{
		Server: config.ServerConfig{
			ArtifactRoot: t.TempDir(),
			DatabaseURL:  ":memory:",
			Mode:         "development",
		},
		Worker:    config.WorkerConfig{MaxConcurrentBackups: 2, BackupTimeoutSeconds: 5},
		Artifact:  config.ArtifactConfig{EnableDiff: true},
		Scheduler: config.SchedulerConfig{Timezone: "UTC", MisfireGraceSeconds: 300},
	}
}

func TestNewWiresEveryComponent(t *testing.T) {
	d, err := New(context.Background(), testConfig(t), "")
	require.NoError(t, err)

	assert.NotNil(t, d.Tasks)
	assert.NotNil(t, d.Conns)
	assert.NotNil(t, d.Artifacts)
	assert.NotNil(t, d.Vault)
	assert.NotNil(t, d.Pool)
	assert.NotNil(t, d.Scheduler)
	assert.NotNil(t, d.Orch)

	d.Shutdown()
}

func TestNewRefusesInsecureProductionKey(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.Mode = "production"

	_, err := New(context.Background(), cfg, "")
	assert.Error(t, err)
}

func TestServeShutsDownOnCancel(t *testing.T) {
	cfg := testConfig(t)
	ctx, cancel := context.WithCancel(context.Background())

	d, err := New(ctx, cfg, "")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- d.Serve(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after context cancellation")
	}
}
