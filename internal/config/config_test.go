package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "backups", cfg.Server.ArtifactRoot)
	assert.Equal(t, 10, cfg.Worker.MaxConcurrentBackups)
	assert.Equal(t, "Asia/Shanghai", cfg.Scheduler.Timezone)
	assert.True(t, cfg.Artifact.EnableDiff)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  artifact_root: /var/lib/netbackup/backups
  mode: production
worker:
  max_concurrent_backups: 4
artifact:
  compress_backups: true
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/netbackup/backups", cfg.Server.ArtifactRoot)
	assert.Equal(t, "production", cfg.Server.Mode)
	assert.Equal(t, 4, cfg.Worker.MaxConcurrentBackups)
	assert.True(t, cfg.Artifact.CompressBackups)
}

func TestEnvOverridesDefault(t *testing.T) {
	t.Setenv("MAX_CONCURRENT_BACKUPS", "7")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Worker.MaxConcurrentBackups)
}

func TestValidateRefusesProductionWithDefaultKey(t *testing.T) {
	cfg := GlobalConfig{Server: ServerConfig{Mode: "production"}}
	assert.Error(t, cfg.Validate())

	cfg.Vault.EncryptionKey = InsecureDefaultVaultKey
	assert.Error(t, cfg.Validate())

	cfg.Vault.EncryptionKey = "a-real-operator-supplied-secret"
	assert.NoError(t, cfg.Validate())
}

func TestValidateAllowsDevelopmentWithoutKey(t *testing.T) {
	cfg := GlobalConfig{Server: ServerConfig{Mode: "development"}}
	assert.NoError(t, cfg.Validate())
}

func TestBackupTimeoutDuration(t *testing.T) {
	w := WorkerConfig{BackupTimeoutSeconds: 300}
	assert.Equal(t, 300_000_000_000, int(w.BackupTimeout()))
}

func TestSchedulerLocationFallsBackToUTC(t *testing.T) {
	s := SchedulerConfig{Timezone: "Not/AZone"}
	assert.Equal(t, "UTC", s.Location().String())
}
