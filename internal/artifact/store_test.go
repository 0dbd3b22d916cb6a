package artifact

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/netbackup/internal/models"
)

func TestPathLayout(t *testing.T) {
	device := models.Device{Alias: "core-sw-1"}
	startedAt := time.Date(2026, 7, 31, 10, 30, 0, 0, time.UTC)

	p := Path("/data/artifacts", device, startedAt, "show running-config")
	assert.Equal(t, filepath.Join("/data/artifacts", "core-sw-1", "20260731_103000_show_running_config.txt"), p)
}

func TestStoreSaveAndRead(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, false)

	device := models.Device{Alias: "core-sw-1"}
	path := Path(dir, device, time.Now().UTC(), "show version")

	res, err := store.Save(path, []byte("hello world\n"))
	require.NoError(t, err)
	assert.Equal(t, path, res.Path)
	assert.False(t, res.Compressed)
	assert.NotEmpty(t, res.SHA256)

	info, err := os.Stat(res.Path)
	require.NoError(t, err)
	assert.Equal(t, info.Size(), res.SizeBytes)

	content, err := Read(res.Path)
	require.NoError(t, err)
	assert.Equal(t, "hello world\n", content)
}

func TestStoreSaveCompressed(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, true)

	device := models.Device{Alias: "edge-rtr-1"}
	path := Path(dir, device, time.Now().UTC(), "show running-config")

	res, err := store.Save(path, []byte("interface Gi0/1\n shutdown\n"))
	require.NoError(t, err)
	assert.True(t, res.Compressed)
	assert.Equal(t, GzipPath(path), res.Path)

	info, err := os.Stat(res.Path)
	require.NoError(t, err)
	assert.Equal(t, info.Size(), res.SizeBytes)
	assert.NotEqual(t, int64(len("interface Gi0/1\n shutdown\n")), res.SizeBytes,
		"gzipped on-disk size should differ from the plain content length")

	content, err := Read(res.Path)
	require.NoError(t, err)
	assert.Equal(t, "interface Gi0/1\n shutdown\n", content)
}

func TestStoreSaveIsAtomic(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, false)
	device := models.Device{Alias: "core-sw-1"}
	path := Path(dir, device, time.Now().UTC(), "show version")

	_, err := store.Save(path, []byte("first\n"))
	require.NoError(t, err)

	entries, err := filepath.Glob(filepath.Join(dir, device.Slug(), ".artifact-*"))
	require.NoError(t, err)
	assert.Empty(t, entries, "no leftover temp files after a successful save")
}
