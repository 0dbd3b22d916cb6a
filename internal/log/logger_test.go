package log

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitValidLevel(t *testing.T) {
	err := Init(LoggerConfig{Level: "debug", Console: true})
	require.NoError(t, err)
	assert.True(t, GetLogger().IsDebugEnabled())
}

func TestInitInvalidLevel(t *testing.T) {
	err := Init(LoggerConfig{Level: "not-a-level"})
	assert.Error(t, err)
}

func TestInitWithFileAppender(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "netbackup.log")

	err := Init(LoggerConfig{
		Level:   "info",
		Console: false,
		File: &FileAppenderOpt{
			Enabled:  true,
			Filename: path,
			MaxSize:  10,
		},
	})
	require.NoError(t, err)

	GetLogger().Info("hello file appender")

	_, statErr := os.Stat(path)
	assert.NoError(t, statErr)
}

func TestWithFieldsReturnsIndependentLogger(t *testing.T) {
	require.NoError(t, Init(LoggerConfig{Level: "info", Console: true}))
	base := GetLogger()
	withField := base.WithField("device_id", int64(1))
	assert.NotNil(t, withField)
	assert.True(t, withField.IsInfoEnabled())
}
