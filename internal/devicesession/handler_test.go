package devicesession

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKnownHandlersRegistered(t *testing.T) {
	names := Known()
	assert.Contains(t, names, "cisco_ios")
	assert.Contains(t, names, "cisco_xe")
	assert.Contains(t, names, "cisco_nxos")
	assert.Contains(t, names, "cisco_ios_telnet")
	assert.Contains(t, names, "generic")
}

func TestGetUnknownHandler(t *testing.T) {
	_, err := Get("juniper_junos")
	require.Error(t, err)
}

func TestIsShowCommand(t *testing.T) {
	assert.True(t, isShowCommand("show running-config"))
	assert.True(t, isShowCommand("  Show Version"))
	assert.False(t, isShowCommand("configure terminal"))
}

func TestIsRunningConfigCommand(t *testing.T) {
	assert.True(t, isRunningConfigCommand("show running-config"))
	assert.True(t, isRunningConfigCommand("show running-config interface Gi0/1"))
	assert.False(t, isRunningConfigCommand("show version"))
}

func TestStripPagerArtifacts(t *testing.T) {
	in := "line one\r\r\nline two --More-- \x1b[Kline three"
	out := stripPagerArtifacts(in)
	assert.NotContains(t, out, "--More--")
	assert.NotContains(t, out, "\x1b[K")
}
