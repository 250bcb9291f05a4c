package main

import (
	"os"
	"path/filepath"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flokli/monitor-agent/config"
)

func TestReadMachineID(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty")
	id := filepath.Join(dir, "machine-id")
	require.NoError(t, os.WriteFile(empty, []byte("\n"), 0o644))
	require.NoError(t, os.WriteFile(id, []byte("0123456789abcdef0123456789abcdef\n"), 0o644))

	got, err := readMachineID([]string{filepath.Join(dir, "missing"), empty, id})
	require.NoError(t, err)
	assert.Equal(t, "0123456789abcdef0123456789abcdef", got)

	_, err = readMachineID([]string{empty})
	assert.Error(t, err)
}

func TestSetupLogging(t *testing.T) {
	defer log.SetLevel(log.GetLevel())
	defer log.SetFormatter(log.StandardLogger().Formatter)

	require.NoError(t, setupLogging(config.Logging{Level: "debug", Format: "json"}))
	assert.Equal(t, log.DebugLevel, log.GetLevel())
	assert.IsType(t, &log.JSONFormatter{}, log.StandardLogger().Formatter)

	assert.Error(t, setupLogging(config.Logging{Level: "loud", Format: "text"}))
}
