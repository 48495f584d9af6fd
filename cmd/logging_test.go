package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupLogging(t *testing.T) {
	defer logrus.SetOutput(os.Stderr)
	defer logrus.SetLevel(logrus.GetLevel())

	_, err := setupLogging("loud", "")
	assert.Error(t, err)

	c, err := setupLogging("debug", "")
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())
	assert.NoError(t, c.Close())

	path := filepath.Join(t.TempDir(), "netsim.log")
	c, err = setupLogging("info", path)
	require.NoError(t, err)
	logrus.Info("hello rotated file")
	require.NoError(t, c.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello rotated file")
}

func TestRunCommand_FailureIsFlushedToLogFile(t *testing.T) {
	// GIVEN a run that fails after logging to a rotated file
	defer logrus.SetOutput(os.Stderr)
	defer logrus.SetLevel(logrus.GetLevel())
	t.Cleanup(func() {
		logFile, protocolName, logLevel = "", "gossip", "warn"
		rootCmd.SetArgs(nil)
	})
	path := filepath.Join(t.TempDir(), "netsim.log")
	rootCmd.SetArgs([]string{"run", "--protocol", "no-such-protocol", "--log", "info", "--log-file", path})

	// WHEN the command runs
	err := rootCmd.Execute()

	// THEN the error is returned and already in the closed log file
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown protocol")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "unknown protocol")
}
