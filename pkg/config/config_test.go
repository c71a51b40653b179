package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()

	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, 10*time.Second, c.ScanTimeout)
	assert.Equal(t, 30*time.Second, c.ConnectTimeout)
	assert.Empty(t, c.CalibrationFile)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
log_level: debug
scan_timeout: 5s
calibration_file: /etc/sk8/calibration.yaml
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", c.LogLevel)
	assert.Equal(t, 5*time.Second, c.ScanTimeout)
	// Unset keys keep their defaults.
	assert.Equal(t, 30*time.Second, c.ConnectTimeout)
	assert.Equal(t, "/etc/sk8/calibration.yaml", c.CalibrationFile)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	c := DefaultConfig()
	c.LogLevel = "warning"

	logger, err := c.NewLogger()
	require.NoError(t, err)
	assert.Equal(t, logrus.WarnLevel, logger.GetLevel())
}

func TestNewLoggerInvalidLevel(t *testing.T) {
	c := DefaultConfig()
	c.LogLevel = "loud"

	_, err := c.NewLogger()
	assert.Error(t, err)
}
