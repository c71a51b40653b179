package config

import (
	"fmt"
	"os"
	"time"

	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	LogLevel        string        `yaml:"log_level" default:"info"`
	ScanTimeout     time.Duration `yaml:"scan_timeout" default:"10s"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout" default:"30s"`
	CalibrationFile string        `yaml:"calibration_file"`
}

// DefaultConfig returns default configuration values
func DefaultConfig() *Config {
	c := &Config{}
	defaults.SetDefaults(c)
	return c
}

// Load reads a YAML configuration file on top of the defaults.
func Load(path string) (*Config, error) {
	c := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return c, nil
}

// UnmarshalYAML decodes the config, accepting duration fields in the usual
// "10s"/"1m30s" notation. Keys absent from the document keep their current
// values, so decoding on top of DefaultConfig preserves defaults.
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		LogLevel        string `yaml:"log_level"`
		ScanTimeout     string `yaml:"scan_timeout"`
		ConnectTimeout  string `yaml:"connect_timeout"`
		CalibrationFile string `yaml:"calibration_file"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	if raw.LogLevel != "" {
		c.LogLevel = raw.LogLevel
	}
	if raw.CalibrationFile != "" {
		c.CalibrationFile = raw.CalibrationFile
	}
	for _, d := range []struct {
		key string
		val string
		dst *time.Duration
	}{
		{"scan_timeout", raw.ScanTimeout, &c.ScanTimeout},
		{"connect_timeout", raw.ConnectTimeout, &c.ConnectTimeout},
	} {
		if d.val == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.val)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", d.key, err)
		}
		*d.dst = parsed
	}
	return nil
}

// NewLogger creates a configured logger instance
func (c *Config) NewLogger() (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}

	logger := logrus.New()
	logger.SetLevel(level)

	// Use structured logging format
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	return logger, nil
}
