package main

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// configureLogger creates a logger with the appropriate log level based on flags.
// --log-level takes precedence over the config file's log_level.
func configureLogger(cmd *cobra.Command, configLevel string) (*logrus.Logger, error) {
	// Default to the config file's level, silent-ish otherwise
	logLevel := logrus.WarnLevel
	if configLevel != "" {
		parsed, err := logrus.ParseLevel(configLevel)
		if err != nil {
			return nil, fmt.Errorf("invalid log level in config: %s", configLevel)
		}
		logLevel = parsed
	}

	// --log-level overrides
	logLevelStr, _ := cmd.Flags().GetString("log-level")
	if logLevelStr != "" {
		switch logLevelStr {
		case "debug":
			logLevel = logrus.DebugLevel
		case "info":
			logLevel = logrus.InfoLevel
		case "warn":
			logLevel = logrus.WarnLevel
		case "error":
			logLevel = logrus.ErrorLevel
		default:
			return nil, fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", logLevelStr)
		}
	}

	logger := logrus.New()
	logger.SetLevel(logLevel)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	return logger, nil
}
