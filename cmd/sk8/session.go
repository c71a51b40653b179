package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/srg/sk8/internal/transport"
	"github.com/srg/sk8/pkg/config"
	"github.com/srg/sk8/pkg/sk8"
)

// session bundles everything a subcommand needs after connecting.
type session struct {
	device *sk8.SK8
	logger *logrus.Logger
	cfg    *config.Config
}

// openSession loads config, validates the device selection flags, connects
// and returns the live session. The caller must call close().
func openSession(cmd *cobra.Command) (*session, func(), error) {
	cfg := config.DefaultConfig()
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, nil, err
		}
		cfg = loaded
	}

	logger, err := configureLogger(cmd, cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}

	name, _ := cmd.Flags().GetString("name")
	address, _ := cmd.Flags().GetString("address")
	if name == "" && address == "" {
		return nil, nil, fmt.Errorf("a device must be selected with --name or --address")
	}

	timeout, _ := cmd.Flags().GetDuration("timeout")
	if timeout == 0 {
		timeout = cfg.ScanTimeout
	}

	calibration, _ := cmd.Flags().GetString("calibration")
	if calibration == "" {
		calibration = cfg.CalibrationFile
	}

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	dev := sk8.New(transport.NewBLETransport(logger), &sk8.Options{
		Logger:          logger,
		CalibrationFile: calibration,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()
	if err := dev.Connect(ctx, name, address, timeout); err != nil {
		return nil, nil, fmt.Errorf("failed to connect: %w", err)
	}
	logger.WithField("address", dev.Address()).Info("Connected")

	closeFn := func() {
		if err := dev.Disconnect(); err != nil {
			logger.WithError(err).Warn("Disconnect failed")
		}
	}
	return &session{device: dev, logger: logger, cfg: cfg}, closeFn, nil
}

// streamUntil blocks until the duration elapses (0 means indefinitely) or
// the user interrupts with Ctrl+C.
func streamUntil(duration time.Duration) error {
	ctx := context.Background()
	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case <-sigCh:
		fmt.Println("\nCtrl+C pressed, stopping...")
		return nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil
		}
		return ctx.Err()
	}
}

// formatUserError strips wrapping noise from the errors users actually see.
func formatUserError(err error) string {
	switch {
	case errors.Is(err, sk8.ErrNotConnected):
		return "not connected to a device"
	case sk8.IsAttributeUnsupported(err):
		return fmt.Sprintf("%v (is the required hardware attached?)", err)
	default:
		return err.Error()
	}
}
