package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"unicode"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// formatVersion adds 'v' prefix if version starts with a digit
func formatVersion(ver string) string {
	if len(ver) > 0 && unicode.IsDigit(rune(ver[0])) {
		return "v" + ver
	}
	return ver
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sk8",
	Short: "SK8 sensor pack CLI",
	Long: `Command-line tool for SK8 Bluetooth Low Energy sensor packs:

- Stream IMU data from the internal IMU and the external IMU chain
- Stream analogue data from an attached SK8-ExtAna board
- Query battery level, firmware version and attached hardware
- Control the SK8-ExtAna RGB LED
- Apply per-IMU calibration from a YAML file

A device is selected with --name or --address on each subcommand.`,
	Version: formatVersion(version),
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Ctrl+C is a normal exit, not an error - exit silently
		if errors.Is(err, context.Canceled) {
			return
		}
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", formatUserError(err))
		os.Exit(1)
	}
}

func init() {
	// Silence Cobra's "Error:" prefix - main() prints clean errors
	rootCmd.SilenceErrors = true

	// Add subcommands
	rootCmd.AddCommand(streamCmd)
	rootCmd.AddCommand(extanaCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(ledCmd)

	// Global flags
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringP("name", "n", "", "Device name to connect to")
	rootCmd.PersistentFlags().StringP("address", "a", "", "Device address to connect to")
	rootCmd.PersistentFlags().Duration("timeout", 0, "Scan/connect timeout (default from config)")
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().String("calibration", "", "Path to a YAML calibration file")

	// Add -v as a short flag for --version
	rootCmd.Flags().BoolP("version", "v", false, "Show version information")
}
