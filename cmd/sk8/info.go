package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/srg/sk8/pkg/sk8"
)

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show device information",
	Long: `Connect to an SK8 and print its name, address, firmware version,
battery level and attached hardware.`,
	RunE: runInfo,
}

func runInfo(cmd *cobra.Command, args []string) error {
	sess, closeSession, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer closeSession()
	dev := sess.device

	var w io.Writer = os.Stdout
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	writeRow := func(label, value string) {
		fmt.Fprintf(tw, "%s\t%s\n", label, value)
	}
	writeResult := func(label, value string, err error) {
		if err != nil {
			if sk8.IsAttributeUnsupported(err) {
				writeRow(label, "unsupported")
			} else {
				writeRow(label, fmt.Sprintf("error: %v", err))
			}
			return
		}
		writeRow(label, value)
	}

	name, err := dev.DeviceName(true)
	writeResult("Name", name, err)
	writeRow("Address", dev.Address())

	fw, err := dev.FirmwareVersion(false)
	writeResult("Firmware", fw, err)

	battery, err := dev.BatteryLevel()
	writeResult("Battery", fmt.Sprintf("%d%%", battery), err)

	hasIMUs, err := dev.HasIMUs(false)
	writeResult("External IMUs", fmt.Sprintf("%v", hasIMUs), err)

	hasExtAna, err := dev.HasExtAna(true)
	writeResult("ExtAna board", fmt.Sprintf("%v", hasExtAna), err)

	if override, err := dev.PollingOverride(); err == nil {
		if override == 0 {
			writeRow("Polling override", "disabled")
		} else {
			writeRow("Polling override", fmt.Sprintf("%d ms", override))
		}
	}

	return tw.Flush()
}
