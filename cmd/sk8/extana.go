package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/srg/sk8/pkg/sk8"
)

// extanaCmd represents the extana command
var extanaCmd = &cobra.Command{
	Use:   "extana",
	Short: "Stream analogue data from an SK8-ExtAna board",
	Long: `Connect to an SK8 and stream data from an attached SK8-ExtAna board.

Each line carries one packet: the two analogue channel readings, the board
temperature and the packet sequence number. With --include-imu the SK8's
internal IMU streams alongside the analogue data.`,
	RunE: runExtAna,
}

var (
	extanaIncludeIMU bool
	extanaDuration   time.Duration
	extanaQuiet      bool
)

func init() {
	extanaCmd.Flags().BoolVar(&extanaIncludeIMU, "include-imu", false, "Also stream the internal IMU")
	extanaCmd.Flags().DurationVarP(&extanaDuration, "duration", "d", 0, "Streaming duration (0 for indefinite)")
	extanaCmd.Flags().BoolVarP(&extanaQuiet, "quiet", "q", false, "Suppress per-packet output, print only the summary")
}

func runExtAna(cmd *cobra.Command, args []string) error {
	sess, closeSession, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer closeSession()
	dev := sess.device

	if has, err := dev.HasExtAna(false); err == nil && !has {
		return fmt.Errorf("no SK8-ExtAna board attached to %s", dev.Address())
	}

	if !extanaQuiet {
		dev.SetExtAnaCallback(printExtAnaPacket, nil)
		if extanaIncludeIMU {
			dev.SetIMUCallback(printIMUPacket, nil)
		}
	}

	if err := dev.EnableExtAnaStreaming(extanaIncludeIMU, sk8.SensorAll); err != nil {
		return err
	}
	defer func() {
		if err := dev.DisableExtAnaStreaming(); err != nil {
			sess.logger.WithError(err).Warn("Failed to disable streaming")
		}
	}()

	if err := streamUntil(extanaDuration); err != nil {
		return err
	}

	fmt.Printf("\n%d packets received, %d lost\n", dev.ReceivedPackets(), dev.ExtAna().TotalLoss())
	return nil
}

func printExtAnaPacket(ch1, ch2 int16, tempC float64, seq uint8, ts time.Time, _ any) {
	fmt.Printf("ch1=%6d ch2=%6d temp=%5.1f°C seq=%d\n", ch1, ch2, tempC, seq)
}
