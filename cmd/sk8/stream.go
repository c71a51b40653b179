package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/srg/sk8/pkg/sk8"
)

// streamCmd represents the stream command
var streamCmd = &cobra.Command{
	Use:   "stream",
	Short: "Stream IMU data from an SK8",
	Long: `Connect to an SK8 and stream IMU sensor data to stdout.

Each line carries one packet: the IMU slot, the accelerometer, gyroscope and
magnetometer vectors, and the packet sequence number. On exit a per-IMU
summary of sample rate and packet loss is printed.`,
	RunE: runStream,
}

var (
	streamIMUs      []int
	streamSensors   []string
	streamDuration  time.Duration
	streamCalibrate bool
	streamQuiet     bool
)

func init() {
	streamCmd.Flags().IntSliceVarP(&streamIMUs, "imus", "i", []int{0}, "IMU slots to enable (0-4)")
	streamCmd.Flags().StringSliceVarP(&streamSensors, "sensors", "s", []string{"acc", "gyro", "mag"}, "Sensors to enable (acc, gyro, mag)")
	streamCmd.Flags().DurationVarP(&streamDuration, "duration", "d", 0, "Streaming duration (0 for indefinite)")
	streamCmd.Flags().BoolVar(&streamCalibrate, "calibrate", false, "Apply calibration from the calibration file")
	streamCmd.Flags().BoolVarP(&streamQuiet, "quiet", "q", false, "Suppress per-packet output, print only the summary")
}

// parseSensorMask folds the --sensors flag into a SensorMask.
func parseSensorMask(names []string) (sk8.SensorMask, error) {
	var mask sk8.SensorMask
	for _, name := range names {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "acc":
			mask |= sk8.SensorAcc
		case "gyro":
			mask |= sk8.SensorGyro
		case "mag":
			mask |= sk8.SensorMag
		default:
			return 0, fmt.Errorf("unknown sensor %q (must be acc, gyro or mag)", name)
		}
	}
	return mask, nil
}

func runStream(cmd *cobra.Command, args []string) error {
	sensors, err := parseSensorMask(streamSensors)
	if err != nil {
		return err
	}

	sess, closeSession, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer closeSession()
	dev := sess.device

	if streamCalibrate {
		dev.SetCalibrationEnabled(true, streamIMUs)
	}

	if !streamQuiet {
		dev.SetIMUCallback(printIMUPacket, nil)
	}

	if err := dev.EnableIMUStreaming(streamIMUs, sensors); err != nil {
		return err
	}
	defer func() {
		if err := dev.DisableIMUStreaming(); err != nil {
			sess.logger.WithError(err).Warn("Failed to disable streaming")
		}
	}()

	if err := streamUntil(streamDuration); err != nil {
		return err
	}

	printStreamSummary(dev, streamIMUs)
	return nil
}

func printIMUPacket(acc, gyro, mag [3]float64, imu, seq uint8, ts time.Time, _ any) {
	fmt.Printf("imu=%d acc=[%6.0f %6.0f %6.0f] gyro=[%6.0f %6.0f %6.0f] mag=[%6.0f %6.0f %6.0f] seq=%d\n",
		imu, acc[0], acc[1], acc[2], gyro[0], gyro[1], gyro[2], mag[0], mag[1], mag[2], seq)
}

func printStreamSummary(dev *sk8.SK8, imus []int) {
	useColor := term.IsTerminal(int(os.Stdout.Fd()))
	heading := color.New(color.Bold)
	bad := color.New(color.FgRed)
	if !useColor {
		heading.DisableColor()
		bad.DisableColor()
	}

	heading.Printf("\n%d packets received\n", dev.ReceivedPackets())
	for _, i := range imus {
		imu, err := dev.IMU(i)
		if err != nil {
			continue
		}
		line := fmt.Sprintf("  imu %d:", i)
		if rate, ok := imu.SampleRate(); ok {
			line += fmt.Sprintf(" %.1f Hz", rate)
		} else {
			line += " rate n/a"
		}
		total := imu.TotalLoss()
		if recent, ok := imu.RecentLoss(); ok {
			line += fmt.Sprintf(", lost %d recently, %d total", recent, total)
		} else {
			line += fmt.Sprintf(", lost %d total", total)
		}
		if total > 0 {
			bad.Println(line)
		} else {
			fmt.Println(line)
		}
	}
}
