package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// ledCmd represents the led command
var ledCmd = &cobra.Command{
	Use:   "led [r g b]",
	Short: "Show or set the SK8-ExtAna LED colour",
	Long: `Read or set the colour of the RGB LED on an attached SK8-ExtAna board.

With no arguments the current colour is printed. With three arguments the LED
is set to that colour; each channel is 0-255.`,
	Args: cobra.MaximumNArgs(3),
	RunE: runLED,
}

func runLED(cmd *cobra.Command, args []string) error {
	if len(args) != 0 && len(args) != 3 {
		return fmt.Errorf("expected no arguments or three channel values, got %d", len(args))
	}

	sess, closeSession, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer closeSession()
	dev := sess.device

	if len(args) == 0 {
		r, g, b, err := dev.ExtAnaLED(false)
		if err != nil {
			return err
		}
		fmt.Printf("led: r=%d g=%d b=%d\n", r, g, b)
		return nil
	}

	var rgb [3]int
	for i, arg := range args {
		v, err := strconv.Atoi(arg)
		if err != nil {
			return fmt.Errorf("invalid channel value %q", arg)
		}
		rgb[i] = v
	}

	return dev.SetExtAnaLED(rgb[0], rgb[1], rgb[2], false)
}
