package sk8

import (
	"fmt"
	"time"
)

// IMUData provides access to sensor data from one IMU slot. Instances are
// created once per session with a fixed index and live for the session's
// lifetime; Reset clears the streaming state without destroying the object.
//
// The latest vectors are calibrated when calibration is enabled and
// coefficients are loaded for the sub-sensor, raw otherwise.
type IMUData struct {
	// Index identifies the IMU slot, 0-4. Slot 0 is the SK8 itself.
	Index int

	// Acc, Gyro and Mag are the most recent sensor readings, [x, y, z].
	Acc  [3]float64
	Gyro [3]float64
	Mag  [3]float64

	// Timestamp is the arrival time of the most recent packet.
	Timestamp time.Time

	useCalibration bool
	calibration    *IMUCalibration

	tracker lossTracker
}

func newIMUData(index int) *IMUData {
	d := &IMUData{Index: index, tracker: newLossTracker()}
	return d
}

// Reset clears all streaming state: latest vectors, sequence tracking, the
// rolling window and the cumulative loss counter. Calibration settings (the
// enabled flag and loaded coefficients) survive, so toggling streaming does
// not silently drop calibration.
func (d *IMUData) Reset() {
	d.Acc = [3]float64{}
	d.Gyro = [3]float64{}
	d.Mag = [3]float64{}
	d.Timestamp = time.Time{}
	d.tracker.reset()
}

// SetCalibrationEnabled controls whether loaded calibration coefficients are
// applied on packet arrival. Enabling calibration with no coefficients
// loaded leaves the output raw.
func (d *IMUData) SetCalibrationEnabled(enabled bool) {
	d.useCalibration = enabled
}

// CalibrationEnabled reports whether calibration application is enabled for
// this IMU. Note that enabled calibration with no loaded coefficients still
// yields raw output.
func (d *IMUData) CalibrationEnabled() bool {
	return d.useCalibration
}

// HasCalibration reports whether calibration coefficients are loaded.
func (d *IMUData) HasCalibration() bool {
	return d.calibration != nil
}

func (d *IMUData) setCalibration(c *IMUCalibration) {
	d.calibration = c
}

// Seq returns the sequence number of the most recent packet, or false if no
// packet has arrived since the session started or the IMU was reset.
func (d *IMUData) Seq() (uint8, bool) {
	return d.tracker.Seq()
}

// SampleRate estimates the packet rate in packets per second over the
// trailing sample period. Unavailable (false) until a full period has
// elapsed since streaming started or the IMU was reset.
func (d *IMUData) SampleRate() (float64, bool) {
	return d.tracker.SampleRate()
}

// RecentLoss is the number of packets dropped within the trailing sample
// period, under the same warm-up condition as SampleRate.
func (d *IMUData) RecentLoss() (int, bool) {
	return d.tracker.RecentLoss()
}

// TotalLoss is the cumulative number of packets dropped since streaming
// started or the IMU was reset.
func (d *IMUData) TotalLoss() int {
	return d.tracker.TotalLoss()
}

// update decodes one packet's worth of raw samples into the latest vectors,
// applying calibration per sub-sensor when enabled, and advances sequence and
// loss tracking. It returns the stored (possibly calibrated) vectors.
func (d *IMUData) update(pkt IMUPacket, ts time.Time) (acc, gyro, mag [3]float64) {
	acc = vectorOf(pkt.Acc)
	gyro = vectorOf(pkt.Gyro)
	mag = vectorOf(pkt.Mag)

	if d.useCalibration && d.calibration != nil {
		if c := d.calibration.Acc; c != nil {
			acc = roundVector(applyCalibration(acc, c.Offset, c.Scale, false))
		}
		if c := d.calibration.Gyro; c != nil {
			gyro = applyCalibration(gyro, c.Offset, identityScale, false)
		}
		if c := d.calibration.Mag; c != nil {
			mag = roundVector(applyCalibration(mag, c.Offset, c.Scale, false))
		}
	}

	d.Acc, d.Gyro, d.Mag = acc, gyro, mag
	d.Timestamp = ts
	d.tracker.observe(pkt.Seq, ts)
	return acc, gyro, mag
}

func vectorOf(raw [3]int16) [3]float64 {
	return [3]float64{float64(raw[0]), float64(raw[1]), float64(raw[2])}
}

func (d *IMUData) String() string {
	seq, _ := d.tracker.Seq()
	return fmt.Sprintf("[%d] acc=%v, gyro=%v, mag=%v, seq=%d", d.Index, d.Acc, d.Gyro, d.Mag, seq)
}
