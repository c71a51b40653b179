package sk8

import "math"

// SensorCalibration holds per-axis scale and offset coefficients for a
// scale-and-offset corrected sensor (accelerometer, magnetometer).
type SensorCalibration struct {
	Scale  [3]float64 `yaml:"scale"`
	Offset [3]float64 `yaml:"offset"`
}

// GyroCalibration holds per-axis offset coefficients. The gyroscope is
// offset-corrected only.
type GyroCalibration struct {
	Offset [3]float64 `yaml:"offset"`
}

// IMUCalibration holds the calibration coefficients for one IMU. A nil
// sub-sensor field means the sub-sensor is uncalibrated: its raw values pass
// through untouched even when calibration is enabled.
type IMUCalibration struct {
	Acc  *SensorCalibration `yaml:"acc,omitempty"`
	Gyro *GyroCalibration   `yaml:"gyro,omitempty"`
	Mag  *SensorCalibration `yaml:"mag,omitempty"`
}

var identityScale = [3]float64{1, 1, 1}

// applyCalibration returns raw[i]*scale[i] - offset[i] elementwise, or raw
// unchanged when skip is set.
func applyCalibration(raw, offset, scale [3]float64, skip bool) [3]float64 {
	if skip {
		return raw
	}
	var out [3]float64
	for i := range raw {
		out[i] = raw[i]*scale[i] - offset[i]
	}
	return out
}

// roundVector rounds each component to the nearest integer. Accelerometer
// and magnetometer samples live in the device's integer domain, so their
// calibrated values are snapped back to it.
func roundVector(v [3]float64) [3]float64 {
	for i := range v {
		v[i] = math.Round(v[i])
	}
	return v
}
