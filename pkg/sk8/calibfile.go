package sk8

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// CalibrationSet maps a device name to the calibration coefficients of its
// IMUs, keyed by IMU index. Absent devices or indices are simply
// uncalibrated.
//
// On disk the set is a YAML document:
//
//	SK8-0A2B:
//	  0:
//	    acc:
//	      scale: [1.002, 0.998, 1.0]
//	      offset: [12, -3, 4]
//	    gyro:
//	      offset: [1.5, -0.5, 0.25]
//	  1:
//	    mag:
//	      scale: [1.1, 1.0, 0.9]
//	      offset: [30, -12, 8]
type CalibrationSet map[string]map[int]*IMUCalibration

// LoadCalibrationFile reads a calibration set from a YAML file produced by
// the calibration tool.
func LoadCalibrationFile(path string) (CalibrationSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read calibration file: %w", err)
	}

	var set CalibrationSet
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("failed to parse calibration file %q: %w", path, err)
	}
	return set, nil
}

// ForDevice returns the per-IMU calibration sections for the named device,
// or nil if the set has none.
func (cs CalibrationSet) ForDevice(name string) map[int]*IMUCalibration {
	return cs[name]
}
