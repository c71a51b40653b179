package sk8

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// StreamingMode identifies which streaming configuration is active on the
// device. The firmware supports exactly one mode at a time: enabling one
// mode while the other is active is rejected rather than silently
// overwriting the device-side selection registers.
type StreamingMode int

const (
	// ModeIdle means no streaming notifications are active.
	ModeIdle StreamingMode = iota
	// ModeIMUStreaming means IMU packets are streaming.
	ModeIMUStreaming
	// ModeExtAnaStreaming means SK8-ExtAna packets are streaming,
	// optionally accompanied by internal-IMU packets.
	ModeExtAnaStreaming
)

func (m StreamingMode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeIMUStreaming:
		return "imu"
	case ModeExtAnaStreaming:
		return "extana"
	default:
		return fmt.Sprintf("StreamingMode(%d)", int(m))
	}
}

// imuSelectionMask validates the IMU index list and folds it into the
// device's selection register bitmask (bit i set enables IMU i).
func imuSelectionMask(op string, imus []int) (byte, error) {
	if len(imus) == 0 {
		return 0, invalidArgument(op, "no IMUs selected")
	}
	var mask byte
	for _, i := range imus {
		if i < 0 || i >= MaxIMUs {
			return 0, invalidArgument(op, "IMU index %d out of range 0-%d", i, MaxIMUs-1)
		}
		mask |= 1 << i
	}
	return mask, nil
}

func validSensorMask(op string, sensors SensorMask) error {
	if sensors == 0 {
		return invalidArgument(op, "no sensors enabled")
	}
	if sensors&^SensorAll != 0 {
		return invalidArgument(op, "unknown sensor bits 0x%02x", byte(sensors&^SensorAll))
	}
	return nil
}

// EnableIMUStreaming configures and enables IMU sensor data streaming.
//
// imus lists distinct slots in the range 0-4 (0 is the SK8 itself, 1-4 the
// external chain). sensors selects which sensors are active on each enabled
// IMU; pass SensorAll or any combination of SensorAcc, SensorGyro and
// SensorMag.
//
// Only one streaming mode can be active at a time: while ExtAna streaming is
// active this returns an InvalidArgumentError and changes nothing. Calling
// it again while IMU streaming is already active reconfigures the selection
// registers in place.
func (s *SK8) EnableIMUStreaming(imus []int, sensors SensorMask) error {
	const op = "EnableIMUStreaming"

	if err := s.requireConnected(); err != nil {
		return err
	}
	if s.mode == ModeExtAnaStreaming {
		return invalidArgument(op, "extana streaming is active; disable it first")
	}
	mask, err := imuSelectionMask(op, imus)
	if err != nil {
		return err
	}
	if err := validSensorMask(op, sensors); err != nil {
		return err
	}

	if err := s.writeIMUSelection(op, mask, sensors); err != nil {
		return err
	}
	if s.imuDataChar == nil {
		if err := s.subscribeIMUData(op); err != nil {
			return err
		}
	}

	s.mode = ModeIMUStreaming
	s.enabledIMUs = append([]int(nil), imus...)
	s.enabledSensors = sensors
	s.logger.WithFields(logrus.Fields{
		"imu_mask": fmt.Sprintf("%02x", mask),
		"sensors":  fmt.Sprintf("%03b", byte(sensors)),
	}).Debug("IMU streaming enabled")
	return nil
}

// DisableIMUStreaming stops IMU streaming: it unsubscribes the IMU data
// characteristic first (so no callback fires against state being torn down),
// then resets every IMU's streaming state. Calibration settings are
// untouched. Disabling while already idle is a no-op.
func (s *SK8) DisableIMUStreaming() error {
	const op = "DisableIMUStreaming"

	if err := s.requireConnected(); err != nil {
		return err
	}
	switch s.mode {
	case ModeIdle:
		return nil
	case ModeExtAnaStreaming:
		return invalidArgument(op, "extana streaming is active; use DisableExtAnaStreaming")
	}

	err := s.unsubscribeIMUData()
	s.resetIMUState()
	s.mode = ModeIdle
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.logger.Debug("IMU streaming disabled")
	return nil
}

// EnableExtAnaStreaming configures and enables data streaming from the
// SK8-ExtAna board. By default only the analogue packets are streamed; with
// includeIMU set the device also streams packets from the SK8's internal IMU
// (slot 0) with the given sensor selection.
//
// Only one streaming mode can be active at a time: while IMU streaming is
// active this returns an InvalidArgumentError and changes nothing.
func (s *SK8) EnableExtAnaStreaming(includeIMU bool, sensors SensorMask) error {
	const op = "EnableExtAnaStreaming"

	if err := s.requireConnected(); err != nil {
		return err
	}
	if s.mode == ModeIMUStreaming {
		return invalidArgument(op, "imu streaming is active; disable it first")
	}

	// The internal IMU rides along on the same selection registers and
	// notification path as plain IMU streaming. If a later step fails, any
	// IMU subscription made by this call is rolled back so an errored
	// enable leaves the session genuinely idle, with no notifications
	// still flowing.
	imuSubscribed := false
	fail := func(err error) error {
		if imuSubscribed {
			if uerr := s.unsubscribeIMUData(); uerr != nil {
				s.logger.WithError(uerr).Warn("Failed to unsubscribe IMU data while rolling back enable")
			}
			s.resetIMUState()
		}
		return err
	}

	if includeIMU {
		if err := validSensorMask(op, sensors); err != nil {
			return err
		}
		if err := s.writeIMUSelection(op, 1<<0, sensors); err != nil {
			return err
		}
		if s.imuDataChar == nil {
			if err := s.subscribeIMUData(op); err != nil {
				return err
			}
			imuSubscribed = true
		}
	} else if s.imuDataChar != nil {
		// Reconfigured from includeIMU=true to false: stop the IMU side.
		if err := s.unsubscribeIMUData(); err != nil {
			s.logger.WithError(err).Warn("Failed to unsubscribe IMU data during extana reconfigure")
		}
		for _, imu := range s.imus {
			imu.Reset()
		}
	}

	flag, err := s.chars.resolveAny(uuidExtAnaIMUStreaming, uuidExtAnaIMUStreamingLegacy)
	if err != nil {
		return fail(attributeUnsupported(op, err))
	}
	val := byte(0)
	if includeIMU {
		val = 1
	}
	if err := flag.Write([]byte{val}); err != nil {
		return fail(fmt.Errorf("%s: %w", op, err))
	}

	if s.extanaDataChar == nil {
		char, err := s.chars.resolve(uuidExtAnaData)
		if err != nil {
			return fail(attributeUnsupported(op, err))
		}
		if err := char.Subscribe(s.handleExtAnaNotification); err != nil {
			return fail(fmt.Errorf("%s: %w", op, err))
		}
		s.extanaDataChar = char
	}

	s.mode = ModeExtAnaStreaming
	s.extanaIncludesIMU = includeIMU
	if includeIMU {
		s.enabledIMUs = []int{0}
		s.enabledSensors = sensors
	} else {
		s.enabledIMUs = nil
		s.enabledSensors = 0
	}
	s.logger.WithField("include_imu", includeIMU).Debug("ExtAna streaming enabled")
	return nil
}

// DisableExtAnaStreaming stops ExtAna streaming (and the accompanying
// internal-IMU stream, if enabled), then resets the board state and every
// IMU's streaming state. Disabling while already idle is a no-op.
func (s *SK8) DisableExtAnaStreaming() error {
	const op = "DisableExtAnaStreaming"

	if err := s.requireConnected(); err != nil {
		return err
	}
	switch s.mode {
	case ModeIdle:
		return nil
	case ModeIMUStreaming:
		return invalidArgument(op, "imu streaming is active; use DisableIMUStreaming")
	}

	var firstErr error
	if s.extanaDataChar != nil {
		if err := s.extanaDataChar.Unsubscribe(); err != nil && firstErr == nil {
			firstErr = err
		}
		s.extanaDataChar = nil
	}
	if err := s.unsubscribeIMUData(); err != nil && firstErr == nil {
		firstErr = err
	}

	s.extana.Reset()
	s.resetIMUState()
	s.mode = ModeIdle
	s.extanaIncludesIMU = false
	if firstErr != nil {
		return fmt.Errorf("%s: %w", op, firstErr)
	}
	s.logger.Debug("ExtAna streaming disabled")
	return nil
}

// writeIMUSelection writes the IMU selection and sensor selection registers.
func (s *SK8) writeIMUSelection(op string, mask byte, sensors SensorMask) error {
	imuSelect, err := s.chars.resolve(uuidIMUSelection)
	if err != nil {
		return attributeUnsupported(op, err)
	}
	sensorSelect, err := s.chars.resolve(uuidSensorSelection)
	if err != nil {
		return attributeUnsupported(op, err)
	}

	if err := imuSelect.Write([]byte{mask}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := sensorSelect.Write([]byte{byte(sensors)}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *SK8) subscribeIMUData(op string) error {
	char, err := s.chars.resolve(uuidIMUData)
	if err != nil {
		return attributeUnsupported(op, err)
	}
	if err := char.Subscribe(s.handleIMUNotification); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.imuDataChar = char
	return nil
}

func (s *SK8) unsubscribeIMUData() error {
	if s.imuDataChar == nil {
		return nil
	}
	err := s.imuDataChar.Unsubscribe()
	s.imuDataChar = nil
	return err
}

func (s *SK8) resetIMUState() {
	for _, imu := range s.imus {
		imu.Reset()
	}
	s.enabledIMUs = nil
	s.enabledSensors = 0
}

// handleIMUNotification is the decode routine bound to the IMU data
// characteristic. It runs synchronously on the transport's delivery path:
// decode, update the per-IMU state (calibration and loss tracking included)
// and invoke the user callback. A malformed packet is logged and skipped,
// leaving prior sensor state intact.
func (s *SK8) handleIMUNotification(data []byte) {
	pkt, err := DecodeIMUPacket(data)
	if err != nil {
		s.logger.WithError(err).Warn("Dropping malformed IMU packet")
		return
	}
	if int(pkt.IMU) >= MaxIMUs {
		s.logger.WithField("imu", pkt.IMU).Warn("Dropping IMU packet with out-of-range index")
		return
	}

	ts := time.Now()
	s.packets.Add(1)
	acc, gyro, mag := s.imus[pkt.IMU].update(pkt, ts)

	if cb := s.imuCallback; cb != nil {
		cb(acc, gyro, mag, pkt.IMU, pkt.Seq, ts, s.imuCallbackData)
	}
}

// handleExtAnaNotification is the decode routine bound to the ExtAna data
// characteristic.
func (s *SK8) handleExtAnaNotification(data []byte) {
	pkt, err := DecodeExtAnaPacket(data)
	if err != nil {
		s.logger.WithError(err).Warn("Dropping malformed ExtAna packet")
		return
	}

	ts := time.Now()
	s.packets.Add(1)
	s.extana.update(pkt, ts)

	if cb := s.extanaCallback; cb != nil {
		cb(pkt.Ch1, pkt.Ch2, s.extana.Temperature, pkt.Seq, ts, s.extanaCallbackData)
	}
}
