package sk8

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/srg/sk8/internal/transport"
)

// IMUCallback is invoked synchronously for each decoded IMU packet with the
// (possibly calibrated) sensor vectors, the originating IMU slot, the packet
// sequence number, the arrival timestamp, and the opaque value registered
// alongside the callback.
//
// The callback runs on the transport's notification delivery path: a slow
// callback delays subsequent notification delivery.
type IMUCallback func(acc, gyro, mag [3]float64, imu, seq uint8, timestamp time.Time, userData any)

// ExtAnaCallback is invoked synchronously for each decoded SK8-ExtAna packet
// with the two analogue channel values, the temperature in °C, the packet
// sequence number, the arrival timestamp, and the opaque registered value.
// The same delivery-path performance contract as IMUCallback applies.
type ExtAnaCallback func(ch1, ch2 int16, tempC float64, seq uint8, timestamp time.Time, userData any)

// Options configures an SK8 session.
type Options struct {
	// Logger receives the session's structured log output. A quiet default
	// logger is created when nil.
	Logger *logrus.Logger

	// CalibrationFile, when set, is loaded after each successful Connect.
	// Devices or IMUs without a section in the file are simply
	// uncalibrated; a missing or unreadable file is logged, not fatal.
	CalibrationFile string
}

// SK8 is one driver session: a single SK8 device over a single BLE
// connection.
//
// Control operations (Connect, Enable*/Disable*, attribute accessors) are
// not synchronized internally and must be serialized by the caller. The
// notification decode path is driven by the transport and only touches
// per-source sensor state.
type SK8 struct {
	logger    *logrus.Logger
	transport transport.Transport

	conn  transport.Connection
	chars *charCache

	imus   [MaxIMUs]*IMUData
	extana *ExtAnaData

	mode              StreamingMode
	extanaIncludesIMU bool
	enabledIMUs       []int
	enabledSensors    SensorMask
	imuDataChar       transport.Characteristic
	extanaDataChar    transport.Characteristic

	imuCallback        IMUCallback
	imuCallbackData    any
	extanaCallback     ExtAnaCallback
	extanaCallbackData any

	packets atomic.Uint64

	calibrationFile string

	// Attribute caches, valid for the current connection. nil pointers
	// mean "not read yet", never "read as zero".
	name     string
	firmware string
	ledState *[3]int
	hardware *HardwareFlags
}

// New creates a session over the given transport. opts may be nil.
func New(tr transport.Transport, opts *Options) *SK8 {
	if opts == nil {
		opts = &Options{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.WarnLevel)
	}

	s := &SK8{
		logger:          logger,
		transport:       tr,
		extana:          newExtAnaData(),
		calibrationFile: opts.CalibrationFile,
	}
	for i := range s.imus {
		s.imus[i] = newIMUData(i)
	}
	return s
}

func (s *SK8) requireConnected() error {
	if s.conn == nil || !s.conn.IsConnected() {
		return transport.ErrNotConnected
	}
	return nil
}

// Connect scans for and connects to an SK8 identified by name or address.
// If both are given the address is used. On success the device name is read
// and cached (it keys calibration-file sections), and the configured
// calibration file, if any, is loaded.
func (s *SK8) Connect(ctx context.Context, name, address string, timeout time.Duration) error {
	const op = "Connect"

	if s.conn != nil && s.conn.IsConnected() {
		return transport.ErrAlreadyConnected
	}
	if name == "" && address == "" {
		return invalidArgument(op, "either a device name or an address is required")
	}

	addr := address
	if addr == "" {
		found, err := s.transport.FindDevice(ctx, name, timeout)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		addr = found
	}

	conn, err := s.transport.Connect(ctx, addr, timeout)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.conn = conn
	s.chars = newCharCache(conn)
	s.mode = ModeIdle
	s.extanaIncludesIMU = false
	s.packets.Store(0)
	s.name = ""
	s.firmware = ""
	s.ledState = nil
	s.hardware = nil

	if _, err := s.DeviceName(false); err != nil {
		s.logger.WithError(err).Debug("Device name unavailable")
		// Fall back to the scan name so calibration lookup still works.
		s.name = name
	}

	if s.calibrationFile != "" {
		if _, err := s.LoadCalibrationFromFile(s.calibrationFile); err != nil {
			s.logger.WithError(err).Warn("Failed to load calibration")
		}
	}
	return nil
}

// Disconnect closes the active connection. Any active streaming mode is
// forced to Idle first (unsubscribing before state teardown so no callback
// fires during it), all sensor state is reset, and the characteristic cache
// is invalidated. Disconnecting an already-disconnected session is a no-op.
func (s *SK8) Disconnect() error {
	if s.conn == nil {
		return nil
	}

	// Best effort: if the transport already dropped the link these fail,
	// but local state still has to be torn down.
	switch s.mode {
	case ModeIMUStreaming:
		if err := s.DisableIMUStreaming(); err != nil {
			s.logger.WithError(err).Debug("Disable during disconnect failed")
		}
	case ModeExtAnaStreaming:
		if err := s.DisableExtAnaStreaming(); err != nil {
			s.logger.WithError(err).Debug("Disable during disconnect failed")
		}
	}

	s.resetIMUState()
	s.extana.Reset()
	s.imuDataChar = nil
	s.extanaDataChar = nil
	s.mode = ModeIdle
	s.extanaIncludesIMU = false
	s.packets.Store(0)
	s.ledState = nil
	s.hardware = nil
	if s.chars != nil {
		s.chars.invalidate()
		s.chars = nil
	}

	err := s.conn.Disconnect()
	s.conn = nil
	return err
}

// IsConnected reports whether the session has an active connection.
func (s *SK8) IsConnected() bool {
	return s.conn != nil && s.conn.IsConnected()
}

// Address returns the connected device's address, or "" when disconnected.
func (s *SK8) Address() string {
	if s.conn == nil {
		return ""
	}
	return s.conn.Address()
}

// SetIMUCallback registers a callback for incoming IMU data packets, with an
// arbitrary value passed through to each invocation. Set nil to disable.
func (s *SK8) SetIMUCallback(cb IMUCallback, userData any) {
	s.imuCallback = cb
	s.imuCallbackData = userData
}

// SetExtAnaCallback registers a callback for incoming SK8-ExtAna packets.
// Set nil to disable.
func (s *SK8) SetExtAnaCallback(cb ExtAnaCallback, userData any) {
	s.extanaCallback = cb
	s.extanaCallbackData = userData
}

// IMU returns the sensor state for one IMU slot (0-4).
func (s *SK8) IMU(index int) (*IMUData, error) {
	if index < 0 || index >= MaxIMUs {
		return nil, invalidArgument("IMU", "index %d out of range 0-%d", index, MaxIMUs-1)
	}
	return s.imus[index], nil
}

// ExtAna returns the SK8-ExtAna board state.
func (s *SK8) ExtAna() *ExtAnaData {
	return s.extana
}

// Mode returns the currently active streaming mode.
func (s *SK8) Mode() StreamingMode {
	return s.mode
}

// EnabledIMUs returns a copy of the IMU slots most recently enabled for
// streaming. Empty when idle.
func (s *SK8) EnabledIMUs() []int {
	return append([]int(nil), s.enabledIMUs...)
}

// EnabledSensors returns the sensor mask most recently enabled for
// streaming.
func (s *SK8) EnabledSensors() SensorMask {
	return s.enabledSensors
}

// ReceivedPackets returns the number of data packets received since the
// connection was established or the counter was last reset.
func (s *SK8) ReceivedPackets() uint64 {
	return s.packets.Load()
}

// ResetReceivedPackets resets the received packet counter to zero.
func (s *SK8) ResetReceivedPackets() {
	s.packets.Store(0)
}

// SetCalibrationEnabled sets the calibration state on the given IMU slots.
// An empty list applies to all IMUs. Invalid indices are logged and skipped.
func (s *SK8) SetCalibrationEnabled(enabled bool, imus []int) {
	if len(imus) == 0 {
		imus = make([]int, MaxIMUs)
		for i := range imus {
			imus[i] = i
		}
	}
	for _, i := range imus {
		if i < 0 || i >= MaxIMUs {
			s.logger.WithField("imu", i).Warn("Invalid IMU index in SetCalibrationEnabled")
			continue
		}
		s.imus[i].SetCalibrationEnabled(enabled)
	}
}

// CalibrationEnabled returns the per-slot calibration state. Note that an
// enabled slot with no coefficients loaded still outputs raw data.
func (s *SK8) CalibrationEnabled() [MaxIMUs]bool {
	var out [MaxIMUs]bool
	for i, imu := range s.imus {
		out[i] = imu.CalibrationEnabled()
	}
	return out
}

// LoadCalibration installs coefficients for this device from an
// already-parsed calibration set and enables calibration on every IMU that
// has a section. Returns true if any IMU had calibration data; absence of a
// section for an IMU is not an error.
func (s *SK8) LoadCalibration(set CalibrationSet) (bool, error) {
	if err := s.requireConnected(); err != nil {
		return false, err
	}

	sections := set.ForDevice(s.name)
	if sections == nil {
		s.logger.WithField("device", s.name).Debug("No calibration sections for device")
		return false, nil
	}

	loaded := false
	for i, imu := range s.imus {
		cal, ok := sections[i]
		if !ok || cal == nil {
			continue
		}
		imu.setCalibration(cal)
		imu.SetCalibrationEnabled(true)
		loaded = true
		s.logger.WithFields(logrus.Fields{
			"device": s.name,
			"imu":    i,
		}).Debug("Calibration loaded")
	}
	return loaded, nil
}

// LoadCalibrationFromFile reads a YAML calibration file and installs the
// sections for the connected device.
func (s *SK8) LoadCalibrationFromFile(path string) (bool, error) {
	set, err := LoadCalibrationFile(path)
	if err != nil {
		return false, err
	}
	return s.LoadCalibration(set)
}

// BatteryLevel reads the current battery level as a percentage.
func (s *SK8) BatteryLevel() (int, error) {
	const op = "BatteryLevel"
	if err := s.requireConnected(); err != nil {
		return 0, err
	}

	char, err := s.chars.resolve(uuidBatteryLevel)
	if err != nil {
		return 0, attributeUnsupported(op, err)
	}
	data, err := char.Read()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if len(data) < 1 {
		return 0, fmt.Errorf("%s: empty battery level value", op)
	}
	return int(data[0]), nil
}

// DeviceName returns the device's BLE name. With cached set the locally
// cached copy from the last read is returned when available; otherwise the
// device is queried.
func (s *SK8) DeviceName(cached bool) (string, error) {
	const op = "DeviceName"
	if err := s.requireConnected(); err != nil {
		return "", err
	}
	if cached && s.name != "" {
		return s.name, nil
	}

	char, err := s.chars.resolve(uuidDeviceName)
	if err != nil {
		return "", attributeUnsupported(op, err)
	}
	data, err := char.Read()
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	s.name = string(data)
	return s.name, nil
}

// SetDeviceName sets a new BLE device name: ASCII, 1-20 bytes.
func (s *SK8) SetDeviceName(name string) error {
	const op = "SetDeviceName"
	if err := s.requireConnected(); err != nil {
		return err
	}
	if name == "" {
		return invalidArgument(op, "device name cannot be empty")
	}
	if len(name) > maxDeviceNameLen {
		return invalidArgument(op, "device name exceeds maximum length (%d > %d)", len(name), maxDeviceNameLen)
	}
	for i := 0; i < len(name); i++ {
		if name[i] > 0x7f {
			return invalidArgument(op, "device name must be ASCII")
		}
	}

	char, err := s.chars.resolve(uuidDeviceName)
	if err != nil {
		return attributeUnsupported(op, err)
	}
	if err := char.Write([]byte(name)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.name = name
	return nil
}

// FirmwareVersion returns the device firmware revision string, cached after
// the first successful read unless cached is false.
func (s *SK8) FirmwareVersion(cached bool) (string, error) {
	const op = "FirmwareVersion"
	if err := s.requireConnected(); err != nil {
		return "", err
	}
	if cached && s.firmware != "" {
		return s.firmware, nil
	}

	char, err := s.chars.resolve(uuidFirmwareRevision)
	if err != nil {
		return "", attributeUnsupported(op, err)
	}
	data, err := char.Read()
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	s.firmware = string(data)
	return s.firmware, nil
}

// ExtAnaLED returns the current (r, g, b) colour of the SK8-ExtAna LED,
// each channel 0-255. With cached set the state recorded by the last
// SetExtAnaLED is returned when available.
func (s *SK8) ExtAnaLED(cached bool) (r, g, b int, err error) {
	const op = "ExtAnaLED"
	if err := s.requireConnected(); err != nil {
		return 0, 0, 0, err
	}
	if cached && s.ledState != nil {
		return s.ledState[0], s.ledState[1], s.ledState[2], nil
	}

	char, err := s.chars.resolve(uuidExtAnaLED)
	if err != nil {
		return 0, 0, 0, attributeUnsupported(op, err)
	}
	data, err := char.Read()
	if err != nil {
		return 0, 0, 0, fmt.Errorf("%s: %w", op, err)
	}
	if len(data) < 6 {
		return 0, 0, 0, fmt.Errorf("%s: short LED value: %d bytes", op, len(data))
	}

	var rgb [3]int
	for i := range rgb {
		// Characteristic stores 0-3000 per channel; scale to 0-255 with
		// rounding so Set/read round-trips.
		raw := int(binary.LittleEndian.Uint16(data[i*2:]))
		rgb[i] = (raw*ledMax + internalLEDMax/2) / internalLEDMax
	}
	s.ledState = &rgb
	return rgb[0], rgb[1], rgb[2], nil
}

// SetExtAnaLED updates the colour of the RGB LED on the SK8-ExtAna board.
// Channels are 0-255. With checkState set (the usual case) the write is
// skipped when the cached LED state already matches.
func (s *SK8) SetExtAnaLED(r, g, b int, checkState bool) error {
	const op = "SetExtAnaLED"
	if err := s.requireConnected(); err != nil {
		return err
	}
	for _, v := range [3]int{r, g, b} {
		if v < 0 || v > ledMax {
			return invalidArgument(op, "RGB channel values must be 0-%d", ledMax)
		}
	}
	if checkState && s.ledState != nil && *s.ledState == [3]int{r, g, b} {
		return nil
	}

	char, err := s.chars.resolve(uuidExtAnaLED)
	if err != nil {
		return attributeUnsupported(op, err)
	}

	buf := make([]byte, 6)
	for i, v := range [3]int{r, g, b} {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16((v*internalLEDMax+ledMax/2)/ledMax))
	}
	if err := char.Write(buf); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.ledState = &[3]int{r, g, b}
	return nil
}

// PollingOverride reads the current sensor polling timer override in
// milliseconds. Zero means the firmware default periods are in effect.
func (s *SK8) PollingOverride() (int, error) {
	const op = "PollingOverride"
	if err := s.requireConnected(); err != nil {
		return 0, err
	}

	char, err := s.chars.resolve(uuidPollingOverride)
	if err != nil {
		return 0, attributeUnsupported(op, err)
	}
	data, err := char.Read()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if len(data) < 1 {
		return 0, fmt.Errorf("%s: empty polling override value", op)
	}
	return int(data[0]), nil
}

// SetPollingOverride sets the sensor polling timer override in integer
// milliseconds. Values below 20 disable the override, returning the firmware
// to its per-configuration default periods. The value is stored in device
// RAM: it survives reconnects but not reboots, and applies to every sensor
// configuration once set.
func (s *SK8) SetPollingOverride(ms int) error {
	const op = "SetPollingOverride"
	if err := s.requireConnected(); err != nil {
		return err
	}
	if ms < 0 || ms > 255 {
		return invalidArgument(op, "override must fit one byte, got %d", ms)
	}
	if ms < minPollingOverrideMs {
		ms = 0
	}

	char, err := s.chars.resolve(uuidPollingOverride)
	if err != nil {
		return attributeUnsupported(op, err)
	}
	if err := char.Write([]byte{byte(ms)}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// HasIMUs reports whether an external IMU chain is currently attached. Do
// not call while streaming is active. With cached set the hardware state
// from the last query is reused when available.
func (s *SK8) HasIMUs(cached bool) (bool, error) {
	flags, err := s.hardwareFlags(cached)
	if err != nil {
		return false, err
	}
	return flags&HardwareIMUs != 0, nil
}

// HasExtAna reports whether an SK8-ExtAna board is currently attached. Same
// caching and streaming caveats as HasIMUs.
func (s *SK8) HasExtAna(cached bool) (bool, error) {
	flags, err := s.hardwareFlags(cached)
	if err != nil {
		return false, err
	}
	return flags&HardwareExtAna != 0, nil
}

func (s *SK8) hardwareFlags(cached bool) (HardwareFlags, error) {
	const op = "HardwareFlags"
	if err := s.requireConnected(); err != nil {
		return 0, err
	}
	if cached && s.hardware != nil {
		return *s.hardware, nil
	}

	char, err := s.chars.resolveAny(uuidHardwareState, uuidHardwareStateLegacy)
	if err != nil {
		return 0, attributeUnsupported(op, err)
	}
	data, err := char.Read()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if len(data) < 1 {
		return 0, fmt.Errorf("%s: empty hardware state value", op)
	}

	flags := HardwareFlags(data[0])
	s.hardware = &flags
	return flags, nil
}
