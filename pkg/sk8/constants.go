package sk8

// MaxIMUs is the number of IMU slots per SK8: slot 0 is the IMU built into
// the SK8 itself, slots 1-4 are external IMUs on the USB chain, starting from
// the end closest to the SK8.
const MaxIMUs = 5

// SensorMask selects which sensors are active on each enabled IMU.
type SensorMask uint8

// Sensor selection register bits.
const (
	SensorAcc  SensorMask = 1 << 0
	SensorGyro SensorMask = 1 << 1
	SensorMag  SensorMask = 1 << 2

	SensorAll = SensorAcc | SensorGyro | SensorMag
)

// HardwareFlags reports which optional hardware the SK8 currently has
// attached, as read from the hardware state characteristic.
type HardwareFlags uint8

const (
	// HardwareIMUs is set when an external IMU chain is attached.
	HardwareIMUs HardwareFlags = 1 << 0
	// HardwareExtAna is set when an SK8-ExtAna board is attached.
	HardwareExtAna HardwareFlags = 1 << 1
)

// Standard GATT characteristics.
const (
	uuidDeviceName       = "2a00"
	uuidBatteryLevel     = "2a19"
	uuidFirmwareRevision = "2a26"
)

// SK8 vendor characteristics. The *Legacy variants are the pre-release UUIDs
// still present on old firmware; callers fall back to them when the current
// UUID is not exposed.
const (
	uuidIMUData         = "b8c70001-55a2-4f39-9b2d-aa3f8f2b1c5e"
	uuidExtAnaData      = "b8c70002-55a2-4f39-9b2d-aa3f8f2b1c5e"
	uuidIMUSelection    = "b8c70003-55a2-4f39-9b2d-aa3f8f2b1c5e"
	uuidSensorSelection = "b8c70004-55a2-4f39-9b2d-aa3f8f2b1c5e"

	uuidExtAnaIMUStreaming       = "b8c70005-55a2-4f39-9b2d-aa3f8f2b1c5e"
	uuidExtAnaIMUStreamingLegacy = "b8c7f005-55a2-4f39-9b2d-aa3f8f2b1c5e"

	uuidHardwareState       = "b8c70006-55a2-4f39-9b2d-aa3f8f2b1c5e"
	uuidHardwareStateLegacy = "b8c7f006-55a2-4f39-9b2d-aa3f8f2b1c5e"

	uuidPollingOverride = "b8c70007-55a2-4f39-9b2d-aa3f8f2b1c5e"
	uuidExtAnaLED       = "b8c70008-55a2-4f39-9b2d-aa3f8f2b1c5e"
)

const (
	// maxDeviceNameLen is the device name characteristic capacity in bytes.
	maxDeviceNameLen = 20

	// LED channel ranges: the characteristic stores 0-3000 per channel,
	// the API exposes 0-255.
	ledMax         = 255
	internalLEDMax = 3000

	// minPollingOverrideMs is the smallest effective polling override;
	// values below it disable the override.
	minPollingOverrideMs = 20
)
