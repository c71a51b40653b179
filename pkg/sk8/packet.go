package sk8

import "encoding/binary"

// Wire sizes of the two streaming packet kinds. All multi-byte fields are
// little-endian.
const (
	// IMUPacketSize is 9 signed 16-bit sensor values (acc, gyro, mag ×
	// x/y/z), one IMU index byte and one sequence byte.
	IMUPacketSize = 9*2 + 1 + 1

	// ExtAnaPacketSize is two signed 16-bit analogue channels, one signed
	// 16-bit temperature (units of 0.01 °C) and one sequence byte.
	ExtAnaPacketSize = 3*2 + 1
)

// IMUPacket is one decoded IMU streaming notification.
type IMUPacket struct {
	Acc  [3]int16
	Gyro [3]int16
	Mag  [3]int16
	IMU  uint8 // originating IMU slot, 0-4
	Seq  uint8 // wrapping sequence counter
}

// ExtAnaPacket is one decoded SK8-ExtAna streaming notification.
type ExtAnaPacket struct {
	Ch1  int16
	Ch2  int16
	Temp int16 // units of 0.01 °C
	Seq  uint8
}

// DecodeIMUPacket decodes a raw IMU notification buffer. It is a pure
// transform: no state is touched, and a buffer whose length does not match
// the fixed layout yields a *DecodeError rather than an out-of-bounds read.
func DecodeIMUPacket(data []byte) (IMUPacket, error) {
	if len(data) != IMUPacketSize {
		return IMUPacket{}, &DecodeError{Packet: "imu", Want: IMUPacketSize, Got: len(data)}
	}

	var p IMUPacket
	for i := 0; i < 3; i++ {
		p.Acc[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
		p.Gyro[i] = int16(binary.LittleEndian.Uint16(data[6+i*2:]))
		p.Mag[i] = int16(binary.LittleEndian.Uint16(data[12+i*2:]))
	}
	p.IMU = data[18]
	p.Seq = data[19]
	return p, nil
}

// DecodeExtAnaPacket decodes a raw SK8-ExtAna notification buffer.
func DecodeExtAnaPacket(data []byte) (ExtAnaPacket, error) {
	if len(data) != ExtAnaPacketSize {
		return ExtAnaPacket{}, &DecodeError{Packet: "extana", Want: ExtAnaPacketSize, Got: len(data)}
	}

	return ExtAnaPacket{
		Ch1:  int16(binary.LittleEndian.Uint16(data[0:])),
		Ch2:  int16(binary.LittleEndian.Uint16(data[2:])),
		Temp: int16(binary.LittleEndian.Uint16(data[4:])),
		Seq:  data[6],
	}, nil
}
