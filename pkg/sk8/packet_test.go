package sk8

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// imuPacketBytes builds a wire-format IMU notification buffer.
func imuPacketBytes(acc, gyro, mag [3]int16, imu, seq uint8) []byte {
	buf := make([]byte, IMUPacketSize)
	for i := 0; i < 3; i++ {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(acc[i]))
		binary.LittleEndian.PutUint16(buf[6+i*2:], uint16(gyro[i]))
		binary.LittleEndian.PutUint16(buf[12+i*2:], uint16(mag[i]))
	}
	buf[18] = imu
	buf[19] = seq
	return buf
}

// extanaPacketBytes builds a wire-format SK8-ExtAna notification buffer.
func extanaPacketBytes(ch1, ch2, temp int16, seq uint8) []byte {
	buf := make([]byte, ExtAnaPacketSize)
	binary.LittleEndian.PutUint16(buf[0:], uint16(ch1))
	binary.LittleEndian.PutUint16(buf[2:], uint16(ch2))
	binary.LittleEndian.PutUint16(buf[4:], uint16(temp))
	buf[6] = seq
	return buf
}

func TestDecodeIMUPacket(t *testing.T) {
	data := imuPacketBytes(
		[3]int16{100, -200, 300},
		[3]int16{-1, 0, 1},
		[3]int16{-32768, 32767, 42},
		3, 217,
	)

	pkt, err := DecodeIMUPacket(data)
	require.NoError(t, err)

	assert.Equal(t, [3]int16{100, -200, 300}, pkt.Acc)
	assert.Equal(t, [3]int16{-1, 0, 1}, pkt.Gyro)
	assert.Equal(t, [3]int16{-32768, 32767, 42}, pkt.Mag)
	assert.Equal(t, uint8(3), pkt.IMU)
	assert.Equal(t, uint8(217), pkt.Seq)
}

func TestDecodeIMUPacketBadLength(t *testing.T) {
	for _, n := range []int{0, 19, 21} {
		_, err := DecodeIMUPacket(make([]byte, n))
		require.Error(t, err)

		var de *DecodeError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, IMUPacketSize, de.Want)
		assert.Equal(t, n, de.Got)
	}
}

func TestDecodeExtAnaPacket(t *testing.T) {
	data := extanaPacketBytes(1234, -567, 2153, 99)

	pkt, err := DecodeExtAnaPacket(data)
	require.NoError(t, err)

	assert.Equal(t, int16(1234), pkt.Ch1)
	assert.Equal(t, int16(-567), pkt.Ch2)
	assert.Equal(t, int16(2153), pkt.Temp)
	assert.Equal(t, uint8(99), pkt.Seq)
}

func TestDecodeExtAnaPacketBadLength(t *testing.T) {
	_, err := DecodeExtAnaPacket(make([]byte, IMUPacketSize))
	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, ExtAnaPacketSize, de.Want)
	assert.Equal(t, IMUPacketSize, de.Got)
}
