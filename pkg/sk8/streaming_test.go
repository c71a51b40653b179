package sk8

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srg/sk8/internal/sk8test"
)

func TestEnableIMUStreaming(t *testing.T) {
	dev, conn := newTestDevice(t)

	require.NoError(t, dev.EnableIMUStreaming([]int{0, 2}, SensorAcc|SensorGyro))

	assert.Equal(t, ModeIMUStreaming, dev.Mode())
	assert.Equal(t, []int{0, 2}, dev.EnabledIMUs())
	assert.Equal(t, SensorAcc|SensorGyro, dev.EnabledSensors())

	// Selection registers: bit per IMU, bit per sensor.
	imuWrites := conn.WritesTo(uuidIMUSelection)
	require.Len(t, imuWrites, 1)
	assert.Equal(t, []byte{0b00000101}, imuWrites[0])

	sensorWrites := conn.WritesTo(uuidSensorSelection)
	require.Len(t, sensorWrites, 1)
	assert.Equal(t, []byte{0b00000011}, sensorWrites[0])
}

func TestEnableIMUStreamingValidation(t *testing.T) {
	dev, conn := newTestDevice(t)

	assert.ErrorIs(t, dev.EnableIMUStreaming(nil, SensorAll), &InvalidArgumentError{})
	assert.ErrorIs(t, dev.EnableIMUStreaming([]int{5}, SensorAll), &InvalidArgumentError{})
	assert.ErrorIs(t, dev.EnableIMUStreaming([]int{-1}, SensorAll), &InvalidArgumentError{})
	assert.ErrorIs(t, dev.EnableIMUStreaming([]int{0}, 0), &InvalidArgumentError{})
	assert.ErrorIs(t, dev.EnableIMUStreaming([]int{0}, SensorMask(0x80)), &InvalidArgumentError{})

	// Nothing was written and nothing subscribed.
	assert.Empty(t, conn.Writes())
	assert.Equal(t, ModeIdle, dev.Mode())
}

func TestIMUStreamingReconfigure(t *testing.T) {
	dev, conn := newTestDevice(t)

	require.NoError(t, dev.EnableIMUStreaming([]int{0}, SensorAcc))
	require.NoError(t, dev.EnableIMUStreaming([]int{1, 2}, SensorAll))

	assert.Equal(t, ModeIMUStreaming, dev.Mode())
	assert.Equal(t, []int{1, 2}, dev.EnabledIMUs())

	imuWrites := conn.WritesTo(uuidIMUSelection)
	require.Len(t, imuWrites, 2)
	assert.Equal(t, []byte{0b00000110}, imuWrites[1])
}

func TestIMUNotificationFlow(t *testing.T) {
	dev, conn := newTestDevice(t)

	type received struct {
		acc  [3]float64
		imu  uint8
		seq  uint8
		data any
	}
	var calls []received
	dev.SetIMUCallback(func(acc, gyro, mag [3]float64, imu, seq uint8, ts time.Time, userData any) {
		calls = append(calls, received{acc: acc, imu: imu, seq: seq, data: userData})
	}, "tag")

	require.NoError(t, dev.EnableIMUStreaming([]int{0}, SensorAll))

	// Sequence 5, 6, 8: one packet lost between 6 and 8.
	for _, seq := range []uint8{5, 6, 8} {
		ok := conn.Notify(uuidIMUData, imuPacketBytes([3]int16{1, 2, 3}, [3]int16{}, [3]int16{}, 0, seq))
		require.True(t, ok, "IMU data characteristic must be subscribed")
	}

	require.Len(t, calls, 3)
	assert.Equal(t, [3]float64{1, 2, 3}, calls[0].acc)
	assert.Equal(t, uint8(0), calls[0].imu)
	assert.Equal(t, uint8(8), calls[2].seq)
	assert.Equal(t, "tag", calls[0].data)

	assert.Equal(t, uint64(3), dev.ReceivedPackets())

	imu, err := dev.IMU(0)
	require.NoError(t, err)
	assert.Equal(t, 1, imu.TotalLoss())
	seq, ok := imu.Seq()
	require.True(t, ok)
	assert.Equal(t, uint8(8), seq)
}

func TestIMUNotificationMalformed(t *testing.T) {
	dev, conn := newTestDevice(t)

	var calls int
	dev.SetIMUCallback(func(_, _, _ [3]float64, _, _ uint8, _ time.Time, _ any) {
		calls++
	}, nil)

	require.NoError(t, dev.EnableIMUStreaming([]int{0}, SensorAll))

	conn.Notify(uuidIMUData, make([]byte, 5))
	conn.Notify(uuidIMUData, imuPacketBytes([3]int16{}, [3]int16{}, [3]int16{}, 9, 0)) // out-of-range slot

	assert.Zero(t, calls, "malformed packets never reach the callback")
	assert.Equal(t, uint64(0), dev.ReceivedPackets())
}

func TestIMUNotificationCalibrated(t *testing.T) {
	dev, conn := newTestDevice(t)

	imu, err := dev.IMU(0)
	require.NoError(t, err)
	imu.setCalibration(&IMUCalibration{
		Acc: &SensorCalibration{Scale: identityScale, Offset: [3]float64{10, 10, 10}},
	})
	imu.SetCalibrationEnabled(true)

	var got [3]float64
	dev.SetIMUCallback(func(acc, _, _ [3]float64, _, _ uint8, _ time.Time, _ any) {
		got = acc
	}, nil)

	require.NoError(t, dev.EnableIMUStreaming([]int{0}, SensorAcc))
	conn.Notify(uuidIMUData, imuPacketBytes([3]int16{100, 100, 100}, [3]int16{}, [3]int16{}, 0, 0))

	assert.Equal(t, [3]float64{90, 90, 90}, got, "callback sees calibrated values")
	assert.Equal(t, [3]float64{90, 90, 90}, imu.Acc)
}

func TestDisableIMUStreaming(t *testing.T) {
	dev, conn := newTestDevice(t)

	require.NoError(t, dev.EnableIMUStreaming([]int{0}, SensorAll))
	conn.Notify(uuidIMUData, imuPacketBytes([3]int16{1, 1, 1}, [3]int16{}, [3]int16{}, 0, 3))

	require.NoError(t, dev.DisableIMUStreaming())

	assert.Equal(t, ModeIdle, dev.Mode())
	assert.Empty(t, dev.EnabledIMUs())
	assert.False(t, conn.Notify(uuidIMUData, imuPacketBytes([3]int16{}, [3]int16{}, [3]int16{}, 0, 4)),
		"no subscription remains after disable")

	imu, err := dev.IMU(0)
	require.NoError(t, err)
	_, ok := imu.Seq()
	assert.False(t, ok, "disable resets streaming state")
}

func TestDisableIMUStreamingWhenIdle(t *testing.T) {
	dev, _ := newTestDevice(t)
	assert.NoError(t, dev.DisableIMUStreaming())
}

func TestStreamingModeExclusivity(t *testing.T) {
	dev, _ := newTestDevice(t)

	require.NoError(t, dev.EnableIMUStreaming([]int{0}, SensorAll))
	err := dev.EnableExtAnaStreaming(false, 0)
	assert.ErrorIs(t, err, &InvalidArgumentError{})
	assert.Equal(t, ModeIMUStreaming, dev.Mode(), "failed enable changes nothing")
	assert.ErrorIs(t, dev.DisableExtAnaStreaming(), &InvalidArgumentError{})

	require.NoError(t, dev.DisableIMUStreaming())
	require.NoError(t, dev.EnableExtAnaStreaming(false, 0))
	err = dev.EnableIMUStreaming([]int{0}, SensorAll)
	assert.ErrorIs(t, err, &InvalidArgumentError{})
	assert.Equal(t, ModeExtAnaStreaming, dev.Mode())
	assert.ErrorIs(t, dev.DisableIMUStreaming(), &InvalidArgumentError{})
}

func TestEnableExtAnaStreaming(t *testing.T) {
	dev, conn := newTestDevice(t)

	require.NoError(t, dev.EnableExtAnaStreaming(false, 0))

	assert.Equal(t, ModeExtAnaStreaming, dev.Mode())
	assert.Empty(t, dev.EnabledIMUs())

	flagWrites := conn.WritesTo(uuidExtAnaIMUStreaming)
	require.Len(t, flagWrites, 1)
	assert.Equal(t, []byte{0}, flagWrites[0])
}

func TestExtAnaNotificationFlow(t *testing.T) {
	dev, conn := newTestDevice(t)

	type received struct {
		ch1, ch2 int16
		temp     float64
		seq      uint8
	}
	var calls []received
	dev.SetExtAnaCallback(func(ch1, ch2 int16, tempC float64, seq uint8, ts time.Time, _ any) {
		calls = append(calls, received{ch1, ch2, tempC, seq})
	}, nil)

	require.NoError(t, dev.EnableExtAnaStreaming(false, 0))

	require.True(t, conn.Notify(uuidExtAnaData, extanaPacketBytes(100, -200, 2153, 0)))
	require.True(t, conn.Notify(uuidExtAnaData, extanaPacketBytes(101, -201, 2154, 2)))

	require.Len(t, calls, 2)
	assert.Equal(t, int16(100), calls[0].ch1)
	assert.InDelta(t, 21.53, calls[0].temp, 1e-9)
	assert.Equal(t, uint8(2), calls[1].seq)

	assert.Equal(t, 1, dev.ExtAna().TotalLoss())
	assert.Equal(t, uint64(2), dev.ReceivedPackets())
}

func TestExtAnaStreamingWithIMU(t *testing.T) {
	dev, conn := newTestDevice(t)

	require.NoError(t, dev.EnableExtAnaStreaming(true, SensorAcc))

	assert.Equal(t, []int{0}, dev.EnabledIMUs(), "internal IMU rides along")
	assert.Equal(t, SensorAcc, dev.EnabledSensors())

	// Internal IMU only: selection bit 0.
	imuWrites := conn.WritesTo(uuidIMUSelection)
	require.Len(t, imuWrites, 1)
	assert.Equal(t, []byte{0b00000001}, imuWrites[0])

	flagWrites := conn.WritesTo(uuidExtAnaIMUStreaming)
	require.Len(t, flagWrites, 1)
	assert.Equal(t, []byte{1}, flagWrites[0])

	// Both notification paths live.
	assert.True(t, conn.Notify(uuidExtAnaData, extanaPacketBytes(1, 2, 3, 0)))
	assert.True(t, conn.Notify(uuidIMUData, imuPacketBytes([3]int16{}, [3]int16{}, [3]int16{}, 0, 0)))
}

func TestExtAnaStreamingIncludeIMURequiresSensors(t *testing.T) {
	dev, _ := newTestDevice(t)

	assert.ErrorIs(t, dev.EnableExtAnaStreaming(true, 0), &InvalidArgumentError{})
	assert.Equal(t, ModeIdle, dev.Mode())
}

func TestExtAnaReconfigureDropsIMU(t *testing.T) {
	dev, conn := newTestDevice(t)

	require.NoError(t, dev.EnableExtAnaStreaming(true, SensorAll))
	require.NoError(t, dev.EnableExtAnaStreaming(false, 0))

	assert.Empty(t, dev.EnabledIMUs())
	assert.False(t, conn.Notify(uuidIMUData, imuPacketBytes([3]int16{}, [3]int16{}, [3]int16{}, 0, 0)),
		"IMU subscription dropped on reconfigure")
	assert.True(t, conn.Notify(uuidExtAnaData, extanaPacketBytes(1, 2, 3, 0)))
}

func TestDisableExtAnaStreaming(t *testing.T) {
	dev, conn := newTestDevice(t)

	require.NoError(t, dev.EnableExtAnaStreaming(true, SensorAll))
	conn.Notify(uuidExtAnaData, extanaPacketBytes(5, 6, 700, 1))

	require.NoError(t, dev.DisableExtAnaStreaming())

	assert.Equal(t, ModeIdle, dev.Mode())
	assert.False(t, conn.Notify(uuidExtAnaData, extanaPacketBytes(1, 2, 3, 2)))
	assert.False(t, conn.Notify(uuidIMUData, imuPacketBytes([3]int16{}, [3]int16{}, [3]int16{}, 0, 0)))

	_, ok := dev.ExtAna().Seq()
	assert.False(t, ok, "disable resets board state")
}

func TestDisableExtAnaStreamingWhenIdle(t *testing.T) {
	dev, _ := newTestDevice(t)
	assert.NoError(t, dev.DisableExtAnaStreaming())
}

func TestStreamingAttributeUnsupported(t *testing.T) {
	tr, conn := sk8test.NewTransport(testDeviceName, testDeviceAddr)
	conn.AddCharacteristic(uuidDeviceName, []byte(testDeviceName))
	// No streaming characteristics at all.

	dev := New(tr, &Options{Logger: quietLogger()})
	require.NoError(t, dev.Connect(context.Background(), testDeviceName, "", time.Second))

	err := dev.EnableIMUStreaming([]int{0}, SensorAll)
	require.Error(t, err)
	assert.True(t, IsAttributeUnsupported(err))
	assert.Equal(t, ModeIdle, dev.Mode())

	err = dev.EnableExtAnaStreaming(false, 0)
	require.Error(t, err)
	assert.True(t, IsAttributeUnsupported(err))
}

func TestExtAnaEnableRollsBackIMUOnMissingFlag(t *testing.T) {
	tr, conn := sk8test.NewTransport(testDeviceName, testDeviceAddr)
	conn.AddCharacteristic(uuidDeviceName, []byte(testDeviceName))
	conn.AddCharacteristic(uuidIMUData, nil)
	conn.AddCharacteristic(uuidIMUSelection, []byte{0})
	conn.AddCharacteristic(uuidSensorSelection, []byte{0})
	// Firmware without the ExtAna-IMU flag characteristic (current or
	// legacy UUID).

	dev := New(tr, &Options{Logger: quietLogger()})
	require.NoError(t, dev.Connect(context.Background(), testDeviceName, "", time.Second))

	var calls int
	dev.SetIMUCallback(func(_, _, _ [3]float64, _, _ uint8, _ time.Time, _ any) {
		calls++
	}, nil)

	err := dev.EnableExtAnaStreaming(true, SensorAll)
	require.Error(t, err)
	assert.True(t, IsAttributeUnsupported(err))
	assert.Equal(t, ModeIdle, dev.Mode())

	// The IMU subscription made on the way in must be gone: an idle
	// session delivers nothing and invokes no callback.
	delivered := conn.Notify(uuidIMUData, imuPacketBytes([3]int16{1, 1, 1}, [3]int16{}, [3]int16{}, 0, 0))
	assert.False(t, delivered, "failed enable must not leave the IMU subscription live")
	assert.Zero(t, calls)
	assert.Equal(t, uint64(0), dev.ReceivedPackets())

	// And plain IMU streaming still works afterwards.
	require.NoError(t, dev.EnableIMUStreaming([]int{0}, SensorAll))
	assert.True(t, conn.Notify(uuidIMUData, imuPacketBytes([3]int16{}, [3]int16{}, [3]int16{}, 0, 1)))
}

func TestExtAnaEnableRollsBackIMUOnFlagWriteError(t *testing.T) {
	tr, conn := sk8test.NewTransport(testDeviceName, testDeviceAddr)
	conn.AddCharacteristic(uuidDeviceName, []byte(testDeviceName))
	conn.AddCharacteristic(uuidIMUData, nil)
	conn.AddCharacteristic(uuidExtAnaData, nil)
	conn.AddCharacteristic(uuidIMUSelection, []byte{0})
	conn.AddCharacteristic(uuidSensorSelection, []byte{0})
	flag := conn.AddCharacteristic(uuidExtAnaIMUStreaming, []byte{0})
	flag.WriteErr = errors.New("write rejected")

	dev := New(tr, &Options{Logger: quietLogger()})
	require.NoError(t, dev.Connect(context.Background(), testDeviceName, "", time.Second))

	err := dev.EnableExtAnaStreaming(true, SensorAll)
	require.Error(t, err)
	assert.Equal(t, ModeIdle, dev.Mode())
	assert.False(t, conn.Notify(uuidIMUData, imuPacketBytes([3]int16{}, [3]int16{}, [3]int16{}, 0, 0)))
}

func TestStreamingModeString(t *testing.T) {
	assert.Equal(t, "idle", ModeIdle.String())
	assert.Equal(t, "imu", ModeIMUStreaming.String())
	assert.Equal(t, "extana", ModeExtAnaStreaming.String())
}
