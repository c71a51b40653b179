// Package sk8 implements the host-side driver for the SK8 multi-sensor
// wearable: one streaming session per BLE connection, fixed-layout packet
// decoding into engineering units, per-source sequence tracking with rolling
// packet-loss statistics, and optional per-IMU calibration.
//
// The package provides:
//   - Session lifecycle management (connect, disconnect) over a
//     transport.Transport
//   - Mutually exclusive IMU / ExtAna streaming modes with device-side
//     selection register configuration
//   - Synchronous notification decode with user callback dispatch
//   - Connection-scoped characteristic resolution with caching
//
// A session's mutable state (streaming mode, characteristic cache, cached
// device attributes) is not synchronized internally; callers must serialize
// control operations, e.g. by driving the session from a single goroutine.
// The notification decode path only touches per-source sensor state and is
// driven by the transport's delivery goroutine.
package sk8
