// Package transport defines the BLE transport boundary consumed by the SK8
// driver: device discovery, connection lifecycle, characteristic enumeration,
// read/write and notification subscription.
//
// The driver core in pkg/sk8 only ever talks to the interfaces in this
// package. The go-ble backed implementation lives alongside them; tests swap
// in the in-memory fake from internal/sk8test.
package transport
