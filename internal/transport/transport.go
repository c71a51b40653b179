package transport

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// NotFoundError represents an error when a BLE resource is not found on the
// connected device. Callers should treat it as a capability gap rather than a
// fatal condition: older firmware simply lacks some characteristics.
type NotFoundError struct {
	Resource string // "device", "characteristic"
	UUID     string // UUID or name/address of the missing resource
}

func (e *NotFoundError) Error() string {
	if e.UUID == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s %q not found", e.Resource, e.UUID)
}

// ConnectionState represents the specific kind of connection state failure
type ConnectionState string

const (
	NotConnected     ConnectionState = "not_connected"
	AlreadyConnected ConnectionState = "already_connected"
	NotInitialized   ConnectionState = "not_initialized"
)

// ConnectionError represents any connection-related problem
type ConnectionError struct {
	State ConnectionState
	Msg   string
}

// Error implements the error interface
func (e *ConnectionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Msg == "" {
		return string(e.State)
	}
	return fmt.Sprintf("%s: %s", e.State, e.Msg)
}

// Is allows errors.Is to compare ConnectionError values by State
func (e *ConnectionError) Is(target error) bool {
	if e == nil {
		return false
	}
	t, ok := target.(*ConnectionError)
	if !ok {
		return false
	}
	return e.State == t.State
}

// Predefined sentinel errors for connection states
var (
	ErrNotConnected     = &ConnectionError{State: NotConnected}
	ErrAlreadyConnected = &ConnectionError{State: AlreadyConnected}
	ErrNotInitialized   = &ConnectionError{State: NotInitialized}
)

// ErrTimeout is returned when a transport operation exceeds its deadline.
var ErrTimeout = errors.New("timeout")

// IsConnectionState reports whether err is a ConnectionError with the given state
func IsConnectionState(err error, state ConnectionState) bool {
	var cerr *ConnectionError
	if errors.As(err, &cerr) {
		return cerr.State == state
	}
	return false
}

// Notification is invoked for each inbound notification value. The data slice
// is only valid for the duration of the call; handlers must copy it if they
// need to retain it. Handlers run on the transport's delivery goroutine, so a
// slow handler delays subsequent notification delivery.
type Notification func(data []byte)

// Characteristic is a resolved transport-level handle for one GATT
// characteristic on an active connection. Handles are connection-scoped and
// become invalid after disconnect.
type Characteristic interface {
	UUID() string

	Read() ([]byte, error)
	Write(data []byte) error

	// Subscribe enables notifications and routes each inbound value to fn.
	// A second Subscribe replaces the previous handler.
	Subscribe(fn Notification) error
	Unsubscribe() error
}

// Connection represents one active BLE connection.
type Connection interface {
	Address() string
	IsConnected() bool

	// FindCharacteristic enumerates the device's services for a
	// characteristic matching uuid. Returns *NotFoundError if the device
	// does not expose it.
	FindCharacteristic(uuid string) (Characteristic, error)

	Disconnect() error
}

// Transport creates connections to BLE peripherals.
type Transport interface {
	// FindDevice scans for a peripheral advertising the given local name
	// and returns its address. Returns *NotFoundError if the scan window
	// elapses without a match.
	FindDevice(ctx context.Context, name string, timeout time.Duration) (string, error)

	// Connect dials the peripheral at address and discovers its GATT
	// profile.
	Connect(ctx context.Context, address string, timeout time.Duration) (Connection, error)
}
