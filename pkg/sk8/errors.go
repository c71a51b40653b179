package sk8

import (
	"errors"
	"fmt"

	"github.com/srg/sk8/internal/transport"
)

// ErrNotConnected is returned by operations that require an active
// connection. Re-exported from the transport package so callers only need to
// import sk8.
var ErrNotConnected error = transport.ErrNotConnected

// ErrAttributeUnsupported is returned when the connected device does not
// expose a characteristic the operation needs. This is a capability gap
// (older firmware, missing expansion board), not a transport failure.
var ErrAttributeUnsupported = errors.New("attribute not supported by this device")

// InvalidArgumentError reports an argument outside the operation's domain:
// an out-of-range IMU index, an empty sensor mask, an over-long device name,
// or a streaming-mode conflict.
type InvalidArgumentError struct {
	Op     string
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("%s: invalid argument: %s", e.Op, e.Reason)
}

// Is allows errors.Is(err, &InvalidArgumentError{}) style comparisons against
// the type regardless of Op/Reason.
func (e *InvalidArgumentError) Is(target error) bool {
	_, ok := target.(*InvalidArgumentError)
	return ok
}

func invalidArgument(op, format string, args ...interface{}) error {
	return &InvalidArgumentError{Op: op, Reason: fmt.Sprintf(format, args...)}
}

// DecodeError reports a packet buffer that does not match the fixed wire
// layout for its kind.
type DecodeError struct {
	Packet string // "imu", "extana"
	Want   int
	Got    int
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s packet: invalid length: want %d bytes, got %d", e.Packet, e.Want, e.Got)
}

// attributeUnsupported wraps a characteristic lookup failure as an
// ErrAttributeUnsupported for the given operation.
func attributeUnsupported(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrAttributeUnsupported, err)
}

// IsAttributeUnsupported reports whether err indicates a characteristic the
// connected device does not expose.
func IsAttributeUnsupported(err error) bool {
	if errors.Is(err, ErrAttributeUnsupported) {
		return true
	}
	var nfe *transport.NotFoundError
	return errors.As(err, &nfe)
}
