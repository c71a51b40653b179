package transport

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeUUID(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"short uuid", "2A19", "2a19"},
		{"already normalized", "2a19", "2a19"},
		{"long uuid with dashes", "B8C70001-55A2-4F39-9B2D-AA3F8F2B1C5E", "b8c7000155a24f399b2daa3f8f2b1c5e"},
		{"long uuid without dashes", "b8c7000155a24f399b2daa3f8f2b1c5e", "b8c7000155a24f399b2daa3f8f2b1c5e"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeUUID(tt.input))
		})
	}
}

func TestNormalizeUUIDs(t *testing.T) {
	got := NormalizeUUIDs([]string{"2A00", "2A19-"})
	assert.Equal(t, []string{"2a00", "2a19"}, got)
}

func TestShortenUUID(t *testing.T) {
	assert.Equal(t, "2a19", ShortenUUID("2a19"))
	assert.Equal(t, "b8c70001", ShortenUUID("b8c7000155a24f399b2daa3f8f2b1c5e"))
}

func TestNotFoundError(t *testing.T) {
	err := &NotFoundError{Resource: "characteristic", UUID: "2a19"}
	assert.Equal(t, `characteristic "2a19" not found`, err.Error())

	bare := &NotFoundError{Resource: "device"}
	assert.Equal(t, "device not found", bare.Error())

	var nfe *NotFoundError
	assert.True(t, errors.As(fmt.Errorf("resolve: %w", err), &nfe))
	assert.Equal(t, "2a19", nfe.UUID)
}

func TestConnectionErrorIs(t *testing.T) {
	err := fmt.Errorf("write: %w", &ConnectionError{State: NotConnected, Msg: "device went away"})

	assert.True(t, errors.Is(err, ErrNotConnected))
	assert.False(t, errors.Is(err, ErrAlreadyConnected))
	assert.True(t, IsConnectionState(err, NotConnected))
	assert.False(t, IsConnectionState(err, AlreadyConnected))
	assert.False(t, IsConnectionState(errors.New("plain"), NotConnected))
}

func TestConnectionErrorMessage(t *testing.T) {
	assert.Equal(t, "not_connected", ErrNotConnected.Error())
	withMsg := &ConnectionError{State: AlreadyConnected, Msg: "to aa:bb"}
	assert.Equal(t, "already_connected: to aa:bb", withMsg.Error())
}
