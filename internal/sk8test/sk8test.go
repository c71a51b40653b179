// Package sk8test provides in-memory fakes for the transport interfaces, so
// driver behavior can be tested without BLE hardware: register writes are
// recorded, characteristic reads are served from preset values, and
// notifications are injected directly into subscribed handlers.
package sk8test

import (
	"context"
	"sync"
	"time"

	"github.com/srg/sk8/internal/transport"
)

// Write records one characteristic write, in order of occurrence.
type Write struct {
	UUID string
	Data []byte
}

// Transport is a fake transport.Transport backed by a static device table.
type Transport struct {
	// Devices maps advertised name to address for FindDevice.
	Devices map[string]string

	// Conn is handed out by Connect. When nil, Connect creates a fresh
	// Connection.
	Conn *Connection

	// FindErr and ConnectErr, when set, fail the corresponding call.
	FindErr    error
	ConnectErr error
}

// NewTransport returns a transport with a single device and a fresh
// connection pre-wired.
func NewTransport(name, address string) (*Transport, *Connection) {
	conn := NewConnection(address)
	return &Transport{
		Devices: map[string]string{name: address},
		Conn:    conn,
	}, conn
}

func (t *Transport) FindDevice(ctx context.Context, name string, timeout time.Duration) (string, error) {
	if t.FindErr != nil {
		return "", t.FindErr
	}
	if addr, ok := t.Devices[name]; ok {
		return addr, nil
	}
	return "", &transport.NotFoundError{Resource: "device", UUID: name}
}

func (t *Transport) Connect(ctx context.Context, address string, timeout time.Duration) (transport.Connection, error) {
	if t.ConnectErr != nil {
		return nil, t.ConnectErr
	}
	if t.Conn == nil {
		t.Conn = NewConnection(address)
	}
	t.Conn.connected = true
	return t.Conn, nil
}

// Connection is a fake transport.Connection holding a characteristic table.
type Connection struct {
	mu        sync.Mutex
	address   string
	connected bool
	chars     map[string]*Characteristic
	writes    []Write
}

func NewConnection(address string) *Connection {
	return &Connection{
		address:   address,
		connected: true,
		chars:     make(map[string]*Characteristic),
	}
}

// AddCharacteristic registers a characteristic with an initial read value.
// Returns the fake for per-characteristic tweaking (error injection).
func (c *Connection) AddCharacteristic(uuid string, value []byte) *Characteristic {
	c.mu.Lock()
	defer c.mu.Unlock()
	char := &Characteristic{conn: c, uuid: transport.NormalizeUUID(uuid), Value: value}
	c.chars[char.uuid] = char
	return char
}

func (c *Connection) Address() string { return c.address }

func (c *Connection) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *Connection) FindCharacteristic(uuid string) (transport.Characteristic, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	char, ok := c.chars[transport.NormalizeUUID(uuid)]
	if !ok {
		return nil, &transport.NotFoundError{Resource: "characteristic", UUID: uuid}
	}
	return char, nil
}

func (c *Connection) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	for _, char := range c.chars {
		char.Subscribed = false
		char.handler = nil
	}
	return nil
}

// Drop simulates a link loss without the teardown Disconnect performs.
func (c *Connection) Drop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
}

// Writes returns every characteristic write so far, oldest first.
func (c *Connection) Writes() []Write {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Write(nil), c.writes...)
}

// WritesTo returns the payloads written to one characteristic, oldest first.
func (c *Connection) WritesTo(uuid string) [][]byte {
	key := transport.NormalizeUUID(uuid)
	c.mu.Lock()
	defer c.mu.Unlock()
	var out [][]byte
	for _, w := range c.writes {
		if w.UUID == key {
			out = append(out, w.Data)
		}
	}
	return out
}

// Notify injects a notification payload into the handler subscribed to the
// given characteristic. Returns false if nothing is subscribed to it.
func (c *Connection) Notify(uuid string, data []byte) bool {
	c.mu.Lock()
	char, ok := c.chars[transport.NormalizeUUID(uuid)]
	var fn transport.Notification
	if ok && char.Subscribed {
		fn = char.handler
	}
	c.mu.Unlock()

	if fn == nil {
		return false
	}
	fn(data)
	return true
}

// Characteristic is a fake transport.Characteristic. Value serves reads and
// is replaced by writes; the error fields inject failures.
type Characteristic struct {
	conn *Connection
	uuid string

	Value      []byte
	Subscribed bool

	ReadErr        error
	WriteErr       error
	SubscribeErr   error
	UnsubscribeErr error

	handler transport.Notification
}

func (ch *Characteristic) UUID() string { return ch.uuid }

func (ch *Characteristic) Read() ([]byte, error) {
	ch.conn.mu.Lock()
	defer ch.conn.mu.Unlock()
	if ch.ReadErr != nil {
		return nil, ch.ReadErr
	}
	return append([]byte(nil), ch.Value...), nil
}

func (ch *Characteristic) Write(data []byte) error {
	ch.conn.mu.Lock()
	defer ch.conn.mu.Unlock()
	if ch.WriteErr != nil {
		return ch.WriteErr
	}
	ch.Value = append([]byte(nil), data...)
	ch.conn.writes = append(ch.conn.writes, Write{UUID: ch.uuid, Data: append([]byte(nil), data...)})
	return nil
}

func (ch *Characteristic) Subscribe(fn transport.Notification) error {
	ch.conn.mu.Lock()
	defer ch.conn.mu.Unlock()
	if ch.SubscribeErr != nil {
		return ch.SubscribeErr
	}
	ch.Subscribed = true
	ch.handler = fn
	return nil
}

func (ch *Characteristic) Unsubscribe() error {
	ch.conn.mu.Lock()
	defer ch.conn.mu.Unlock()
	if ch.UnsubscribeErr != nil {
		return ch.UnsubscribeErr
	}
	ch.Subscribed = false
	ch.handler = nil
	return nil
}
