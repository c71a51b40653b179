package transport

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-ble/ble"
	"github.com/go-ble/ble/darwin"
	"github.com/sirupsen/logrus"
)

// DeviceFactory creates ble.Device instances (can be overridden in tests)
var DeviceFactory = func() (ble.Device, error) {
	dev, err := darwin.NewDevice()
	if err != nil {
		// Wrap Bluetooth state errors with clearer messages
		if strings.Contains(err.Error(), "central manager has invalid state") {
			if strings.Contains(err.Error(), "have=4") { // StatePoweredOff
				return nil, fmt.Errorf("Bluetooth is turned off - please enable Bluetooth and retry")
			}
			return nil, fmt.Errorf("Bluetooth is not ready - %w", err)
		}
		return nil, err
	}
	return dev, nil
}

// BLETransport is the go-ble backed Transport implementation. The underlying
// ble.Device is created lazily on first use and reused for the lifetime of
// the transport.
type BLETransport struct {
	logger *logrus.Logger

	devOnce sync.Once
	dev     ble.Device
	devErr  error
}

// NewBLETransport creates a Transport backed by the platform BLE stack.
func NewBLETransport(logger *logrus.Logger) *BLETransport {
	return &BLETransport{logger: logger}
}

func (t *BLETransport) device() (ble.Device, error) {
	t.devOnce.Do(func() {
		t.dev, t.devErr = DeviceFactory()
		if t.devErr == nil {
			ble.SetDefaultDevice(t.dev)
		}
	})
	return t.dev, t.devErr
}

// FindDevice scans for a peripheral advertising the given local name and
// returns its address as soon as a matching advertisement is seen.
func (t *BLETransport) FindDevice(ctx context.Context, name string, timeout time.Duration) (string, error) {
	dev, err := t.device()
	if err != nil {
		return "", fmt.Errorf("failed to create BLE device: %w", err)
	}

	scanCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	t.logger.WithField("name", name).Debug("Scanning for device")

	var (
		mu    sync.Mutex
		found string
	)
	err = dev.Scan(scanCtx, false, func(adv ble.Advertisement) {
		if adv.LocalName() != name {
			return
		}
		mu.Lock()
		if found == "" {
			found = adv.Addr().String()
		}
		mu.Unlock()
		cancel()
	})

	mu.Lock()
	addr := found
	mu.Unlock()

	if addr != "" {
		t.logger.WithFields(logrus.Fields{
			"name":    name,
			"address": addr,
		}).Debug("Found device")
		return addr, nil
	}
	if err != nil && ctx.Err() == nil && scanCtx.Err() == nil {
		return "", fmt.Errorf("scan failed: %w", err)
	}
	return "", &NotFoundError{Resource: "device", UUID: name}
}

// Connect dials the peripheral at address and discovers its GATT profile.
func (t *BLETransport) Connect(ctx context.Context, address string, timeout time.Duration) (Connection, error) {
	if strings.TrimSpace(address) == "" {
		return nil, fmt.Errorf("failed to connect to device: device address is not set")
	}

	if _, err := t.device(); err != nil {
		return nil, fmt.Errorf("failed to create BLE device: %w", err)
	}

	t.logger.WithField("address", address).Info("Connecting to BLE device...")

	connCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := ble.Dial(connCtx, ble.NewAddr(address))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to device with address %q: %w", address, err)
	}

	profile, err := client.DiscoverProfile(true)
	if err != nil {
		client.CancelConnection()
		return nil, fmt.Errorf("failed to discover profile: %w", err)
	}

	conn := &BLEConnection{
		client:      client,
		logger:      t.logger,
		address:     address,
		isConnected: true,
		chars:       make(map[string]*ble.Characteristic),
		subscribed:  make(map[string]*ble.Characteristic),
	}

	for _, svc := range profile.Services {
		svcUUID := svc.UUID.String()
		t.logger.WithField("service_uuid", svcUUID).Debug("Found service UUID")
		for _, char := range svc.Characteristics {
			charUUID := NormalizeUUID(char.UUID.String())
			t.logger.WithFields(logrus.Fields{
				"service_uuid": svcUUID,
				"char_uuid":    charUUID,
			}).Debug("Found characteristic UUID")
			if _, ok := conn.chars[charUUID]; !ok {
				conn.chars[charUUID] = char
			}
		}
	}

	t.logger.WithField("characteristics", len(conn.chars)).Info("BLE device connected")
	return conn, nil
}

// BLEConnection represents a live BLE connection (reads, writes, notifications)
type BLEConnection struct {
	client  ble.Client
	logger  *logrus.Logger
	address string

	writeMutex  sync.Mutex
	connMutex   sync.RWMutex
	isConnected bool

	chars      map[string]*ble.Characteristic
	subscribed map[string]*ble.Characteristic
}

func (c *BLEConnection) Address() string {
	return c.address
}

func (c *BLEConnection) IsConnected() bool {
	c.connMutex.RLock()
	defer c.connMutex.RUnlock()
	return c.client != nil && c.isConnected
}

// FindCharacteristic looks up a characteristic discovered during Connect.
func (c *BLEConnection) FindCharacteristic(uuid string) (Characteristic, error) {
	c.connMutex.RLock()
	defer c.connMutex.RUnlock()

	if c.client == nil || !c.isConnected {
		return nil, ErrNotConnected
	}

	char, ok := c.chars[NormalizeUUID(uuid)]
	if !ok {
		return nil, &NotFoundError{Resource: "characteristic", UUID: uuid}
	}
	return &bleCharacteristic{conn: c, char: char, uuid: NormalizeUUID(uuid)}, nil
}

func (c *BLEConnection) Disconnect() error {
	c.connMutex.Lock()
	if c.client == nil || !c.isConnected {
		c.connMutex.Unlock()
		c.logger.Info("Already disconnected")
		return nil
	}

	client := c.client
	subscribed := c.subscribed
	c.client = nil
	c.isConnected = false
	c.subscribed = make(map[string]*ble.Characteristic)
	c.connMutex.Unlock()

	// Unsubscribe from remote notifications before tearing the link down so
	// no notification callback fires against a dead connection.
	var unsubscribeErrors []string
	for uuid, char := range subscribed {
		if err := tryUnsubscribe(client, char); err != nil {
			unsubscribeErrors = append(unsubscribeErrors, fmt.Sprintf("%s: %v", uuid, err))
		}
	}
	if len(unsubscribeErrors) > 0 {
		c.logger.WithField("errors", strings.Join(unsubscribeErrors, "; ")).
			Warn("Failed to unsubscribe from some characteristics during disconnect")
	}

	err := client.CancelConnection()
	if err != nil {
		c.logger.WithField("error", err).Warn("BLE device disconnected with errors")
	} else {
		c.logger.Info("BLE device disconnected successfully")
	}
	return err
}

// tryUnsubscribe attempts to unsubscribe using both notify and indicate modes.
// Returns error only if both modes fail.
func tryUnsubscribe(client ble.Client, char *ble.Characteristic) error {
	err1 := client.Unsubscribe(char, false) // notify
	err2 := client.Unsubscribe(char, true)  // indicate
	if err1 != nil && err2 != nil {
		return fmt.Errorf("notify=%v, indicate=%v", err1, err2)
	}
	return nil
}

// bleCharacteristic adapts one *ble.Characteristic to the Characteristic
// interface. Handles are connection-scoped.
type bleCharacteristic struct {
	conn *BLEConnection
	char *ble.Characteristic
	uuid string
}

func (ch *bleCharacteristic) UUID() string {
	return ch.uuid
}

func (ch *bleCharacteristic) client() (ble.Client, error) {
	ch.conn.connMutex.RLock()
	defer ch.conn.connMutex.RUnlock()
	if ch.conn.client == nil || !ch.conn.isConnected {
		return nil, ErrNotConnected
	}
	return ch.conn.client, nil
}

func (ch *bleCharacteristic) Read() ([]byte, error) {
	client, err := ch.client()
	if err != nil {
		return nil, err
	}
	data, err := client.ReadCharacteristic(ch.char)
	if err != nil {
		return nil, fmt.Errorf("failed to read characteristic %s: %w", ch.uuid, err)
	}
	return data, nil
}

func (ch *bleCharacteristic) Write(data []byte) error {
	client, err := ch.client()
	if err != nil {
		return err
	}
	ch.conn.writeMutex.Lock()
	defer ch.conn.writeMutex.Unlock()
	if err := client.WriteCharacteristic(ch.char, data, false); err != nil {
		return fmt.Errorf("failed to write characteristic %s: %w", ch.uuid, err)
	}
	return nil
}

func (ch *bleCharacteristic) Subscribe(fn Notification) error {
	client, err := ch.client()
	if err != nil {
		return err
	}
	if ch.char.Property&ble.CharNotify == 0 && ch.char.Property&ble.CharIndicate == 0 {
		return fmt.Errorf("characteristic %s does not support notifications", ch.uuid)
	}
	if err := client.Subscribe(ch.char, false, func(data []byte) { fn(data) }); err != nil {
		return fmt.Errorf("failed to subscribe to characteristic %s: %w", ch.uuid, err)
	}

	ch.conn.connMutex.Lock()
	ch.conn.subscribed[ch.uuid] = ch.char
	ch.conn.connMutex.Unlock()

	ch.conn.logger.WithField("char_uuid", ch.uuid).Info("Subscribed to characteristic notifications")
	return nil
}

func (ch *bleCharacteristic) Unsubscribe() error {
	client, err := ch.client()
	if err != nil {
		return err
	}

	ch.conn.connMutex.Lock()
	delete(ch.conn.subscribed, ch.uuid)
	ch.conn.connMutex.Unlock()

	if err := tryUnsubscribe(client, ch.char); err != nil {
		return fmt.Errorf("failed to unsubscribe from characteristic %s: %w", ch.uuid, err)
	}
	ch.conn.logger.WithField("char_uuid", ch.uuid).Debug("Unsubscribed from characteristic notifications")
	return nil
}
