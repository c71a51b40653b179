package sk8

import (
	"github.com/cornelk/hashmap"

	"github.com/srg/sk8/internal/transport"
)

// charCache memoizes characteristic resolution for one connection. Handles
// are connection-scoped, so the cache is created on connect and invalidated
// wholesale on disconnect.
type charCache struct {
	conn  transport.Connection
	chars *hashmap.Map[string, transport.Characteristic]
}

func newCharCache(conn transport.Connection) *charCache {
	return &charCache{
		conn:  conn,
		chars: hashmap.New[string, transport.Characteristic](),
	}
}

// resolve returns the transport handle for the characteristic with the given
// UUID, asking the transport to enumerate on a cache miss. An absent
// characteristic yields the transport's NotFoundError; callers treat that as
// a capability gap and degrade rather than fail the connection.
func (c *charCache) resolve(uuid string) (transport.Characteristic, error) {
	key := transport.NormalizeUUID(uuid)
	if char, ok := c.chars.Get(key); ok {
		return char, nil
	}

	char, err := c.conn.FindCharacteristic(uuid)
	if err != nil {
		return nil, err
	}
	c.chars.Set(key, char)
	return char, nil
}

// resolveAny returns the first of the given UUIDs the device exposes. Used
// for characteristics that moved UUID between firmware revisions.
func (c *charCache) resolveAny(uuids ...string) (transport.Characteristic, error) {
	var lastErr error
	for _, uuid := range uuids {
		char, err := c.resolve(uuid)
		if err == nil {
			return char, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// invalidate drops every cached handle.
func (c *charCache) invalidate() {
	c.chars = hashmap.New[string, transport.Characteristic]()
}
