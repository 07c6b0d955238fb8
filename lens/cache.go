package lens

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
)

// PayloadCache stores parsed payloads so repeated opens of the same report skip text parsing. Snapshots are
// msgpack encoded and zstd compressed.
type PayloadCache struct {
	store Storage
}

// NewPayloadCache creates a cache over store, keys are namespaced so the store may be shared.
func NewPayloadCache(store Storage) *PayloadCache {
	return &PayloadCache{store: KeyPrefixStorage(store, "payload")}
}

// PayloadKey returns the cache key for raw payload file content.
func PayloadKey(data []byte) string {
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:])
}

// Save stores the payload under key.
func (c *PayloadCache) Save(key string, p *Payload) error {
	blob, err := EncodePayloadMsgpack(p)
	if err != nil {
		return err
	}
	if err := c.store.Put(key, ZstdCompress(nil, blob)); err != nil {
		return fmt.Errorf("save payload %s failed: %w", key, err)
	}
	return nil
}

// Load returns the payload stored under key, ok is false when not cached.
func (c *PayloadCache) Load(key string) (*Payload, bool, error) {
	blob, ok, err := c.store.Get(key)
	if err != nil || !ok {
		return nil, false, err
	}
	data, err := ZstdDecompress(nil, blob)
	if err != nil {
		return nil, false, fmt.Errorf("decompress payload %s failed: %w", key, err)
	}
	p, err := DecodePayloadMsgpack(data)
	if err != nil {
		return nil, false, err
	}
	return p, true, nil
}

// Keys returns the cached payload keys.
func (c *PayloadCache) Keys() ([]string, error) {
	return c.store.KeysWithPrefix("")
}

// Evict removes the payload stored under key.
func (c *PayloadCache) Evict(key string) error {
	return c.store.Delete(key)
}
