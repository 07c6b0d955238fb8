package lens

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/dgraph-io/ristretto/v2"
)

// Storage is a key / blob store backing the payload cache.
type Storage interface {
	Put(key string, blob []byte) error
	// Get returns the blob for key, ok is false if the key is not stored.
	Get(key string) (blob []byte, ok bool, err error)
	Delete(key string) error
	// KeysWithPrefix returns all keys in the store that begin with the given prefix.
	KeysWithPrefix(prefix string) ([]string, error)
	Clear() error
	Close()
}

// KeyPrefixStorage wraps another Storage, namespacing all keys with prefix. Returned keys have the prefix removed.
func KeyPrefixStorage(s Storage, prefix string) Storage {
	if prefix == "" {
		return s
	}
	return &prefixStorage{
		store:  s,
		prefix: prefix + ";",
	}
}

type prefixStorage struct {
	store  Storage
	prefix string
}

func (p *prefixStorage) Put(key string, blob []byte) error {
	return p.store.Put(p.prefix+key, blob)
}

func (p *prefixStorage) Get(key string) ([]byte, bool, error) {
	return p.store.Get(p.prefix + key)
}

func (p *prefixStorage) Delete(key string) error {
	return p.store.Delete(p.prefix + key)
}

func (p *prefixStorage) KeysWithPrefix(prefix string) ([]string, error) {
	underlying, err := p.store.KeysWithPrefix(p.prefix + prefix)
	if err != nil {
		return nil, err
	}
	for i, k := range underlying {
		underlying[i] = strings.TrimPrefix(k, p.prefix)
	}
	return underlying, nil
}

// Clear only removes the keys within the prefix namespace.
func (p *prefixStorage) Clear() error {
	keys, err := p.KeysWithPrefix("")
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := p.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

func (p *prefixStorage) Close() {
	p.store.Close()
}

type memStorage struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemStorage returns an in-memory Storage implementation.
func NewMemStorage() Storage {
	return &memStorage{data: make(map[string][]byte)}
}

func (m *memStorage) Put(key string, blob []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[key] = append([]byte(nil), blob...) // copy the blob to avoid external mutation
	return nil
}

func (m *memStorage) Get(key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	blob, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), blob...), true, nil
}

func (m *memStorage) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, key)
	return nil
}

func (m *memStorage) KeysWithPrefix(prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var keys []string
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (m *memStorage) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	clear(m.data)
	return nil
}

func (m *memStorage) Close() {
	// no resources to free
}

type badgerStorage struct {
	db      *badger.DB
	metrics bool
}

// NewBadgerStorage opens a Badger backed Storage at path, maxMemMB bounds the table and cache memory. When metrics
// is set the index cache counters are collected and reported by StorageCacheMetrics.
func NewBadgerStorage(path string, maxMemMB int, metrics bool) (Storage, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("create storage dir failed: %w", err)
	}

	clamp := func(val, lo, high int64) int64 {
		return min(max(val, lo), high)
	}
	memTableSize := clamp(int64(maxMemMB/4), 8, 64) << 20
	// cached payloads are stored zstd compressed
	opts := badger.DefaultOptions(path).
		WithCompression(options.None).
		WithNumMemtables(2).
		WithMemTableSize(memTableSize).
		WithBaseTableSize(memTableSize).
		WithBlockCacheSize(0).
		WithIndexCacheSize(clamp(int64(maxMemMB/8), 8, 64) << 20).
		WithLoggingLevel(badger.ERROR).
		WithMetricsEnabled(metrics)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open storage db failed: %w", err)
	}
	return &badgerStorage{db: db, metrics: metrics}, nil
}

// StorageCacheMetrics describes the index cache counters of a Badger storage opened with metrics, ok is false for
// any other storage.
func StorageCacheMetrics(s Storage) (string, bool) {
	switch store := s.(type) {
	case *prefixStorage:
		return StorageCacheMetrics(store.store)
	case *badgerStorage:
		if !store.metrics {
			return "", false
		}
		return formatCacheMetrics(store.db.IndexCacheMetrics()), true
	default:
		return "", false
	}
}

func formatCacheMetrics(metrics *ristretto.Metrics) string {
	if metrics == nil {
		return "index: no cache"
	}
	return fmt.Sprintf("index: hits=%d misses=%d %s", metrics.Hits(), metrics.Misses(), metrics.String())
}

func (b *badgerStorage) Put(key string, blob []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), blob)
	})
}

func (b *badgerStorage) Get(key string) ([]byte, bool, error) {
	var blob []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		blob, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	} else if err != nil {
		return nil, false, err
	}
	return blob, true, nil
}

func (b *badgerStorage) Delete(key string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

func (b *badgerStorage) KeysWithPrefix(prefix string) ([]string, error) {
	var keys []string
	err := b.db.View(func(txn *badger.Txn) error {
		itOpts := badger.DefaultIteratorOptions
		itOpts.PrefetchValues = false
		it := txn.NewIterator(itOpts)
		defer it.Close()
		for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
			keys = append(keys, string(it.Item().Key()))
		}
		return nil
	})
	return keys, err
}

func (b *badgerStorage) Clear() error {
	return b.db.DropAll()
}

func (b *badgerStorage) Close() {
	_ = b.db.Close()
}
