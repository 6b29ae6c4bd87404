package cache

import (
	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

func init() {
	Register("memory", newMemoryCache)
}

// memoryCache keeps responses in an in-process expirable LRU. Entries live
// for the lifetime of a single resolver run, which is enough to dedupe the
// repeated page and manifest fetches within one batch of URLs.
type memoryCache struct {
	entries *lru.LRU[string, []byte]
}

func newMemoryCache(cfg ProviderConfig) (Cache, error) {
	// EvictCallback and the LRU's callback share a signature; a nil
	// callback converts to nil.
	onEvict := lru.EvictCallback[string, []byte](cfg.OnEvict)
	return &memoryCache{
		entries: lru.NewLRU(cfg.Size, onEvict, cfg.TTL),
	}, nil
}

func (m *memoryCache) Get(key string) ([]byte, bool) {
	return m.entries.Get(key)
}

func (m *memoryCache) Set(key string, value []byte) {
	m.entries.Add(key, value)
}

func (m *memoryCache) Contains(key string) bool {
	return m.entries.Contains(key)
}

func (m *memoryCache) Len() int {
	return m.entries.Len()
}

// Close is a no-op; the LRU's expiry goroutine stops when the cache is
// garbage collected.
func (m *memoryCache) Close() error {
	return nil
}
