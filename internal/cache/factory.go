package cache

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// ProviderConfig carries everything a provider constructor may need. Fields
// that a given provider does not understand are ignored.
type ProviderConfig struct {
	// Size caps the number of entries before LRU eviction kicks in.
	Size int

	// TTL is how long an entry stays valid after being written.
	TTL time.Duration

	// OnEvict, when set, is invoked for every evicted entry.
	OnEvict EvictCallback

	// Logger receives errors that cannot be returned to the caller. Nil
	// discards them.
	Logger Logger

	// RedisAddress is the Redis/Valkey host:port for the "redis" provider.
	RedisAddress string

	// RedisPassword authenticates against the Redis/Valkey server.
	RedisPassword string

	// RedisDB selects the Redis/Valkey logical database.
	RedisDB int

	// Group, when non-empty, names this cache instance in Prometheus
	// metrics and enables hit/miss/eviction instrumentation.
	Group string
}

// Provider constructs a Cache from config.
type Provider func(cfg ProviderConfig) (Cache, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Provider)
)

// Register adds a provider under name. Registering nil or a duplicate name
// is a programming error and panics.
func Register(name string, p Provider) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if p == nil {
		panic("cache: Register provider is nil")
	}
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("cache: provider %q already registered", name))
	}
	registry[name] = p
}

// New builds a Cache from the named provider. A non-empty cfg.Group wraps
// the result with instrumentation: lookups count as hits or misses, evicted
// entries increment the eviction counter, and the entry count is collected
// at scrape time.
func New(name string, cfg ProviderConfig) (Cache, error) {
	registryMu.RLock()
	p, ok := registry[name]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("cache: unknown provider %q (registered: %v)", name, RegisteredProviders())
	}

	if cfg.Group == "" {
		return p(cfg)
	}

	cfg.OnEvict = countEvictions(cfg.Group, cfg.OnEvict)
	inner, err := p(cfg)
	if err != nil {
		return nil, err
	}
	return newInstrumentedCache(inner, cfg.Group), nil
}

// countEvictions chains the eviction counter in front of the caller's
// callback. Providers fire OnEvict themselves, so this is the one place the
// counter can live regardless of backend.
func countEvictions(group string, next EvictCallback) EvictCallback {
	return func(key string, value []byte) {
		EvictionsTotal.WithLabelValues(group).Inc()
		if next != nil {
			next(key, value)
		}
	}
}

// RegisteredProviders returns the registered provider names, sorted.
func RegisteredProviders() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
