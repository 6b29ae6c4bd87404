package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

func init() {
	Register("redis", newRedisCache)
}

// keyPrefix namespaces the resolver's keys inside a shared Redis database.
const keyPrefix = "mediaresolver:"

// opTimeout bounds each Redis round trip independently of the caller.
const opTimeout = 2 * time.Second

// redisCache stores entries in Redis/Valkey with LRU semantics maintained
// by the application. The whole cache occupies two keys:
//
//   - {prefix}data: a hash of user key to cached bytes. Each field gets its
//     own TTL via HPEXPIRE, so Redis drops expired entries on its own.
//   - {prefix}lru: a sorted set scoring each user key by last-access time
//     in microseconds.
//
// HPEXPIRE needs Redis 7.4+ or Valkey 8+. On older servers values are
// stored but never expire.
//
// Get and Set each run as one Lua script, so touch-on-read and
// write-then-evict are atomic. Sorted-set members whose hash field already
// expired are cleaned up lazily during eviction.
type redisCache struct {
	rdb      *redis.Client
	entryTTL time.Duration
	capacity int
	evict    EvictCallback
	log      Logger
	dataKey  string
	lruKey   string
}

// luaTouchGet reads a hash field and, on a hit, refreshes its LRU score.
//
// KEYS[1] = data hash, KEYS[2] = LRU sorted set
// ARGV[1] = access time in µs, ARGV[2] = user key
//
// Returns the value, or nil when the field is absent or expired.
var luaTouchGet = redis.NewScript(`
local value = redis.call('HGET', KEYS[1], ARGV[2])
if value then
    redis.call('ZADD', KEYS[2], ARGV[1], ARGV[2])
end
return value
`)

// luaStoreEvict writes a hash field with a per-field TTL, scores it in the
// LRU set, and pops the least recently used entries while the set is over
// capacity. Popping a member whose field already expired still removes the
// stale member; the HDEL is a no-op then.
//
// KEYS[1] = data hash, KEYS[2] = LRU sorted set
// ARGV[1] = value, ARGV[2] = access time in µs, ARGV[3] = user key,
// ARGV[4] = capacity, ARGV[5] = TTL in ms
//
// Returns the evicted user keys, possibly none.
var luaStoreEvict = redis.NewScript(`
local key      = ARGV[3]
local capacity = tonumber(ARGV[4])
local ttlMs    = tonumber(ARGV[5])

redis.call('HSET', KEYS[1], key, ARGV[1])
redis.call('HPEXPIRE', KEYS[1], ttlMs, 'FIELDS', 1, key)
redis.call('ZADD', KEYS[2], ARGV[2], key)

local evicted = {}
local tracked = redis.call('ZCARD', KEYS[2])
while tracked > capacity do
    local oldest = redis.call('ZPOPMIN', KEYS[2], 1)
    if #oldest == 0 then break end
    redis.call('HDEL', KEYS[1], oldest[1])
    table.insert(evicted, oldest[1])
    tracked = tracked - 1
end

return evicted
`)

func newRedisCache(cfg ProviderConfig) (Cache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddress,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &redisCache{
		rdb:      rdb,
		entryTTL: cfg.TTL,
		capacity: cfg.Size,
		evict:    cfg.OnEvict,
		log:      cfg.Logger,
		dataKey:  keyPrefix + "data",
		lruKey:   keyPrefix + "lru",
	}, nil
}

func (r *redisCache) opCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), opTimeout)
}

func (r *redisCache) reportError(msg string, err error) {
	if r.log != nil {
		r.log.Error(msg, err)
	}
}

func (r *redisCache) Get(key string) ([]byte, bool) {
	ctx, cancel := r.opCtx()
	defer cancel()

	now := strconv.FormatInt(time.Now().UnixMicro(), 10)
	value, err := luaTouchGet.Run(ctx, r.rdb, []string{r.dataKey, r.lruKey}, now, key).Text()
	if err != nil {
		// redis.Nil is an ordinary miss.
		if !errors.Is(err, redis.Nil) {
			r.reportError("redis cache Get failed", err)
		}
		return nil, false
	}
	return []byte(value), true
}

func (r *redisCache) Set(key string, value []byte) {
	ctx, cancel := r.opCtx()
	defer cancel()

	evicted, err := luaStoreEvict.Run(ctx, r.rdb, []string{r.dataKey, r.lruKey},
		value,
		strconv.FormatInt(time.Now().UnixMicro(), 10),
		key,
		strconv.Itoa(r.capacity),
		strconv.FormatInt(r.entryTTL.Milliseconds(), 10),
	).StringSlice()
	if err != nil {
		r.reportError("redis cache Set failed", err)
		return
	}

	if r.evict == nil {
		return
	}
	// Fetching evicted values back would cost extra round trips, so the
	// callback only gets the key.
	for _, evictedKey := range evicted {
		r.evict(evictedKey, nil)
	}
}

func (r *redisCache) Contains(key string) bool {
	ctx, cancel := r.opCtx()
	defer cancel()

	exists, err := r.rdb.HExists(ctx, r.dataKey, key).Result()
	if err != nil {
		r.reportError("redis cache Contains failed", err)
		return false
	}
	return exists
}

func (r *redisCache) Len() int {
	ctx, cancel := r.opCtx()
	defer cancel()

	n, err := r.rdb.HLen(ctx, r.dataKey).Result()
	if err != nil {
		r.reportError("redis cache Len failed", err)
		return 0
	}
	return int(n)
}

func (r *redisCache) Close() error {
	return r.rdb.Close()
}
