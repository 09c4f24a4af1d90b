package providers

import (
	"errors"
	"strings"
	"time"

	"datasync/internal/structures"
	"github.com/coocood/freecache"
)

const snapshotKeyPrefix = "snapshot:"

type CacheProviderInterface interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte)
}

// SnapshotCacheKey names the rendered /snapshot body of a category as of one
// pipeline run. A finished run changes the key, so stale bodies are never
// served and simply age out.
func SnapshotCacheKey(category, runID string) string {
	return snapshotKeyPrefix + category + ":" + runID
}

// cacheKeyCategory extracts the category from a snapshot key, or "other".
func cacheKeyCategory(key string) string {
	rest, ok := strings.CutPrefix(key, snapshotKeyPrefix)
	if !ok {
		return "other"
	}
	category, _, _ := strings.Cut(rest, ":")
	return category
}

type CacheProvider struct {
	cache  *freecache.Cache
	ttl    int
	logger Logger
}

// NewCacheProvider returns a cache for rendered snapshot responses. Entries
// live for cache.ttl, or one schedule interval when that is unset.
func NewCacheProvider(conf *structures.Config, logger Logger) CacheProviderInterface {
	if !conf.Cache.Enabled || conf.Cache.Size <= 0 {
		logger.Infof(TypeApp, "Cache disabled")
		return &noopCache{}
	}

	ttl := conf.Cache.TTL
	if ttl <= 0 {
		ttl = conf.Schedule.Interval + time.Second
	}
	seconds := max(int(ttl.Seconds()), 1)

	cache := freecache.NewCache(conf.Cache.Size * 1024 * 1024)
	// freecache refuses entries above 1/1024 of its size
	logger.Infof(TypeApp, "Snapshot cache initialized: %dMB, TTL=%ds, largest body %dKB",
		conf.Cache.Size, seconds, conf.Cache.Size)
	return &CacheProvider{
		cache:  cache,
		ttl:    seconds,
		logger: logger,
	}
}

func (c *CacheProvider) Get(key string) ([]byte, bool) {
	val, err := c.cache.Get([]byte(key))
	if err != nil {
		return nil, false
	}
	return val, true
}

func (c *CacheProvider) Set(key string, value []byte) {
	err := c.cache.Set([]byte(key), value, c.ttl)
	switch {
	case err == nil:
	case errors.Is(err, freecache.ErrLargeEntry):
		c.logger.Debugf(TypeApp, "Snapshot %s not cached: %d bytes exceeds the cache entry limit", key, len(value))
	default:
		c.logger.Warnf(TypeApp, "Failed to cache %s: %s", key, err)
	}
}

type noopCache struct{}

func (n *noopCache) Get(_ string) ([]byte, bool) { return nil, false }
func (n *noopCache) Set(_ string, _ []byte)      {}
