package bundle

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const (
	DefaultDigestExpiration = 30 * time.Minute
	DefaultCleanupInterval  = time.Hour
)

// DigestCache memoizes digests of existing cache files. Entries are keyed by
// path, modification time and size, so a file changed on disk misses the
// cache instead of returning a stale digest.
type DigestCache struct {
	cache  *gocache.Cache
	hits   int64
	misses int64
}

// NewDigestCache creates a digest memo with the given expiration.
func NewDigestCache(expiration, cleanupInterval time.Duration) *DigestCache {
	return &DigestCache{
		cache: gocache.New(expiration, cleanupInterval),
	}
}

func metadataKey(path string, info os.FileInfo) string {
	return fmt.Sprintf("%s:%d:%d", path, info.ModTime().UnixNano(), info.Size())
}

// FileDigest returns the digest of the file at path, consulting the memo
// first. A nil receiver always hashes the file. Errors from os.Stat are
// returned unchanged so callers can test them with os.IsNotExist.
func (c *DigestCache) FileDigest(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if c == nil {
		return DigestFile(path)
	}

	key := metadataKey(path, info)
	if v, found := c.cache.Get(key); found {
		if digest, ok := v.(string); ok {
			atomic.AddInt64(&c.hits, 1)
			return digest, nil
		}
	}
	atomic.AddInt64(&c.misses, 1)

	digest, err := DigestFile(path)
	if err != nil {
		return "", err
	}
	c.cache.Set(key, digest, gocache.DefaultExpiration)

	return digest, nil
}

// Remember records the digest of a file that was just written.
func (c *DigestCache) Remember(path, digest string) {
	if c == nil {
		return
	}
	info, err := os.Stat(path)
	if err != nil {
		return
	}
	c.cache.Set(metadataKey(path, info), digest, gocache.DefaultExpiration)
}

// Flush drops every memoized digest.
func (c *DigestCache) Flush() {
	if c == nil {
		return
	}
	c.cache.Flush()
}

// Stats returns memo hits and misses.
func (c *DigestCache) Stats() (hits, misses int64) {
	if c == nil {
		return 0, 0
	}
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses)
}
