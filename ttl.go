package sqlcache

import (
	"context"
	"time"

	"github.com/bretuobay/sqlcache/internal/pending"
	"github.com/bretuobay/sqlcache/internal/store"
)

// TTL returns the remaining lifetime of key in group. It returns -1 for
// entries without expiry and false when the key is not found.
func (c *Cache) TTL(group string, key interface{}) (time.Duration, bool) {
	g, k, err := c.resolve(group, key)
	if err != nil {
		return 0, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, false
	}
	return c.ttlLocked(c.ctx, g, k)
}

func (c *Cache) ttlLocked(ctx context.Context, g, k string) (time.Duration, bool) {
	if !c.persisted(g) {
		if c.index.Exists(g, k) {
			return -1, true
		}
		return 0, false
	}

	name := store.Name(g, k)
	var expires int64
	if op, ok := c.queue.Lookup(name); ok {
		put, isPut := op.(pending.Put)
		if !isPut {
			return 0, false
		}
		expires = c.store.WriteTime() + put.ExpiresOffset
	} else {
		var found bool
		var err error
		if expires, found, err = c.store.Expires(ctx, name); err != nil || !found {
			return 0, false
		}
	}
	if expires >= store.NoExpireOffset {
		return -1, true
	}
	remaining := expires - c.opts.Now().Unix()
	if remaining < 0 {
		return 0, false
	}
	return time.Duration(remaining) * time.Second, true
}
