package sqlcache

import (
	"context"
	"time"

	"github.com/bretuobay/sqlcache/internal/pending"
	"github.com/bretuobay/sqlcache/internal/store"
	log "github.com/sirupsen/logrus"
)

// Get returns the value mapped for key in group. The boolean reports whether
// the key was found, independent of the value itself.
func (c *Cache) Get(group string, key interface{}) (interface{}, bool) {
	g, k, err := c.resolve(group, key)
	if err != nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, false
	}
	return c.getLocked(c.ctx, g, k)
}

// GetMultiple returns the found values of keys in group, indexed by key.
func (c *Cache) GetMultiple(group string, keys ...interface{}) map[interface{}]interface{} {
	out := make(map[interface{}]interface{}, len(keys))
	for _, key := range keys {
		if v, ok := c.Get(group, key); ok {
			out[key] = v
		}
	}
	return out
}

func (c *Cache) getLocked(ctx context.Context, g, k string) (interface{}, bool) {
	v, ok := c.lookupLocked(ctx, g, k)
	if !ok {
		return nil, false
	}
	raw, stored := v.(storedValue)
	if !stored {
		return v, true
	}
	var decoded interface{}
	if err := c.codec.Unmarshal(raw, &decoded); err != nil {
		c.log.WithFields(log.Fields{"group": g, "key": k, "err": err}).Warn("dropping undecodable cache value")
		c.index.Delete(g, k)
		return nil, false
	}
	c.index.Replace(g, k, decoded)
	return decoded, true
}

// lookupLocked consults the lookup tier, then the pending queue and the
// negative cache, then the store. Store hits are mapped into the lookup tier
// as undecoded bytes.
func (c *Cache) lookupLocked(ctx context.Context, g, k string) (interface{}, bool) {
	start := time.Now()
	defer func() { c.stats.readLatency.add(time.Since(start)) }()

	if v, ok := c.index.Get(g, k); ok {
		c.stats.tierHit()
		return v, true
	}
	c.stats.tierMiss()
	if !c.persisted(g) {
		return nil, false
	}

	name := store.Name(g, k)
	if op, ok := c.queue.Lookup(name); ok {
		switch o := op.(type) {
		case pending.Put:
			v := storedValue(o.Value)
			c.index.Set(g, k, v)
			return v, true
		case pending.Delete:
			c.negative.MarkAbsent(name)
		}
	}
	if c.negative.IsMarkedAbsent(name) {
		c.stats.negativeHit()
		return nil, false
	}

	storeStart := time.Now()
	raw, ok, err := c.store.Get(ctx, name)
	observeStore("get", storeStart)
	if err != nil {
		countError(err)
		c.log.WithFields(log.Fields{"name": name, "err": err}).Warn("cache store read failed")
		return nil, false
	}
	if !ok {
		c.stats.storeMiss()
		c.negative.MarkAbsent(name)
		return nil, false
	}
	c.stats.storeHit()
	v := storedValue(raw)
	c.index.Set(g, k, v)
	return v, true
}
