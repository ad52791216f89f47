package sqlcache

import (
	"time"

	"github.com/bretuobay/sqlcache/internal/index"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Set maps value for key in group and schedules it to be persisted at Close.
// Setting the value already mapped (by identity) is a no-op. A ttl of zero
// or less stores the value without expiry.
func (c *Cache) Set(group string, key interface{}, value interface{}, ttl time.Duration) error {
	g, k, err := c.resolve(group, key)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	return c.setLocked(g, k, value, ttl)
}

// SetMultiple sets every entry of values in group with the same ttl.
func (c *Cache) SetMultiple(group string, values map[string]interface{}, ttl time.Duration) error {
	var err error
	for key, value := range values {
		err = multierr.Append(err, c.Set(group, key, value, ttl))
	}
	return err
}

func (c *Cache) setLocked(g, k string, value interface{}, ttl time.Duration) error {
	start := time.Now()
	defer func() { c.stats.writeLatency.add(time.Since(start)) }()

	if prev, ok := c.index.Get(g, k); ok && index.Same(prev, value) {
		return nil
	}
	if !c.persisted(g) {
		c.index.Set(g, k, value)
		c.stats.puts.Add(1)
		return nil
	}
	data, err := c.codec.Marshal(value)
	if err != nil {
		return errors.WithMessagef(err, "sqlcache: encode %s/%s", g, k)
	}
	c.index.Set(g, k, value)
	c.enqueuePutLocked(g, k, data, expiresOffset(ttl))
	c.stats.puts.Add(1)
	return nil
}
