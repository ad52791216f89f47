package sqlcache

import (
	"context"
	"time"
)

// GetWithContext is Get with store reads bound to ctx.
func (c *Cache) GetWithContext(ctx context.Context, group string, key interface{}) (interface{}, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	g, k, err := c.resolve(group, key)
	if err != nil {
		return nil, false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, false, ErrClosed
	}
	v, ok := c.getLocked(ctx, g, k)
	return v, ok, nil
}

// SetWithContext is Set honoring ctx cancellation.
func (c *Cache) SetWithContext(ctx context.Context, group string, key interface{}, value interface{}, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.Set(group, key, value, ttl)
}
