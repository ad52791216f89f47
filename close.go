package sqlcache

import (
	"context"

	"go.uber.org/multierr"
)

// Close ends the session. Pending ops are written in one transaction, the
// maintenance gate runs, the session sample is persisted and the store is
// closed. A failed flush discards the pending ops and is returned.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	if c.store == nil {
		c.log.Debug("closed memory-only cache session")
		return nil
	}

	ctx := context.WithoutCancel(c.ctx)
	err := c.flushLocked(ctx)
	c.maybeMaintain(ctx, "close")
	c.persistSampleLocked(ctx)
	if closeErr := c.store.Close(); closeErr != nil {
		err = multierr.Append(err, closeErr)
	}
	c.log.Debug("closed cache session")
	return err
}
