package sqlcache

import (
	"time"

	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

// Delete unmaps key from group and schedules its removal from the store.
func (c *Cache) Delete(group string, key interface{}) error {
	g, k, err := c.resolve(group, key)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}

	start := time.Now()
	c.index.Delete(g, k)
	if c.persisted(g) {
		c.enqueueDeleteLocked(g, k)
	}
	c.stats.deletes.Add(1)
	c.stats.deleteLatency.add(time.Since(start))
	return nil
}

// DeleteMultiple deletes every key in group.
func (c *Cache) DeleteMultiple(group string, keys ...interface{}) error {
	var err error
	for _, key := range keys {
		err = multierr.Append(err, c.Delete(group, key))
	}
	return err
}

// FlushGroup removes every entry of group from both tiers. Its rows are
// deleted from the store immediately and its pending ops are discarded.
// When the store delete fails, the session is left unchanged.
func (c *Cache) FlushGroup(group string) error {
	g, err := normalizeGroup(group)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}

	if !c.persisted(g) {
		c.index.DropGroup(g)
		return nil
	}
	start := time.Now()
	n, err := c.store.DeleteGroup(c.ctx, g)
	observeStore("delete_group", start)
	if err != nil {
		countError(err)
		return err
	}
	c.index.DropGroup(g)
	dropped := c.queue.DropGroup(g)
	c.log.WithFields(log.Fields{
		"group":   g,
		"rows":    n,
		"pending": dropped,
	}).Debug("flushed cache group")
	return nil
}

// Flush removes every entry from both tiers and discards pending ops.
func (c *Cache) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}

	c.index.Reset()
	c.negative.Purge()
	c.queue.Reset()
	if c.store == nil {
		return nil
	}
	start := time.Now()
	n, err := c.store.DeleteAll(c.ctx)
	observeStore("delete_all", start)
	if err != nil {
		countError(err)
		return err
	}
	c.log.WithField("rows", n).Debug("flushed cache")
	return nil
}

// FlushRuntime empties the in-process tiers only. The store and the pending
// ops are untouched.
func (c *Cache) FlushRuntime() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index.Reset()
	c.negative.Purge()
}
