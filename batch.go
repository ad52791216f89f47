package sqlcache

import (
	"context"
	"time"

	"github.com/bretuobay/sqlcache/internal/pending"
	"github.com/bretuobay/sqlcache/internal/store"
	log "github.com/sirupsen/logrus"
)

// MaxTTL is the longest lifetime a value can be given. Longer TTLs are
// clamped, keeping expiring rows clear of the no-expiry range.
const MaxTTL = 100 * 365 * 24 * time.Hour

// expiresOffset converts a TTL to the offset added to the session write
// time. A TTL of zero or less never expires and is evicted by age instead.
func expiresOffset(ttl time.Duration) int64 {
	if ttl <= 0 {
		return store.NoExpireOffset
	}
	if ttl > MaxTTL {
		ttl = MaxTTL
	}
	return int64((ttl + time.Second - 1) / time.Second)
}

func (c *Cache) enqueuePutLocked(g, k string, data []byte, offset int64) {
	name := store.Name(g, k)
	c.negative.Clear(name)
	c.queue.Push(pending.Put{Name: name, Group: g, Key: k, Value: data, ExpiresOffset: offset})
}

func (c *Cache) enqueueDeleteLocked(g, k string) {
	name := store.Name(g, k)
	c.negative.Clear(name)
	c.queue.Push(pending.Delete{Name: name, Group: g, Key: k})
}

// flushLocked writes every pending op in one transaction. The queue is
// emptied whether or not the transaction commits.
func (c *Cache) flushLocked(ctx context.Context) error {
	if c.queue.Len() == 0 {
		return nil
	}
	ops := c.queue.Ops()
	defer c.queue.Reset()

	start := time.Now()
	err := c.store.WithTransaction(ctx, func(tx *store.Tx) error {
		for _, op := range ops {
			var err error
			switch o := op.(type) {
			case pending.Put:
				err = tx.Put(o.Name, o.Value, o.ExpiresOffset)
			case pending.Delete:
				err = tx.Delete(o.Name)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
	elapsed := time.Since(start)
	c.stats.flushNanos.Store(elapsed.Nanoseconds())
	observeStore("flush", start)

	fields := log.Fields{
		"ops":     len(ops),
		"bytes":   c.queue.Bytes(),
		"elapsed": elapsed,
	}
	if err != nil {
		countError(err)
		fields["err"] = err
		c.log.WithFields(fields).Warn("cache flush rolled back")
		return err
	}
	c.stats.flushedOps.Add(uint64(len(ops)))
	FlushedOpsTotal.Add(float64(len(ops)))
	c.log.WithFields(fields).Debug("flushed cache")
	return nil
}
