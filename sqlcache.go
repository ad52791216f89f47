// Package sqlcache is a two-tier object cache. Values live in an in-process
// lookup tier for the length of a session and are persisted to a single
// SQLite file when the session closes, so later sessions and other processes
// sharing the file can read them back.
//
// A session is opened with Open, used from one goroutine for the length of a
// request or job, and ended with Close, which writes every pending mutation
// in one transaction.
package sqlcache

import (
	"context"
	"sync"
	"time"

	"github.com/bretuobay/sqlcache/internal/codec"
	"github.com/bretuobay/sqlcache/internal/index"
	"github.com/bretuobay/sqlcache/internal/pending"
	"github.com/bretuobay/sqlcache/internal/store"
	log "github.com/sirupsen/logrus"
)

// Cache is a session handle.
type Cache struct {
	mu       sync.Mutex
	ctx      context.Context
	opts     Options
	log      *log.Entry
	store    *store.Store // nil when degraded
	codec    codec.Codec
	index    *index.MemIndex
	negative *index.Negative
	queue    *pending.Queue
	runtime  map[string]struct{}
	stats    *statsTracker
	openedAt time.Time
	degraded bool
	closed   bool
}

// storedValue is a value read from the store and not yet decoded.
type storedValue []byte

// Degraded reports whether the session runs without a store.
func (c *Cache) Degraded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.degraded
}

// Path returns the store file path, or "" for a degraded session.
func (c *Cache) Path() string {
	if c.store == nil {
		return ""
	}
	return c.store.Path()
}

// AddRuntimeGroups marks groups as memory-only for the rest of the session.
func (c *Cache) AddRuntimeGroups(groups ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, g := range groups {
		if g == "" {
			g = DefaultGroup
		}
		c.runtime[g] = struct{}{}
	}
}

func (c *Cache) isRuntime(group string) bool {
	_, ok := c.runtime[group]
	return ok
}

// persisted reports whether writes to group reach the store.
func (c *Cache) persisted(group string) bool {
	return c.store != nil && !c.isRuntime(group)
}
