package sqlcache

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/bretuobay/sqlcache/internal/codec"
	"github.com/bretuobay/sqlcache/internal/index"
	"github.com/bretuobay/sqlcache/internal/pending"
	"github.com/bretuobay/sqlcache/internal/store"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Open starts a cache session on the store kept in opts.Dir.
func Open(opts Options) (*Cache, error) {
	return OpenContext(context.Background(), opts)
}

// OpenContext starts a cache session. ctx bounds the store operations of the
// whole session, except for the final flush at Close.
func OpenContext(ctx context.Context, opts Options) (*Cache, error) {
	if strings.TrimSpace(opts.Dir) == "" {
		return nil, errors.New("sqlcache: directory required")
	}
	opts = withDefaults(opts)

	valueCodec, err := codec.ByName(opts.Codec)
	if err != nil {
		return nil, errors.WithMessage(err, "sqlcache")
	}
	for _, g := range opts.RuntimeGroups {
		if _, err := normalizeGroup(g); err != nil {
			return nil, errors.WithMessagef(err, "runtime group %q", g)
		}
	}

	session := uuid.NewString()
	path := filepath.Join(opts.Dir, opts.File)
	c := &Cache{
		ctx:      ctx,
		opts:     opts,
		codec:    valueCodec,
		index:    index.NewMemIndex(),
		negative: index.NewNegative(opts.NegativeCacheSize),
		queue:    pending.NewQueue(),
		runtime:  make(map[string]struct{}),
		stats:    newStatsTracker(session),
		openedAt: opts.Now(),
		log: log.WithFields(log.Fields{
			"session": session,
			"path":    path,
		}),
	}
	for _, g := range opts.RuntimeGroups {
		c.AddRuntimeGroups(g)
	}

	start := time.Now()
	st, err := store.Open(ctx, path, opts.BusyTimeout, store.WithClock(opts.Now))
	observeStore("open", start)
	if err != nil {
		countError(err)
		if opts.AllowDegraded && errors.Is(err, ErrStoreUnavailable) {
			c.degraded = true
			c.log.WithField("err", err).Warn("cache store unavailable; running in memory only")
			return c, nil
		}
		return nil, err
	}
	c.store = st

	c.mu.Lock()
	c.maybeMaintain(ctx, "open")
	c.preloadLocked(ctx)
	c.mu.Unlock()

	c.log.WithFields(log.Fields{
		"codec":     valueCodec.Name(),
		"preloaded": c.index.Count(),
	}).Debug("opened cache session")
	return c, nil
}

// preloadLocked fills the lookup tier with rows matching opts.Preload.
// Failures leave the tier to be filled lazily.
func (c *Cache) preloadLocked(ctx context.Context) {
	for _, p := range c.opts.Preload {
		group := p.Group
		if group == "" {
			group = DefaultGroup
		}
		key := p.Key
		if key == "" {
			key = "*"
		}
		start := time.Now()
		rows, err := c.store.Glob(ctx, globEscape(group)+store.Delimiter+globEscape(key))
		observeStore("preload", start)
		if err != nil {
			countError(err)
			c.log.WithFields(log.Fields{"group": group, "key": key, "err": err}).Warn("cache preload failed")
			continue
		}
		for _, row := range rows {
			g, k, ok := store.SplitName(row.Name)
			// The empty group holds reserved rows.
			if !ok || g == "" || c.isRuntime(g) {
				continue
			}
			if !index.Match(group, g) || !index.Match(key, k) {
				continue
			}
			if _, mapped := c.index.Get(g, k); !mapped {
				c.index.Set(g, k, storedValue(row.Value))
			}
		}
	}
}

// globEscape quotes the one SQLite GLOB metacharacter patterns do not use.
func globEscape(pattern string) string {
	return strings.ReplaceAll(pattern, "[", "[[]")
}

func (c *Cache) usableLocked() error {
	if c.closed {
		return ErrClosed
	}
	if c.store == nil {
		return &store.Error{Kind: ErrStoreUnavailable, Op: "degraded session"}
	}
	return nil
}
