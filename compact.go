package sqlcache

import (
	"context"
	"time"

	"github.com/bretuobay/sqlcache/internal/store"
	log "github.com/sirupsen/logrus"
)

// CleanupResult counts the rows removed by each cleanup pass.
type CleanupResult = store.CleanupResult

// Cleanup removes expired entries and entries without a TTL that are older
// than Options.Retention. Both passes run in one transaction.
func (c *Cache) Cleanup(ctx context.Context) (CleanupResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.usableLocked(); err != nil {
		return CleanupResult{}, err
	}
	return c.cleanupLocked(ctx)
}

// Vacuum rebuilds the store file and truncates its write-ahead log.
func (c *Cache) Vacuum(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.usableLocked(); err != nil {
		return err
	}
	return c.vacuumLocked(ctx)
}

func (c *Cache) cleanupLocked(ctx context.Context) (CleanupResult, error) {
	start := time.Now()
	res, err := c.store.Cleanup(ctx, c.opts.Retention)
	observeStore("cleanup", start)
	if err != nil {
		countError(err)
		return res, err
	}
	MaintenanceTotal.WithLabelValues("expired").Add(float64(res.Expired))
	MaintenanceTotal.WithLabelValues("stale").Add(float64(res.Stale))
	c.log.WithFields(log.Fields{
		"expired": res.Expired,
		"stale":   res.Stale,
	}).Debug("cleaned up store")
	return res, nil
}

func (c *Cache) vacuumLocked(ctx context.Context) error {
	start := time.Now()
	err := c.store.Vacuum(ctx)
	observeStore("vacuum", start)
	if err != nil {
		countError(err)
		return err
	}
	MaintenanceTotal.WithLabelValues("vacuum").Inc()
	c.log.Debug("vacuumed store")
	return nil
}

// maybeMaintain runs the maintenance gate. Failures are logged only.
func (c *Cache) maybeMaintain(ctx context.Context, at string) {
	if c.store == nil || !c.opts.Maintenance.Due() {
		return
	}
	if _, err := c.cleanupLocked(ctx); err != nil {
		c.log.WithFields(log.Fields{"at": at, "err": err}).Warn("cache cleanup failed")
		return
	}
	if !c.opts.Maintenance.VacuumDue() {
		return
	}
	if err := c.vacuumLocked(ctx); err != nil {
		c.log.WithFields(log.Fields{"at": at, "err": err}).Warn("cache vacuum failed")
	}
}
