package sqlcache

import (
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Keys for sqlcache metrics.
const (
	LookupsTotalKey     = "sqlcache_lookups_total"
	StoreSecondsKey     = "sqlcache_store_seconds"
	FlushedOpsTotalKey  = "sqlcache_flushed_ops_total"
	MaintenanceTotalKey = "sqlcache_maintenance_total"
	ErrorsTotalKey      = "sqlcache_errors_total"
)

// Collectors for sqlcache metrics.
var (
	LookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: LookupsTotalKey,
		Help: "Cumulative number of lookups by tier and result.",
	}, []string{"tier", "result"})
	StoreSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    StoreSecondsKey,
		Help:    "Latency of durable store operations.",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 9),
	}, []string{"op"})
	FlushedOpsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: FlushedOpsTotalKey,
		Help: "Cumulative number of pending operations committed to the store.",
	})
	MaintenanceTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: MaintenanceTotalKey,
		Help: "Cumulative number of rows removed by cleanup pass, and vacuums run.",
	}, []string{"pass"})
	ErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: ErrorsTotalKey,
		Help: "Cumulative number of store errors by kind.",
	}, []string{"kind"})
)

// Collectors returns every sqlcache metric for registration.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		LookupsTotal,
		StoreSeconds,
		FlushedOpsTotal,
		MaintenanceTotal,
		ErrorsTotal,
	}
}

func observeStore(op string, start time.Time) {
	StoreSeconds.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func countError(err error) {
	kind := "other"
	switch {
	case errors.Is(err, ErrStoreUnavailable):
		kind = "unavailable"
	case errors.Is(err, ErrNestedTransaction):
		kind = "nested_transaction"
	case errors.Is(err, ErrTransaction):
		kind = "transaction"
	case errors.Is(err, ErrPrepare):
		kind = "prepare"
	case errors.Is(err, ErrSchema):
		kind = "schema"
	}
	ErrorsTotal.WithLabelValues(kind).Inc()
}
