package sqlcache

import (
	"time"

	"github.com/bretuobay/sqlcache/internal/codec"
	"github.com/bretuobay/sqlcache/internal/index"
)

const (
	// DefaultFile is the store file name created inside Options.Dir.
	DefaultFile        = "object-cache.db"
	DefaultBusyTimeout = 5 * time.Second
	DefaultRetention   = 24 * time.Hour
	// DefaultGroup replaces an empty group name.
	DefaultGroup = "default"
)

// Pattern selects entries to load into the lookup tier when a session opens.
// Group and Key are globs where '*' matches any run of characters and '?'
// matches one character.
type Pattern struct {
	Group string
	Key   string
}

// Monitor configures the per-session sample persisted at Close.
type Monitor struct {
	Capture bool
	// Resolution is the bucket width. Sessions closing within one bucket
	// share a single persisted sample, written by the first of them.
	Resolution time.Duration
	// Lifetime is how long a persisted sample is kept.
	Lifetime time.Duration
	// Verbose adds the raw timings to the sample.
	Verbose bool
}

// Options configures a cache session.
type Options struct {
	Dir         string
	File        string
	BusyTimeout time.Duration
	// Retention bounds the age of entries written without a TTL.
	Retention time.Duration
	// Codec names the value encoding: "cbor" (default), "json", or either
	// with a "+snappy" suffix.
	Codec             string
	NegativeCacheSize int
	Maintenance       MaintenancePolicy
	Monitor           Monitor
	Preload           []Pattern
	// RuntimeGroups are kept in memory only and never reach the store.
	RuntimeGroups []string
	// RewriteKey, when set, maps every key before it is used. It lets
	// callers scope keys to a tenant or site.
	RewriteKey func(group, key string) string
	// AllowDegraded opens a memory-only session instead of failing when the
	// store cannot be reached.
	AllowDegraded bool
	// Now replaces the wall clock. Used by tests.
	Now func() time.Time
}

// DefaultOptions returns a baseline configuration for a store kept in dir.
func DefaultOptions(dir string) Options {
	return Options{
		Dir:               dir,
		File:              DefaultFile,
		BusyTimeout:       DefaultBusyTimeout,
		Retention:         DefaultRetention,
		Codec:             "cbor",
		NegativeCacheSize: index.DefaultNegativeSize,
		Maintenance:       DefaultMaintenancePolicy(),
		Monitor: Monitor{
			Resolution: time.Minute,
			Lifetime:   24 * time.Hour,
		},
	}
}

func withDefaults(opts Options) Options {
	if opts.File == "" {
		opts.File = DefaultFile
	}
	if opts.BusyTimeout <= 0 {
		opts.BusyTimeout = DefaultBusyTimeout
	}
	if opts.Retention <= 0 {
		opts.Retention = DefaultRetention
	}
	if opts.Codec == "" {
		opts.Codec = codec.Default().Name()
	}
	if opts.NegativeCacheSize <= 0 {
		opts.NegativeCacheSize = index.DefaultNegativeSize
	}
	if opts.Maintenance.CleanupOneIn == 0 {
		opts.Maintenance.CleanupOneIn = DefaultCleanupOneIn
	}
	if opts.Maintenance.VacuumOneIn == 0 {
		opts.Maintenance.VacuumOneIn = DefaultVacuumOneIn
	}
	if opts.Monitor.Resolution <= 0 {
		opts.Monitor.Resolution = time.Minute
	}
	if opts.Monitor.Lifetime <= 0 {
		opts.Monitor.Lifetime = 24 * time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return opts
}
