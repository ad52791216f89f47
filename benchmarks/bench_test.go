package benchmarks

import (
	"strconv"
	"testing"

	"github.com/bretuobay/sqlcache"
)

func options(dir string) sqlcache.Options {
	opts := sqlcache.DefaultOptions(dir)
	opts.Maintenance = sqlcache.MaintenancePolicy{CleanupOneIn: -1, VacuumOneIn: -1}
	return opts
}

func BenchmarkSet(b *testing.B) {
	c, err := sqlcache.Open(options(b.TempDir()))
	if err != nil {
		b.Fatalf("open: %v", err)
	}
	defer c.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = c.Set("g", "key", i, 0)
	}
}

func BenchmarkGetTierHit(b *testing.B) {
	c, err := sqlcache.Open(options(b.TempDir()))
	if err != nil {
		b.Fatalf("open: %v", err)
	}
	defer c.Close()
	_ = c.Set("g", "key", "value", 0)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = c.Get("g", "key")
	}
}

func BenchmarkGetNegativeHit(b *testing.B) {
	c, err := sqlcache.Open(options(b.TempDir()))
	if err != nil {
		b.Fatalf("open: %v", err)
	}
	defer c.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = c.Get("g", "missing")
	}
}

func BenchmarkGetStoreHit(b *testing.B) {
	dir := b.TempDir()
	c, err := sqlcache.Open(options(dir))
	if err != nil {
		b.Fatalf("open: %v", err)
	}
	for i := 0; i < 1000; i++ {
		_ = c.Set("g", strconv.Itoa(i), "v", 0)
	}
	_ = c.Close()

	c, err = sqlcache.Open(options(dir))
	if err != nil {
		b.Fatalf("open: %v", err)
	}
	defer c.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		// Dropping the tier forces every read to the store.
		c.FlushRuntime()
		_, _ = c.Get("g", strconv.Itoa(i%1000))
	}
}

func BenchmarkSessionFlush(b *testing.B) {
	dir := b.TempDir()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c, err := sqlcache.Open(options(dir))
		if err != nil {
			b.Fatalf("open: %v", err)
		}
		for j := 0; j < 100; j++ {
			_ = c.Set("g", j, i, 0)
		}
		if err := c.Close(); err != nil {
			b.Fatalf("close: %v", err)
		}
	}
}

func BenchmarkStartupWithPreload(b *testing.B) {
	dir := b.TempDir()
	c, err := sqlcache.Open(options(dir))
	if err != nil {
		b.Fatalf("open: %v", err)
	}
	for i := 0; i < 1000; i++ {
		_ = c.Set("options", strconv.Itoa(i), "v", 0)
	}
	_ = c.Close()

	opts := options(dir)
	opts.Preload = []sqlcache.Pattern{{Group: "options", Key: "*"}}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c, err := sqlcache.Open(opts)
		if err != nil {
			b.Fatalf("open: %v", err)
		}
		_ = c.Close()
	}
}
