package sqlcache

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bretuobay/sqlcache/internal/codec"
	"github.com/bretuobay/sqlcache/internal/store"
	log "github.com/sirupsen/logrus"
)

// SamplePrefix starts the canonical name of every persisted sample.
const SamplePrefix = store.Delimiter + "monitor" + store.Delimiter

// Stats is a snapshot of a session's state and counters.
type Stats struct {
	Keys         int
	Groups       int
	Pending      int
	PendingBytes int64
	NegativeKeys int
	Rows         int64
	FileSize     int64
	Degraded     bool

	TierHits     uint64
	TierMisses   uint64
	StoreHits    uint64
	StoreMisses  uint64
	NegativeHits uint64
	Puts         uint64
	Deletes      uint64
	FlushedOps   uint64

	ReadLatencyP50   time.Duration
	ReadLatencyP95   time.Duration
	ReadLatencyP99   time.Duration
	WriteLatencyP50  time.Duration
	WriteLatencyP95  time.Duration
	WriteLatencyP99  time.Duration
	DeleteLatencyP50 time.Duration
	DeleteLatencyP95 time.Duration
	DeleteLatencyP99 time.Duration
	FlushLatency     time.Duration
}

// Sample is the persisted summary of one session.
type Sample struct {
	Bucket     int64  `cbor:"bucket" json:"bucket"`
	Session    string `cbor:"session" json:"session"`
	OpenedAt   int64  `cbor:"opened_at" json:"opened_at"`
	DurationNS int64  `cbor:"duration_ns" json:"duration_ns"`

	TierHits     uint64 `cbor:"tier_hits" json:"tier_hits"`
	TierMisses   uint64 `cbor:"tier_misses" json:"tier_misses"`
	StoreHits    uint64 `cbor:"store_hits" json:"store_hits"`
	StoreMisses  uint64 `cbor:"store_misses" json:"store_misses"`
	NegativeHits uint64 `cbor:"negative_hits" json:"negative_hits"`
	Puts         uint64 `cbor:"puts" json:"puts"`
	Deletes      uint64 `cbor:"deletes" json:"deletes"`
	FlushedOps   uint64 `cbor:"flushed_ops" json:"flushed_ops"`

	ReadP50NS   int64 `cbor:"read_p50_ns" json:"read_p50_ns"`
	ReadP99NS   int64 `cbor:"read_p99_ns" json:"read_p99_ns"`
	WriteP50NS  int64 `cbor:"write_p50_ns" json:"write_p50_ns"`
	WriteP99NS  int64 `cbor:"write_p99_ns" json:"write_p99_ns"`
	DeleteP50NS int64 `cbor:"delete_p50_ns" json:"delete_p50_ns"`
	DeleteP99NS int64 `cbor:"delete_p99_ns" json:"delete_p99_ns"`
	FlushNS     int64 `cbor:"flush_ns" json:"flush_ns"`

	Reads   []int64 `cbor:"reads,omitempty" json:"reads,omitempty"`
	Writes  []int64 `cbor:"writes,omitempty" json:"writes,omitempty"`
	Removes []int64 `cbor:"removes,omitempty" json:"removes,omitempty"`
}

type statsTracker struct {
	session string

	tierHits     atomic.Uint64
	tierMisses   atomic.Uint64
	storeHits    atomic.Uint64
	storeMisses  atomic.Uint64
	negativeHits atomic.Uint64
	puts         atomic.Uint64
	deletes      atomic.Uint64
	flushedOps   atomic.Uint64
	flushNanos   atomic.Int64

	readLatency   *latencyTracker
	writeLatency  *latencyTracker
	deleteLatency *latencyTracker
}

func newStatsTracker(session string) *statsTracker {
	return &statsTracker{
		session:       session,
		readLatency:   newLatencyTracker(1024),
		writeLatency:  newLatencyTracker(1024),
		deleteLatency: newLatencyTracker(1024),
	}
}

func (s *statsTracker) tierHit() {
	s.tierHits.Add(1)
	LookupsTotal.WithLabelValues("memory", "hit").Inc()
}

func (s *statsTracker) tierMiss() {
	s.tierMisses.Add(1)
	LookupsTotal.WithLabelValues("memory", "miss").Inc()
}

func (s *statsTracker) storeHit() {
	s.storeHits.Add(1)
	LookupsTotal.WithLabelValues("store", "hit").Inc()
}

func (s *statsTracker) storeMiss() {
	s.storeMisses.Add(1)
	LookupsTotal.WithLabelValues("store", "miss").Inc()
}

func (s *statsTracker) negativeHit() {
	s.negativeHits.Add(1)
	LookupsTotal.WithLabelValues("negative", "hit").Inc()
}

type latencyTracker struct {
	mu      sync.Mutex
	samples []int64
	idx     int
	full    bool
}

func newLatencyTracker(capacity int) *latencyTracker {
	if capacity <= 0 {
		capacity = 1
	}
	return &latencyTracker{samples: make([]int64, capacity)}
}

func (l *latencyTracker) add(d time.Duration) {
	l.mu.Lock()
	l.samples[l.idx] = d.Nanoseconds()
	l.idx++
	if l.idx >= len(l.samples) {
		l.idx = 0
		l.full = true
	}
	l.mu.Unlock()
}

// values returns the recorded timings in nanoseconds, oldest first.
func (l *latencyTracker) values() []int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.full {
		return append([]int64(nil), l.samples[:l.idx]...)
	}
	out := make([]int64, 0, len(l.samples))
	out = append(out, l.samples[l.idx:]...)
	return append(out, l.samples[:l.idx]...)
}

func (l *latencyTracker) percentiles() (time.Duration, time.Duration, time.Duration) {
	snapshot := l.values()
	if len(snapshot) == 0 {
		return 0, 0, 0
	}
	sort.Slice(snapshot, func(i, j int) bool { return snapshot[i] < snapshot[j] })
	return percentile(snapshot, 0.50), percentile(snapshot, 0.95), percentile(snapshot, 0.99)
}

func percentile(values []int64, p float64) time.Duration {
	if len(values) == 0 {
		return 0
	}
	idx := int(float64(len(values)-1) * p)
	return time.Duration(values[idx]) * time.Nanosecond
}

// Stats returns current counters and sizes.
func (c *Cache) Stats() (Stats, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Stats{}, ErrClosed
	}
	out := Stats{
		Keys:         c.index.Count(),
		Groups:       len(c.index.Groups()),
		Pending:      c.queue.Len(),
		PendingBytes: c.queue.Bytes(),
		NegativeKeys: c.negative.Len(),
		Degraded:     c.degraded,
	}
	if c.store != nil {
		rows, err := c.store.Count(c.ctx)
		if err != nil {
			c.mu.Unlock()
			return Stats{}, err
		}
		out.Rows = rows
		out.FileSize = c.store.FileSize()
	}
	c.mu.Unlock()

	s := c.stats
	out.TierHits = s.tierHits.Load()
	out.TierMisses = s.tierMisses.Load()
	out.StoreHits = s.storeHits.Load()
	out.StoreMisses = s.storeMisses.Load()
	out.NegativeHits = s.negativeHits.Load()
	out.Puts = s.puts.Load()
	out.Deletes = s.deletes.Load()
	out.FlushedOps = s.flushedOps.Load()
	out.FlushLatency = time.Duration(s.flushNanos.Load())
	out.ReadLatencyP50, out.ReadLatencyP95, out.ReadLatencyP99 = s.readLatency.percentiles()
	out.WriteLatencyP50, out.WriteLatencyP95, out.WriteLatencyP99 = s.writeLatency.percentiles()
	out.DeleteLatencyP50, out.DeleteLatencyP95, out.DeleteLatencyP99 = s.deleteLatency.percentiles()
	return out, nil
}

// SampleName returns the reserved canonical name of the sample for bucket.
func SampleName(bucket int64) string {
	return fmt.Sprintf("%s%020d", SamplePrefix, bucket)
}

// sampleBucket returns the start, in epoch seconds, of the bucket holding
// now. Buckets are aligned to multiples of resolution since the Unix epoch.
func sampleBucket(now time.Time, resolution time.Duration) int64 {
	u := now.Unix()
	res := int64(resolution / time.Second)
	if res <= 1 {
		return u
	}
	return u - u%res
}

func (c *Cache) sampleLocked(now time.Time) Sample {
	s := c.stats
	bucket := sampleBucket(now, c.opts.Monitor.Resolution)
	readP50, _, readP99 := s.readLatency.percentiles()
	writeP50, _, writeP99 := s.writeLatency.percentiles()
	deleteP50, _, deleteP99 := s.deleteLatency.percentiles()
	out := Sample{
		Bucket:       bucket,
		Session:      s.session,
		OpenedAt:     c.openedAt.Unix(),
		DurationNS:   now.Sub(c.openedAt).Nanoseconds(),
		TierHits:     s.tierHits.Load(),
		TierMisses:   s.tierMisses.Load(),
		StoreHits:    s.storeHits.Load(),
		StoreMisses:  s.storeMisses.Load(),
		NegativeHits: s.negativeHits.Load(),
		Puts:         s.puts.Load(),
		Deletes:      s.deletes.Load(),
		FlushedOps:   s.flushedOps.Load(),
		ReadP50NS:    readP50.Nanoseconds(),
		ReadP99NS:    readP99.Nanoseconds(),
		WriteP50NS:   writeP50.Nanoseconds(),
		WriteP99NS:   writeP99.Nanoseconds(),
		DeleteP50NS:  deleteP50.Nanoseconds(),
		DeleteP99NS:  deleteP99.Nanoseconds(),
		FlushNS:      s.flushNanos.Load(),
	}
	if c.opts.Monitor.Verbose {
		out.Reads = s.readLatency.values()
		out.Writes = s.writeLatency.values()
		out.Removes = s.deleteLatency.values()
	}
	return out
}

// persistSampleLocked writes the session sample unless the bucket already
// has one. Failures are logged and dropped.
func (c *Cache) persistSampleLocked(ctx context.Context) {
	if c.store == nil || !c.opts.Monitor.Capture {
		return
	}
	now := c.opts.Now()
	sample := c.sampleLocked(now)
	data, err := codec.Default().Marshal(sample)
	if err != nil {
		c.log.WithField("err", err).Debug("failed to encode cache sample")
		return
	}
	name := SampleName(sample.Bucket)
	expires := now.Unix() + int64(c.opts.Monitor.Lifetime/time.Second)

	var written bool
	err = c.store.WithTransaction(ctx, func(tx *store.Tx) error {
		var insertErr error
		written, insertErr = tx.InsertIfAbsent(name, data, expires)
		return insertErr
	})
	if err != nil {
		countError(err)
		c.log.WithField("err", err).Debug("failed to persist cache sample")
		return
	}
	c.log.WithFields(log.Fields{
		"bucket":  sample.Bucket,
		"written": written,
	}).Debug("cache sample")
}

// Samples returns the persisted samples that have not expired, oldest first.
func (c *Cache) Samples(ctx context.Context) ([]Sample, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.usableLocked(); err != nil {
		return nil, err
	}
	rows, err := c.store.ScanPrefix(ctx, SamplePrefix)
	if err != nil {
		return nil, err
	}
	out := make([]Sample, 0, len(rows))
	for _, row := range rows {
		var s Sample
		if err := codec.Default().Unmarshal(row.Value, &s); err != nil {
			c.log.WithFields(log.Fields{
				"name": strings.TrimPrefix(row.Name, SamplePrefix),
				"err":  err,
			}).Warn("skipping undecodable cache sample")
			continue
		}
		out = append(out, s)
	}
	return out, nil
}
