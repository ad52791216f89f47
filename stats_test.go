package sqlcache

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStatsReflectsOps(t *testing.T) {
	c := openTest(t, testOptions(t.TempDir(), nil))
	defer c.Close()

	require.NoError(t, c.Set("g", "a", 1, 0))
	_, _ = c.Get("g", "a")
	_, _ = c.Get("g", "b")
	require.NoError(t, c.Delete("g", "a"))

	s := mustStats(t, c)
	require.Equal(t, uint64(1), s.TierHits)
	require.Equal(t, uint64(1), s.TierMisses)
	require.Equal(t, uint64(1), s.StoreMisses)
	require.Equal(t, uint64(1), s.Puts)
	require.Equal(t, uint64(1), s.Deletes)
	require.Equal(t, 1, s.Pending)
	require.Positive(t, s.FileSize)
	require.False(t, s.Degraded)
}

func TestSessionsInOneBucketPersistOneSample(t *testing.T) {
	dir := t.TempDir()
	clock := newTestClock()
	opts := testOptions(dir, clock)
	opts.Monitor = Monitor{Capture: true, Resolution: time.Hour, Lifetime: time.Hour}

	first := openTest(t, opts)
	require.NoError(t, first.Set("g", "a", 1, 0))
	require.NoError(t, first.Close())

	clock.Advance(time.Minute)
	second := openTest(t, opts)
	require.NoError(t, second.Set("g", "b", 1, 0))
	require.NoError(t, second.Set("g", "c", 1, 0))
	require.NoError(t, second.Close())

	opts.Monitor.Capture = false
	reader := openTest(t, opts)
	defer reader.Close()
	samples, err := reader.Samples(context.Background())
	require.NoError(t, err)
	require.Len(t, samples, 1)
	require.Equal(t, uint64(1), samples[0].Puts)
	require.Equal(t, uint64(1), samples[0].FlushedOps)
	require.Equal(t, sampleBucket(clock.Now(), time.Hour), samples[0].Bucket)
	require.Zero(t, samples[0].Bucket%3600)
	require.Empty(t, samples[0].Writes)
}

func TestSampleBucketsAlignToEpoch(t *testing.T) {
	for _, res := range []time.Duration{7 * time.Minute, 11 * time.Second, time.Hour} {
		at := time.Unix(testEpoch+12345, 0)
		bucket := sampleBucket(at, res)
		width := int64(res / time.Second)
		require.Zero(t, bucket%width, res)
		require.LessOrEqual(t, bucket, at.Unix(), res)
		require.Greater(t, bucket+width, at.Unix(), res)
	}
	require.Equal(t, int64(testEpoch), sampleBucket(time.Unix(testEpoch, 0), time.Millisecond))
}

func TestVerboseSampleInNextBucket(t *testing.T) {
	dir := t.TempDir()
	clock := newTestClock()
	opts := testOptions(dir, clock)
	opts.Monitor = Monitor{Capture: true, Resolution: time.Minute, Lifetime: time.Hour, Verbose: true}

	c := openTest(t, opts)
	require.NoError(t, c.Close())
	clock.Advance(time.Minute)
	c = openTest(t, opts)
	require.NoError(t, c.Set("g", "a", 1, 0))
	require.NoError(t, c.Close())

	c = openTest(t, opts)
	defer c.Close()
	samples, err := c.Samples(context.Background())
	require.NoError(t, err)
	require.Len(t, samples, 2)
	require.Less(t, samples[0].Bucket, samples[1].Bucket)
	require.Len(t, samples[1].Writes, 1)

	// Samples never reach the lookup tier.
	require.Empty(t, c.Groups())
}

func TestDumpKeysWritesOutput(t *testing.T) {
	dir := t.TempDir()
	c := openTest(t, testOptions(dir, nil))
	require.NoError(t, c.Set("g", "stored", "xyz", 0))
	require.NoError(t, c.Close())

	c = openTest(t, testOptions(dir, nil))
	defer c.Close()
	require.NoError(t, c.Set("g", "a", 1, 0))
	require.True(t, c.Exists("g", "stored"))

	var buf bytes.Buffer
	require.NoError(t, c.DumpKeys(&buf))
	out := buf.String()
	require.True(t, strings.Contains(out, "g\ta\tint\n"), out)
	require.True(t, strings.Contains(out, "g\tstored\tstored:"), out)
}

func TestLatencyTrackerWrapsAround(t *testing.T) {
	l := newLatencyTracker(3)
	for i := 1; i <= 5; i++ {
		l.add(time.Duration(i))
	}
	require.Equal(t, []int64{3, 4, 5}, l.values())
	p50, _, p99 := l.percentiles()
	require.Equal(t, time.Duration(4), p50)
	require.Equal(t, time.Duration(4), p99)
}
