package sqlcache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testEpoch = 1_700_000_000

// testClock is a settable clock shared by the sessions of one test.
type testClock struct{ at time.Time }

func newTestClock() *testClock {
	return &testClock{at: time.Unix(testEpoch, 0)}
}

func (c *testClock) Now() time.Time { return c.at }

func (c *testClock) Advance(d time.Duration) { c.at = c.at.Add(d) }

// testOptions disables maintenance so tests control when it runs.
func testOptions(dir string, clock *testClock) Options {
	opts := DefaultOptions(dir)
	opts.Maintenance = MaintenancePolicy{CleanupOneIn: -1, VacuumOneIn: -1}
	if clock != nil {
		opts.Now = clock.Now
	}
	return opts
}

func openTest(t *testing.T, opts Options) *Cache {
	t.Helper()
	c, err := Open(opts)
	require.NoError(t, err)
	return c
}

func mustStats(t *testing.T, c *Cache) Stats {
	t.Helper()
	s, err := c.Stats()
	require.NoError(t, err)
	return s
}
