package sqlcache

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestOpenRequiresDirectory(t *testing.T) {
	_, err := Open(Options{})
	require.Error(t, err)
}

func TestOpenCreatesStoreFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "cache")
	c := openTest(t, testOptions(dir, nil))
	require.Equal(t, filepath.Join(dir, DefaultFile), c.Path())
	require.NoError(t, c.Close())

	_, err := os.Stat(filepath.Join(dir, DefaultFile))
	require.NoError(t, err)
}

func TestOpenWhileAnotherWriterHoldsLock(t *testing.T) {
	var ctx = context.Background()
	dir := t.TempDir()
	c := openTest(t, testOptions(dir, nil))
	require.NoError(t, c.Set("g", "a", "v", 0))
	require.NoError(t, c.Close())

	db, err := sql.Open("sqlite", c.Path())
	require.NoError(t, err)
	defer db.Close()
	conn, err := db.Conn(ctx)
	require.NoError(t, err)
	defer conn.Close()
	_, err = conn.ExecContext(ctx, "BEGIN IMMEDIATE")
	require.NoError(t, err)

	opts := testOptions(dir, nil)
	opts.BusyTimeout = 200 * time.Millisecond
	reader := openTest(t, opts)

	got, ok := reader.Get("g", "a")
	require.True(t, ok)
	require.Equal(t, "v", got)
	require.NoError(t, reader.Close())

	_, err = conn.ExecContext(ctx, "ROLLBACK")
	require.NoError(t, err)
}

func unreachableDir(t *testing.T) string {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))
	return filepath.Join(blocker, "cache")
}

func TestUnavailableStoreFailsOpen(t *testing.T) {
	_, err := Open(testOptions(unreachableDir(t), nil))
	require.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestDegradedSessionKeepsValuesInMemory(t *testing.T) {
	opts := testOptions(unreachableDir(t), nil)
	opts.AllowDegraded = true
	c := openTest(t, opts)
	require.True(t, c.Degraded())
	require.Equal(t, "", c.Path())

	require.NoError(t, c.Set("g", "a", "v", 0))
	got, ok := c.Get("g", "a")
	require.True(t, ok)
	require.Equal(t, "v", got)
	require.NoError(t, c.Delete("g", "a"))
	require.False(t, c.Exists("g", "a"))
	require.NoError(t, c.FlushGroup("g"))
	require.Equal(t, 0, mustStats(t, c).Pending)

	_, err := c.Cleanup(c.ctx)
	require.ErrorIs(t, err, ErrStoreUnavailable)
	require.NoError(t, c.Close())
}

func TestPreloadFillsLookupTier(t *testing.T) {
	dir := t.TempDir()
	c := openTest(t, testOptions(dir, nil))
	require.NoError(t, c.Set("posts", "1", "a", 0))
	require.NoError(t, c.Set("posts", "2", "b", 0))
	require.NoError(t, c.Set("posts", "[x]", "c", 0))
	require.NoError(t, c.Set("postscript", "1", "d", 0))
	require.NoError(t, c.Set("users", "1", "e", 0))
	require.NoError(t, c.Close())

	opts := testOptions(dir, nil)
	opts.Preload = []Pattern{{Group: "posts", Key: "*"}, {Group: "users", Key: "?"}}
	c = openTest(t, opts)
	defer c.Close()

	require.Equal(t, []string{"posts", "users"}, c.Groups())
	require.Equal(t, []string{"1", "2", "[x]"}, c.Keys("posts"))

	got, ok := c.Get("posts", "1")
	require.True(t, ok)
	require.Equal(t, "a", got)
	s := mustStats(t, c)
	require.Equal(t, uint64(1), s.TierHits)
	require.Equal(t, uint64(0), s.StoreHits)
}

func TestRuntimeGroupsAreNeverPersisted(t *testing.T) {
	dir := t.TempDir()
	opts := testOptions(dir, nil)
	opts.RuntimeGroups = []string{"request"}
	c := openTest(t, opts)
	c.AddRuntimeGroups("scratch")
	require.NoError(t, c.Set("request", "a", 1, 0))
	require.NoError(t, c.Set("scratch", "a", 1, 0))
	require.NoError(t, c.Set("kept", "a", 1, 0))
	require.Equal(t, 1, mustStats(t, c).Pending)
	require.NoError(t, c.Close())

	c = openTest(t, testOptions(dir, nil))
	defer c.Close()
	require.False(t, c.Exists("request", "a"))
	require.False(t, c.Exists("scratch", "a"))
	require.True(t, c.Exists("kept", "a"))
}

func TestRuntimeGroupNamesAreValidated(t *testing.T) {
	opts := testOptions(t.TempDir(), nil)
	opts.RuntimeGroups = []string{"a|b"}
	_, err := Open(opts)
	require.ErrorIs(t, err, ErrInvalidGroup)
}

func TestRewriteKeyScopesKeys(t *testing.T) {
	dir := t.TempDir()
	opts := testOptions(dir, nil)
	opts.RewriteKey = func(group, key string) string { return "site1:" + key }
	c := openTest(t, opts)
	require.NoError(t, c.Set("g", "a", 1, 0))
	require.Equal(t, []string{"site1:a"}, c.Keys("g"))
	require.NoError(t, c.Close())

	c = openTest(t, testOptions(dir, nil))
	defer c.Close()
	require.False(t, c.Exists("g", "a"))
	require.True(t, c.Exists("g", "site1:a"))
}

func TestMaintenanceGateRunsAtOpenAndClose(t *testing.T) {
	var draws []int
	opts := testOptions(t.TempDir(), nil)
	opts.Maintenance = MaintenancePolicy{
		CleanupOneIn: 1000,
		VacuumOneIn:  10,
		Intn: func(n int) int {
			draws = append(draws, n)
			return 0
		},
	}
	vacuums := testutil.ToFloat64(MaintenanceTotal.WithLabelValues("vacuum"))

	c := openTest(t, opts)
	require.NoError(t, c.Close())
	require.Equal(t, []int{1000, 10, 1000, 10}, draws)
	require.Equal(t, vacuums+2, testutil.ToFloat64(MaintenanceTotal.WithLabelValues("vacuum")))
}

func TestSupports(t *testing.T) {
	c := openTest(t, testOptions(t.TempDir(), nil))
	defer c.Close()
	for _, capability := range []Capability{CapGetMultiple, CapSetMultiple, CapDeleteMultiple, CapAddMultiple, CapFlushGroup, CapFlushRuntime} {
		require.True(t, c.Supports(capability), capability)
	}
	require.False(t, c.Supports("transactions"))
}
