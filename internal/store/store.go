// Package store is the durable tier of the cache: a single SQLite file
// holding one row per canonical name.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

const (
	// Table is the name of the entry table.
	Table = "object_cache"
	// Delimiter separates group and key within a canonical name.
	Delimiter = "|"
	// NoExpireOffset is added to the write time of rows that do not expire
	// under normal TTL rules. Such rows are evicted by age instead.
	NoExpireOffset int64 = 500_000_000_000
	// MarkerName is the reserved row written when the schema is created.
	MarkerName = Delimiter + "created"
	// MarkerExpires keeps the marker outside both cleanup passes.
	MarkerExpires int64 = math.MaxInt64
)

// Store owns the database handle, its prepared statements and the single
// active transaction. A Store is used by one session at a time.
type Store struct {
	// URIValues are the connection parameters passed to the driver. Open
	// populates them from its arguments.
	URIValues url.Values

	db    *sql.DB
	path  string
	now   func() time.Time
	stmts statements
	txn   *sql.Tx

	// writeTime is the clock reading baked into the upsert statement.
	writeTime int64
}

type statements struct {
	put       *sql.Stmt
	insertNew *sql.Stmt
	get       *sql.Stmt
	expires   *sql.Stmt
	del       *sql.Stmt
	delRange  *sql.Stmt
	glob      *sql.Stmt
	prefix    *sql.Stmt
}

// Option customizes a Store.
type Option func(*Store)

// WithClock replaces the wall clock used for expiry arithmetic.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Open opens or creates the store file at path, ensures the schema and
// prepares the statement set. busyTimeout bounds how long a statement waits
// on a lock held by another process.
func Open(ctx context.Context, path string, busyTimeout time.Duration, opts ...Option) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, &Error{Kind: ErrStoreUnavailable, Op: "open", Err: errors.New("path required")}
	}
	s := &Store{
		path: filepath.Clean(path),
		now:  time.Now,
		URIValues: url.Values{
			"_pragma": {
				fmt.Sprintf("busy_timeout(%d)", busyTimeout.Milliseconds()),
				"synchronous(OFF)",
				"journal_mode(WAL)",
				"case_sensitive_like(ON)",
			},
			"_txlock": {"immediate"},
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := probeWritable(filepath.Dir(s.path)); err != nil {
		return nil, &Error{Kind: ErrStoreUnavailable, Op: "open", Err: err}
	}

	db, err := sql.Open("sqlite", s.path+"?"+s.URIValues.Encode())
	if err != nil {
		return nil, &Error{Kind: ErrStoreUnavailable, Op: "open", Err: err}
	}
	// Pragmas are per connection; keep exactly one so they always apply.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, &Error{Kind: ErrStoreUnavailable, Op: "ping", Err: err}
	}
	s.db = db

	if err := s.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.prepareAll(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// Path returns the store file path.
func (s *Store) Path() string { return s.path }

// DB returns the underlying handle. Mutations should go through the Store.
func (s *Store) DB() *sql.DB { return s.db }

// Now returns the store clock reading in epoch seconds.
func (s *Store) Now() int64 { return s.now().Unix() }

// WriteTime returns the epoch seconds that Tx.Put adds expiry offsets to.
func (s *Store) WriteTime() int64 { return s.writeTime }

// Prepare compiles a parameterized statement for reuse during the session.
func (s *Store) Prepare(ctx context.Context, query string) (*sql.Stmt, error) {
	stmt, err := s.db.PrepareContext(ctx, query)
	if err != nil {
		if unavailable(err) {
			return nil, classify("prepare", err)
		}
		return nil, &Error{Kind: ErrPrepare, Op: fmt.Sprintf("prepare %q", oneLine(query)), Err: err}
	}
	return stmt, nil
}

func (s *Store) prepareAll(ctx context.Context) error {
	// The write time is fixed for the session so the hot path avoids a clock read per row.
	now := s.Now()
	s.writeTime = now
	queries := []struct {
		dst   **sql.Stmt
		query string
	}{
		{&s.stmts.put, fmt.Sprintf(`INSERT INTO %s (name, value, expires) VALUES (?, ?, %d + ?)
			ON CONFLICT(name) DO UPDATE SET value = excluded.value, expires = excluded.expires`, Table, now)},
		{&s.stmts.insertNew, fmt.Sprintf(`INSERT INTO %s (name, value, expires) VALUES (?, ?, ?)
			ON CONFLICT(name) DO NOTHING`, Table)},
		{&s.stmts.get, fmt.Sprintf(`SELECT value FROM %s WHERE name = ? AND expires >= ?`, Table)},
		{&s.stmts.expires, fmt.Sprintf(`SELECT expires FROM %s WHERE name = ? AND expires >= ?`, Table)},
		{&s.stmts.del, fmt.Sprintf(`DELETE FROM %s WHERE name = ?`, Table)},
		{&s.stmts.delRange, fmt.Sprintf(`DELETE FROM %s WHERE name >= ? AND name < ?`, Table)},
		{&s.stmts.glob, fmt.Sprintf(`SELECT name, value FROM %s WHERE name GLOB ? AND expires >= ?`, Table)},
		{&s.stmts.prefix, fmt.Sprintf(`SELECT name, value FROM %s WHERE name >= ? AND name < ? AND expires >= ? ORDER BY name`, Table)},
	}
	for _, q := range queries {
		stmt, err := s.Prepare(ctx, q.query)
		if err != nil {
			return err
		}
		*q.dst = stmt
	}
	return nil
}

// Get returns the value stored under name if it exists and has not expired.
func (s *Store) Get(ctx context.Context, name string) ([]byte, bool, error) {
	var value []byte
	err := s.stmts.get.QueryRowContext(ctx, name, s.Now()).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, classify("get", err)
	}
	if value == nil {
		value = []byte{}
	}
	return value, true, nil
}

// Expires returns the absolute expiry of a live row.
func (s *Store) Expires(ctx context.Context, name string) (int64, bool, error) {
	var expires int64
	err := s.stmts.expires.QueryRowContext(ctx, name, s.Now()).Scan(&expires)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, classify("expires", err)
	}
	return expires, true, nil
}

// Delete removes a single row outside of any transaction.
func (s *Store) Delete(ctx context.Context, name string) (bool, error) {
	n, err := affected(s.stmts.del.ExecContext(ctx, name))
	if err != nil {
		return false, classify("delete", err)
	}
	return n > 0, nil
}

// DeleteGroup removes every row whose canonical name belongs to group.
func (s *Store) DeleteGroup(ctx context.Context, group string) (int64, error) {
	lo, hi := GroupRange(group)
	n, err := affected(s.stmts.delRange.ExecContext(ctx, lo, hi))
	if err != nil {
		return 0, classify("delete group", err)
	}
	return n, nil
}

// DeleteAll removes every row outside the reserved namespace.
func (s *Store) DeleteAll(ctx context.Context) (int64, error) {
	n, err := affected(s.db.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE name < ? OR name >= ?`, Table), Delimiter, upperBound(Delimiter)))
	if err != nil {
		return 0, classify("delete all", err)
	}
	return n, nil
}

// Row is a persisted entry returned by scans.
type Row struct {
	Name  string
	Value []byte
}

// Glob returns live rows whose name matches the SQLite GLOB pattern.
func (s *Store) Glob(ctx context.Context, pattern string) ([]Row, error) {
	rows, err := s.stmts.glob.QueryContext(ctx, pattern, s.Now())
	if err != nil {
		return nil, classify("glob", err)
	}
	return collect(rows)
}

// ScanPrefix returns live rows whose name starts with prefix, ordered by name.
func (s *Store) ScanPrefix(ctx context.Context, prefix string) ([]Row, error) {
	rows, err := s.stmts.prefix.QueryContext(ctx, prefix, upperBound(prefix), s.Now())
	if err != nil {
		return nil, classify("scan prefix", err)
	}
	return collect(rows)
}

// Count returns the number of physical rows, expired ones included.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, Table)).Scan(&n); err != nil {
		return 0, classify("count", err)
	}
	return n, nil
}

// FileSize returns the size of the database file plus its write-ahead log.
func (s *Store) FileSize() int64 {
	var total int64
	for _, p := range []string{s.path, s.path + "-wal"} {
		if info, err := os.Stat(p); err == nil {
			total += info.Size()
		}
	}
	return total
}

// Close releases prepared statements and the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	if s.txn != nil {
		_ = s.txn.Rollback()
		s.txn = nil
	}
	var err error
	for _, stmt := range []*sql.Stmt{
		s.stmts.put, s.stmts.insertNew, s.stmts.get, s.stmts.expires,
		s.stmts.del, s.stmts.delRange, s.stmts.glob, s.stmts.prefix,
	} {
		if stmt != nil {
			err = multierr.Append(err, stmt.Close())
		}
	}
	if closeErr := s.db.Close(); closeErr != nil {
		log.WithFields(log.Fields{
			"path": s.path,
			"err":  closeErr,
		}).Error("failed to close SQLite DB")
		err = multierr.Append(err, closeErr)
	}
	s.db = nil
	return err
}

// Name composes the canonical name of key within group.
func Name(group, key string) string {
	return group + Delimiter + key
}

// SplitName is the inverse of Name. Groups never contain the delimiter, so
// the first occurrence separates group from key.
func SplitName(name string) (group, key string, ok bool) {
	i := strings.Index(name, Delimiter)
	if i < 0 {
		return "", "", false
	}
	return name[:i], name[i+len(Delimiter):], true
}

// GroupRange returns the half-open name range [lo, hi) covering group.
func GroupRange(group string) (string, string) {
	lo := group + Delimiter
	return lo, upperBound(lo)
}

// upperBound returns the smallest string greater than every string with
// the given prefix under binary collation.
func upperBound(prefix string) string {
	b := []byte(prefix)
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] < 0xff {
			b[i]++
			return string(b[:i+1])
		}
	}
	return "\xff"
}

func collect(rows *sql.Rows) ([]Row, error) {
	defer rows.Close()
	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.Name, &r.Value); err != nil {
			return nil, classify("scan", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("scan", err)
	}
	return out, nil
}

func affected(res sql.Result, err error) (int64, error) {
	if err != nil {
		return 0, err
	}
	if res == nil {
		return 0, ErrNoResult
	}
	return res.RowsAffected()
}

func probeWritable(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".sqlcache-probe-*")
	if err != nil {
		return errors.WithMessagef(err, "directory %s is not writable", dir)
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}

func oneLine(query string) string {
	return strings.Join(strings.Fields(query), " ")
}
