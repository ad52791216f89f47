package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// EnsureSchema creates the entry table, its expiry index and the creation
// marker if the table does not exist yet. An existing schema is detected
// without a write transaction, so opening never waits on another writer.
// Creation happens in a single transaction and re-checks the table inside it.
func (s *Store) EnsureSchema(ctx context.Context) error {
	exists, err := s.tableExists(ctx, s.db)
	if err != nil {
		return schemaError(err)
	}
	if exists {
		return nil
	}

	var created bool
	err = s.WithTransaction(ctx, func(tx *Tx) error {
		exists, err := s.tableExists(ctx, tx.txn)
		if err != nil || exists {
			return err
		}
		for _, stmt := range []string{
			fmt.Sprintf(`CREATE TABLE %s (
				name TEXT NOT NULL COLLATE BINARY,
				value BLOB,
				expires INT,
				PRIMARY KEY (name)
			) WITHOUT ROWID`, Table),
			fmt.Sprintf(`CREATE INDEX %s_expires ON %s (expires)`, Table, Table),
		} {
			if _, err := tx.Exec(stmt); err != nil {
				return err
			}
		}
		if _, err := tx.Exec(fmt.Sprintf(`INSERT INTO %s (name, value, expires) VALUES (?, ?, ?)`, Table),
			MarkerName, []byte(fmt.Sprintf("%d", s.Now())), MarkerExpires); err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return schemaError(err)
	}
	if created {
		log.WithField("path", s.path).Debug("created cache schema")
	}
	return nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func (s *Store) tableExists(ctx context.Context, q queryRower) (bool, error) {
	var n int
	if err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, Table).Scan(&n); err != nil {
		return false, classify("inspect schema", err)
	}
	return n > 0, nil
}

// schemaError reports lock and I/O contention as ErrStoreUnavailable, and
// everything else as ErrSchema.
func schemaError(err error) error {
	if errors.Is(err, ErrStoreUnavailable) {
		return &Error{Kind: ErrStoreUnavailable, Op: "ensure schema", Err: err}
	}
	return &Error{Kind: ErrSchema, Op: "ensure schema", Err: err}
}

// CreatedAt returns the epoch seconds recorded in the creation marker.
func (s *Store) CreatedAt(ctx context.Context) (int64, bool, error) {
	value, ok, err := s.Get(ctx, MarkerName)
	if err != nil || !ok {
		return 0, ok, err
	}
	var at int64
	if _, err := fmt.Sscanf(string(value), "%d", &at); err != nil {
		return 0, false, nil
	}
	return at, true, nil
}
