package store

import (
	"context"
	"fmt"
	"time"
)

// CleanupResult counts the rows removed by each cleanup pass.
type CleanupResult struct {
	Expired int64
	Stale   int64
}

// Cleanup purges, in one transaction, rows whose TTL has elapsed and
// non-expiring rows written longer than retention ago.
func (s *Store) Cleanup(ctx context.Context, retention time.Duration) (CleanupResult, error) {
	var res CleanupResult
	now := s.Now()
	err := s.WithTransaction(ctx, func(tx *Tx) error {
		var err error
		if res.Expired, err = tx.Exec(fmt.Sprintf(`DELETE FROM %s WHERE expires <= ?`, Table), now); err != nil {
			return err
		}
		// Non-expiring rows carry NoExpireOffset + write time, so their age is
		// recoverable from the expires column.
		cutoff := NoExpireOffset + now - int64(retention/time.Second)
		if res.Stale, err = tx.Exec(fmt.Sprintf(`DELETE FROM %s WHERE expires BETWEEN ? AND ?`, Table), NoExpireOffset, cutoff); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return CleanupResult{}, err
	}
	return res, nil
}

// Vacuum rebuilds the database file to reclaim free pages and truncates the
// write-ahead log. It must not run inside a transaction.
func (s *Store) Vacuum(ctx context.Context) error {
	if s.txn != nil {
		return &Error{Kind: ErrNestedTransaction, Op: "vacuum"}
	}
	if _, err := s.db.ExecContext(ctx, `VACUUM`); err != nil {
		return classify("vacuum", err)
	}
	if _, err := s.db.ExecContext(ctx, `PRAGMA wal_checkpoint(TRUNCATE)`); err != nil {
		return classify("wal checkpoint", err)
	}
	return nil
}
