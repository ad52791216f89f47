package store

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Tx is the single active transaction of a Store.
type Tx struct {
	ctx context.Context
	s   *Store
	txn *sql.Tx
}

// WithTransaction runs body inside one transaction. It commits when body
// returns nil and rolls back when body returns an error or panics. Nested
// calls fail with ErrNestedTransaction. Failures are reported as
// ErrTransaction wrapping their cause.
func (s *Store) WithTransaction(ctx context.Context, body func(*Tx) error) (err error) {
	if s.txn != nil {
		return &Error{Kind: ErrNestedTransaction, Op: "begin"}
	}
	txn, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &Error{Kind: ErrTransaction, Op: "begin", Err: classify("begin", err)}
	}
	s.txn = txn

	defer func() {
		s.txn = nil
		if r := recover(); r != nil {
			rollback(txn)
			panic(r)
		}
		if err != nil {
			rollback(txn)
			err = &Error{Kind: ErrTransaction, Op: "transaction", Err: err}
			return
		}
		if commitErr := txn.Commit(); commitErr != nil {
			err = &Error{Kind: ErrTransaction, Op: "commit", Err: classify("commit", commitErr)}
		}
	}()

	return body(&Tx{ctx: ctx, s: s, txn: txn})
}

func rollback(txn *sql.Tx) {
	if err := txn.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		log.WithField("err", err).Warn("failed to roll back SQLite transaction")
	}
}

// Put upserts name with an expiry of the session write time plus expiresOffset.
func (t *Tx) Put(name string, value []byte, expiresOffset int64) error {
	if value == nil {
		value = []byte{}
	}
	if _, err := affected(t.txn.StmtContext(t.ctx, t.s.stmts.put).ExecContext(t.ctx, name, value, expiresOffset)); err != nil {
		return classify("put "+name, err)
	}
	return nil
}

// Delete removes name.
func (t *Tx) Delete(name string) error {
	if _, err := affected(t.txn.StmtContext(t.ctx, t.s.stmts.del).ExecContext(t.ctx, name)); err != nil {
		return classify("delete "+name, err)
	}
	return nil
}

// DeleteGroup removes every row of group.
func (t *Tx) DeleteGroup(group string) (int64, error) {
	lo, hi := GroupRange(group)
	n, err := affected(t.txn.StmtContext(t.ctx, t.s.stmts.delRange).ExecContext(t.ctx, lo, hi))
	if err != nil {
		return 0, classify("delete group "+group, err)
	}
	return n, nil
}

// InsertIfAbsent writes name with an absolute expiry unless a row already
// exists. It reports whether the row was written.
func (t *Tx) InsertIfAbsent(name string, value []byte, expires int64) (bool, error) {
	n, err := affected(t.txn.StmtContext(t.ctx, t.s.stmts.insertNew).ExecContext(t.ctx, name, value, expires))
	if err != nil {
		return false, classify("insert "+name, err)
	}
	return n > 0, nil
}

// Exec runs an arbitrary mutating statement inside the transaction.
func (t *Tx) Exec(query string, args ...interface{}) (int64, error) {
	n, err := affected(t.txn.ExecContext(t.ctx, query, args...))
	if err != nil {
		return 0, classify("exec", err)
	}
	return n, nil
}
