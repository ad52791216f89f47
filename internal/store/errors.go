package store

import (
	"fmt"

	"github.com/pkg/errors"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	ErrStoreUnavailable  = errors.New("sqlcache: store unavailable")
	ErrPrepare           = errors.New("sqlcache: prepare failed")
	ErrSchema            = errors.New("sqlcache: schema error")
	ErrTransaction       = errors.New("sqlcache: transaction failed")
	ErrNestedTransaction = errors.New("sqlcache: nested transaction")
	ErrNoResult          = errors.New("sqlcache: statement returned no result")
)

// Error is a classified store failure. It matches its Kind with errors.Is
// and unwraps to the underlying driver error.
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%v: %s", e.Kind, e.Op)
	}
	return fmt.Sprintf("%v: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// unavailable reports whether err is a lock, open or I/O condition that the
// caller should treat as recoverable.
func unavailable(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() & 0xff {
	case sqlite3.SQLITE_BUSY,
		sqlite3.SQLITE_LOCKED,
		sqlite3.SQLITE_CANTOPEN,
		sqlite3.SQLITE_READONLY,
		sqlite3.SQLITE_IOERR,
		sqlite3.SQLITE_FULL,
		sqlite3.SQLITE_PERM:
		return true
	}
	return false
}

// classify wraps err as ErrStoreUnavailable when the engine reports a lock or
// I/O condition, and otherwise returns it with op attached.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var already *Error
	if errors.As(err, &already) {
		return err
	}
	if unavailable(err) {
		return &Error{Kind: ErrStoreUnavailable, Op: op, Err: err}
	}
	return errors.WithMessage(err, op)
}
