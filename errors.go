package sqlcache

import (
	"github.com/bretuobay/sqlcache/internal/store"
	"github.com/pkg/errors"
)

// Store failures. Errors returned by the durable tier match one of these with
// errors.Is and unwrap to the underlying driver error.
var (
	ErrStoreUnavailable  = store.ErrStoreUnavailable
	ErrPrepare           = store.ErrPrepare
	ErrSchema            = store.ErrSchema
	ErrTransaction       = store.ErrTransaction
	ErrNestedTransaction = store.ErrNestedTransaction
)

var (
	ErrInvalidKey   = errors.New("sqlcache: key must be a non-empty string or an integer")
	ErrInvalidGroup = errors.New("sqlcache: group must not contain " + store.Delimiter)
	ErrClosed       = errors.New("sqlcache: cache closed")
	ErrNotInteger   = errors.New("sqlcache: value is not an integer")
)
