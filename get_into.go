package sqlcache

import (
	"reflect"

	"github.com/pkg/errors"
)

// GetInto stores the value mapped for key into dst, which must be a non-nil
// pointer. Values persisted by an earlier session are decoded directly into
// dst. It reports whether the key was found.
func (c *Cache) GetInto(group string, key interface{}, dst interface{}) (bool, error) {
	g, k, err := c.resolve(group, key)
	if err != nil {
		return false, err
	}
	target := reflect.ValueOf(dst)
	if target.Kind() != reflect.Ptr || target.IsNil() {
		return false, errors.Errorf("sqlcache: GetInto needs a non-nil pointer, got %T", dst)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false, ErrClosed
	}
	v, ok := c.lookupLocked(c.ctx, g, k)
	if !ok {
		return false, nil
	}
	if raw, stored := v.(storedValue); stored {
		if err := c.codec.Unmarshal(raw, dst); err != nil {
			return false, errors.WithMessagef(err, "sqlcache: decode %s/%s", g, k)
		}
		return true, nil
	}

	elem := target.Elem()
	if v == nil {
		elem.Set(reflect.Zero(elem.Type()))
		return true, nil
	}
	if rv := reflect.ValueOf(v); rv.Type().AssignableTo(elem.Type()) {
		elem.Set(rv)
		return true, nil
	}
	// Fall back to a codec round trip, e.g. map[string]interface{} into a struct.
	data, err := c.codec.Marshal(v)
	if err != nil {
		return false, errors.WithMessagef(err, "sqlcache: convert %s/%s", g, k)
	}
	if err := c.codec.Unmarshal(data, dst); err != nil {
		return false, errors.WithMessagef(err, "sqlcache: convert %s/%s", g, k)
	}
	return true, nil
}

// GetAs returns the value mapped for key converted to T.
func GetAs[T any](c *Cache, group string, key interface{}) (T, bool) {
	var out T
	ok, err := c.GetInto(group, key, &out)
	if err != nil || !ok {
		var zero T
		return zero, false
	}
	return out, true
}
