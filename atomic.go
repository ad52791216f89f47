package sqlcache

import (
	"math"
	"strconv"
	"time"
)

// Add sets value only if key is not found in either tier. It reports whether
// the value was set.
func (c *Cache) Add(group string, key interface{}, value interface{}, ttl time.Duration) (bool, error) {
	g, k, err := c.resolve(group, key)
	if err != nil {
		return false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false, ErrClosed
	}
	if _, ok := c.lookupLocked(c.ctx, g, k); ok {
		return false, nil
	}
	if err := c.setLocked(g, k, value, ttl); err != nil {
		return false, err
	}
	return true, nil
}

// AddMultiple adds every entry of values in group and reports per key
// whether it was set.
func (c *Cache) AddMultiple(group string, values map[string]interface{}, ttl time.Duration) (map[string]bool, error) {
	out := make(map[string]bool, len(values))
	for key, value := range values {
		added, err := c.Add(group, key, value, ttl)
		if err != nil {
			return out, err
		}
		out[key] = added
	}
	return out, nil
}

// Replace sets value only if key is found. It reports whether the value was set.
func (c *Cache) Replace(group string, key interface{}, value interface{}, ttl time.Duration) (bool, error) {
	g, k, err := c.resolve(group, key)
	if err != nil {
		return false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false, ErrClosed
	}
	if _, ok := c.lookupLocked(c.ctx, g, k); !ok {
		return false, nil
	}
	if err := c.setLocked(g, k, value, ttl); err != nil {
		return false, err
	}
	return true, nil
}

// Incr adds delta to the integer stored under key and returns the result.
// A missing key counts as zero. The remaining TTL of the entry is kept.
func (c *Cache) Incr(group string, key interface{}, delta int64) (int64, error) {
	g, k, err := c.resolve(group, key)
	if err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, ErrClosed
	}

	var current int64
	if v, ok := c.getLocked(c.ctx, g, k); ok {
		if current, err = toInt64(v); err != nil {
			return 0, err
		}
	}
	var ttl time.Duration
	if remaining, ok := c.ttlLocked(c.ctx, g, k); ok && remaining > 0 {
		ttl = remaining
	}
	next := current + delta
	if err := c.setLocked(g, k, next, ttl); err != nil {
		return 0, err
	}
	return next, nil
}

// Decr subtracts delta from the integer stored under key.
func (c *Cache) Decr(group string, key interface{}, delta int64) (int64, error) {
	return c.Incr(group, key, -delta)
}

// toInt64 accepts integers of any width, whole floats (as decoded from JSON)
// and decimal strings.
func toInt64(v interface{}) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint:
		return uintToInt64(uint64(n))
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64:
		return uintToInt64(n)
	case float64:
		if n != math.Trunc(n) || n >= math.MaxInt64 || n < math.MinInt64 {
			return 0, ErrNotInteger
		}
		return int64(n), nil
	case string:
		parsed, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0, ErrNotInteger
		}
		return parsed, nil
	}
	return 0, ErrNotInteger
}

func uintToInt64(n uint64) (int64, error) {
	if n > math.MaxInt64 {
		return 0, ErrNotInteger
	}
	return int64(n), nil
}
