package sqlcache

import (
	"strconv"
	"strings"

	"github.com/bretuobay/sqlcache/internal/store"
)

// resolve validates group and key and returns their normalized forms.
func (c *Cache) resolve(group string, key interface{}) (string, string, error) {
	g, err := normalizeGroup(group)
	if err != nil {
		return "", "", err
	}
	k, err := keyString(key)
	if err != nil {
		return "", "", err
	}
	if c.opts.RewriteKey != nil {
		if k = c.opts.RewriteKey(g, k); k == "" {
			return "", "", ErrInvalidKey
		}
	}
	return g, k, nil
}

func normalizeGroup(group string) (string, error) {
	if group == "" {
		return DefaultGroup, nil
	}
	if strings.Contains(group, store.Delimiter) {
		return "", ErrInvalidGroup
	}
	return group, nil
}

// keyString accepts non-empty strings and integers of any width.
func keyString(key interface{}) (string, error) {
	switch k := key.(type) {
	case string:
		if k == "" {
			return "", ErrInvalidKey
		}
		return k, nil
	case int:
		return strconv.FormatInt(int64(k), 10), nil
	case int8:
		return strconv.FormatInt(int64(k), 10), nil
	case int16:
		return strconv.FormatInt(int64(k), 10), nil
	case int32:
		return strconv.FormatInt(int64(k), 10), nil
	case int64:
		return strconv.FormatInt(k, 10), nil
	case uint:
		return strconv.FormatUint(uint64(k), 10), nil
	case uint8:
		return strconv.FormatUint(uint64(k), 10), nil
	case uint16:
		return strconv.FormatUint(uint64(k), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(k), 10), nil
	case uint64:
		return strconv.FormatUint(k, 10), nil
	}
	return "", ErrInvalidKey
}
