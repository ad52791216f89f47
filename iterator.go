package sqlcache

import (
	"bufio"
	"fmt"
	"io"
	"reflect"
)

// Groups returns the groups mapped in the lookup tier, sorted.
func (c *Cache) Groups() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index.Groups()
}

// Keys returns the keys of group mapped in the lookup tier, sorted. Entries
// only present in the store are not listed.
func (c *Cache) Keys(group string) []string {
	g, err := normalizeGroup(group)
	if err != nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index.Keys(g, "*")
}

// DumpKeys writes one line per entry of the lookup tier: group, key and the
// value type, or the encoded size for values not decoded yet.
func (c *Cache) DumpKeys(w io.Writer) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	entries := c.index.Scan("*")
	c.mu.Unlock()

	writer := bufio.NewWriter(w)
	for _, entry := range entries {
		var desc string
		switch v := entry.Value.(type) {
		case storedValue:
			desc = fmt.Sprintf("stored:%d", len(v))
		case nil:
			desc = "nil"
		default:
			desc = reflect.TypeOf(v).String()
		}
		if _, err := fmt.Fprintf(writer, "%s\t%s\t%s\n", entry.Group, entry.Key, desc); err != nil {
			return err
		}
	}
	return writer.Flush()
}
