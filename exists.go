package sqlcache

// Exists reports whether key is found in group, consulting the store when
// the lookup tier does not map it.
func (c *Cache) Exists(group string, key interface{}) bool {
	g, k, err := c.resolve(group, key)
	if err != nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	_, ok := c.lookupLocked(c.ctx, g, k)
	return ok
}
