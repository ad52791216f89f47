package sqlcache

// Capability names an optional operation a host may probe for.
type Capability string

const (
	CapGetMultiple    Capability = "get_multiple"
	CapSetMultiple    Capability = "set_multiple"
	CapDeleteMultiple Capability = "delete_multiple"
	CapAddMultiple    Capability = "add_multiple"
	CapFlushGroup     Capability = "flush_group"
	CapFlushRuntime   Capability = "flush_runtime"
)

var capabilities = map[Capability]bool{
	CapGetMultiple:    true,
	CapSetMultiple:    true,
	CapDeleteMultiple: true,
	CapAddMultiple:    true,
	CapFlushGroup:     true,
	CapFlushRuntime:   true,
}

// Supports reports whether the cache implements capability.
func (c *Cache) Supports(capability Capability) bool {
	return capabilities[capability]
}
