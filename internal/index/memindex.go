// Package index holds the in-process tier of the cache: the group/key value
// map and the record of names confirmed absent from the store.
package index

import "reflect"

// MemIndex maps group -> key -> value. It is owned by a single session and is
// not safe for concurrent use.
type MemIndex struct {
	groups map[string]map[string]interface{}
	count  int
}

// NewMemIndex creates an empty in-memory index.
func NewMemIndex() *MemIndex {
	return &MemIndex{groups: make(map[string]map[string]interface{})}
}

// Get returns the value mapped for key in group. The boolean distinguishes a
// present zero value from absence.
func (m *MemIndex) Get(group, key string) (interface{}, bool) {
	g, ok := m.groups[group]
	if !ok {
		return nil, false
	}
	v, ok := g[key]
	return v, ok
}

// Set maps value and reports whether the mapping changed, that is, whether
// the key was unmapped or held a value of different identity.
func (m *MemIndex) Set(group, key string, value interface{}) bool {
	g, ok := m.groups[group]
	if !ok {
		g = make(map[string]interface{})
		m.groups[group] = g
	}
	prev, existed := g[key]
	g[key] = value
	if !existed {
		m.count++
		return true
	}
	return !Same(prev, value)
}

// Replace swaps the mapped value without reporting a change. It is used when
// a lazily decoded value takes the place of its stored bytes.
func (m *MemIndex) Replace(group, key string, value interface{}) {
	if g, ok := m.groups[group]; ok {
		if _, ok := g[key]; ok {
			g[key] = value
		}
	}
}

// Delete removes key from group and reports whether it was mapped.
func (m *MemIndex) Delete(group, key string) bool {
	g, ok := m.groups[group]
	if !ok {
		return false
	}
	if _, ok := g[key]; !ok {
		return false
	}
	delete(g, key)
	m.count--
	if len(g) == 0 {
		delete(m.groups, group)
	}
	return true
}

// DropGroup removes the whole group and returns the number of keys dropped.
func (m *MemIndex) DropGroup(group string) int {
	g, ok := m.groups[group]
	if !ok {
		return 0
	}
	delete(m.groups, group)
	m.count -= len(g)
	return len(g)
}

// Reset drops every group.
func (m *MemIndex) Reset() {
	m.groups = make(map[string]map[string]interface{})
	m.count = 0
}

// Exists reports whether key is mapped in group.
func (m *MemIndex) Exists(group, key string) bool {
	_, ok := m.Get(group, key)
	return ok
}

// Count returns the number of mapped keys across all groups.
func (m *MemIndex) Count() int {
	return m.count
}

// Same reports whether a and b are the same value by identity: comparable
// values compare with ==, reference types compare by the memory they point
// to.
func Same(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	switch ta.Kind() {
	case reflect.Slice:
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	case reflect.Map, reflect.Func, reflect.Chan, reflect.Ptr, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer()
	}
	if !ta.Comparable() {
		return false
	}
	return safeEqual(a, b)
}

// safeEqual compares two values of the same comparable type. Structs or
// arrays holding interfaces with uncomparable dynamic values panic under ==,
// and those are treated as different.
func safeEqual(a, b interface{}) (eq bool) {
	defer func() {
		if recover() != nil {
			eq = false
		}
	}()
	return a == b
}
