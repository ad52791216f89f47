package index

import "sort"

// KeyEntry bundles a mapped value with its group and key.
type KeyEntry struct {
	Group string
	Key   string
	Value interface{}
}

// Groups returns the names of all non-empty groups, sorted.
func (m *MemIndex) Groups() []string {
	out := make([]string, 0, len(m.groups))
	for g := range m.groups {
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}

// Keys returns the keys of group matching the glob pattern, sorted.
func (m *MemIndex) Keys(group, pattern string) []string {
	g := m.groups[group]
	out := make([]string, 0, len(g))
	for k := range g {
		if Match(pattern, k) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// Scan returns every entry whose group matches groupPattern, ordered by
// group then key.
func (m *MemIndex) Scan(groupPattern string) []KeyEntry {
	var out []KeyEntry
	for _, group := range m.Groups() {
		if !Match(groupPattern, group) {
			continue
		}
		for _, key := range m.Keys(group, "*") {
			out = append(out, KeyEntry{Group: group, Key: key, Value: m.groups[group][key]})
		}
	}
	return out
}
