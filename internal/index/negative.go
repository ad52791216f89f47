package index

import lru "github.com/hashicorp/golang-lru"

// DefaultNegativeSize bounds the number of absent names remembered per session.
const DefaultNegativeSize = 10000

// Negative records canonical names confirmed absent from the durable store.
// When full, the least recently confirmed name is forgotten, which only costs
// a repeated store lookup.
type Negative struct {
	cache *lru.Cache
}

// NewNegative returns a Negative holding at most size names.
func NewNegative(size int) *Negative {
	if size <= 0 {
		size = DefaultNegativeSize
	}
	cache, err := lru.New(size)
	if err != nil {
		panic(err.Error()) // Only errors on size <= 0.
	}
	return &Negative{cache: cache}
}

// MarkAbsent records name as absent.
func (n *Negative) MarkAbsent(name string) {
	n.cache.Add(name, struct{}{})
}

// IsMarkedAbsent reports whether name was confirmed absent.
func (n *Negative) IsMarkedAbsent(name string) bool {
	_, ok := n.cache.Get(name)
	return ok
}

// Clear forgets name.
func (n *Negative) Clear(name string) {
	n.cache.Remove(name)
}

// Purge forgets every name.
func (n *Negative) Purge() {
	n.cache.Purge()
}

// Len returns the number of names held.
func (n *Negative) Len() int {
	return n.cache.Len()
}
