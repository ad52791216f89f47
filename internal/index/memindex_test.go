package index

import (
	"bytes"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestMemIndexSetGetRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("set-get round trip", prop.ForAll(
		func(group, key string, value []byte) bool {
			idx := NewMemIndex()
			idx.Set(group, key, value)
			got, ok := idx.Get(group, key)
			if !ok {
				return false
			}
			return bytes.Equal(got.([]byte), value)
		},
		gen.AnyString(),
		gen.AnyString(),
		gen.SliceOf(gen.UInt8()),
	))

	properties.TestingRun(t)
}

func TestMemIndexGetNonExistentKey(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("get non-existent key returns false", prop.ForAll(
		func(group, key string) bool {
			idx := NewMemIndex()
			_, ok := idx.Get(group, key)
			return !ok
		},
		gen.AnyString(),
		gen.AnyString(),
	))

	properties.TestingRun(t)
}

func TestMemIndexDeleteIsIdempotent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("delete is idempotent", prop.ForAll(
		func(key string, value int) bool {
			idx := NewMemIndex()
			idx.Set("g", key, value)
			if !idx.Delete("g", key) {
				return false
			}
			if idx.Delete("g", key) {
				return false
			}
			return !idx.Exists("g", key) && idx.Count() == 0
		},
		gen.AnyString(),
		gen.Int(),
	))

	properties.TestingRun(t)
}

func TestMemIndexPresentZeroValues(t *testing.T) {
	idx := NewMemIndex()
	for i, v := range []interface{}{false, 0, "", nil, []byte{}} {
		key := string(rune('a' + i))
		idx.Set("g", key, v)
		if _, ok := idx.Get("g", key); !ok {
			t.Fatalf("zero value %#v reported absent", v)
		}
	}
}

func TestMemIndexSetReportsIdentityChanges(t *testing.T) {
	idx := NewMemIndex()
	slice := []int{1, 2}
	m := map[string]int{"a": 1}

	if !idx.Set("g", "s", slice) {
		t.Fatalf("first set must report a change")
	}
	if idx.Set("g", "s", slice) {
		t.Fatalf("same slice must not report a change")
	}
	if !idx.Set("g", "s", []int{1, 2}) {
		t.Fatalf("equal but distinct slice must report a change")
	}
	idx.Set("g", "m", m)
	if idx.Set("g", "m", m) {
		t.Fatalf("same map must not report a change")
	}
	idx.Set("g", "n", 42)
	if idx.Set("g", "n", 42) {
		t.Fatalf("same integer must not report a change")
	}
	if !idx.Set("g", "n", int64(42)) {
		t.Fatalf("different type must report a change")
	}
	if idx.Count() != 3 {
		t.Fatalf("expected 3 keys, got %d", idx.Count())
	}
}

func TestSameHandlesUncomparableInterfaces(t *testing.T) {
	type holder struct{ V interface{} }
	a := holder{V: []int{1}}
	if Same(a, a) {
		t.Fatalf("struct holding a slice cannot be compared by identity")
	}
	if !Same(nil, nil) || Same(nil, 1) {
		t.Fatalf("nil handling broken")
	}
}

func TestMemIndexDropGroupAndScan(t *testing.T) {
	idx := NewMemIndex()
	idx.Set("a", "1", 1)
	idx.Set("a", "2", 2)
	idx.Set("b", "1", 3)

	if got := idx.Keys("a", "*"); len(got) != 2 || got[0] != "1" || got[1] != "2" {
		t.Fatalf("unexpected keys %v", got)
	}
	if n := idx.DropGroup("a"); n != 2 {
		t.Fatalf("expected 2 dropped, got %d", n)
	}
	entries := idx.Scan("*")
	if len(entries) != 1 || entries[0].Group != "b" || entries[0].Key != "1" {
		t.Fatalf("unexpected scan %+v", entries)
	}
	if idx.Count() != 1 {
		t.Fatalf("expected 1 key, got %d", idx.Count())
	}
}

func TestMatch(t *testing.T) {
	cases := []struct {
		pattern, name string
		want          bool
	}{
		{"*", "", true},
		{"post*", "posts", true},
		{"post?", "posts", true},
		{"post?", "post", false},
		{"*options", "alloptions", true},
		{"a*c", "abbbc", true},
		{"a*c", "abbbd", false},
	}
	for _, tc := range cases {
		if got := Match(tc.pattern, tc.name); got != tc.want {
			t.Fatalf("Match(%q, %q) = %v, want %v", tc.pattern, tc.name, got, tc.want)
		}
	}
}

func TestNegativeLifecycle(t *testing.T) {
	n := NewNegative(2)
	n.MarkAbsent("g|a")
	if !n.IsMarkedAbsent("g|a") {
		t.Fatalf("expected g|a marked absent")
	}
	n.Clear("g|a")
	if n.IsMarkedAbsent("g|a") {
		t.Fatalf("expected g|a cleared")
	}

	n.MarkAbsent("g|1")
	n.MarkAbsent("g|2")
	n.MarkAbsent("g|3")
	if n.Len() != 2 || n.IsMarkedAbsent("g|1") {
		t.Fatalf("expected oldest name evicted, len=%d", n.Len())
	}
	n.Purge()
	if n.Len() != 0 {
		t.Fatalf("expected purge to empty the set")
	}
}
