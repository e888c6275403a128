package util

import "iter"

// Frozen is a read-only view over a string-keyed map. It is built from a copy
// of its source, so later changes to the source never leak in, and it exposes
// no mutators. The zero value is an empty map.
type Frozen[V any] struct {
	m    map[string]V
	keys []string
}

// Freeze copies m into a Frozen map.
func Freeze[V any](m map[string]V) Frozen[V] {
	c := Clone(m)
	return Frozen[V]{m: c, keys: SortedKeys(c)}
}

// Get returns the value stored under key.
func (f Frozen[V]) Get(key string) (V, bool) {
	v, ok := f.m[key]
	return v, ok
}

// Has reports whether key is present.
func (f Frozen[V]) Has(key string) bool {
	_, ok := f.m[key]
	return ok
}

// Len returns the number of entries.
func (f Frozen[V]) Len() int { return len(f.m) }

// Keys returns the keys in ascending order. The returned slice is a copy.
func (f Frozen[V]) Keys() []string {
	out := make([]string, len(f.keys))
	copy(out, f.keys)
	return out
}

// All iterates entries in key order.
func (f Frozen[V]) All() iter.Seq2[string, V] {
	return func(yield func(string, V) bool) {
		for _, k := range f.keys {
			if !yield(k, f.m[k]) {
				return
			}
		}
	}
}

// Map returns a mutable copy of the entries.
func (f Frozen[V]) Map() map[string]V {
	return Clone(f.m)
}
