// Package coldbutil holds small generic helpers shared across coldb's
// packages: slice transforms and deterministic map iteration.
package coldbutil

import (
	"iter"
	"sort"
)

// TransformSlice applies convert to every element of in, producing a new
// slice of the converted type. Used wherever a column's int32 payload
// needs rendering to strings or another representation without a
// hand-rolled indexed loop at each call site.
func TransformSlice[T any, R any](in []T, convert func(T) R) []R {
	out := make([]R, len(in))
	for i, v := range in {
		out[i] = convert(v)
	}
	return out
}

// CanonicalMapIter yields m's entries in sorted key order, so operations
// that must walk every database/table/handle in a map (snapshotting,
// listing) produce the same output on every run instead of depending on
// Go's randomized map iteration order.
func CanonicalMapIter[T any](m map[string]T) iter.Seq2[string, T] {
	return func(yield func(string, T) bool) {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			if !yield(k, m[k]) {
				return
			}
		}
	}
}
