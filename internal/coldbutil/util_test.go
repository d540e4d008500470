package coldbutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransformSlice(t *testing.T) {
	out := TransformSlice([]int{1, 2, 3}, func(v int) string {
		if v%2 == 0 {
			return "even"
		}
		return "odd"
	})
	require.Equal(t, []string{"odd", "even", "odd"}, out)
}

func TestCanonicalMapIterSortsByKey(t *testing.T) {
	m := map[string]int{"b": 2, "a": 1, "c": 3}
	var keys []string
	var vals []int
	for k, v := range CanonicalMapIter(m) {
		keys = append(keys, k)
		vals = append(vals, v)
	}
	require.Equal(t, []string{"a", "b", "c"}, keys)
	require.Equal(t, []int{1, 2, 3}, vals)
}

func TestCanonicalMapIterStopsEarly(t *testing.T) {
	m := map[string]int{"a": 1, "b": 2, "c": 3}
	var keys []string
	for k := range CanonicalMapIter(m) {
		keys = append(keys, k)
		if k == "b" {
			break
		}
	}
	require.Equal(t, []string{"a", "b"}, keys)
}
