package engine

import (
	"math"
	"sort"

	"coldb/internal/catalog"
)

// MinValue and MaxValue are the sentinels `null` maps to on the low/high
// bound of a select, per §4.5.
const (
	MinValue int32 = math.MinInt32
	MaxValue int32 = math.MaxInt32
)

// SelectRange implements select(column, low, high) over the full column
// (§4.5): it picks the cheapest available path — contiguous range on a
// clustered sorted column, index range query, or a linear scan — and
// always returns a bitvector sized to the table. A B+tree read on a table
// still in bulk-load mode first runs FinishBulkLoad, so the positions the
// tree reports are current.
func SelectRange(t *catalog.Table, col *catalog.Column, low, high int32) *Bitvector {
	bv := NewBitvector(t.Size)
	data := col.Data[:t.Size]

	switch {
	case col.Clustered && col.IndexKind != catalog.IndexBTree:
		lo := sort.Search(len(data), func(i int) bool { return data[i] >= low })
		hiIdx := sort.Search(len(data), func(i int) bool { return data[i] >= high })
		for i := lo; i < hiIdx; i++ {
			bv.Set(i)
		}
	case col.IndexKind == catalog.IndexBTree:
		if t.BulkLoading {
			FinishBulkLoad(t)
		}
		for _, pos := range col.Tree.Range(low, high) {
			bv.Set(int(pos))
		}
	case col.IndexKind == catalog.IndexSorted:
		for _, pos := range col.Sorted.Range(low, high) {
			bv.Set(int(pos))
		}
	default:
		for i, v := range data {
			if v >= low && v < high {
				bv.Set(i)
			}
		}
	}
	return bv
}

// SelectRangeOverPositions re-selects on a column restricted to an earlier
// result's positions: it only ever examines the positions already present
// in that result, reading their current values from col and ignoring any
// index on the column (the position vector already did the narrowing).
// The dispatcher's `select(pos_h,val_h,low,high)` form uses
// SelectOverValues instead.
func SelectRangeOverPositions(t *catalog.Table, col *catalog.Column, positions []int32, low, high int32) *Bitvector {
	bv := NewBitvector(t.Size)
	data := col.Data[:t.Size]
	for _, p := range positions {
		if v := data[p]; v >= low && v < high {
			bv.Set(int(p))
		}
	}
	return bv
}

// SelectOverValues implements the `select(pos_h,val_h,low,high)` re-select
// form: positions and values are a prior select's/fetch's parallel output
// (values[i] is the value originally found at positions[i]), and the
// result is a fresh bitvector, sized to tableSize, with bits set for the
// positions whose value satisfies the new bound.
func SelectOverValues(tableSize int, positions, values []int32, low, high int32) *Bitvector {
	bv := NewBitvector(tableSize)
	for i, p := range positions {
		if v := values[i]; v >= low && v < high {
			bv.Set(int(p))
		}
	}
	return bv
}

// Fetch implements fetch's bitvector path (§4.5): gather column[i] for
// every set bit, in ascending position order.
func Fetch(col *catalog.Column, size int, bv *Bitvector) []int32 {
	positions := bv.Positions()
	return FetchPositions(col, size, positions)
}

// FetchPositions implements fetch's position-vector path.
func FetchPositions(col *catalog.Column, size int, positions []int32) []int32 {
	data := col.Data[:size]
	out := make([]int32, len(positions))
	for i, p := range positions {
		out[i] = data[p]
	}
	return out
}
