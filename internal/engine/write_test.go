package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"coldb/internal/catalog"
)

func newTestTable(t *testing.T) (*catalog.Catalog, *catalog.Table) {
	t.Helper()
	c := catalog.New()
	require.NoError(t, c.CreateDatabase("d"))
	_, err := c.CreateTable("d", "t", 2)
	require.NoError(t, err)
	_, err = c.CreateColumn("d", "t", "a")
	require.NoError(t, err)
	_, err = c.CreateColumn("d", "t", "b")
	require.NoError(t, err)
	tbl, err := c.LookupTable("d", "t")
	require.NoError(t, err)
	return c, tbl
}

func TestInsertRowAppendsWhenUnclustered(t *testing.T) {
	_, tbl := newTestTable(t)
	for _, row := range [][2]int32{{1, 10}, {2, 20}, {3, 30}} {
		_, err := InsertRow(tbl, row[:])
		require.NoError(t, err)
	}
	require.Equal(t, []int32{1, 2, 3}, tbl.Columns[0].Data)
	require.Equal(t, []int32{10, 20, 30}, tbl.Columns[1].Data)
}

func TestInsertRowMaintainsClusteredOrder(t *testing.T) {
	c, tbl := newTestTable(t)
	require.NoError(t, c.CreateIndex("d", "t", "a", catalog.IndexBTree, true))

	for i := int32(999); i >= 990; i-- {
		_, err := InsertRow(tbl, []int32{i, i})
		require.NoError(t, err)
	}
	require.True(t, isNonDecreasing(tbl.Columns[0].Data))

	bv := SelectRange(tbl, tbl.Columns[0], 991, 994)
	got := Fetch(tbl.Columns[1], tbl.Size, bv)
	require.Equal(t, []int32{991, 992, 993}, got)
}

func isNonDecreasing(data []int32) bool {
	for i := 1; i < len(data); i++ {
		if data[i] < data[i-1] {
			return false
		}
	}
	return true
}

func TestInsertDeleteRoundTripRestoresTable(t *testing.T) {
	_, tbl := newTestTable(t)
	for _, row := range [][2]int32{{1, 10}, {2, 20}, {3, 30}, {4, 40}} {
		_, err := InsertRow(tbl, row[:])
		require.NoError(t, err)
	}
	before := append([]int32{}, tbl.Columns[0].Data...)
	beforeB := append([]int32{}, tbl.Columns[1].Data...)

	r, err := InsertRow(tbl, []int32{5, 50})
	require.NoError(t, err)
	_, err = DeleteRow(tbl, r)
	require.NoError(t, err)

	require.Equal(t, before, tbl.Columns[0].Data)
	require.Equal(t, beforeB, tbl.Columns[1].Data)
}

func TestDeleteRowDecrementsUnclusteredIndexPositions(t *testing.T) {
	c, tbl := newTestTable(t)
	require.NoError(t, c.CreateIndex("d", "t", "a", catalog.IndexSorted, false))
	for _, row := range [][2]int32{{5, 50}, {3, 30}, {9, 90}, {1, 10}} {
		_, err := InsertRow(tbl, row[:])
		require.NoError(t, err)
	}
	// row 1 holds value 3; delete it.
	_, err := DeleteRow(tbl, 1)
	require.NoError(t, err)

	col := tbl.Columns[0]
	require.Equal(t, int32(-1), col.Sorted.Lookup(3))
	require.Equal(t, int32(1), col.Sorted.Lookup(9))
}

func TestUpdateRowRelocatesOnClusteredColumn(t *testing.T) {
	c, tbl := newTestTable(t)
	require.NoError(t, c.CreateIndex("d", "t", "a", catalog.IndexBTree, true))
	for _, row := range [][2]int32{{1, 10}, {2, 20}, {3, 30}} {
		_, err := InsertRow(tbl, row[:])
		require.NoError(t, err)
	}
	newPos, err := UpdateRow(tbl, 0, 0, 5) // row for value 1 now becomes 5
	require.NoError(t, err)
	require.Equal(t, []int32{2, 3, 5}, tbl.Columns[0].Data)
	require.Equal(t, int32(10), tbl.Columns[1].Data[newPos])
}

func TestBulkLoadDefersThenFixesClusteredPositions(t *testing.T) {
	c, tbl := newTestTable(t)
	require.NoError(t, c.CreateIndex("d", "t", "a", catalog.IndexBTree, true))
	require.True(t, tbl.BulkLoading, "CreateIndex should already have put the table into bulk-load mode")
	for i := int32(19); i >= 0; i-- {
		_, err := InsertRow(tbl, []int32{i, i})
		require.NoError(t, err)
	}
	FinishBulkLoad(tbl)

	bv := SelectRange(tbl, tbl.Columns[0], 5, 8)
	got := Fetch(tbl.Columns[1], tbl.Size, bv)
	require.Equal(t, []int32{5, 6, 7}, got)
}
