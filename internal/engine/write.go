package engine

import (
	"fmt"
	"sort"

	"coldb/internal/catalog"
)

// InsertRow implements insert_row (§4.4): grows the table if full, finds
// the clustered insertion rank (or appends, if no column is clustered),
// shifts every column's data to open row r, writes values, and propagates
// into every column's index.
func InsertRow(t *catalog.Table, values []int32) (int, error) {
	if len(values) != len(t.Columns) {
		return 0, fmt.Errorf("incomplete_data: table %q has %d columns, got %d values", t.Name, len(t.Columns), len(values))
	}
	t.EnsureCapacity()

	r := t.Size
	clustered := t.ClusteredColumnIndex()
	if clustered >= 0 {
		col := t.Columns[clustered]
		data := col.Data[:t.Size]
		r = sort.Search(len(data), func(i int) bool { return data[i] >= values[clustered] })
	}

	for j, col := range t.Columns {
		col.Data = append(col.Data, 0)
		copy(col.Data[r+1:], col.Data[r:t.Size])
		col.Data[r] = values[j]
	}
	t.Size++

	for j, col := range t.Columns {
		propagate := !t.BulkLoading
		switch {
		case col.Clustered && col.IndexKind == catalog.IndexBTree:
			col.Tree.Insert(values[j], int32(r), propagate)
		case col.Clustered:
			// clustered sorted: the column itself IS the index (§4.3); no
			// separate structure to update.
		case col.IndexKind == catalog.IndexSorted:
			col.Sorted.Insert(values[j], int32(r))
		case col.IndexKind == catalog.IndexBTree:
			col.Tree.Insert(values[j], int32(r), propagate)
		}
	}
	return r, nil
}

// DeleteRow implements delete_row (§4.4): repairs any clustered btree
// first, shifts every column's data down onto row r, and walks every
// unclustered index decrementing stored positions greater than r. Returns
// the overwritten row's values so the caller (e.g. update, modeled as
// delete-then-insert) can recover it if needed.
func DeleteRow(t *catalog.Table, r int) ([]int32, error) {
	if r < 0 || r >= t.Size {
		return nil, fmt.Errorf("object_not_found: row %d out of range [0,%d)", r, t.Size)
	}

	old := make([]int32, len(t.Columns))
	for j, col := range t.Columns {
		old[j] = col.Data[r]
	}

	for _, col := range t.Columns {
		switch {
		case col.Clustered && col.IndexKind == catalog.IndexBTree:
			col.Tree.DeleteByPosition(int32(r))
		case col.IndexKind == catalog.IndexSorted && !col.Clustered:
			col.Sorted.DeleteByPosition(int32(r))
		case col.IndexKind == catalog.IndexBTree && !col.Clustered:
			col.Tree.DeleteByPosition(int32(r))
		}
	}

	for _, col := range t.Columns {
		copy(col.Data[r:t.Size-1], col.Data[r+1:t.Size])
		col.Data = col.Data[:t.Size-1]
	}
	t.Size--
	return old, nil
}

// UpdateRow implements relational_update as delete-then-insert (§4.4's
// note and §6.1's command table): it deletes row r and reinserts the same
// values with column col overwritten by newValue, returning the row's new
// position: its clustered rank when the table has a clustered column,
// otherwise the last row, since the reinserted row is appended.
func UpdateRow(t *catalog.Table, r int, colIdx int, newValue int32) (int, error) {
	old, err := DeleteRow(t, r)
	if err != nil {
		return 0, err
	}
	old[colIdx] = newValue
	return InsertRow(t, old)
}

// FinishBulkLoad implements the `finished_load` command: for every
// btree-indexed column it runs the appropriate deferred-position fixup,
// then clears bulk-load mode.
func FinishBulkLoad(t *catalog.Table) {
	for _, col := range t.Columns {
		if col.IndexKind != catalog.IndexBTree {
			continue
		}
		if col.Clustered {
			col.Tree.FixClusteredPositions()
		} else {
			col.Tree.FixUnclusteredPositions(col.Data[:t.Size])
		}
	}
	t.BulkLoading = false
}
