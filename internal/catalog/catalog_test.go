package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func buildSample(t *testing.T) *Catalog {
	t.Helper()
	c := New()
	require.NoError(t, c.CreateDatabase("db1"))
	_, err := c.CreateTable("db1", "grades", 2)
	require.NoError(t, err)
	_, err = c.CreateColumn("db1", "grades", "student_id")
	require.NoError(t, err)
	_, err = c.CreateColumn("db1", "grades", "score")
	require.NoError(t, err)

	tbl, err := c.LookupTable("db1", "grades")
	require.NoError(t, err)
	rows := [][2]int32{{1, 90}, {2, 70}, {3, 85}, {4, 60}}
	for _, row := range rows {
		tbl.EnsureCapacity()
		tbl.Columns[0].Data = append(tbl.Columns[0].Data, row[0])
		tbl.Columns[1].Data = append(tbl.Columns[1].Data, row[1])
		tbl.Size++
	}
	require.NoError(t, c.CreateIndex("db1", "grades", "score", IndexBTree, false))
	return c
}

func TestCreateIndexBackfillsFromExistingRows(t *testing.T) {
	c := buildSample(t)
	col, err := c.LookupColumn("db1", "grades", "score")
	require.NoError(t, err)
	require.NotNil(t, col.Tree)
	require.Equal(t, int32(1), col.Tree.Lookup(70))
}

func TestCreateBTreeIndexEnablesBulkLoading(t *testing.T) {
	c := New()
	require.NoError(t, c.CreateDatabase("db1"))
	_, err := c.CreateTable("db1", "grades", 1)
	require.NoError(t, err)
	_, err = c.CreateColumn("db1", "grades", "score")
	require.NoError(t, err)

	tbl, err := c.LookupTable("db1", "grades")
	require.NoError(t, err)
	require.False(t, tbl.BulkLoading)

	require.NoError(t, c.CreateIndex("db1", "grades", "score", IndexBTree, false))
	require.True(t, tbl.BulkLoading, "creating a BTREE index should flip the table into bulk-load mode, matching parse_create_idx")
}

func TestCreateSortedIndexDoesNotEnableBulkLoading(t *testing.T) {
	c := New()
	require.NoError(t, c.CreateDatabase("db1"))
	_, err := c.CreateTable("db1", "grades", 1)
	require.NoError(t, err)
	_, err = c.CreateColumn("db1", "grades", "score")
	require.NoError(t, err)

	require.NoError(t, c.CreateIndex("db1", "grades", "score", IndexSorted, false))
	tbl, err := c.LookupTable("db1", "grades")
	require.NoError(t, err)
	require.False(t, tbl.BulkLoading)
}

func TestCreateIndexHonorsCatalogPageSize(t *testing.T) {
	c := New()
	c.PageSize = 64 // tiny pages force splits quickly, per index's own test style
	require.NoError(t, c.CreateDatabase("db1"))
	_, err := c.CreateTable("db1", "grades", 1)
	require.NoError(t, err)
	_, err = c.CreateColumn("db1", "grades", "score")
	require.NoError(t, err)

	tbl, err := c.LookupTable("db1", "grades")
	require.NoError(t, err)
	for i := int32(0); i < 200; i++ {
		tbl.EnsureCapacity()
		tbl.Columns[0].Data = append(tbl.Columns[0].Data, i)
		tbl.Size++
	}
	require.NoError(t, c.CreateIndex("db1", "grades", "score", IndexBTree, false))

	col, err := c.LookupColumn("db1", "grades", "score")
	require.NoError(t, err)
	for i := int32(0); i < 200; i++ {
		require.Equal(t, i, col.Tree.Lookup(i))
	}
}

func TestCreateIndexRejectsSecondClusteredColumn(t *testing.T) {
	c := buildSample(t)
	require.NoError(t, c.CreateIndex("db1", "grades", "student_id", IndexBTree, true))
	err := c.CreateIndex("db1", "grades", "score", IndexSorted, true)
	require.Error(t, err)
}

func TestPersistAndLoadRoundTrips(t *testing.T) {
	c := buildSample(t)
	require.NoError(t, c.CreateIndex("db1", "grades", "student_id", IndexSorted, false))

	path := filepath.Join(t.TempDir(), "snap.cdb")
	require.NoError(t, Persist(c, path))

	reloaded, err := Load(path)
	require.NoError(t, err)

	tbl, err := reloaded.LookupTable("db1", "grades")
	require.NoError(t, err)
	require.Equal(t, 4, tbl.Size)

	scoreCol, err := reloaded.LookupColumn("db1", "grades", "score")
	require.NoError(t, err)
	require.Equal(t, []int32{90, 70, 85, 60}, scoreCol.Data)
	require.NotNil(t, scoreCol.Tree)
	require.Equal(t, int32(1), scoreCol.Tree.Lookup(70))

	idCol, err := reloaded.LookupColumn("db1", "grades", "student_id")
	require.NoError(t, err)
	require.NotNil(t, idCol.Sorted)
	require.Equal(t, int32(0), idCol.Sorted.Lookup(1))
}

func TestPersistDatabaseAndLoadDatabaseRoundTrip(t *testing.T) {
	c := buildSample(t)
	db, err := c.Database("db1")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "db1.bin")
	require.NoError(t, PersistDatabase(db, path))

	reloaded, err := LoadDatabase(path)
	require.NoError(t, err)
	require.Equal(t, "db1", reloaded.Name)
	require.Len(t, reloaded.Tables, 1)
	require.Equal(t, 4, reloaded.Tables[0].Size)
}

func TestLoadRejectsBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.cdb")
	require.NoError(t, os.WriteFile(path, []byte("not a snapshot"), 0o644))
	_, err := Load(path)
	require.Error(t, err)
}
