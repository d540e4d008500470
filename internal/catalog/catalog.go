// Package catalog is C1: it owns databases, tables, and columns, allocates
// and grows the dense integer arrays backing each column, and persists and
// reloads them (§4.1, §6.3).
package catalog

import (
	"fmt"

	"coldb/internal/coldbutil"
	"coldb/internal/index"
)

// MaxHandleLen matches HANDLE_MAX_SIZE (64) minus the NUL terminator the
// original C struct reserved for names and session handles.
const MaxHandleLen = 63

// IndexKind is a column's optional secondary-index variant (§3).
type IndexKind int

const (
	IndexNone IndexKind = iota
	IndexSorted
	IndexBTree
)

func (k IndexKind) String() string {
	switch k {
	case IndexSorted:
		return "sorted"
	case IndexBTree:
		return "btree"
	default:
		return "none"
	}
}

// Column is a dense ordered sequence of 32-bit integers with an optional
// index (§3).
type Column struct {
	Name      string
	Data      []int32
	IndexKind IndexKind
	Clustered bool

	Sorted *index.Sorted // non-nil iff IndexKind == IndexSorted && !Clustered
	Tree   *index.BTree  // non-nil iff IndexKind == IndexBTree
}

// Table is a fixed-column-count, growable-row-count container (§3). All of
// a table's columns always have identical length (Size); Capacity only
// ever grows by doubling (§4.1's grow_table).
type Table struct {
	Name        string
	Columns     []*Column
	Size        int
	Capacity    int
	BulkLoading bool // §4.4's btree_indexed_load
}

// Database is a named, growable list of tables (§3).
type Database struct {
	Name   string
	Tables []*Table
}

// Catalog owns every database created in this process and tracks which one
// is active. At most one database is active at a time (§3).
type Catalog struct {
	databases map[string]*Database
	active    string

	// PageSize overrides the byte size new B+tree index nodes are sized
	// for (§4.2's PAGESIZE). Zero means index.NewBTree's own compiled-in
	// default. Set from config.Config before any CreateIndex call; never
	// changed afterwards, since changing it mid-run would make the page
	// size of older and newer indexes on the same catalog inconsistent.
	PageSize int
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{databases: make(map[string]*Database)}
}

// CreateDatabase creates db and makes it the active database, matching the
// source's "one active database per process" model: there is no separate
// `open` verb in spec.md's query language, so `create(db,...)` both
// declares and activates.
func (c *Catalog) CreateDatabase(name string) error {
	if len(name) > MaxHandleLen {
		return fmt.Errorf("incorrect_format: database name %q exceeds %d bytes", name, MaxHandleLen)
	}
	if _, ok := c.databases[name]; ok {
		return fmt.Errorf("query_unsupported: database %q already exists", name)
	}
	c.databases[name] = &Database{Name: name}
	c.active = name
	return nil
}

// Active returns the currently active database, or an error if none has
// been created yet (query_unsupported in the dispatcher's vocabulary).
func (c *Catalog) Active() (*Database, error) {
	if c.active == "" {
		return nil, fmt.Errorf("query_unsupported: no active database")
	}
	return c.databases[c.active], nil
}

// Database looks up a database by name regardless of activation, used by
// load/save (§6.3) and by fully-qualified handles like db.tbl.col.
func (c *Catalog) Database(name string) (*Database, error) {
	db, ok := c.databases[name]
	if !ok {
		return nil, fmt.Errorf("object_not_found: database %q not found", name)
	}
	return db, nil
}

// AllDatabases returns every database in sorted-name order, used by
// persistence — a stable order keeps repeated snapshots of an unchanged
// catalog byte-for-byte identical instead of varying with Go's randomized
// map iteration.
func (c *Catalog) AllDatabases() []*Database {
	out := make([]*Database, 0, len(c.databases))
	for _, db := range coldbutil.CanonicalMapIter(c.databases) {
		out = append(out, db)
	}
	return out
}

// adoptDatabase registers db (e.g. one just reloaded from a snapshot) and
// activates it.
func (c *Catalog) adoptDatabase(db *Database) {
	if c.databases == nil {
		c.databases = make(map[string]*Database)
	}
	c.databases[db.Name] = db
	c.active = db.Name
}

// CreateTable adds a table with colCount empty columns to db.
func (c *Catalog) CreateTable(dbName, tableName string, colCount int) (*Table, error) {
	db, err := c.Database(dbName)
	if err != nil {
		return nil, err
	}
	if len(tableName) > MaxHandleLen {
		return nil, fmt.Errorf("incorrect_format: table name %q exceeds %d bytes", tableName, MaxHandleLen)
	}
	for _, t := range db.Tables {
		if t.Name == tableName {
			return nil, fmt.Errorf("query_unsupported: table %q already exists in %q", tableName, dbName)
		}
	}
	t := &Table{Name: tableName, Columns: make([]*Column, 0, colCount)}
	db.Tables = append(db.Tables, t)
	return t, nil
}

// CreateColumn adds a new, empty column to table.
func (c *Catalog) CreateColumn(dbName, tableName, colName string) (*Column, error) {
	t, err := c.LookupTable(dbName, tableName)
	if err != nil {
		return nil, err
	}
	if len(colName) > MaxHandleLen {
		return nil, fmt.Errorf("incorrect_format: column name %q exceeds %d bytes", colName, MaxHandleLen)
	}
	for _, col := range t.Columns {
		if col.Name == colName {
			return nil, fmt.Errorf("query_unsupported: column %q already exists in table %q", colName, tableName)
		}
	}
	col := &Column{Name: colName, Data: make([]int32, t.Size, t.Capacity)}
	t.Columns = append(t.Columns, col)
	return col, nil
}

// CreateIndex attaches kind/clustered to an existing column, backfilling
// the index structure from any rows already present. At most one column
// per table may be clustered (§3).
func (c *Catalog) CreateIndex(dbName, tableName, colName string, kind IndexKind, clustered bool) error {
	t, err := c.LookupTable(dbName, tableName)
	if err != nil {
		return err
	}
	col, err := c.LookupColumn(dbName, tableName, colName)
	if err != nil {
		return err
	}
	if clustered {
		for _, other := range t.Columns {
			if other != col && other.Clustered {
				return fmt.Errorf("query_unsupported: table %q already has clustered column %q", tableName, other.Name)
			}
		}
	}
	col.IndexKind = kind
	col.Clustered = clustered
	switch kind {
	case IndexSorted:
		if !clustered {
			col.Sorted = index.NewSorted()
			for pos, v := range col.Data[:t.Size] {
				col.Sorted.Insert(v, int32(pos))
			}
		}
	case IndexBTree:
		if c.PageSize > 0 {
			col.Tree = index.NewBTreeWithPageSize(clustered, c.PageSize)
		} else {
			col.Tree = index.NewBTree(clustered)
		}
		for pos, v := range col.Data[:t.Size] {
			col.Tree.Insert(v, int32(pos), !t.BulkLoading)
		}
		if t.BulkLoading {
			if clustered {
				col.Tree.FixClusteredPositions()
			} else {
				col.Tree.FixUnclusteredPositions(col.Data[:t.Size])
			}
		}
		// Creating a B+tree index flips the table into bulk-load mode from
		// this point on, exactly like the original's parse_create_idx
		// setting btree_indexed_load the moment a BTREE index is requested:
		// every relational_insert that follows (typically a bulk file
		// replay) defers position propagation until finished_load's fixup
		// pass instead of paying it per row.
		t.BulkLoading = true
	}
	return nil
}

// LookupTable finds a table by (database, table) name.
func (c *Catalog) LookupTable(dbName, tableName string) (*Table, error) {
	db, err := c.Database(dbName)
	if err != nil {
		return nil, err
	}
	for _, t := range db.Tables {
		if t.Name == tableName {
			return t, nil
		}
	}
	return nil, fmt.Errorf("object_not_found: table %q not found in database %q", tableName, dbName)
}

// LookupColumn finds a column by (database, table, column) name.
func (c *Catalog) LookupColumn(dbName, tableName, colName string) (*Column, error) {
	t, err := c.LookupTable(dbName, tableName)
	if err != nil {
		return nil, err
	}
	for _, col := range t.Columns {
		if col.Name == colName {
			return col, nil
		}
	}
	return nil, fmt.Errorf("object_not_found: column %q not found in table %q", colName, tableName)
}

// ClusteredColumnIndex returns the index of t's clustered column, or -1 if
// none.
func (t *Table) ClusteredColumnIndex() int {
	for i, col := range t.Columns {
		if col.Clustered {
			return i
		}
	}
	return -1
}

// growTable doubles the capacity of every column's data buffer (and, for
// unclustered sorted indexes, nothing extra — index.Sorted grows its own
// backing slice via append) whenever a table is full, preserving row
// identity (§4.1).
func growTable(t *Table) {
	newCap := t.Capacity * 2
	if newCap == 0 {
		newCap = 4
	}
	for _, col := range t.Columns {
		grown := make([]int32, t.Size, newCap)
		copy(grown, col.Data)
		col.Data = grown
	}
	t.Capacity = newCap
}

// EnsureCapacity grows t if it is full, matching insert_row's doubling
// check in §4.4.
func (t *Table) EnsureCapacity() {
	if t.Size == t.Capacity {
		growTable(t)
	}
}
