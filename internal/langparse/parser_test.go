package langparse

import (
	"testing"

	"github.com/stretchr/testify/require"

	"coldb/internal/catalog"
	"coldb/internal/engine"
	"coldb/internal/session"
)

func TestParseBlankAndComment(t *testing.T) {
	_, err := Parse("")
	require.ErrorIs(t, err, ErrBlank)
	_, err = Parse("   ")
	require.ErrorIs(t, err, ErrBlank)
	_, err = Parse("-- a comment")
	require.ErrorIs(t, err, ErrBlank)
}

func TestParseCreateDB(t *testing.T) {
	op, err := Parse(`create(db,mydb)`)
	require.NoError(t, err)
	require.Equal(t, session.Operator{Kind: session.OpCreateDB, DB: "mydb"}, op)
}

func TestParseCreateTableAndColumn(t *testing.T) {
	op, err := Parse(`create(tbl,t,mydb,3)`)
	require.NoError(t, err)
	require.Equal(t, session.OpCreateTable, op.Kind)
	require.Equal(t, "mydb", op.DB)
	require.Equal(t, "t", op.Table)
	require.Equal(t, 3, op.ColCount)

	op, err = Parse(`create(col,a,mydb.t)`)
	require.NoError(t, err)
	require.Equal(t, session.OpCreateColumn, op.Kind)
	require.Equal(t, "mydb", op.DB)
	require.Equal(t, "t", op.Table)
	require.Equal(t, "a", op.Col)
}

func TestParseCreateIndex(t *testing.T) {
	op, err := Parse(`create(idx,mydb.t.a,btree,clustered)`)
	require.NoError(t, err)
	require.Equal(t, session.OpCreateIndex, op.Kind)
	require.Equal(t, catalog.IndexBTree, op.IndexKind)
	require.True(t, op.Clustered)
}

func TestParseInsert(t *testing.T) {
	op, err := Parse(`relational_insert(mydb.t,1,2,3)`)
	require.NoError(t, err)
	require.Equal(t, session.OpInsert, op.Kind)
	require.Equal(t, []int32{1, 2, 3}, op.Values)
}

func TestParseUpdateAndDelete(t *testing.T) {
	op, err := Parse(`relational_update(mydb.t.a,h1,42)`)
	require.NoError(t, err)
	require.Equal(t, session.OpUpdate, op.Kind)
	require.Equal(t, "h1", op.RowHandle)
	require.Equal(t, []int32{42}, op.Values)

	op, err = Parse(`relational_delete(mydb.t,h2)`)
	require.NoError(t, err)
	require.Equal(t, session.OpDelete, op.Kind)
	require.Equal(t, "h2", op.RowHandle)
}

func TestParseSelectPlainForm(t *testing.T) {
	op, err := Parse(`h=select(mydb.t.a,10,20)`)
	require.NoError(t, err)
	require.Equal(t, session.OpSelect, op.Kind)
	require.Equal(t, "h", op.Handle)
	require.Equal(t, int32(10), op.Low)
	require.Equal(t, int32(20), op.High)
}

func TestParseSelectNullBounds(t *testing.T) {
	op, err := Parse(`h=select(mydb.t.a,null,null)`)
	require.NoError(t, err)
	require.Equal(t, engine.MinValue, op.Low)
	require.Equal(t, engine.MaxValue, op.High)
}

func TestParseSelectOverPriorForm(t *testing.T) {
	op, err := Parse(`h2=select(p,v,5,9)`)
	require.NoError(t, err)
	require.Equal(t, session.OpSelectOverPrior, op.Kind)
	require.Equal(t, []string{"p", "v"}, op.Operands)
	require.Equal(t, int32(5), op.Low)
	require.Equal(t, int32(9), op.High)
}

func TestParseFetch(t *testing.T) {
	op, err := Parse(`f=fetch(mydb.t.b,h)`)
	require.NoError(t, err)
	require.Equal(t, session.OpFetch, op.Kind)
	require.Equal(t, "f", op.Handle)
	require.Equal(t, []string{"h"}, op.Operands)
}

func TestParseJoin(t *testing.T) {
	op, err := Parse(`l,r=join(v1,p1,v2,p2,hash)`)
	require.NoError(t, err)
	require.Equal(t, session.OpJoin, op.Kind)
	require.Equal(t, "l", op.Handle)
	require.Equal(t, "r", op.Handle2)
	require.Equal(t, []string{"v1", "p1", "v2", "p2"}, op.Operands)
	require.Equal(t, "hash", op.JoinAlgo)
}

func TestParseAggregateAndArith(t *testing.T) {
	op, err := Parse(`s=sum(mydb.t.a)`)
	require.NoError(t, err)
	require.Equal(t, session.OpSum, op.Kind)
	require.Equal(t, []string{"mydb.t.a"}, op.Operands)

	op, err = Parse(`out=add(a,b)`)
	require.NoError(t, err)
	require.Equal(t, session.OpAdd, op.Kind)
	require.Equal(t, []string{"a", "b"}, op.Operands)
}

func TestParsePrint(t *testing.T) {
	op, err := Parse(`print(h1,h2,h3)`)
	require.NoError(t, err)
	require.Equal(t, session.OpPrint, op.Kind)
	require.Equal(t, []string{"h1", "h2", "h3"}, op.Operands)
}

func TestParseBatchAndControl(t *testing.T) {
	op, err := Parse(`batch_queries()`)
	require.NoError(t, err)
	require.Equal(t, session.OpBatchQueries, op.Kind)

	op, err = Parse(`batch_execute()`)
	require.NoError(t, err)
	require.Equal(t, session.OpBatchExecute, op.Kind)

	op, err = Parse(`finished_load()`)
	require.NoError(t, err)
	require.Equal(t, session.OpFinishedLoad, op.Kind)

	op, err = Parse(`debug_dump()`)
	require.NoError(t, err)
	require.Equal(t, session.OpDebugDump, op.Kind)

	op, err = Parse(`shutdown()`)
	require.NoError(t, err)
	require.Equal(t, session.OpShutdown, op.Kind)
}

func TestParseQuotedNameWithSpace(t *testing.T) {
	op, err := Parse(`create(db,"my db")`)
	require.NoError(t, err)
	require.Equal(t, "my db", op.DB)
}

func TestParseRejectsMalformedCall(t *testing.T) {
	_, err := Parse(`select mydb.t.a,10,20)`)
	require.Error(t, err)
}

func TestParseRejectsBadInteger(t *testing.T) {
	_, err := Parse(`relational_insert(mydb.t,abc)`)
	require.Error(t, err)
}
