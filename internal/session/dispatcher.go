package session

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"coldb/internal/catalog"
	"coldb/internal/coldbutil"
	"coldb/internal/engine"
	"coldb/internal/join"
	"coldb/internal/scan"
)

// Execute routes one parsed operator to the catalog/engine/scan/join
// components and returns a transport-ready reply (§4.8). It never panics
// on a user-driven error; every failure path returns a Status instead.
func (s *Session) Execute(op Operator) Reply {
	// While batching, every operator runs immediately except select, which
	// is diverted to the shared-scan queue (§4.8).
	if s.batching && op.Kind == OpSelect {
		return s.enqueueSelect(op)
	}
	return s.executeImmediate(op)
}

func (s *Session) executeImmediate(op Operator) Reply {
	switch op.Kind {
	case OpCreateDB:
		if err := s.Catalog.CreateDatabase(op.DB); err != nil {
			return classify(err)
		}
		return ok(fmt.Sprintf("created database %s", op.DB))

	case OpCreateTable:
		if _, err := s.Catalog.CreateTable(op.DB, op.Table, op.ColCount); err != nil {
			return classify(err)
		}
		return ok(fmt.Sprintf("created table %s", op.Table))

	case OpCreateColumn:
		if _, err := s.Catalog.CreateColumn(op.DB, op.Table, op.Col); err != nil {
			return classify(err)
		}
		return ok(fmt.Sprintf("created column %s", op.Col))

	case OpCreateIndex:
		if err := s.Catalog.CreateIndex(op.DB, op.Table, op.Col, op.IndexKind, op.Clustered); err != nil {
			return classify(err)
		}
		return ok(fmt.Sprintf("created index on %s", op.Col))

	case OpInsert:
		return s.execInsert(op)
	case OpUpdate:
		return s.execUpdate(op)
	case OpDelete:
		return s.execDelete(op)
	case OpSelect:
		return s.execSelect(op)
	case OpSelectOverPrior:
		return s.execSelectOverPrior(op)
	case OpFetch:
		return s.execFetch(op)
	case OpJoin:
		return s.execJoin(op)
	case OpSum, OpAvg, OpMin, OpMax:
		return s.execAggregate(op)
	case OpAdd, OpSub:
		return s.execArith(op)
	case OpPrint:
		return s.execPrint(op)
	case OpBatchQueries:
		s.batching = true
		s.queued = nil
		return ok("batching started")
	case OpBatchExecute:
		return s.execBatchExecute()
	case OpFinishedLoad:
		return s.execFinishedLoad(op)
	case OpDebugDump:
		return s.execDebugDump()
	case OpShutdown:
		return ok("shutdown acknowledged")
	default:
		return errReply(StatusUnknownCommand, "unrecognized operator")
	}
}

func (s *Session) lookupTable(dbName, tableName string) (*catalog.Table, Reply, bool) {
	t, err := s.Catalog.LookupTable(dbName, tableName)
	if err != nil {
		return nil, classify(err), false
	}
	return t, Reply{}, true
}

func columnIndex(t *catalog.Table, colName string) (int, error) {
	for i, col := range t.Columns {
		if col.Name == colName {
			return i, nil
		}
	}
	return -1, fmt.Errorf("object_not_found: column %q not found in table %q", colName, t.Name)
}

func (s *Session) execInsert(op Operator) Reply {
	t, errRep, found := s.lookupTable(op.DB, op.Table)
	if !found {
		return errRep
	}
	if _, err := engine.InsertRow(t, op.Values); err != nil {
		return classify(err)
	}
	return ok("row inserted")
}

func (s *Session) singleRowFromHandle(handle string) (int, error) {
	res, found := s.handles.Get(handle)
	if !found {
		return 0, fmt.Errorf("object_not_found: handle %q not bound", handle)
	}
	positions := res.AsPositions()
	if len(positions) != 1 {
		return 0, fmt.Errorf("execution_error: handle %q does not identify a single row", handle)
	}
	return int(positions[0]), nil
}

func (s *Session) execUpdate(op Operator) Reply {
	t, errRep, found := s.lookupTable(op.DB, op.Table)
	if !found {
		return errRep
	}
	colIdx, err := columnIndex(t, op.Col)
	if err != nil {
		return classify(err)
	}
	r, err := s.singleRowFromHandle(op.RowHandle)
	if err != nil {
		return classify(err)
	}
	if len(op.Values) != 1 {
		return errReply(StatusIncompleteData, "update expects exactly one value")
	}
	if _, err := engine.UpdateRow(t, r, colIdx, op.Values[0]); err != nil {
		return classify(err)
	}
	return ok("row updated")
}

func (s *Session) execDelete(op Operator) Reply {
	t, errRep, found := s.lookupTable(op.DB, op.Table)
	if !found {
		return errRep
	}
	r, err := s.singleRowFromHandle(op.RowHandle)
	if err != nil {
		return classify(err)
	}
	if _, err := engine.DeleteRow(t, r); err != nil {
		return classify(err)
	}
	return ok("row deleted")
}

func (s *Session) execSelect(op Operator) Reply {
	t, errRep, found := s.lookupTable(op.DB, op.Table)
	if !found {
		return errRep
	}
	if t.Size == 0 {
		return errReply(StatusTableEmpty, "select on empty table %s", op.Table)
	}
	col, err := s.Catalog.LookupColumn(op.DB, op.Table, op.Col)
	if err != nil {
		return classify(err)
	}
	bv := engine.SelectRange(t, col, op.Low, op.High)
	s.handles.Set(op.Handle, Result{Kind: ResultBitvector, Bits: bv, TableSize: t.Size})
	return Reply{Status: StatusOKDone}
}

func (s *Session) execSelectOverPrior(op Operator) Reply {
	if len(op.Operands) != 2 {
		return errReply(StatusIncorrectFormat, "select over a prior result expects (pos_h,val_h)")
	}
	posRes, found := s.handles.Get(op.Operands[0])
	if !found {
		return errReply(StatusObjectNotFound, "handle %q not bound", op.Operands[0])
	}
	valRes, found := s.handles.Get(op.Operands[1])
	if !found {
		return errReply(StatusObjectNotFound, "handle %q not bound", op.Operands[1])
	}
	positions := posRes.AsPositions()
	bv := engine.SelectOverValues(posRes.TableSize, positions, valRes.Values, op.Low, op.High)
	s.handles.Set(op.Handle, Result{Kind: ResultBitvector, Bits: bv, TableSize: posRes.TableSize})
	return Reply{Status: StatusOKDone}
}

func (s *Session) execFetch(op Operator) Reply {
	t, errRep, found := s.lookupTable(op.DB, op.Table)
	if !found {
		return errRep
	}
	if t.Size == 0 {
		return errReply(StatusTableEmpty, "fetch on empty table %s", op.Table)
	}
	col, err := s.Catalog.LookupColumn(op.DB, op.Table, op.Col)
	if err != nil {
		return classify(err)
	}
	if len(op.Operands) != 1 {
		return errReply(StatusIncorrectFormat, "fetch expects a single position handle")
	}
	posRes, found := s.handles.Get(op.Operands[0])
	if !found {
		return errReply(StatusObjectNotFound, "handle %q not bound", op.Operands[0])
	}
	values := engine.FetchPositions(col, t.Size, posRes.AsPositions())
	s.handles.Set(op.Handle, Result{Kind: ResultValues, Values: values, TableSize: t.Size})
	return Reply{Status: StatusOKDone}
}

// resolveValueRef resolves one operand of sum/avg/min/max/add/sub, which
// per spec.md §4.5 may name either a prior result handle or a plain
// "db.tbl.col" column reference directly.
func (s *Session) resolveValueRef(ref string) ([]int32, error) {
	if strings.Contains(ref, ".") {
		parts := strings.SplitN(ref, ".", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("incorrect_format: bad column reference %q", ref)
		}
		t, err := s.Catalog.LookupTable(parts[0], parts[1])
		if err != nil {
			return nil, err
		}
		col, err := s.Catalog.LookupColumn(parts[0], parts[1], parts[2])
		if err != nil {
			return nil, err
		}
		return col.Data[:t.Size], nil
	}
	res, found := s.handles.Get(ref)
	if !found {
		return nil, fmt.Errorf("object_not_found: handle %q not bound", ref)
	}
	if res.Kind != ResultValues {
		return nil, fmt.Errorf("execution_error: handle %q has no value vector", ref)
	}
	return res.Values, nil
}

// resolveOperandValues resolves a handle that must already carry a fetched
// value vector, used by join's v1/v2 operands (always the output of a
// prior fetch, never a raw column, per §4.7's input contract).
func (s *Session) resolveOperandValues(name string) ([]int32, int, error) {
	res, found := s.handles.Get(name)
	if !found {
		return nil, 0, fmt.Errorf("object_not_found: handle %q not bound", name)
	}
	switch res.Kind {
	case ResultValues:
		return res.Values, res.TableSize, nil
	case ResultBitvector:
		return nil, 0, fmt.Errorf("execution_error: handle %q is a position result, not values", name)
	default:
		return nil, 0, fmt.Errorf("execution_error: handle %q has no value vector", name)
	}
}

func (s *Session) execJoin(op Operator) Reply {
	if len(op.Operands) != 4 {
		return errReply(StatusIncorrectFormat, "join expects (v1,p1,v2,p2)")
	}
	leftValues, _, err := s.resolveOperandValues(op.Operands[0])
	if err != nil {
		return classify(err)
	}
	leftPosRes, found := s.handles.Get(op.Operands[1])
	if !found {
		return errReply(StatusObjectNotFound, "handle %q not bound", op.Operands[1])
	}
	rightValues, _, err := s.resolveOperandValues(op.Operands[2])
	if err != nil {
		return classify(err)
	}
	rightPosRes, found := s.handles.Get(op.Operands[3])
	if !found {
		return errReply(StatusObjectNotFound, "handle %q not bound", op.Operands[3])
	}

	leftPositions := leftPosRes.AsPositions()
	rightPositions := rightPosRes.AsPositions()

	var leftOut, rightOut []int32
	switch op.JoinAlgo {
	case "nested-loop":
		leftOut, rightOut = join.NestedLoopJoin(leftValues, leftPositions, rightValues, rightPositions)
	case "hash":
		leftOut, rightOut = join.HashJoin(leftValues, leftPositions, rightValues, rightPositions)
	default:
		return errReply(StatusExecutionError, "unknown join algorithm %q", op.JoinAlgo)
	}

	s.handles.Set(op.Handle, Result{Kind: ResultPositions, Positions: leftOut})
	s.handles.Set(op.Handle2, Result{Kind: ResultPositions, Positions: rightOut})
	return Reply{Status: StatusOKDone}
}

func (s *Session) execAggregate(op Operator) Reply {
	if len(op.Operands) != 1 {
		return errReply(StatusIncorrectFormat, "aggregate expects a single operand")
	}
	values, err := s.resolveValueRef(op.Operands[0])
	if err != nil {
		return classify(err)
	}
	switch op.Kind {
	case OpSum:
		s.handles.Set(op.Handle, Result{Kind: ResultInt64, Int64: engine.Sum(values)})
	case OpAvg:
		avg, okRes := engine.Avg(values)
		if !okRes {
			s.handles.Set(op.Handle, Result{Kind: ResultValues, Values: nil})
		} else {
			s.handles.Set(op.Handle, Result{Kind: ResultFloat64, Float64: avg})
		}
	case OpMin:
		m, okRes := engine.Min(values)
		if !okRes {
			s.handles.Set(op.Handle, Result{Kind: ResultValues, Values: nil})
		} else {
			s.handles.Set(op.Handle, Result{Kind: ResultValues, Values: []int32{m}})
		}
	case OpMax:
		m, okRes := engine.Max(values)
		if !okRes {
			s.handles.Set(op.Handle, Result{Kind: ResultValues, Values: nil})
		} else {
			s.handles.Set(op.Handle, Result{Kind: ResultValues, Values: []int32{m}})
		}
	}
	return Reply{Status: StatusOKDone}
}

func (s *Session) execArith(op Operator) Reply {
	if len(op.Operands) != 2 {
		return errReply(StatusIncorrectFormat, "add/sub expects two operands")
	}
	a, err := s.resolveValueRef(op.Operands[0])
	if err != nil {
		return classify(err)
	}
	b, err := s.resolveValueRef(op.Operands[1])
	if err != nil {
		return classify(err)
	}
	if len(a) != len(b) {
		return errReply(StatusIncompleteData, "add/sub operands have different lengths (%d vs %d)", len(a), len(b))
	}
	var out []int32
	if op.Kind == OpAdd {
		out = engine.Add(a, b)
	} else {
		out = engine.Sub(a, b)
	}
	s.handles.Set(op.Handle, Result{Kind: ResultValues, Values: out})
	return Reply{Status: StatusOKDone}
}

func (s *Session) execPrint(op Operator) Reply {
	if len(op.Operands) == 0 {
		return errReply(StatusIncorrectFormat, "print expects at least one handle")
	}
	columns := make([][]string, len(op.Operands))
	rows := 0
	for i, name := range op.Operands {
		res, found := s.handles.Get(name)
		if !found {
			return errReply(StatusObjectNotFound, "handle %q not bound", name)
		}
		col := renderResult(res)
		columns[i] = col
		if len(col) > rows {
			rows = len(col)
		}
	}
	lines := make([]string, 0, rows)
	for r := 0; r < rows; r++ {
		fields := make([]string, len(columns))
		for c, col := range columns {
			if r < len(col) {
				fields[c] = col[r]
			}
		}
		lines = append(lines, strings.Join(fields, ","))
	}
	return Reply{Status: StatusOKDone, Lines: lines}
}

func formatInt32(v int32) string { return strconv.FormatInt(int64(v), 10) }

func renderResult(res Result) []string {
	switch res.Kind {
	case ResultInt64:
		return []string{strconv.FormatInt(res.Int64, 10)}
	case ResultFloat64:
		return []string{strconv.FormatFloat(res.Float64, 'f', 2, 64)}
	case ResultValues:
		return coldbutil.TransformSlice(res.Values, formatInt32)
	case ResultPositions:
		return coldbutil.TransformSlice(res.Positions, formatInt32)
	case ResultBitvector:
		return coldbutil.TransformSlice(res.Bits.Positions(), formatInt32)
	default:
		return nil
	}
}

func (s *Session) enqueueSelect(op Operator) Reply {
	s.queued = append(s.queued, pendingSelect{
		handle:    op.Handle,
		dbName:    op.DB,
		tableName: op.Table,
		colName:   op.Col,
		low:       op.Low,
		high:      op.High,
	})
	return Reply{Status: StatusOKWaitForResponse}
}

func (s *Session) execBatchExecute() Reply {
	defer func() {
		s.batching = false
		s.queued = nil
	}()
	if len(s.queued) == 0 {
		return ok("batch executed (empty)")
	}

	refs := make([]string, len(s.queued))
	for i, p := range s.queued {
		refs[i] = p.dbName + "." + p.tableName + "." + p.colName
	}
	if err := scan.ValidateSameColumn(refs); err != nil {
		return classify(err)
	}

	first := s.queued[0]
	t, err := s.Catalog.LookupTable(first.dbName, first.tableName)
	if err != nil {
		return classify(err)
	}
	col, err := s.Catalog.LookupColumn(first.dbName, first.tableName, first.colName)
	if err != nil {
		return classify(err)
	}

	predicates := make([]scan.Predicate, len(s.queued))
	for i, p := range s.queued {
		predicates[i] = scan.Predicate{Low: p.low, High: p.high}
	}

	results, err := scan.Run(context.Background(), col.Data[:t.Size], predicates, s.ScanOptions)
	if err != nil {
		return errReply(StatusExecutionError, "shared scan failed: %v", err)
	}
	for i, p := range s.queued {
		s.handles.Set(p.handle, Result{Kind: ResultBitvector, Bits: results[i], TableSize: t.Size})
	}
	return ok("batch executed")
}

func (s *Session) execFinishedLoad(op Operator) Reply {
	db, err := s.Catalog.Active()
	if err != nil {
		return classify(err)
	}
	for _, t := range db.Tables {
		if t.BulkLoading {
			engine.FinishBulkLoad(t)
		}
	}
	return ok("bulk load finished")
}

// execDebugDump renders every database's table/column/index shape as one
// line per column, tab-separated (db\ttable\tcolumn\tindex\tclustered\tsize)
// so the CLI's debug dump command can parse it back into a struct and
// pp.Println it instead of just echoing raw text.
func (s *Session) execDebugDump() Reply {
	var lines []string
	for _, db := range s.Catalog.AllDatabases() {
		for _, t := range db.Tables {
			for _, col := range t.Columns {
				lines = append(lines, fmt.Sprintf("%s\t%s\t%s\t%s\t%t\t%d",
					db.Name, t.Name, col.Name, col.IndexKind, col.Clustered, t.Size))
			}
		}
	}
	return Reply{Status: StatusOKDone, Lines: lines}
}

// classify maps a component error (always prefixed "status_name: detail"
// by convention in catalog/engine) onto a Reply; unprefixed errors default
// to execution_error.
func classify(err error) Reply {
	msg := err.Error()
	for prefix, status := range errorPrefixes {
		if strings.HasPrefix(msg, prefix) {
			return Reply{Status: status, Message: strings.TrimPrefix(msg, prefix)}
		}
	}
	return Reply{Status: StatusExecutionError, Message: msg}
}

var errorPrefixes = map[string]Status{
	"incomplete_data: ":   StatusIncompleteData,
	"object_not_found: ":  StatusObjectNotFound,
	"execution_error: ":   StatusExecutionError,
	"query_unsupported: ": StatusQueryUnsupported,
	"incorrect_format: ":  StatusIncorrectFormat,
	"table_empty: ":       StatusTableEmpty,
}
