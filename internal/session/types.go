// Package session is C7: typed operators, per-session handle table, and
// the dispatcher that routes a parsed operator to the catalog/engine/scan/
// join components and turns the result into a client-facing reply.
package session

import (
	"fmt"

	"coldb/internal/catalog"
)

// OpKind tags the parsed form of one query-language line (§6.1).
type OpKind int

const (
	OpCreateDB OpKind = iota
	OpCreateTable
	OpCreateColumn
	OpCreateIndex
	OpInsert
	OpUpdate
	OpDelete
	OpSelect
	OpSelectOverPrior
	OpFetch
	OpJoin
	OpSum
	OpAvg
	OpMin
	OpMax
	OpAdd
	OpSub
	OpPrint
	OpBatchQueries
	OpBatchExecute
	OpFinishedLoad
	OpDebugDump
	OpShutdown
)

// Operator is the dispatcher's input: one parsed line, its assigned
// output handle name(s), and whichever operand fields its kind uses.
type Operator struct {
	Kind OpKind

	// Handle is the name bound by `h=...`; Handle2 is the second name for
	// join's `l,r=...` form.
	Handle, Handle2 string

	// DB/Table/Col address a catalog object for create/insert/update/
	// delete/select/fetch.
	DB, Table, Col string

	// Values carries relational_insert's row, or new-value for update.
	Values []int32

	// Low/High bound a select; already resolved from "null" to
	// engine.MinValue/MaxValue by the parser.
	Low, High int32

	// RowHandle names the handle identifying the row for update/delete
	// (spec.md's "handle" operand — a single-row position result).
	RowHandle string

	// Operands names prior-result handles an operator reads from, in
	// argument order: select's (pos_h,val_h), fetch's pos_h, join's
	// (v1,p1,v2,p2), add/sub's (a,b), print's (h1,h2,...).
	Operands []string

	IndexKind catalog.IndexKind
	Clustered bool

	JoinAlgo string // "nested-loop" or "hash"
	ColCount int    // create(tbl,...) column count
}

// Status is a reply's outcome, matching §6.4/§7's status vocabulary.
type Status int

const (
	StatusOKDone Status = iota
	StatusOKWaitForResponse
	StatusOKWaitForData
	StatusExecutionError
	StatusObjectNotFound
	StatusIncorrectFormat
	StatusUnknownCommand
	StatusIncompleteData
	StatusQueryUnsupported
	StatusTableEmpty
)

func (s Status) String() string {
	switch s {
	case StatusOKDone:
		return "ok_done"
	case StatusOKWaitForResponse:
		return "ok_wait_for_response"
	case StatusOKWaitForData:
		return "ok_wait_for_data"
	case StatusExecutionError:
		return "execution_error"
	case StatusObjectNotFound:
		return "object_not_found"
	case StatusIncorrectFormat:
		return "incorrect_format"
	case StatusUnknownCommand:
		return "unknown_command"
	case StatusIncompleteData:
		return "incomplete_data"
	case StatusQueryUnsupported:
		return "query_unsupported"
	case StatusTableEmpty:
		return "table_empty"
	default:
		return "unknown_status"
	}
}

// Reply is what the dispatcher hands back to the transport layer: a
// status, an optional message, and (for print) rendered output lines.
type Reply struct {
	Status  Status
	Message string
	Lines   []string
}

func ok(msg string) Reply { return Reply{Status: StatusOKDone, Message: msg} }

func errReply(status Status, format string, args ...any) Reply {
	return Reply{Status: status, Message: fmt.Sprintf(format, args...)}
}
