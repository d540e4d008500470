// Package langparse parses coldb's line-oriented query language (§6.1)
// into session.Operator values, one call per non-blank, non-comment line.
package langparse

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kballard/go-shellquote"

	"coldb/internal/catalog"
	"coldb/internal/engine"
	"coldb/internal/session"
)

// ErrBlank is returned by Parse for an empty or comment (`--`) line; the
// caller should simply skip to the next line without dispatching anything.
var ErrBlank = fmt.Errorf("blank or comment line")

// Parse turns one query-language line into an Operator (§6.1). Arity and
// shape errors are returned as plain errors; the caller (the server/CLI
// loop) is expected to report them as incorrect_format to the client.
func Parse(line string) (session.Operator, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "--") {
		return session.Operator{}, ErrBlank
	}

	handleSpec, rest := splitAssignment(line)
	name, args, err := splitCall(rest)
	if err != nil {
		return session.Operator{}, err
	}

	var handles []string
	if handleSpec != "" {
		handles = strings.Split(handleSpec, ",")
	}
	handle := func(i int) string {
		if i < len(handles) {
			return strings.TrimSpace(handles[i])
		}
		return ""
	}

	switch name {
	case "create":
		return parseCreate(args)
	case "relational_insert":
		return parseInsert(args)
	case "relational_update":
		return parseUpdate(args)
	case "relational_delete":
		return parseDelete(args)
	case "select":
		return parseSelect(handle(0), args)
	case "fetch":
		return parseFetch(handle(0), args)
	case "join":
		return parseJoin(handle(0), handle(1), args)
	case "sum":
		return parseAggregate(session.OpSum, handle(0), args)
	case "avg":
		return parseAggregate(session.OpAvg, handle(0), args)
	case "min":
		return parseAggregate(session.OpMin, handle(0), args)
	case "max":
		return parseAggregate(session.OpMax, handle(0), args)
	case "add":
		return parseArith(session.OpAdd, handle(0), args)
	case "sub":
		return parseArith(session.OpSub, handle(0), args)
	case "print":
		if len(args) == 0 {
			return session.Operator{}, fmt.Errorf("print expects at least one handle")
		}
		return session.Operator{Kind: session.OpPrint, Operands: args}, nil
	case "batch_queries":
		return session.Operator{Kind: session.OpBatchQueries}, nil
	case "batch_execute":
		return session.Operator{Kind: session.OpBatchExecute}, nil
	case "finished_load":
		return session.Operator{Kind: session.OpFinishedLoad}, nil
	case "debug_dump":
		return session.Operator{Kind: session.OpDebugDump}, nil
	case "shutdown":
		return session.Operator{Kind: session.OpShutdown}, nil
	default:
		return session.Operator{}, fmt.Errorf("unknown command %q", name)
	}
}

// splitAssignment splits "h=select(...)" or "l,r=join(...)" into the
// handle spec and the remaining call; a line with no '=' before the first
// '(' has no assignment.
func splitAssignment(line string) (handleSpec, rest string) {
	parenIdx := strings.Index(line, "(")
	eqIdx := strings.Index(line, "=")
	if eqIdx == -1 || (parenIdx != -1 && eqIdx > parenIdx) {
		return "", line
	}
	return strings.TrimSpace(line[:eqIdx]), strings.TrimSpace(line[eqIdx+1:])
}

// splitCall splits "name(a,b,c)" into its command name and raw argument
// tokens, honoring double-quoted names that may themselves contain a
// comma-adjacent character sequence (e.g. create(db,"my db")). Each raw
// token is then run through shellquote.Split to strip quoting the same
// way a shell would, rather than a hand-rolled quote scanner.
func splitCall(call string) (name string, args []string, err error) {
	open := strings.Index(call, "(")
	if open == -1 || !strings.HasSuffix(call, ")") {
		return "", nil, fmt.Errorf("incorrect_format: malformed command %q", call)
	}
	name = strings.TrimSpace(call[:open])
	inner := call[open+1 : len(call)-1]
	if strings.TrimSpace(inner) == "" {
		return name, nil, nil
	}

	rawTokens := splitTopLevelCommas(inner)
	args = make([]string, len(rawTokens))
	for i, tok := range rawTokens {
		tok = strings.TrimSpace(tok)
		if strings.HasPrefix(tok, `"`) {
			unquoted, err := shellquote.Split(tok)
			if err != nil || len(unquoted) != 1 {
				return "", nil, fmt.Errorf("incorrect_format: bad quoted argument %q", tok)
			}
			args[i] = unquoted[0]
			continue
		}
		args[i] = tok
	}
	return name, args, nil
}

func splitTopLevelCommas(s string) []string {
	var out []string
	inQuotes := false
	start := 0
	for i, r := range s {
		switch r {
		case '"':
			inQuotes = !inQuotes
		case ',':
			if !inQuotes {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	out = append(out, s[start:])
	return out
}

func splitRef2(ref string) (a, b string, err error) {
	parts := strings.SplitN(ref, ".", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("incorrect_format: expected db.table, got %q", ref)
	}
	return parts[0], parts[1], nil
}

func splitRef3(ref string) (a, b, c string, err error) {
	parts := strings.SplitN(ref, ".", 3)
	if len(parts) != 3 {
		return "", "", "", fmt.Errorf("incorrect_format: expected db.table.col, got %q", ref)
	}
	return parts[0], parts[1], parts[2], nil
}

func parseInt32(tok string) (int32, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(tok), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("incorrect_format: %q is not an integer", tok)
	}
	return int32(v), nil
}

// parseBound parses a select bound, mapping the literal token "null" to
// ±∞ per §4.5; which sentinel depends on whether this is the low or high
// bound.
func parseBound(tok string, isLow bool) (int32, error) {
	if strings.TrimSpace(tok) == "null" {
		if isLow {
			return engine.MinValue, nil
		}
		return engine.MaxValue, nil
	}
	return parseInt32(tok)
}

func parseCreate(args []string) (session.Operator, error) {
	if len(args) == 0 {
		return session.Operator{}, fmt.Errorf("incorrect_format: create expects at least one argument")
	}
	switch args[0] {
	case "db":
		if len(args) != 2 {
			return session.Operator{}, fmt.Errorf("incorrect_format: create(db,name) expects 2 arguments")
		}
		return session.Operator{Kind: session.OpCreateDB, DB: args[1]}, nil
	case "tbl":
		if len(args) != 4 {
			return session.Operator{}, fmt.Errorf("incorrect_format: create(tbl,name,db,cols) expects 4 arguments")
		}
		cols, err := strconv.Atoi(strings.TrimSpace(args[3]))
		if err != nil {
			return session.Operator{}, fmt.Errorf("incorrect_format: bad column count %q", args[3])
		}
		return session.Operator{Kind: session.OpCreateTable, DB: args[2], Table: args[1], ColCount: cols}, nil
	case "col":
		if len(args) != 3 {
			return session.Operator{}, fmt.Errorf("incorrect_format: create(col,name,db.tbl) expects 3 arguments")
		}
		db, tbl, err := splitRef2(args[2])
		if err != nil {
			return session.Operator{}, err
		}
		return session.Operator{Kind: session.OpCreateColumn, DB: db, Table: tbl, Col: args[1]}, nil
	case "idx":
		if len(args) != 4 {
			return session.Operator{}, fmt.Errorf("incorrect_format: create(idx,db.tbl.col,kind,clustered) expects 4 arguments")
		}
		db, tbl, col, err := splitRef3(args[1])
		if err != nil {
			return session.Operator{}, err
		}
		var kind catalog.IndexKind
		switch args[2] {
		case "sorted":
			kind = catalog.IndexSorted
		case "btree":
			kind = catalog.IndexBTree
		default:
			return session.Operator{}, fmt.Errorf("incorrect_format: unknown index kind %q", args[2])
		}
		var clustered bool
		switch args[3] {
		case "clustered":
			clustered = true
		case "unclustered":
			clustered = false
		default:
			return session.Operator{}, fmt.Errorf("incorrect_format: unknown clustering %q", args[3])
		}
		return session.Operator{Kind: session.OpCreateIndex, DB: db, Table: tbl, Col: col, IndexKind: kind, Clustered: clustered}, nil
	default:
		return session.Operator{}, fmt.Errorf("incorrect_format: unknown create target %q", args[0])
	}
}

func parseInsert(args []string) (session.Operator, error) {
	if len(args) < 1 {
		return session.Operator{}, fmt.Errorf("incorrect_format: relational_insert expects a table reference")
	}
	db, tbl, err := splitRef2(args[0])
	if err != nil {
		return session.Operator{}, err
	}
	values := make([]int32, len(args)-1)
	for i, tok := range args[1:] {
		v, err := parseInt32(tok)
		if err != nil {
			return session.Operator{}, err
		}
		values[i] = v
	}
	return session.Operator{Kind: session.OpInsert, DB: db, Table: tbl, Values: values}, nil
}

func parseUpdate(args []string) (session.Operator, error) {
	if len(args) != 3 {
		return session.Operator{}, fmt.Errorf("incorrect_format: relational_update expects 3 arguments")
	}
	db, tbl, col, err := splitRef3(args[0])
	if err != nil {
		return session.Operator{}, err
	}
	v, err := parseInt32(args[2])
	if err != nil {
		return session.Operator{}, err
	}
	return session.Operator{Kind: session.OpUpdate, DB: db, Table: tbl, Col: col, RowHandle: args[1], Values: []int32{v}}, nil
}

func parseDelete(args []string) (session.Operator, error) {
	if len(args) != 2 {
		return session.Operator{}, fmt.Errorf("incorrect_format: relational_delete expects 2 arguments")
	}
	db, tbl, err := splitRef2(args[0])
	if err != nil {
		return session.Operator{}, err
	}
	return session.Operator{Kind: session.OpDelete, DB: db, Table: tbl, RowHandle: args[1]}, nil
}

func parseSelect(handle string, args []string) (session.Operator, error) {
	switch len(args) {
	case 3:
		db, tbl, col, err := splitRef3(args[0])
		if err != nil {
			return session.Operator{}, err
		}
		low, err := parseBound(args[1], true)
		if err != nil {
			return session.Operator{}, err
		}
		high, err := parseBound(args[2], false)
		if err != nil {
			return session.Operator{}, err
		}
		return session.Operator{Kind: session.OpSelect, DB: db, Table: tbl, Col: col, Handle: handle, Low: low, High: high}, nil
	case 4:
		low, err := parseBound(args[2], true)
		if err != nil {
			return session.Operator{}, err
		}
		high, err := parseBound(args[3], false)
		if err != nil {
			return session.Operator{}, err
		}
		return session.Operator{Kind: session.OpSelectOverPrior, Handle: handle, Operands: []string{args[0], args[1]}, Low: low, High: high}, nil
	default:
		return session.Operator{}, fmt.Errorf("incorrect_format: select expects 3 or 4 arguments")
	}
}

func parseFetch(handle string, args []string) (session.Operator, error) {
	if len(args) != 2 {
		return session.Operator{}, fmt.Errorf("incorrect_format: fetch expects 2 arguments")
	}
	db, tbl, col, err := splitRef3(args[0])
	if err != nil {
		return session.Operator{}, err
	}
	return session.Operator{Kind: session.OpFetch, DB: db, Table: tbl, Col: col, Handle: handle, Operands: []string{args[1]}}, nil
}

func parseJoin(handle1, handle2 string, args []string) (session.Operator, error) {
	if len(args) != 5 {
		return session.Operator{}, fmt.Errorf("incorrect_format: join expects 5 arguments")
	}
	algo := args[4]
	if algo != "nested-loop" && algo != "hash" {
		return session.Operator{}, fmt.Errorf("execution_error: unknown join algorithm %q", algo)
	}
	return session.Operator{
		Kind:     session.OpJoin,
		Handle:   handle1,
		Handle2:  handle2,
		Operands: args[:4],
		JoinAlgo: algo,
	}, nil
}

func parseAggregate(kind session.OpKind, handle string, args []string) (session.Operator, error) {
	if len(args) != 1 {
		return session.Operator{}, fmt.Errorf("incorrect_format: aggregate expects a single argument")
	}
	return session.Operator{Kind: kind, Handle: handle, Operands: args}, nil
}

func parseArith(kind session.OpKind, handle string, args []string) (session.Operator, error) {
	if len(args) != 2 {
		return session.Operator{}, fmt.Errorf("incorrect_format: add/sub expects 2 arguments")
	}
	return session.Operator{Kind: kind, Handle: handle, Operands: args}, nil
}
