// Command coldb-cli is the coldb client: an interactive REPL over a
// coldbd TCP connection, plus a `load("file")` meta-command implementing
// §6.2's client-driven bulk-load convention.
package main

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/jessevdk/go-flags"
	"github.com/k0kubun/pp/v3"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"golang.org/x/term"

	"coldb/internal/session"
	"coldb/internal/wire"
)

type options struct {
	Host  string `short:"h" long:"host" description:"coldbd host" value-name:"host" default:"127.0.0.1"`
	Port  uint   `short:"P" long:"port" description:"coldbd port" value-name:"port" default:"5433"`
	Debug bool   `long:"debug" description:"Enable the \\dump admin command, which fetches and pretty-prints the server's catalog tree"`
	Help  bool   `long:"help" description:"Show this help"`
}

func parseOptions(args []string) options {
	var opts options
	parser := flags.NewParser(&opts, flags.None)
	parser.Usage = "[options]"
	if _, err := parser.ParseArgs(args); err != nil {
		log.Fatal(err)
	}
	if opts.Help {
		parser.WriteHelp(os.Stdout)
		os.Exit(0)
	}
	return opts
}

func main() {
	opts := parseOptions(os.Args[1:])
	addr := net.JoinHostPort(opts.Host, strconv.Itoa(int(opts.Port)))
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	out := colorable.NewColorableStdout()
	interactive := isatty.IsTerminal(os.Stdin.Fd())

	repl(conn, os.Stdin, out, interactive, opts.Debug)
}

func repl(conn net.Conn, in *os.File, out io.Writer, interactive, debug bool) {
	scanner := bufio.NewScanner(in)
	reader := bufio.NewReader(conn)

	if interactive {
		fmt.Fprint(out, "coldb> ")
	}
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
		case line == "\\dump":
			if !debug {
				fmt.Fprintln(out, "\\dump requires coldb-cli to be started with --debug")
				break
			}
			if err := runDebugDump(conn, reader); err != nil {
				fmt.Fprintf(out, "dump failed: %v\n", err)
			}
		case strings.HasPrefix(line, "load("):
			if err := runBulkLoad(conn, reader, line); err != nil {
				fmt.Fprintf(out, "load failed: %v\n", err)
			}
		case line == "shutdown()":
			if interactive && !confirmShutdown(in) {
				fmt.Fprintln(out, "shutdown cancelled")
				break
			}
			if err := sendLine(conn, reader, out, line); err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
		default:
			if err := sendLine(conn, reader, out, line); err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
		}
		if interactive {
			fmt.Fprint(out, "coldb> ")
		}
	}
}

func sendLine(conn net.Conn, reader *bufio.Reader, out io.Writer, line string) error {
	if err := wire.WriteMessage(conn, session.StatusOKDone, wire.PayloadText, wire.EncodeText(line)); err != nil {
		return err
	}
	msg, err := wire.ReadMessage(reader)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s: %s\n", msg.Header.Status, wire.DecodeText(msg.Payload))
	return nil
}

// dumpColumn is one row of the server's debug_dump() reply.
type dumpColumn struct {
	Name      string
	Index     string
	Clustered bool
}

// dumpTable groups dumpColumns under their owning table.
type dumpTable struct {
	Name    string
	Size    int
	Columns []dumpColumn
}

// dumpDatabase groups dumpTables under their owning database.
type dumpDatabase struct {
	Name   string
	Tables []dumpTable
}

// runDebugDump sends the admin-only debug_dump() command, parses the
// tab-separated db/table/column reply back into a tree, and pp.Println's
// it so an operator gets a readable view of the live catalog shape
// instead of the raw wire text.
func runDebugDump(conn net.Conn, reader *bufio.Reader) error {
	if err := wire.WriteMessage(conn, session.StatusOKDone, wire.PayloadText, wire.EncodeText("debug_dump()")); err != nil {
		return err
	}
	msg, err := wire.ReadMessage(reader)
	if err != nil {
		return err
	}
	payload := wire.DecodeText(msg.Payload)
	if msg.Header.Status != session.StatusOKDone {
		return fmt.Errorf("%s: %s", msg.Header.Status, payload)
	}

	var dbs []dumpDatabase
	byName := map[string]int{}
	tblByName := map[string]int{}
	for _, line := range strings.Split(payload, "\n") {
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 6 {
			continue
		}
		dbName, tblName, colName, index, clustered := fields[0], fields[1], fields[2], fields[3], fields[4] == "true"
		size, _ := strconv.Atoi(fields[5])

		dbKey := dbName
		dbi, ok := byName[dbKey]
		if !ok {
			dbi = len(dbs)
			dbs = append(dbs, dumpDatabase{Name: dbName})
			byName[dbKey] = dbi
		}
		tblKey := dbName + "." + tblName
		ti, ok := tblByName[tblKey]
		if !ok {
			ti = len(dbs[dbi].Tables)
			dbs[dbi].Tables = append(dbs[dbi].Tables, dumpTable{Name: tblName, Size: size})
			tblByName[tblKey] = ti
		}
		dbs[dbi].Tables[ti].Columns = append(dbs[dbi].Tables[ti].Columns, dumpColumn{
			Name: colName, Index: index, Clustered: clustered,
		})
	}

	pp.Println(dbs)
	return nil
}

// runBulkLoad implements §6.2's client-driven protocol: parse
// `load("file")`, read the header line for the db.tbl target, then issue
// one relational_insert per data row followed by finished_load.
func runBulkLoad(conn net.Conn, reader *bufio.Reader, command string) error {
	start := strings.IndexByte(command, '"')
	end := strings.LastIndexByte(command, '"')
	if start == -1 || end == -1 || end <= start {
		return fmt.Errorf("malformed load() command %q", command)
	}
	filename := command[start+1 : end]

	f, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	fileScanner := bufio.NewScanner(f)
	if !fileScanner.Scan() {
		return fmt.Errorf("empty load file %s", filename)
	}
	header := strings.Split(fileScanner.Text(), ",")
	if len(header) == 0 {
		return fmt.Errorf("missing header in %s", filename)
	}
	dbTable, err := dbTablePrefix(header[0])
	if err != nil {
		return err
	}

	rows := 0
	for fileScanner.Scan() {
		row := strings.TrimSpace(fileScanner.Text())
		if row == "" {
			continue
		}
		insertLine := fmt.Sprintf("relational_insert(%s,%s)", dbTable, row)
		if err := wire.WriteMessage(conn, session.StatusOKDone, wire.PayloadText, wire.EncodeText(insertLine)); err != nil {
			return err
		}
		if _, err := wire.ReadMessage(reader); err != nil {
			return err
		}
		rows++
	}

	if err := wire.WriteMessage(conn, session.StatusOKDone, wire.PayloadText, wire.EncodeText("finished_load()")); err != nil {
		return err
	}
	if _, err := wire.ReadMessage(reader); err != nil {
		return err
	}
	fmt.Printf("loaded %d rows into %s\n", rows, dbTable)
	return nil
}

// dbTablePrefix takes the first header column ("db.tbl.col") and keeps
// only the "db.tbl" prefix, per §6.2's header rule.
func dbTablePrefix(firstCol string) (string, error) {
	parts := strings.SplitN(strings.TrimSpace(firstCol), ".", 3)
	if len(parts) < 2 {
		return "", fmt.Errorf("bad header column %q, expected db.tbl.col", firstCol)
	}
	return parts[0] + "." + parts[1], nil
}

// confirmShutdown puts stdin into raw mode just long enough to read a
// single keypress, so an operator can confirm shutting down the server
// without needing to press Enter afterward.
func confirmShutdown(in *os.File) bool {
	fd := int(in.Fd())
	fmt.Print("shut down coldbd? [y/N] ")
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		// not a real terminal (e.g. piped stdin in a test harness): the
		// shutdown is treated as not confirmed.
		fmt.Println()
		return false
	}
	defer term.Restore(fd, oldState)

	buf := make([]byte, 1)
	if _, err := in.Read(buf); err != nil {
		return false
	}
	fmt.Println()
	return buf[0] == 'y' || buf[0] == 'Y'
}
