// Command coldbd is the coldb server: it accepts TCP connections, frames
// requests/replies with internal/wire, and dispatches parsed commands
// through one internal/session.Session per connection.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"

	"github.com/jessevdk/go-flags"

	"coldb/internal/catalog"
	"coldb/internal/coldblog"
	"coldb/internal/config"
	"coldb/internal/langparse"
	"coldb/internal/session"
	"coldb/internal/wire"
)

func parseOptions(args []string) config.Config {
	var opts struct {
		Config   string `long:"config" description:"YAML file with listen address, data dir, and scan tunables" value-name:"config_file"`
		Listen   string `long:"listen" description:"Address to listen on" value-name:"host:port"`
		DataDir  string `long:"data-dir" description:"Directory snapshots are loaded from and saved to" value-name:"dir"`
		PageSize int    `long:"page-size" description:"Byte size new B+tree index nodes are sized for" value-name:"bytes"`
		Help     bool   `long:"help" description:"Show this help"`
	}

	parser := flags.NewParser(&opts, flags.None)
	parser.Usage = "[options]"
	if _, err := parser.ParseArgs(args); err != nil {
		log.Fatal(err)
	}
	if opts.Help {
		parser.WriteHelp(os.Stdout)
		os.Exit(0)
	}

	cfg := config.Default()
	if opts.Config != "" {
		loaded, err := config.Load(opts.Config)
		if err != nil {
			log.Fatal(err)
		}
		cfg = loaded
	}
	if opts.Listen != "" {
		cfg.Listen = opts.Listen
	}
	if opts.DataDir != "" {
		cfg.DataDir = opts.DataDir
	}
	if opts.PageSize != 0 {
		cfg.PageSize = opts.PageSize
	}
	return cfg
}

func main() {
	coldblog.Init()
	cfg := parseOptions(os.Args[1:])

	cat := catalog.New()
	cat.PageSize = cfg.PageSize
	listener, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		log.Fatal(err)
	}
	slog.Info("coldbd listening", "addr", cfg.Listen, "data_dir", cfg.DataDir)

	ctx, cancel := context.WithCancel(context.Background())
	// shutdown both cancels ctx (so the Accept loop below treats the error
	// from the closed listener as shutdown instead of logging it, and
	// connections stop logging read errors) and closes listener, which is
	// what actually unblocks that Accept loop.
	shutdown := func() {
		cancel()
		listener.Close()
	}

	var wg sync.WaitGroup
	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				wg.Wait()
				return
			default:
				slog.Error("accept failed", "err", err)
				continue
			}
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			serveConn(ctx, conn, cat, cfg, shutdown)
		}()
	}
}

// serveConn runs one client's request/reply loop until the connection
// closes or the client sends shutdown, which persists every database and
// tells main's accept loop to stop.
func serveConn(ctx context.Context, conn net.Conn, cat *catalog.Catalog, cfg config.Config, shutdown func()) {
	defer conn.Close()
	sess := session.New(cat)
	sess.ScanOptions = cfg.ScanOptions()
	slog.Info("connection accepted", "session", sess.ID)
	r := bufio.NewReader(conn)

	for {
		msg, err := wire.ReadMessage(r)
		if err != nil {
			if ctx.Err() == nil {
				slog.Debug("connection closed", "session", sess.ID, "err", err)
			}
			return
		}

		line := wire.DecodeText(msg.Payload)
		op, err := langparse.Parse(line)
		if err != nil {
			if err == langparse.ErrBlank {
				continue
			}
			writeReply(conn, session.Reply{Status: session.StatusIncorrectFormat, Message: err.Error()})
			continue
		}

		reply := sess.Execute(op)
		writeReply(conn, reply)

		if op.Kind == session.OpShutdown {
			persistAll(cat, cfg.DataDir)
			shutdown()
			return
		}
	}
}

func writeReply(conn net.Conn, reply session.Reply) {
	var payload []byte
	pt := wire.PayloadText
	if len(reply.Lines) > 0 {
		payload = wire.EncodeText(joinLines(reply.Lines))
	} else {
		payload = wire.EncodeText(reply.Message)
	}
	if err := wire.WriteMessage(conn, reply.Status, pt, payload); err != nil {
		slog.Error("write reply failed", "err", err)
	}
}

func joinLines(lines []string) string {
	out := ""
	for i, l := range lines {
		if i > 0 {
			out += "\n"
		}
		out += l
	}
	return out
}

func persistAll(cat *catalog.Catalog, dataDir string) {
	for _, db := range cat.AllDatabases() {
		path := filepath.Join(dataDir, fmt.Sprintf("%s.bin", db.Name))
		if err := catalog.PersistDatabase(db, path); err != nil {
			slog.Error("snapshot failed", "database", db.Name, "err", err)
		}
	}
}
