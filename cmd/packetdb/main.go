// Command packetdb is the process entry point for the query core: it
// loads the process-wide config from PACKETDB_CONFIG and exposes the
// two operations §6 names as the core's Query API -- run(query_text) and
// create_index() -- as CLI subcommands. The HTTPS API and live capture
// this core serves are out of scope (§1) and live outside this binary.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/negbie/logp"

	"github.com/jpdube/packetdb/internal/config"
	"github.com/jpdube/packetdb/internal/index"
	"github.com/jpdube/packetdb/internal/planq"
)

func main() {
	logp.Info("packetdb starting")
	cfg := config.Get()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "query":
		runQuery(cfg, strings.Join(os.Args[2:], " "))
	case "create-index":
		createIndex(cfg)
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: packetdb query <pql text> | packetdb create-index")
}

// runQuery implements §6's run(query_text) -> ResultCursor | ErrorList.
func runQuery(cfg *config.Config, queryText string) {
	p := planq.NewPlanner(cfg)
	res, err := p.Run(queryText)
	if err != nil {
		logp.Err("query failed: %v", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	for _, t := range res.Timings {
		logp.Debug("plan", "%s: %s", t.Description, t.Delta)
	}
	out, err := json.MarshalIndent(res.Cursor, "", "  ")
	if err != nil {
		logp.Err("marshal result: %v", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}

// createIndex implements §6's create_index(): rebuild indexes over every
// capture file present in db_path.
func createIndex(cfg *config.Config) {
	b := index.NewBuilder(cfg)
	if err := b.BuildAll(); err != nil {
		logp.Err("create-index failed: %v", err)
		os.Exit(1)
	}
	logp.Info("create-index complete")
}
