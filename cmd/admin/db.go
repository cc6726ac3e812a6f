package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"crowdfield.ai/internal/persistence/indexdb"
)

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	runID := fs.String("run", "", "run id (required for summary/arrivals/snapshot)")
	tick := fs.Uint64("tick", 0, "snapshot tick (snapshot query; 0 = latest)")
	_ = fs.Parse(args)

	q := "runs"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		path = filepath.Join(*dataDir, "index", "runs.sqlite")
	}
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}

	idx, err := indexdb.OpenSQLite(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer idx.Close()

	out, err := queryIndex(idx, q, *runID, *tick)
	if err != nil {
		fmt.Fprintln(os.Stderr, "query:", err)
		os.Exit(1)
	}
	printJSON(out)
}

type snapshotRef struct {
	Path string `json:"path"`
	Tick uint64 `json:"tick"`
}

func queryIndex(idx *indexdb.SQLiteIndex, q, runID string, tick uint64) (any, error) {
	if q != "runs" && runID == "" {
		return nil, fmt.Errorf("%s needs -run", q)
	}
	switch q {
	case "runs":
		return idx.Runs()
	case "summary":
		return idx.Summary(runID)
	case "arrivals":
		return idx.Arrivals(runID)
	case "snapshot":
		if tick == 0 {
			tick = ^uint64(0) >> 1
		}
		path, at, err := idx.SnapshotAt(runID, tick)
		if err != nil {
			return nil, err
		}
		return snapshotRef{Path: path, Tick: at}, nil
	default:
		return nil, fmt.Errorf("unknown query %q (want runs|summary|arrivals|snapshot)", q)
	}
}

func printJSON(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stderr, "json:", err)
		os.Exit(1)
	}
	fmt.Println(string(b))
}
