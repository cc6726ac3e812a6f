package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"crowdfield.ai/internal/persistence/snapshot"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "db":
			dbCmd(os.Args[2:])
			return
		case "state":
			stateCmd(os.Args[2:])
			return
		case "inspect":
			inspectCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	_ = fs.Parse(args)

	runs, err := listRuns(*dataDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, r := range runs {
		fmt.Printf("%s\tsnapshots=%d\n", r.ID, r.Snapshots)
	}
}

type runDir struct {
	ID        string
	Snapshots int
}

func listRuns(dataDir string) ([]runDir, error) {
	entries, err := os.ReadDir(filepath.Join(dataDir, "runs"))
	if err != nil {
		return nil, err
	}
	out := make([]runDir, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		snaps, _ := filepath.Glob(filepath.Join(dataDir, "runs", e.Name(), "snapshots", "*.snap.zst"))
		out = append(out, runDir{ID: e.Name(), Snapshots: len(snaps)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type snapshotInfo struct {
	RunID     string  `json:"run_id"`
	Scenario  string  `json:"scenario"`
	Tick      uint64  `json:"tick"`
	Agents    int     `json:"agents"`
	Finished  int     `json:"finished"`
	Obstacles int     `json:"obstacles"`
	GridSize  float64 `json:"grid_size"`
	Comfort   bool    `json:"comfort"`
}

func inspectCmd(args []string) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	snapPath := fs.String("snapshot", "", "snapshot path (required)")
	_ = fs.Parse(args)
	if *snapPath == "" {
		fmt.Fprintln(os.Stderr, "missing -snapshot")
		os.Exit(2)
	}
	info, err := inspectSnapshot(*snapPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read snapshot:", err)
		os.Exit(1)
	}
	printJSON(info)
}

func inspectSnapshot(path string) (snapshotInfo, error) {
	snap, err := snapshot.ReadSnapshot(path)
	if err != nil {
		return snapshotInfo{}, err
	}
	info := snapshotInfo{
		RunID:     snap.Header.RunID,
		Scenario:  snap.Header.Scenario,
		Tick:      snap.Header.Tick,
		Agents:    len(snap.Agents),
		Obstacles: len(snap.Obstacles),
		GridSize:  snap.Tuning.GridSize,
		Comfort:   len(snap.Comfort) > 0,
	}
	for _, a := range snap.Agents {
		if a.Finished {
			info.Finished++
		}
	}
	return info, nil
}
