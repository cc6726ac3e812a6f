package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"crowdfield.ai/internal/persistence/archive"
	"crowdfield.ai/internal/persistence/indexdb"
	persistlog "crowdfield.ai/internal/persistence/log"
	"crowdfield.ai/internal/persistence/snapshot"
	"crowdfield.ai/internal/sim/scenario"
	"crowdfield.ai/internal/sim/tuning"
	"crowdfield.ai/internal/sim/world"
)

func main() {
	var (
		addr         = flag.String("addr", "127.0.0.1:8080", "http listen address")
		scenarioRef  = flag.String("scenario", "crossing", "built-in scenario name or path to a scenario yaml")
		tuningPath   = flag.String("tuning", "./configs/tuning.yaml", "path to tuning.yaml (missing file: defaults)")
		dataDir      = flag.String("data", "./data", "runtime data directory")
		runID        = flag.String("run", "", "run id (default: random uuid, or the snapshot's run id)")
		disableDB    = flag.Bool("disable_db", false, "disable the sqlite run index")
		snapPath     = flag.String("snapshot", "", "path to snapshot to resume from (optional)")
		loadLatest   = flag.Bool("load_latest_snapshot", false, "resume from the latest snapshot of -run if present (when -snapshot is empty)")
		stopWhenDone = flag.Bool("stop_when_done", false, "exit once every agent has arrived")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	tune, err := loadTuning(*tuningPath, logger)
	if err != nil {
		logger.Fatalf("load tuning: %v", err)
	}

	snapshotToLoad := strings.TrimSpace(*snapPath)
	if snapshotToLoad == "" && *loadLatest && *runID != "" {
		snapshotToLoad = latestSnapshot(filepath.Join(*dataDir, "runs", *runID))
	}

	var w *world.World
	if snapshotToLoad != "" {
		snap, err := snapshot.ReadSnapshot(snapshotToLoad)
		if err != nil {
			logger.Fatalf("read snapshot: %v", err)
		}
		if *runID != "" && snap.Header.RunID != *runID {
			logger.Fatalf("snapshot run id mismatch: flag=%s snap=%s", *runID, snap.Header.RunID)
		}
		cfg, err := world.ConfigFromSnapshot(snap)
		if err != nil {
			logger.Fatalf("snapshot config: %v", err)
		}
		cfg.StopWhenDone = *stopWhenDone
		w, err = world.New(cfg)
		if err != nil {
			logger.Fatalf("world: %v", err)
		}
		if err := w.ImportSnapshot(snap); err != nil {
			logger.Fatalf("import snapshot: %v", err)
		}
		logger.Printf("resumed from snapshot=%s tick=%d", filepath.Base(snapshotToLoad), w.CurrentTick())
	} else {
		sc, err := scenario.Resolve(*scenarioRef, tune)
		if err != nil {
			logger.Fatalf("scenario: %v", err)
		}
		id := strings.TrimSpace(*runID)
		if id == "" {
			id = uuid.NewString()
		}
		cfg := world.ConfigFromScenario(id, sc)
		cfg.StopWhenDone = *stopWhenDone
		w, err = world.New(cfg)
		if err != nil {
			logger.Fatalf("world: %v", err)
		}
	}

	cfg := w.Config()
	runDir := filepath.Join(*dataDir, "runs", cfg.ID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		logger.Fatalf("run dir: %v", err)
	}
	logger.Printf("run=%s scenario=%s agents=%d obstacles=%d grid=%.3f", cfg.ID, cfg.Scenario, len(cfg.Agents), len(cfg.Obstacles), cfg.Tuning.GridSize)

	// Optional: read-model index (does not affect sim determinism).
	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(*dataDir, "index", "runs.sqlite"))
		if err != nil {
			logger.Fatalf("open index: %v", err)
		}
		defer idx.Close()
		if _, err := idx.BeginRun(indexdb.RunInfo{
			ID:        cfg.ID,
			Scenario:  cfg.Scenario,
			Tuning:    cfg.Tuning,
			Agents:    len(cfg.Agents),
			Obstacles: len(cfg.Obstacles),
		}); err != nil {
			logger.Fatalf("index begin run: %v", err)
		}
	}

	tickLog := persistlog.NewTickLogger(runDir)
	arrivalLog := persistlog.NewArrivalLogger(runDir)
	defer tickLog.Close()
	defer arrivalLog.Close()
	ticks := multiTickLogger{a: tickLog}
	arrivals := multiArrivalLogger{a: arrivalLog}
	if idx != nil {
		ticks.b, arrivals.b = idx, idx
	}
	w.SetTickLogger(ticks)
	w.SetArrivalLogger(arrivals)

	ctx, cancel := signalContext()
	defer cancel()

	// Snapshot writer.
	snapCh := make(chan snapshot.SnapshotV1, 2)
	w.SetSnapshotSink(snapCh)
	snapDone := make(chan struct{})
	go func() {
		defer close(snapDone)
		for {
			select {
			case <-ctx.Done():
				return
			case snap := <-snapCh:
				path := snapshot.PathFor(runDir, snap.Header.Tick)
				if err := snapshot.WriteSnapshot(path, snap); err != nil {
					logger.Printf("snapshot write: %v", err)
					continue
				}
				if idx != nil {
					idx.RecordSnapshot(path, snap)
				}
			}
		}
	}()

	srv := &http.Server{
		Addr:              *addr,
		Handler:           newMux(w, idx, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		err := w.Run(ctx)
		if err != nil && err != context.Canceled {
			logger.Printf("world stopped: %v", err)
		}
		// Keep the final state: snapshot it and close out the index row.
		final := w.ExportSnapshot()
		finalPath := snapshot.PathFor(runDir, final.Header.Tick)
		if err := snapshot.WriteSnapshot(finalPath, final); err != nil {
			logger.Printf("final snapshot: %v", err)
		} else if dst, ok, err := archive.ArchiveCompletedRun(*dataDir, finalPath, final); err != nil {
			logger.Printf("archive: %v", err)
		} else if ok {
			logger.Printf("archived completed run to %s", dst)
		}
		if idx != nil {
			idx.EndRun(final.Header.Tick)
		}
		logger.Printf("world stopped at tick=%d active=%d", final.Header.Tick, w.Metrics().Active)
		cancel()
	}()

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
	<-runDone
	<-snapDone
}

func loadTuning(path string, logger *log.Logger) (tuning.Tuning, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return tuning.Defaults(), nil
	}
	tune, err := tuning.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Printf("tuning not found (%s); using defaults", path)
		return tuning.Defaults(), nil
	}
	return tune, err
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func latestSnapshot(runDir string) string {
	dir := filepath.Join(runDir, "snapshots")
	ents, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var best string
	var bestTick uint64
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		base := strings.TrimSuffix(name, ".snap.zst")
		tick, err := strconv.ParseUint(base, 10, 64)
		if err != nil {
			continue
		}
		if best == "" || tick > bestTick {
			bestTick = tick
			best = filepath.Join(dir, name)
		}
	}
	return best
}

type multiTickLogger struct {
	a world.TickLogger
	b world.TickLogger
}

func (m multiTickLogger) WriteTick(entry world.TickLogEntry) error {
	if m.a != nil {
		_ = m.a.WriteTick(entry)
	}
	if m.b != nil {
		_ = m.b.WriteTick(entry)
	}
	return nil
}

type multiArrivalLogger struct {
	a world.ArrivalLogger
	b world.ArrivalLogger
}

func (m multiArrivalLogger) WriteArrival(entry world.ArrivalEntry) error {
	if m.a != nil {
		_ = m.a.WriteArrival(entry)
	}
	if m.b != nil {
		_ = m.b.WriteArrival(entry)
	}
	return nil
}

