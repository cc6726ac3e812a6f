package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"crowdfield.ai/internal/persistence/snapshot"
	"crowdfield.ai/internal/sim/tuning"
	"crowdfield.ai/internal/sim/world"
)

// SQLiteIndex is a queryable secondary index of runs. Writes are queued to a
// single writer goroutine and dropped when it falls behind; the JSONL logs
// and snapshots remain the source of truth.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
	runID  atomic.Pointer[string]

	dropTick     atomic.Uint64
	dropArrival  atomic.Uint64
	dropSnapshot atomic.Uint64
	writeErrs    atomic.Uint64
}

type reqKind int

const (
	reqTick reqKind = iota + 1
	reqArrival
	reqSnapshot
	reqEndRun
	reqSync
)

type req struct {
	kind  reqKind
	runID string

	tick     world.TickLogEntry
	arrival  world.ArrivalEntry
	snapshot snapshotRow
	endTick  uint64
	done     chan struct{}
}

type snapshotRow struct {
	Tick      uint64
	Path      string
	Agents    int
	Active    int
	Obstacles int
}

// RunInfo describes a run when it is registered. An empty ID gets a fresh UUID.
type RunInfo struct {
	ID        string
	Scenario  string
	Tuning    tuning.Tuning
	Agents    int
	Obstacles int
}

type Stats struct {
	DropTickTotal     uint64
	DropArrivalTotal  uint64
	DropSnapshotTotal uint64
	WriteErrorTotal   uint64
	QueueDepth        int
	QueueCapacity     int
}

const defaultQueue = 65536

func OpenSQLite(path string) (*SQLiteIndex, error) {
	return openSQLite(path, defaultQueue)
}

func openSQLite(path string, queue int) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, queue),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			scenario TEXT NOT NULL,
			started_at TEXT NOT NULL,
			tuning_json TEXT NOT NULL,
			agents INTEGER NOT NULL,
			obstacles INTEGER NOT NULL,
			end_tick INTEGER,
			ended_at TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS ticks (
			run_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			dt REAL NOT NULL,
			digest TEXT NOT NULL,
			moved INTEGER NOT NULL,
			held INTEGER NOT NULL,
			skipped INTEGER NOT NULL,
			arrived INTEGER NOT NULL,
			active INTEGER NOT NULL,
			PRIMARY KEY (run_id, tick)
		);`,
		`CREATE TABLE IF NOT EXISTS arrivals (
			run_id TEXT NOT NULL,
			agent_id INTEGER NOT NULL,
			tick INTEGER NOT NULL,
			name TEXT NOT NULL,
			x REAL NOT NULL,
			z REAL NOT NULL,
			PRIMARY KEY (run_id, agent_id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_arrivals_run_tick ON arrivals(run_id, tick);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			run_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			path TEXT NOT NULL,
			agents INTEGER NOT NULL,
			active INTEGER NOT NULL,
			obstacles INTEGER NOT NULL,
			PRIMARY KEY (run_id, tick)
		);`,
		`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1');`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// BeginRun registers a run synchronously and makes it the target of
// subsequent async writes.
func (s *SQLiteIndex) BeginRun(info RunInfo) (string, error) {
	if s == nil {
		return info.ID, nil
	}
	if info.ID == "" {
		info.ID = uuid.NewString()
	}
	// Commit anything queued for a previous run before switching.
	s.Sync()
	tj, err := json.Marshal(info.Tuning)
	if err != nil {
		return "", err
	}
	_, err = s.db.Exec(`INSERT OR REPLACE INTO runs(run_id,scenario,started_at,tuning_json,agents,obstacles) VALUES(?,?,?,?,?,?)`,
		info.ID, info.Scenario, time.Now().UTC().Format(time.RFC3339Nano), string(tj), info.Agents, info.Obstacles)
	if err != nil {
		return "", err
	}
	id := info.ID
	s.runID.Store(&id)
	return id, nil
}

func (s *SQLiteIndex) currentRun() string {
	if p := s.runID.Load(); p != nil {
		return *p
	}
	return ""
}

func (s *SQLiteIndex) enqueue(r req, drops *atomic.Uint64) {
	if s.closed.Load() {
		return
	}
	r.runID = s.currentRun()
	if r.runID == "" {
		return
	}
	select {
	case s.ch <- r:
	default:
		// Drop if the indexer falls behind; JSONL logs remain the source of truth.
		drops.Add(1)
	}
}

func (s *SQLiteIndex) WriteTick(entry world.TickLogEntry) error {
	if s == nil {
		return nil
	}
	s.enqueue(req{kind: reqTick, tick: entry}, &s.dropTick)
	return nil
}

func (s *SQLiteIndex) WriteArrival(entry world.ArrivalEntry) error {
	if s == nil {
		return nil
	}
	s.enqueue(req{kind: reqArrival, arrival: entry}, &s.dropArrival)
	return nil
}

func (s *SQLiteIndex) RecordSnapshot(path string, snap snapshot.SnapshotV1) {
	if s == nil {
		return
	}
	r := snapshotRow{
		Tick:      snap.Header.Tick,
		Path:      path,
		Agents:    len(snap.Agents),
		Obstacles: len(snap.Obstacles),
	}
	for _, a := range snap.Agents {
		if !a.Finished {
			r.Active++
		}
	}
	s.enqueue(req{kind: reqSnapshot, snapshot: r}, &s.dropSnapshot)
}

// EndRun stamps the final tick of the current run.
func (s *SQLiteIndex) EndRun(tick uint64) {
	if s == nil || s.closed.Load() || s.currentRun() == "" {
		return
	}
	// Blocking: the end marker must not be dropped.
	s.ch <- req{kind: reqEndRun, runID: s.currentRun(), endTick: tick}
}

// Sync waits until every queued write has been committed.
func (s *SQLiteIndex) Sync() {
	if s == nil || s.closed.Load() {
		return
	}
	done := make(chan struct{})
	s.ch <- req{kind: reqSync, done: done}
	<-done
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		DropTickTotal:     s.dropTick.Load(),
		DropArrivalTotal:  s.dropArrival.Load(),
		DropSnapshotTotal: s.dropSnapshot.Load(),
		WriteErrorTotal:   s.writeErrs.Load(),
		QueueDepth:        len(s.ch),
		QueueCapacity:     cap(s.ch),
	}
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	// Prepared statements (on db; executed within tx).
	insertTick, _ := s.db.Prepare(`INSERT OR REPLACE INTO ticks(run_id,tick,dt,digest,moved,held,skipped,arrived,active) VALUES(?,?,?,?,?,?,?,?,?)`)
	insertArrival, _ := s.db.Prepare(`INSERT OR REPLACE INTO arrivals(run_id,agent_id,tick,name,x,z) VALUES(?,?,?,?,?,?)`)
	insertSnapshot, _ := s.db.Prepare(`INSERT OR REPLACE INTO snapshots(run_id,tick,path,agents,active,obstacles) VALUES(?,?,?,?,?,?)`)
	updateRunEnd, _ := s.db.Prepare(`UPDATE runs SET end_tick=?, ended_at=? WHERE run_id=?`)
	defer func() {
		for _, st := range []*sql.Stmt{insertTick, insertArrival, insertSnapshot, updateRunEnd} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			// If we can't start a tx, we can't do much; sleep a bit.
			s.writeErrs.Add(1)
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		if err := tx.Commit(); err != nil {
			s.writeErrs.Add(1)
		}
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	exec := func(st *sql.Stmt, args ...any) {
		if st == nil {
			return
		}
		if _, err := tx.Stmt(st).Exec(args...); err != nil {
			s.writeErrs.Add(1)
			_ = tx.Rollback()
			tx = nil
			opCount = 0
			return
		}
		opCount++
	}

	for r := range s.ch {
		if r.kind == reqSync {
			commit()
			close(r.done)
			continue
		}
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqTick:
			e := r.tick
			exec(insertTick, r.runID, int64(e.Tick), e.DT, e.Digest, e.Moved, e.Held, e.Skipped, len(e.Arrived), e.Active)
		case reqArrival:
			a := r.arrival
			exec(insertArrival, r.runID, a.AgentID, int64(a.Tick), a.Name, a.Pos[0], a.Pos[1])
		case reqSnapshot:
			sn := r.snapshot
			exec(insertSnapshot, r.runID, int64(sn.Tick), sn.Path, sn.Agents, sn.Active, sn.Obstacles)
		case reqEndRun:
			exec(updateRunEnd, int64(r.endTick), time.Now().UTC().Format(time.RFC3339Nano), r.runID)
			commit()
			continue
		}
		if tx != nil && (opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait) {
			commit()
		}
	}

	commit()
}
