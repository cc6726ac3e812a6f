package main

import (
	"context"
	"path/filepath"
	"testing"

	"crowdfield.ai/internal/persistence/indexdb"
	"crowdfield.ai/internal/sim/scenario"
	"crowdfield.ai/internal/sim/tuning"
)

func testScenario(t *testing.T, name string) *scenario.Scenario {
	t.Helper()
	tu := tuning.Defaults()
	tu.GridSize = 0.25
	sc, err := scenario.Builtin(name, tu)
	if err != nil {
		t.Fatalf("scenario: %v", err)
	}
	return sc
}

func TestRunScenario_SingleArrives(t *testing.T) {
	sc := testScenario(t, "single")
	rs, err := runScenario(context.Background(), 1, sc, withTicks(2000), withSeed(7), withWorkers(2))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rs.arrived != 1 || rs.agents != 1 {
		t.Fatalf("arrived=%d/%d want=1/1", rs.arrived, rs.agents)
	}
	if rs.firstArrivalTick <= 0 || rs.lastArrivalTick != rs.firstArrivalTick {
		t.Fatalf("arrival ticks first=%d last=%d", rs.firstArrivalTick, rs.lastArrivalTick)
	}
	if rs.ticks != rs.lastArrivalTick+1 {
		t.Fatalf("ticks=%d want=%d (stops once done)", rs.ticks, rs.lastArrivalTick+1)
	}
	if rs.minCells <= 0 {
		t.Fatalf("minCells=%d want>0", rs.minCells)
	}
	if rs.peakSpeed <= 0 || rs.peakSpeed > sc.Tuning.MaxSpeed+1e-9 {
		t.Fatalf("peakSpeed=%v", rs.peakSpeed)
	}
	if rs.seed != 7 {
		t.Fatalf("seed=%d want=7", rs.seed)
	}
}

func TestRunScenario_RecordsIndex(t *testing.T) {
	idx, err := indexdb.OpenSQLite(filepath.Join(t.TempDir(), "report.sqlite"))
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	defer idx.Close()

	sc := testScenario(t, "crossing")
	rs, err := runScenario(context.Background(), 1, sc, withTicks(20), withIndex(idx))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rs.runID == "" {
		t.Fatalf("missing run id")
	}
	idx.Sync()
	sum, err := idx.Summary(rs.runID)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.Ticks != rs.ticks || sum.LastTick != uint64(rs.ticks-1) {
		t.Fatalf("summary=%+v ticks=%d", sum, rs.ticks)
	}
}

func TestDescribeTicks(t *testing.T) {
	if got := describeTicks(nil); got != "n/a" {
		t.Fatalf("got=%q", got)
	}
	if got := describeTicks([]int{30, 10, 20}); got != "min=10 median=20 max=30" {
		t.Fatalf("got=%q", got)
	}
}
