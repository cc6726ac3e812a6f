package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"crowdfield.ai/internal/persistence/indexdb"
	"crowdfield.ai/internal/sim/scenario"
	"crowdfield.ai/internal/sim/tuning"
	"crowdfield.ai/internal/sim/world"
)

func newTestWorld(t *testing.T) *world.World {
	t.Helper()
	tu := tuning.Defaults()
	tu.GridSize = 0.25
	sc, err := scenario.Builtin("crossing", tu)
	if err != nil {
		t.Fatalf("scenario: %v", err)
	}
	w, err := world.New(world.ConfigFromScenario("run-x", sc))
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, _, err := w.StepOnce(context.Background()); err != nil {
			t.Fatalf("step: %v", err)
		}
	}
	return w
}

func get(t *testing.T, srv *httptest.Server, path string) string {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	if err != nil {
		t.Fatalf("get %s: %v", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("%s status=%d", path, resp.StatusCode)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return string(b)
}

func TestMux_HealthAndMetrics(t *testing.T) {
	w := newTestWorld(t)
	idx, err := indexdb.OpenSQLite(filepath.Join(t.TempDir(), "runs.sqlite"))
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	defer idx.Close()

	srv := httptest.NewServer(newMux(w, idx, nil))
	defer srv.Close()

	if body := get(t, srv, "/healthz"); body != "ok" {
		t.Fatalf("healthz=%q", body)
	}
	metrics := get(t, srv, "/metrics")
	for _, want := range []string{
		`crowdfield_tick{run="run-x"} 3`,
		`crowdfield_agents{run="run-x",state="active"} 2`,
		`crowdfield_index_dropped_total{kind="tick"} 0`,
	} {
		if !strings.Contains(metrics, want) {
			t.Fatalf("metrics missing %q:\n%s", want, metrics)
		}
	}

	var state struct {
		RunID string `json:"run_id"`
		Tick  uint64 `json:"tick"`
	}
	if err := json.Unmarshal([]byte(get(t, srv, "/v1/state")), &state); err != nil {
		t.Fatalf("state json: %v", err)
	}
	if state.RunID != "run-x" || state.Tick != 3 {
		t.Fatalf("state=%+v", state)
	}
}

func TestLatestSnapshot(t *testing.T) {
	dir := t.TempDir()
	snaps := filepath.Join(dir, "snapshots")
	if err := os.MkdirAll(snaps, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"000000000010.snap.zst", "000000000200.snap.zst", "notes.txt", "x.snap.zst"} {
		if err := os.WriteFile(filepath.Join(snaps, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if got := latestSnapshot(dir); filepath.Base(got) != "000000000200.snap.zst" {
		t.Fatalf("latest=%q", got)
	}
	if got := latestSnapshot(filepath.Join(dir, "missing")); got != "" {
		t.Fatalf("missing dir latest=%q", got)
	}
}
