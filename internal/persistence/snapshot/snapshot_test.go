package snapshot

import (
	"path/filepath"
	"reflect"
	"testing"

	"crowdfield.ai/internal/sim/tuning"
)

func TestSnapshot_RoundTrip(t *testing.T) {
	tu := tuning.Defaults()
	tu.GridSize = 0.25
	in := SnapshotV1{
		Header: Header{Version: Version, RunID: "run-1", Scenario: "crossing", Tick: 42},
		Tuning: tu,
		Agents: []AgentV1{
			{ID: 0, Name: "east", Pos: [3]float64{-1.5, 0, 0.31}, Forward: [3]float64{1, 0, 0}, Goal: [3]float64{5, 0, 0.3}, Color: [4]float32{1, 0, 0, 1}},
			{ID: 1, Name: "west", Pos: [3]float64{1.5, 0, -0.29}, Vel: [3]float64{-0.5, 0, 0.01}, Finished: true},
		},
		Obstacles: []ObstacleV1{{ID: 0, Points: [][2]float64{{0, 0}, {1, 0}, {1, 1}, {0, 0}}}},
		Comfort:   []float32{1, 0.5, 0},
	}
	path := PathFor(t.TempDir(), 42)
	if filepath.Base(path) != "000000000042.snap.zst" {
		t.Fatalf("path=%s", path)
	}
	if err := WriteSnapshot(path, in); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	out, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("round trip mismatch:\n in=%+v\nout=%+v", in, out)
	}
	h, err := ReadHeader(path)
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if h != in.Header {
		t.Fatalf("header=%+v want=%+v", h, in.Header)
	}
}

func TestSnapshot_RejectsUnknownVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "v9.snap.zst")
	if err := WriteSnapshot(path, SnapshotV1{Header: Header{Version: 9}}); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	if _, err := ReadSnapshot(path); err == nil {
		t.Fatalf("expected version error")
	}
}
