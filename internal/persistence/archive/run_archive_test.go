package archive

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"crowdfield.ai/internal/persistence/snapshot"
)

func writeDummy(t *testing.T, dir string) string {
	t.Helper()
	src := filepath.Join(dir, "runs", "r1", "snapshots", "40.snap.zst")
	if err := os.MkdirAll(filepath.Dir(src), 0o755); err != nil {
		t.Fatalf("mkdir snapshots: %v", err)
	}
	if err := os.WriteFile(src, []byte("dummy"), 0o644); err != nil {
		t.Fatalf("write src: %v", err)
	}
	return src
}

func TestArchiveCompletedRun_CopiesFinalSnapshot(t *testing.T) {
	dir := t.TempDir()
	src := writeDummy(t, dir)

	snap := snapshot.SnapshotV1{
		Header: snapshot.Header{Version: snapshot.Version, RunID: "r1", Scenario: "single", Tick: 40},
		Agents: []snapshot.AgentV1{{ID: 0, Finished: true}, {ID: 1, Finished: true}},
	}
	snap.Tuning.TickRateHz = 10

	archivedPath, ok, err := ArchiveCompletedRun(dir, src, snap)
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if !ok {
		t.Fatalf("expected archived=true")
	}
	if want := filepath.Join(dir, "archives", "r1", "40.snap.zst"); archivedPath != want {
		t.Fatalf("path=%s want=%s", archivedPath, want)
	}
	got, err := os.ReadFile(archivedPath)
	if err != nil {
		t.Fatalf("read archived: %v", err)
	}
	if string(got) != "dummy" {
		t.Fatalf("archived content mismatch: got=%q", string(got))
	}

	raw, err := os.ReadFile(filepath.Join(filepath.Dir(archivedPath), "meta.json"))
	if err != nil {
		t.Fatalf("expected meta.json to exist: %v", err)
	}
	var meta RunArchiveMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		t.Fatalf("meta: %v", err)
	}
	if meta.EndTick != 40 || meta.Agents != 2 || meta.Scenario != "single" || meta.TickRateHz != 10 {
		t.Fatalf("meta=%+v", meta)
	}
}

func TestArchiveCompletedRun_SkipsUnfinishedRun(t *testing.T) {
	dir := t.TempDir()
	src := writeDummy(t, dir)

	snap := snapshot.SnapshotV1{
		Header: snapshot.Header{Version: snapshot.Version, RunID: "r1", Tick: 40},
		Agents: []snapshot.AgentV1{{ID: 0, Finished: true}, {ID: 1}},
	}
	_, ok, err := ArchiveCompletedRun(dir, src, snap)
	if err != nil || ok {
		t.Fatalf("ok=%v err=%v want skip", ok, err)
	}
	if _, err := os.Stat(filepath.Join(dir, "archives")); !os.IsNotExist(err) {
		t.Fatalf("archives dir should not exist: %v", err)
	}
}
