package scenario

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"crowdfield.ai/internal/sim/tuning"
)

func TestBuiltins_AllParse(t *testing.T) {
	names := BuiltinNames()
	want := []string{"circle", "corridor", "crossing", "single"}
	if len(names) != len(want) {
		t.Fatalf("builtins=%v want=%v", names, want)
	}
	for i, n := range names {
		if n != want[i] {
			t.Fatalf("builtins=%v want=%v", names, want)
		}
		sc, err := Builtin(n, tuning.Defaults())
		if err != nil {
			t.Fatalf("%s: %v", n, err)
		}
		if sc.Name != n || len(sc.Agents) == 0 {
			t.Fatalf("%s: name=%q agents=%d", n, sc.Name, len(sc.Agents))
		}
	}
	if _, err := Builtin("nope", tuning.Defaults()); !errors.Is(err, ErrInvalidScenario) {
		t.Fatalf("unknown builtin err=%v", err)
	}
}

func TestBuiltin_CorridorOverridesTuning(t *testing.T) {
	sc, err := Resolve("corridor", tuning.Defaults())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if sc.Tuning.SizeX != 40 || sc.Tuning.OriginX != -20 {
		t.Fatalf("tuning=%+v", sc.Tuning)
	}
	if sc.Tuning.GridSize != tuning.Defaults().GridSize {
		t.Fatalf("non-overridden key changed: grid_size=%v", sc.Tuning.GridSize)
	}
	if len(sc.Obstacles) != 2 || len(sc.Agents) != 6 {
		t.Fatalf("obstacles=%d agents=%d", len(sc.Obstacles), len(sc.Agents))
	}
}

func TestParse_SchemaRejects(t *testing.T) {
	cases := map[string]string{
		"missing name":  "agents:\n  - pos: [0, 0]\n    goal: [1, 1]\n",
		"short vector":  "name: x\nagents:\n  - pos: [0]\n    goal: [1, 1]\n",
		"unknown key":   "name: x\nbogus: 1\nagents:\n  - pos: [0, 0]\n    goal: [1, 1]\n",
		"bad generator": "name: x\ngenerators:\n  - kind: spiral\n    count: 3\n",
		"bad tuning":    "name: x\ntuning:\n  search_radius: -1\nagents:\n  - pos: [0, 0]\n    goal: [1, 1]\n",
		"two points":    "name: x\nobstacles:\n  - points: [[0, 0], [1, 1]]\nagents:\n  - pos: [0, 0]\n    goal: [1, 1]\n",
		"no agents":     "name: empty\n",
	}
	for name, doc := range cases {
		if _, err := Parse([]byte(doc), tuning.Defaults(), ""); !errors.Is(err, ErrInvalidScenario) {
			t.Fatalf("%s: err=%v want ErrInvalidScenario", name, err)
		}
	}
}

func TestGenerators_Circle(t *testing.T) {
	ags, err := Generator{Kind: "circle", Count: 8, Center: [2]float64{1, 2}, Radius: 5}.Agents()
	if err != nil {
		t.Fatalf("Agents: %v", err)
	}
	if len(ags) != 8 {
		t.Fatalf("len=%d want=8", len(ags))
	}
	for i, a := range ags {
		if d := math.Hypot(a.Pos.X-1, a.Pos.Z-2); math.Abs(d-5) > 1e-9 {
			t.Fatalf("agent %d radius=%v want=5", i, d)
		}
		mx, mz := (a.Pos.X+a.Goal.X)/2, (a.Pos.Z+a.Goal.Z)/2
		if math.Abs(mx-1) > 1e-9 || math.Abs(mz-2) > 1e-9 {
			t.Fatalf("agent %d goal not antipodal: %v -> %v", i, a.Pos, a.Goal)
		}
	}
}

func TestGenerators_LanesAndGrid(t *testing.T) {
	ags, err := Generator{Kind: "lanes", Count: 5, Length: 10, Spacing: 1}.Agents()
	if err != nil {
		t.Fatalf("lanes: %v", err)
	}
	east := 0
	for _, a := range ags {
		if a.Goal.X > a.Pos.X {
			east++
		}
		if a.Pos.Z != a.Goal.Z {
			t.Fatalf("lane agent should walk straight along x: %v -> %v", a.Pos, a.Goal)
		}
	}
	if east != 3 {
		t.Fatalf("eastbound=%d want=3", east)
	}

	ags, err = Generator{Kind: "grid", Count: 6, Spacing: 2, Offset: [2]float64{0, 10}}.Agents()
	if err != nil {
		t.Fatalf("grid: %v", err)
	}
	if len(ags) != 6 {
		t.Fatalf("len=%d want=6", len(ags))
	}
	for _, a := range ags {
		if a.Goal.Z-a.Pos.Z != 10 || a.Goal.X != a.Pos.X {
			t.Fatalf("grid goal offset wrong: %v -> %v", a.Pos, a.Goal)
		}
	}
	if _, err := (Generator{Kind: "grid", Count: 2}).Agents(); err == nil {
		t.Fatalf("grid without spacing should fail")
	}
}

func TestLoad_PlazaWithGeoJSON(t *testing.T) {
	sc, err := Load("../../../configs/scenarios/plaza.yaml", tuning.Defaults())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(sc.Obstacles) != 3 {
		t.Fatalf("obstacles=%d want=3", len(sc.Obstacles))
	}
	if !sc.Obstacles[0].Contains(0, 0) {
		t.Fatalf("fountain should cover the origin")
	}
	if len(sc.Agents) != 16+9+1 {
		t.Fatalf("agents=%d want=26", len(sc.Agents))
	}
	if sc.Tuning.GridSize != 0.25 {
		t.Fatalf("grid_size=%v want=0.25", sc.Tuning.GridSize)
	}
}

func TestLoad_GeoJSONErrors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.geojson")
	doc := `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{},"geometry":{"type":"Point","coordinates":[1,2]}}]}`
	if err := os.WriteFile(bad, []byte(doc), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadGeoJSON(bad, 0); err == nil {
		t.Fatalf("point geometry should be rejected")
	}
	sc := filepath.Join(dir, "s.yaml")
	body := "name: s\nobstacles_geojson: missing.geojson\nagents:\n  - pos: [0, 0]\n    goal: [1, 1]\n"
	if err := os.WriteFile(sc, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(sc, tuning.Defaults()); !errors.Is(err, ErrInvalidScenario) {
		t.Fatalf("missing geojson err=%v", err)
	}
}
