package tuning

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"crowdfield.ai/internal/sim/biocrowds"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestDefaults_MatchCore(t *testing.T) {
	d := Defaults()
	if d.Options() != biocrowds.DefaultOptions() {
		t.Fatalf("options=%+v want=%+v", d.Options(), biocrowds.DefaultOptions())
	}
	if err := d.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if d.TickDT() != 0.1 {
		t.Fatalf("dt=%v want=0.1", d.TickDT())
	}
}

func TestLoad_OverlaysDefaults(t *testing.T) {
	path := writeFile(t, "grid_size: 0.25\nsearch_radius: 1.5\ntick_rate_hz: 20\n")
	tu, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tu.GridSize != 0.25 || tu.SearchRadius != 1.5 || tu.TickRateHz != 20 {
		t.Fatalf("loaded=%+v", tu)
	}
	if tu.SizeX != 32 || tu.OriginX != -16 {
		t.Fatalf("defaults lost: size_x=%v origin_x=%v", tu.SizeX, tu.OriginX)
	}
}

func TestLoad_RejectsInvalid(t *testing.T) {
	path := writeFile(t, "search_radius: 0\n")
	if _, err := Load(path); !errors.Is(err, ErrInvalid) || !errors.Is(err, biocrowds.ErrInvalidConfig) {
		t.Fatalf("err=%v want ErrInvalid wrapping ErrInvalidConfig", err)
	}
	path = writeFile(t, "tick_rate_hz: 0\n")
	if _, err := Load(path); !errors.Is(err, ErrInvalid) {
		t.Fatalf("err=%v want ErrInvalid", err)
	}
	path = writeFile(t, "grid_size: [1, 2\n")
	if _, err := Load(path); err == nil {
		t.Fatalf("malformed yaml should fail")
	}
}

func TestLoad_RepoConfig(t *testing.T) {
	tu, err := Load("../../../configs/tuning.yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tu.TickRateHz <= 0 || tu.GridSize <= 0 {
		t.Fatalf("repo tuning=%+v", tu)
	}
}
