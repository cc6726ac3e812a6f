package biocrowds

import (
	"errors"
	"testing"

	"github.com/paulmach/orb"
)

func square(t *testing.T, x0, z0, x1, z1 float64) Obstacle {
	t.Helper()
	o, err := NewObstacle(0, []orb.Point{{x0, z0}, {x1, z0}, {x1, z1}, {x0, z1}})
	if err != nil {
		t.Fatalf("NewObstacle: %v", err)
	}
	return o
}

func TestObstacle_ClosesRing(t *testing.T) {
	o := square(t, -1, -1, 1, 1)
	if !o.Boundary.Closed() || len(o.Boundary) != 5 {
		t.Fatalf("ring closed=%v len=%d", o.Boundary.Closed(), len(o.Boundary))
	}
	if _, err := NewObstacle(3, []orb.Point{{0, 0}, {1, 1}}); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("two-point obstacle err=%v want ErrInvalidConfig", err)
	}
}

func TestObstacle_Contains(t *testing.T) {
	o := square(t, -1, -1, 1, 1)
	if !o.Contains(0, 0) || !o.Contains(0.9, -0.9) {
		t.Fatalf("interior points should be contained")
	}
	if o.Contains(2, 0) || o.Contains(0, -1.5) {
		t.Fatalf("exterior points should not be contained")
	}
}

func TestObstacle_Occludes(t *testing.T) {
	o := square(t, -1, -1, 1, 1)
	cases := []struct {
		name           string
		ax, az, bx, bz float64
		want           bool
	}{
		{"through", -3, 0, 3, 0, true},
		{"into", -3, 0, 0, 0, true},
		{"above", -3, 2, 3, 2, false},
		{"beside", 1.5, -3, 1.5, 3, false},
		{"grazing corner", -2, 0, 0, 2, true},
		{"far away", 5, 5, 6, 6, false},
	}
	for _, tc := range cases {
		if got := o.Occludes(tc.ax, tc.az, tc.bx, tc.bz); got != tc.want {
			t.Fatalf("%s: occludes=%v want=%v", tc.name, got, tc.want)
		}
	}
}
