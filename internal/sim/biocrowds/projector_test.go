package biocrowds

import (
	"math"
	"testing"
)

func TestProjector_DefaultDims(t *testing.T) {
	p := NewProjector(DefaultOptions())
	if p.Width() != 256 || p.Depth() != 256 {
		t.Fatalf("dims=%dx%d want=256x256", p.Width(), p.Depth())
	}
	cx, cz := p.CellSize()
	if cx != 0.125 || cz != 0.125 {
		t.Fatalf("cell=%v,%v want=0.125", cx, cz)
	}
}

func TestProjector_NonDivisibleSizeStretchesCells(t *testing.T) {
	o := DefaultOptions()
	o.SizeX = 10
	o.GridSize = 3
	p := NewProjector(o)
	if p.Width() != 4 {
		t.Fatalf("width=%d want=4", p.Width())
	}
	cx, _ := p.CellSize()
	if cx != 2.5 {
		t.Fatalf("cellX=%v want=2.5", cx)
	}
	u, _ := p.WorldToNormalized(Vec3{X: o.OriginX + o.SizeX})
	if u != 1 {
		t.Fatalf("far edge u=%v want=1", u)
	}
}

func TestProjector_Corners(t *testing.T) {
	p := NewProjector(DefaultOptions())
	u, v := p.WorldToNormalized(Vec3{X: -16, Z: -16})
	if u != -1 || v != -1 {
		t.Fatalf("origin -> (%v,%v) want (-1,-1)", u, v)
	}
	u, v = p.WorldToNormalized(Vec3{X: 16, Z: 16})
	if u != 1 || v != 1 {
		t.Fatalf("far corner -> (%v,%v) want (1,1)", u, v)
	}
	u, v = p.WorldToNormalized(Vec3{})
	if u != 0 || v != 0 {
		t.Fatalf("center -> (%v,%v) want (0,0)", u, v)
	}
}

func TestProjector_RoundTrip(t *testing.T) {
	p := NewProjector(DefaultOptions())
	for _, w := range []Vec3{{X: 3.3, Z: -7.1}, {X: -15.9, Z: 15.9}, {X: 0.01, Z: 0.02}} {
		g := p.WorldToGrid(w)
		u, v := p.GridToNormalized(g)
		back := p.GridToWorld(p.NormalizedToGrid(u, v))
		if math.Abs(back.X-w.X) > 1e-9 || math.Abs(back.Z-w.Z) > 1e-9 {
			t.Fatalf("round trip %v -> %v", w, back)
		}
	}
}

func TestProjector_CellAt(t *testing.T) {
	p := NewProjector(DefaultOptions())
	if x, z, ok := p.CellAt(-1, -1); !ok || x != 0 || z != 0 {
		t.Fatalf("CellAt(-1,-1)=(%d,%d,%v) want (0,0,true)", x, z, ok)
	}
	if x, z, ok := p.CellAt(0.999, 0.999); !ok || x != 255 || z != 255 {
		t.Fatalf("CellAt(.999,.999)=(%d,%d,%v) want (255,255,true)", x, z, ok)
	}
	if _, _, ok := p.CellAt(1.5, 0); ok {
		t.Fatalf("CellAt outside plane should fail")
	}
	if _, _, ok := p.CellAt(math.NaN(), 0); ok {
		t.Fatalf("CellAt(NaN) should fail")
	}
	c := p.CellCenter(10, 20)
	if x, z, ok := p.CellOf(c); !ok || x != 10 || z != 20 {
		t.Fatalf("CellOf(center(10,20))=(%d,%d,%v)", x, z, ok)
	}
}

func TestProjector_FarEdgeIsInside(t *testing.T) {
	p := NewProjector(DefaultOptions())
	if x, z, ok := p.CellOf(Vec3{X: 16, Z: 16}); !ok || x != 255 || z != 255 {
		t.Fatalf("CellOf(16,16)=(%d,%d,%v) want (255,255,true)", x, z, ok)
	}
	if x, z, ok := p.CellAt(1, -1); !ok || x != 255 || z != 0 {
		t.Fatalf("CellAt(1,-1)=(%d,%d,%v) want (255,0,true)", x, z, ok)
	}
	if _, _, ok := p.CellOf(Vec3{X: 16.001, Z: 0}); ok {
		t.Fatalf("CellOf past the far edge should fail")
	}
}

func TestProjector_ViewProjMatchesNormalized(t *testing.T) {
	o := DefaultOptions()
	o.OriginX, o.OriginZ, o.SizeX, o.SizeZ = -3, 7, 12, 40
	p := NewProjector(o)
	m := p.ViewProj()
	for _, w := range []Vec3{{X: -3, Z: 7}, {X: 9, Z: 47}, {X: 1.5, Y: 4, Z: 20}} {
		cx := m[0]*w.X + m[4]*w.Y + m[8]*w.Z + m[12]
		cy := m[1]*w.X + m[5]*w.Y + m[9]*w.Z + m[13]
		cw := m[3]*w.X + m[7]*w.Y + m[11]*w.Z + m[15]
		u, v := p.WorldToNormalized(w)
		if math.Abs(cx/cw-u) > 1e-12 || math.Abs(cy/cw-v) > 1e-12 {
			t.Fatalf("clip=(%v,%v) want=(%v,%v) for %v", cx/cw, cy/cw, u, v, w)
		}
	}
}

func TestProjector_CellRangeClips(t *testing.T) {
	p := NewProjector(DefaultOptions())
	x0, z0, x1, z1, ok := p.CellRange(Vec3{X: -16, Z: -16}, 1)
	if !ok || x0 != 0 || z0 != 0 || x1 != 8 || z1 != 8 {
		t.Fatalf("range=(%d,%d)-(%d,%d) ok=%v", x0, z0, x1, z1, ok)
	}
	if _, _, _, _, ok := p.CellRange(Vec3{X: 100, Z: 0}, 1); ok {
		t.Fatalf("range far outside the grid should be empty")
	}
}

func TestOptions_Validate(t *testing.T) {
	if err := DefaultOptions().Validate(); err != nil {
		t.Fatalf("defaults: %v", err)
	}
	cases := map[string]func(*Options){
		"zero radius":     func(o *Options) { o.SearchRadius = 0 },
		"negative radius": func(o *Options) { o.SearchRadius = -1 },
		"zero grid":       func(o *Options) { o.GridSize = 0 },
		"negative size":   func(o *Options) { o.SizeX = -4 },
		"nan origin":      func(o *Options) { o.OriginZ = math.NaN() },
		"no markers":      func(o *Options) { o.MarkersPerCell = 0 },
		"huge grid":       func(o *Options) { o.GridSize = 1e-4 },
	}
	for name, mut := range cases {
		o := DefaultOptions()
		mut(&o)
		if err := o.Validate(); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
