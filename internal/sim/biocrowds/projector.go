package biocrowds

import "math"

// GridCoord is a continuous position in grid units: cell (i, j) spans
// [i, i+1) x [j, j+1).
type GridCoord struct {
	X, Z float64
}

// Projector is the fixed top-down orthographic mapping between world space,
// grid space and the normalized [-1,1]^2 plane used to address buffers.
// The frustum covers exactly [originX, originX+sizeX] x [originZ, originZ+sizeZ],
// so the effective cell extent is size/dimension rather than the nominal grid size.
type Projector struct {
	originX, originZ float64
	sizeX, sizeZ     float64
	width, depth     int
	cellX, cellZ     float64
}

func NewProjector(o Options) Projector {
	w, d := o.GridDims()
	return Projector{
		originX: o.OriginX,
		originZ: o.OriginZ,
		sizeX:   o.SizeX,
		sizeZ:   o.SizeZ,
		width:   w,
		depth:   d,
		cellX:   o.SizeX / float64(w),
		cellZ:   o.SizeZ / float64(d),
	}
}

func (p Projector) Width() int { return p.width }
func (p Projector) Depth() int { return p.depth }
func (p Projector) Cells() int { return p.width * p.depth }

// CellSize returns the world extent of one cell along X and Z.
func (p Projector) CellSize() (x, z float64) { return p.cellX, p.cellZ }

func (p Projector) Index(x, z int) int { return z*p.width + x }

func (p Projector) WorldToGrid(v Vec3) GridCoord {
	return GridCoord{
		X: (v.X - p.originX) / p.cellX,
		Z: (v.Z - p.originZ) / p.cellZ,
	}
}

// GridToWorld returns the ground-plane (Y=0) point at g.
func (p Projector) GridToWorld(g GridCoord) Vec3 {
	return Vec3{
		X: p.originX + g.X*p.cellX,
		Z: p.originZ + g.Z*p.cellZ,
	}
}

func (p Projector) GridToNormalized(g GridCoord) (u, v float64) {
	return 2*g.X/float64(p.width) - 1, 2*g.Z/float64(p.depth) - 1
}

func (p Projector) NormalizedToGrid(u, v float64) GridCoord {
	return GridCoord{
		X: (u + 1) * 0.5 * float64(p.width),
		Z: (v + 1) * 0.5 * float64(p.depth),
	}
}

func (p Projector) WorldToNormalized(v Vec3) (float64, float64) {
	return p.GridToNormalized(p.WorldToGrid(v))
}

// CellAt resolves a normalized coordinate to the cell containing it
// (nearest sampling). The plane is closed: u or v equal to 1 maps to the last
// cell. ok is false outside the plane or for NaN input.
func (p Projector) CellAt(u, v float64) (x, z int, ok bool) {
	if math.IsNaN(u) || math.IsNaN(v) {
		return 0, 0, false
	}
	g := p.NormalizedToGrid(u, v)
	return p.cellOf(g)
}

// CellOf returns the cell containing a world position.
func (p Projector) CellOf(v Vec3) (x, z int, ok bool) {
	return p.cellOf(p.WorldToGrid(v))
}

// The far edges belong to the plane, so they resolve to the last cell.
func (p Projector) cellOf(g GridCoord) (int, int, bool) {
	fx, fz := math.Floor(g.X), math.Floor(g.Z)
	if g.X == float64(p.width) {
		fx--
	}
	if g.Z == float64(p.depth) {
		fz--
	}
	if fx < 0 || fz < 0 || fx >= float64(p.width) || fz >= float64(p.depth) {
		return 0, 0, false
	}
	return int(fx), int(fz), true
}

func (p Projector) CellCenter(x, z int) Vec3 {
	return p.GridToWorld(GridCoord{X: float64(x) + 0.5, Z: float64(z) + 0.5})
}

// CellRange returns the inclusive cell bounds of the square of half-extent r
// around a world point, clipped to the grid. ok is false when it misses the grid.
func (p Projector) CellRange(c Vec3, r float64) (x0, z0, x1, z1 int, ok bool) {
	lo := p.WorldToGrid(Vec3{X: c.X - r, Z: c.Z - r})
	hi := p.WorldToGrid(Vec3{X: c.X + r, Z: c.Z + r})
	x0 = max(int(math.Floor(lo.X)), 0)
	z0 = max(int(math.Floor(lo.Z)), 0)
	x1 = min(int(math.Floor(hi.X)), p.width-1)
	z1 = min(int(math.Floor(hi.Z)), p.depth-1)
	return x0, z0, x1, z1, x0 <= x1 && z0 <= z1
}

// ViewProj returns the column-major top-down orthographic matrix equivalent to
// WorldToNormalized: clip.x = u, clip.y = v, clip.z maps height [-100,100] to [1,-1].
// Observers receive it in the bootstrap response; the CPU path never needs it.
func (p Projector) ViewProj() [16]float64 {
	var m [16]float64
	m[0] = 2 / p.sizeX
	m[12] = -2*p.originX/p.sizeX - 1
	m[9] = 2 / p.sizeZ
	m[13] = -2*p.originZ/p.sizeZ - 1
	m[6] = -0.01
	m[15] = 1
	return m
}
