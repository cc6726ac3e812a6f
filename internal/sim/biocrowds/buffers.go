package biocrowds

import "math"

// Ownership sentinels. Non-negative owner values are agent ids.
const (
	Unassigned int32 = -1
	Blocked    int32 = -2
)

// OwnershipBuffer is the per-cell partition: owning agent id (or a sentinel)
// and the owner's distance normalized by the search radius.
type OwnershipBuffer struct {
	Width, Depth int
	Owner        []int32
	Dist         []float32
}

func NewOwnershipBuffer(width, depth int) *OwnershipBuffer {
	n := width * depth
	b := &OwnershipBuffer{Width: width, Depth: depth, Owner: make([]int32, n), Dist: make([]float32, n)}
	for i := range b.Owner {
		b.Owner[i] = Unassigned
	}
	return b
}

func (b *OwnershipBuffer) At(x, z int) (int32, float32) {
	i := z*b.Width + x
	return b.Owner[i], b.Dist[i]
}

func (b *OwnershipBuffer) Clone() *OwnershipBuffer {
	c := &OwnershipBuffer{Width: b.Width, Depth: b.Depth}
	c.Owner = append([]int32(nil), b.Owner...)
	c.Dist = append([]float32(nil), b.Dist...)
	return c
}

func (b *OwnershipBuffer) CopyFrom(src *OwnershipBuffer) {
	copy(b.Owner, src.Owner)
	copy(b.Dist, src.Dist)
}

func (b *OwnershipBuffer) Equal(o *OwnershipBuffer) bool {
	if b.Width != o.Width || b.Depth != o.Depth {
		return false
	}
	for i := range b.Owner {
		if b.Owner[i] != o.Owner[i] || b.Dist[i] != o.Dist[i] {
			return false
		}
	}
	return true
}

// Counts returns the number of cells owned by each of n agents.
func (b *OwnershipBuffer) Counts(n int) []int {
	out := make([]int, n)
	for _, id := range b.Owner {
		if id >= 0 && int(id) < n {
			out[id]++
		}
	}
	return out
}

// VelocityBuffer is the per-cell steering field. Valid is the explicit
// sentinel for cells that must not be sampled (obstacle footprints).
type VelocityBuffer struct {
	Width, Depth int
	VX, VZ       []float64
	Weight       []float32
	Valid        []bool
}

func NewVelocityBuffer(width, depth int) *VelocityBuffer {
	n := width * depth
	return &VelocityBuffer{
		Width:  width,
		Depth:  depth,
		VX:     make([]float64, n),
		VZ:     make([]float64, n),
		Weight: make([]float32, n),
		Valid:  make([]bool, n),
	}
}

// At returns the velocity stored in a cell; ok is false for invalid cells
// and for stored NaN components.
func (b *VelocityBuffer) At(x, z int) (Vec3, bool) {
	if x < 0 || z < 0 || x >= b.Width || z >= b.Depth {
		return Vec3{}, false
	}
	i := z*b.Width + x
	if !b.Valid[i] || math.IsNaN(b.VX[i]) || math.IsNaN(b.VZ[i]) {
		return Vec3{}, false
	}
	return Vec3{X: b.VX[i], Z: b.VZ[i]}, true
}

// SampleNormalized performs nearest sampling at a normalized plane coordinate.
func (b *VelocityBuffer) SampleNormalized(p Projector, u, v float64) (Vec3, bool) {
	x, z, ok := p.CellAt(u, v)
	if !ok {
		return Vec3{}, false
	}
	return b.At(x, z)
}
