package biocrowds

import "fmt"

// Marker is a sample point in grid space. Owner and Weight are rewritten every
// tick by the field builder; the position is fixed between regenerations.
type Marker struct {
	X, Z   float64
	Cell   int32
	Owner  int32
	Weight float32
}

// MarkerField holds the quasi-random markers covering the grid, bucketed by
// cell so a pass can visit the markers of one cell without scanning the set.
type MarkerField struct {
	seed uint32

	width, depth, perCell int

	markers   []Marker
	cellStart []int32
	order     []int32
}

func NewMarkerField(seed uint32) *MarkerField {
	return &MarkerField{seed: seed}
}

// Regenerate places width*depth*perCell markers from a 2D Sobol sequence.
// The result depends only on the arguments and the field's seed.
func (f *MarkerField) Regenerate(width, depth, perCell int) error {
	if width <= 0 || depth <= 0 || perCell <= 0 {
		return fmt.Errorf("%w: marker field %dx%d with %d per cell", ErrInvalidConfig, width, depth, perCell)
	}
	cells := width * depth
	n := cells * perCell
	f.width, f.depth, f.perCell = width, depth, perCell

	f.markers = make([]Marker, n)
	f.cellStart = make([]int32, cells+1)
	f.order = make([]int32, n)

	seq := newSobol2(f.seed)
	for i := range f.markers {
		u, v := seq.Point(uint32(i))
		x, z := u*float64(width), v*float64(depth)
		cx := min(int(x), width-1)
		cz := min(int(z), depth-1)
		cell := int32(cz*width + cx)
		f.markers[i] = Marker{X: x, Z: z, Cell: cell, Owner: Unassigned}
		f.cellStart[cell+1]++
	}
	for c := 1; c <= cells; c++ {
		f.cellStart[c] += f.cellStart[c-1]
	}
	next := make([]int32, cells)
	copy(next, f.cellStart[:cells])
	for i := range f.markers {
		c := f.markers[i].Cell
		f.order[next[c]] = int32(i)
		next[c]++
	}
	return nil
}

func (f *MarkerField) Len() int { return len(f.markers) }

// Markers exposes the marker slice for reading; callers must not modify it.
func (f *MarkerField) Markers() []Marker { return f.markers }

func (f *MarkerField) Dims() (width, depth, perCell int) { return f.width, f.depth, f.perCell }

// CellMarkers returns the indexes of the markers inside cell, ascending.
func (f *MarkerField) CellMarkers(cell int) []int32 {
	if cell < 0 || cell+1 >= len(f.cellStart) {
		return nil
	}
	return f.order[f.cellStart[cell]:f.cellStart[cell+1]]
}
