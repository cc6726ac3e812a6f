package biocrowds

import (
	"context"
	"math"
)

// AgentField summarizes what the field builder saw for one agent this tick.
type AgentField struct {
	Cells    int
	Markers  int
	Weight   float64
	Velocity Vec3
}

// markerWeight is the BioCrowds attraction of a marker at offset (mx, mz)
// for an agent heading toward (gx, gz): (1 + cos theta) / (1 + |m|).
// cos theta is 0 when either vector has zero length.
func markerWeight(mx, mz, gx, gz, glen float64) float64 {
	ml := math.Hypot(mx, mz)
	cos := 0.0
	if ml > 0 && glen > 0 {
		cos = (mx*gx + mz*gz) / (ml * glen)
	}
	return (1 + cos) / (1 + ml)
}

func buildVelocity(ctx context.Context, f *Frame) error {
	vb := f.Velocity
	ref := f.Refined
	w := f.Projector.Width()
	markers := f.Markers.markers

	err := f.Backend.ParallelRows(ctx, f.Projector.Depth(), func(z0, z1 int) error {
		for i := z0 * w; i < z1*w; i++ {
			vb.VX[i], vb.VZ[i], vb.Weight[i] = 0, 0, 0
			vb.Valid[i] = ref.Owner[i] != Blocked
			for _, mi := range f.Markers.CellMarkers(i) {
				markers[mi].Owner = Unassigned
				markers[mi].Weight = 0
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if len(f.Fields) != len(f.Agents) {
		f.Fields = make([]AgentField, len(f.Agents))
	}
	// Each agent writes only the cells it owns, so agents never overlap.
	return f.Backend.ParallelItems(ctx, len(f.Agents), func(ai int) error {
		f.Fields[ai] = buildAgentField(f, ai)
		return nil
	})
}

// fieldSample is one weighted contribution: a marker, or the cell center of
// an owned cell that received no markers.
type fieldSample struct {
	cell   int
	marker int32
	fc     float64
}

func buildAgentField(f *Frame, ai int) AgentField {
	a := &f.Agents[ai]
	if a.Finished {
		return AgentField{}
	}
	cx, cz := f.Projector.CellSize()
	x0, z0, x1, z1, ok := f.Projector.CellRange(a.Pos, f.Options.SearchRadius+2*max(cx, cz))
	if !ok {
		return AgentField{}
	}
	id := int32(ai)
	w := f.Projector.Width()
	gx, gz := a.planarOffset(a.Goal.X, a.Goal.Z)
	glen := math.Hypot(gx, gz)

	var (
		out     AgentField
		samples []fieldSample
		sumW    float64
		mx, mz  float64
		maxFC   float64
	)
	add := func(cell int, marker int32, p Vec3) {
		dx, dz := a.planarOffset(p.X, p.Z)
		fw := markerWeight(dx, dz, gx, gz, glen)
		fc := fw * f.Comfort.At(cell)
		sumW += fw
		mx += fc * dx
		mz += fc * dz
		maxFC = max(maxFC, fc)
		samples = append(samples, fieldSample{cell: cell, marker: marker, fc: fc})
	}
	for z := z0; z <= z1; z++ {
		for x := x0; x <= x1; x++ {
			i := z*w + x
			if f.Refined.Owner[i] != id {
				continue
			}
			out.Cells++
			ms := f.Markers.CellMarkers(i)
			if len(ms) == 0 {
				add(i, -1, f.Projector.CellCenter(x, z))
				continue
			}
			for _, mi := range ms {
				m := &f.Markers.markers[mi]
				add(i, mi, f.Projector.GridToWorld(GridCoord{X: m.X, Z: m.Z}))
				out.Markers++
			}
		}
	}
	if sumW <= 0 {
		return out
	}

	out.Weight = sumW
	avgX, avgZ := mx/sumW, mz/sumW
	if mag := math.Hypot(avgX, avgZ); mag > 0 {
		s := min(mag, f.Options.MaxSpeed)
		out.Velocity = Vec3{X: avgX / mag * s, Z: avgZ / mag * s}
	}

	// Per-cell weight is the mean normalized contribution of its samples.
	vb := f.Velocity
	counts := make(map[int]int, out.Cells)
	for _, s := range samples {
		vb.Weight[s.cell] += float32(s.fc / sumW)
		counts[s.cell]++
		if s.marker >= 0 {
			m := &f.Markers.markers[s.marker]
			m.Owner = id
			if maxFC > 0 {
				m.Weight = float32(s.fc / maxFC)
			}
		}
	}
	for cell, n := range counts {
		vb.VX[cell] = out.Velocity.X
		vb.VZ[cell] = out.Velocity.Z
		vb.Weight[cell] /= float32(n)
	}
	return out
}
