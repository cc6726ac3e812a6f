package biocrowds

import (
	"context"
	"math"
	"sync/atomic"
)

func refineOwnership(ctx context.Context, f *Frame) error {
	f.Refined.CopyFrom(f.Ownership)
	return refineBuffer(ctx, f, f.Refined)
}

// refineBuffer replaces every boundary cell with its analytic owner, sweeping
// the boundary wavefront until a sweep changes nothing. On return every
// boundary cell already holds its analytic owner, so a second run is a no-op.
// Sweeps read buf and write a separate next state, so the result does not
// depend on how rows are scheduled.
func refineBuffer(ctx context.Context, f *Frame, buf *OwnershipBuffer) error {
	ix := newAgentIndex(f)
	w, d := buf.Width, buf.Depth
	n := w * d
	settled := make([]bool, n)
	nextOwner := make([]int32, n)
	nextDist := make([]float32, n)

	for {
		var changed atomic.Int64
		err := f.Backend.ParallelRows(ctx, d, func(z0, z1 int) error {
			var local int64
			for z := z0; z < z1; z++ {
				for x := 0; x < w; x++ {
					i := z*w + x
					nextOwner[i], nextDist[i] = buf.Owner[i], buf.Dist[i]
					if settled[i] || buf.Owner[i] == Blocked || !isBoundary(buf, x, z) {
						continue
					}
					settled[i] = true
					id := ix.analyticOwner(f, i, x, z)
					if id != buf.Owner[i] {
						c := f.Projector.CellCenter(x, z)
						nextOwner[i] = id
						nextDist[i] = ix.normalizedDist(id, c.X, c.Z)
						local++
					}
				}
			}
			changed.Add(local)
			return nil
		})
		if err != nil {
			return err
		}
		copy(buf.Owner, nextOwner)
		copy(buf.Dist, nextDist)
		if changed.Load() == 0 {
			return nil
		}
	}
}

// isBoundary reports whether any in-bounds 8-neighbor has a different owner.
func isBoundary(buf *OwnershipBuffer, x, z int) bool {
	o := buf.Owner[z*buf.Width+x]
	for dz := -1; dz <= 1; dz++ {
		nz := z + dz
		if nz < 0 || nz >= buf.Depth {
			continue
		}
		for dx := -1; dx <= 1; dx++ {
			nx := x + dx
			if (dx == 0 && dz == 0) || nx < 0 || nx >= buf.Width {
				continue
			}
			if buf.Owner[nz*buf.Width+nx] != o {
				return true
			}
		}
	}
	return false
}

type ownerVote struct {
	id    int32
	n     int
	bestD float64
}

// beats orders candidates: more votes, then any agent over none, then the
// closer nearest sample, then the lower id.
func (v ownerVote) beats(o ownerVote) bool {
	if v.n != o.n {
		return v.n > o.n
	}
	if (v.id < 0) != (o.id < 0) {
		return v.id >= 0
	}
	if v.bestD != o.bestD {
		return v.bestD < o.bestD
	}
	return v.id < o.id
}

// analyticOwner resolves a cell at sub-cell precision: each of its markers
// votes for its exact nearest qualifying agent. Cells without markers fall
// back to the exact test at the center.
func (ix *agentIndex) analyticOwner(f *Frame, cell, x, z int) int32 {
	ms := f.Markers.CellMarkers(cell)
	if len(ms) == 0 {
		c := f.Projector.CellCenter(x, z)
		id, _ := ix.nearest(c.X, c.Z)
		return id
	}
	var buf [8]ownerVote
	votes := buf[:0]
	for _, mi := range ms {
		m := &f.Markers.markers[mi]
		p := f.Projector.GridToWorld(GridCoord{X: m.X, Z: m.Z})
		id, d := ix.nearest(p.X, p.Z)
		if id < 0 {
			d = math.Inf(1)
		}
		k := -1
		for j := range votes {
			if votes[j].id == id {
				k = j
				break
			}
		}
		if k < 0 {
			votes = append(votes, ownerVote{id: id, bestD: d})
			k = len(votes) - 1
		}
		votes[k].n++
		if d < votes[k].bestD {
			votes[k].bestD = d
		}
	}
	win := votes[0]
	for _, v := range votes[1:] {
		if v.beats(win) {
			win = v
		}
	}
	return win.id
}
