package biocrowds

import "math"

// agentIndex buckets active agents on a uniform grid whose bucket edge equals
// the search radius, so every agent within reach of a point lives in the 3x3
// buckets around it. Bucket contents are in ascending id order.
type agentIndex struct {
	originX, originZ float64
	edge             float64
	nx, nz           int
	buckets          [][]int32

	agents    []Agent
	radius    float64
	obstacles obstacleSet
}

func newAgentIndex(f *Frame) *agentIndex {
	o := f.Options
	ix := &agentIndex{
		originX:   o.OriginX,
		originZ:   o.OriginZ,
		edge:      o.SearchRadius,
		nx:        max(1, int(math.Ceil(o.SizeX/o.SearchRadius))),
		nz:        max(1, int(math.Ceil(o.SizeZ/o.SearchRadius))),
		agents:    f.Agents,
		radius:    o.SearchRadius,
		obstacles: obstacleSet(f.Obstacles),
	}
	ix.buckets = make([][]int32, ix.nx*ix.nz)
	for i := range f.Agents {
		a := &f.Agents[i]
		if a.Finished {
			continue
		}
		b := ix.bucketOf(a.Pos.X, a.Pos.Z)
		ix.buckets[b] = append(ix.buckets[b], int32(i))
	}
	return ix
}

func (ix *agentIndex) coords(x, z float64) (int, int) {
	bx := int(math.Floor((x - ix.originX) / ix.edge))
	bz := int(math.Floor((z - ix.originZ) / ix.edge))
	return min(max(bx, 0), ix.nx-1), min(max(bz, 0), ix.nz-1)
}

func (ix *agentIndex) bucketOf(x, z float64) int {
	bx, bz := ix.coords(x, z)
	return bz*ix.nx + bx
}

// nearest returns the closest active agent within the search radius whose
// straight path to (x, z) is not occluded, with ties going to the lower id.
func (ix *agentIndex) nearest(x, z float64) (int32, float64) {
	best, bestD := Unassigned, math.Inf(1)
	bx, bz := ix.coords(x, z)
	for j := max(bz-1, 0); j <= min(bz+1, ix.nz-1); j++ {
		for i := max(bx-1, 0); i <= min(bx+1, ix.nx-1); i++ {
			for _, id := range ix.buckets[j*ix.nx+i] {
				a := &ix.agents[id]
				d := math.Hypot(x-a.Pos.X, z-a.Pos.Z)
				if d > ix.radius {
					continue
				}
				if d > bestD || (d == bestD && id > best) {
					continue
				}
				if ix.obstacles.occludes(a.Pos.X, a.Pos.Z, x, z) {
					continue
				}
				best, bestD = id, d
			}
		}
	}
	return best, bestD
}

// normalizedDist is the distance from (x, z) to agent id over the search
// radius; unowned points read as 1.
func (ix *agentIndex) normalizedDist(id int32, x, z float64) float32 {
	if id < 0 {
		return 1
	}
	a := &ix.agents[id]
	return float32(math.Hypot(x-a.Pos.X, z-a.Pos.Z) / ix.radius)
}
