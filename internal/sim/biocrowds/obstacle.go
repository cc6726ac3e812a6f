package biocrowds

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Obstacle is an immutable footprint on the ground plane. Boundary points are
// (world x, world z). It blocks ownership inside its footprint and across it.
type Obstacle struct {
	ID       int
	Boundary orb.Ring

	bound orb.Bound
}

// NewObstacle builds an obstacle from an ordered point list; the ring is
// closed if the caller left it open.
func NewObstacle(id int, points []orb.Point) (Obstacle, error) {
	if len(points) < 3 {
		return Obstacle{}, fmt.Errorf("%w: obstacle %d needs at least 3 points (got %d)", ErrInvalidConfig, id, len(points))
	}
	ring := make(orb.Ring, len(points), len(points)+1)
	copy(ring, points)
	if !ring.Closed() {
		ring = append(ring, ring[0])
	}
	return Obstacle{ID: id, Boundary: ring, bound: ring.Bound()}, nil
}

func (o Obstacle) Bound() orb.Bound { return o.bound }

// Contains reports whether the ground point (x, z) lies in the footprint.
func (o Obstacle) Contains(x, z float64) bool {
	p := orb.Point{x, z}
	if !o.bound.Contains(p) {
		return false
	}
	return planar.RingContains(o.Boundary, p)
}

// Occludes reports whether the segment a->b touches the footprint.
func (o Obstacle) Occludes(ax, az, bx, bz float64) bool {
	seg := orb.Bound{
		Min: orb.Point{min(ax, bx), min(az, bz)},
		Max: orb.Point{max(ax, bx), max(az, bz)},
	}
	if !o.bound.Intersects(seg) {
		return false
	}
	if o.Contains(bx, bz) || o.Contains(ax, az) {
		return true
	}
	a, b := orb.Point{ax, az}, orb.Point{bx, bz}
	for i := 0; i+1 < len(o.Boundary); i++ {
		if segmentsIntersect(a, b, o.Boundary[i], o.Boundary[i+1]) {
			return true
		}
	}
	return false
}

func cross(o, a, b orb.Point) float64 {
	return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
}

func onSegment(p, q, r orb.Point) bool {
	return min(p[0], r[0]) <= q[0] && q[0] <= max(p[0], r[0]) &&
		min(p[1], r[1]) <= q[1] && q[1] <= max(p[1], r[1])
}

// segmentsIntersect is inclusive: touching endpoints and collinear overlap count.
func segmentsIntersect(p1, p2, q1, q2 orb.Point) bool {
	d1 := cross(q1, q2, p1)
	d2 := cross(q1, q2, p2)
	d3 := cross(p1, p2, q1)
	d4 := cross(p1, p2, q2)
	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) && ((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	switch {
	case d1 == 0 && onSegment(q1, p1, q2):
		return true
	case d2 == 0 && onSegment(q1, p2, q2):
		return true
	case d3 == 0 && onSegment(p1, q1, p2):
		return true
	case d4 == 0 && onSegment(p1, q2, p2):
		return true
	}
	return false
}

type obstacleSet []Obstacle

func (s obstacleSet) contains(x, z float64) bool {
	for i := range s {
		if s[i].Contains(x, z) {
			return true
		}
	}
	return false
}

func (s obstacleSet) occludes(ax, az, bx, bz float64) bool {
	for i := range s {
		if s[i].Occludes(ax, az, bx, bz) {
			return true
		}
	}
	return false
}
