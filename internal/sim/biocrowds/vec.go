package biocrowds

import "math"

// Vec3 is a world-space position or direction. Y is height above the ground
// plane; the pipeline itself only works in XZ.
type Vec3 struct {
	X, Y, Z float64
}

func (a Vec3) Add(b Vec3) Vec3           { return Vec3{a.X + b.X, a.Y + b.Y, a.Z + b.Z} }
func (a Vec3) Sub(b Vec3) Vec3           { return Vec3{a.X - b.X, a.Y - b.Y, a.Z - b.Z} }
func (a Vec3) Scale(s float64) Vec3      { return Vec3{a.X * s, a.Y * s, a.Z * s} }
func (a Vec3) Dot(b Vec3) float64        { return a.X*b.X + a.Y*b.Y + a.Z*b.Z }
func (a Vec3) Len() float64              { return math.Sqrt(a.Dot(a)) }
func (a Vec3) IsZero() bool              { return a.X == 0 && a.Y == 0 && a.Z == 0 }
func (a Vec3) Planar() Vec3              { return Vec3{X: a.X, Z: a.Z} }
func (a Vec3) PlanarLen() float64        { return math.Hypot(a.X, a.Z) }
func (a Vec3) PlanarDist(b Vec3) float64 { return math.Hypot(a.X-b.X, a.Z-b.Z) }

// Normalize returns the unit vector along a. The zero vector stays zero.
func (a Vec3) Normalize() Vec3 {
	l := a.Len()
	if l == 0 {
		return Vec3{}
	}
	return a.Scale(1 / l)
}

// Lerp mixes a toward b by t (t=0 -> a, t=1 -> b).
func (a Vec3) Lerp(b Vec3, t float64) Vec3 {
	return Vec3{
		X: a.X + (b.X-a.X)*t,
		Y: a.Y + (b.Y-a.Y)*t,
		Z: a.Z + (b.Z-a.Z)*t,
	}
}

func (a Vec3) HasNaN() bool {
	return math.IsNaN(a.X) || math.IsNaN(a.Y) || math.IsNaN(a.Z)
}
