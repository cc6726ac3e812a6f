package scenario

import (
	"fmt"
	"math"

	"crowdfield.ai/internal/sim/biocrowds"
)

// Generator places a family of agents procedurally.
//
//	circle: Count agents evenly on a ring of Radius around Center, each
//	        heading for the opposite side.
//	lanes:  two opposing lanes of Length along X through Center, Count
//	        agents split between them, rows Spacing apart.
//	grid:   a square block of Count agents Spacing apart around Center,
//	        each heading for its own position plus Offset.
type Generator struct {
	Kind    string     `yaml:"kind"`
	Count   int        `yaml:"count"`
	Center  [2]float64 `yaml:"center"`
	Radius  float64    `yaml:"radius"`
	Length  float64    `yaml:"length"`
	Spacing float64    `yaml:"spacing"`
	Offset  [2]float64 `yaml:"offset"`
}

func (g Generator) Agents() ([]biocrowds.Agent, error) {
	if g.Count <= 0 {
		return nil, fmt.Errorf("count must be positive (got %d)", g.Count)
	}
	cx, cz := g.Center[0], g.Center[1]
	out := make([]biocrowds.Agent, 0, g.Count)
	switch g.Kind {
	case "circle":
		if g.Radius <= 0 {
			return nil, fmt.Errorf("circle needs a positive radius")
		}
		for i := 0; i < g.Count; i++ {
			th := 2 * math.Pi * float64(i) / float64(g.Count)
			dx, dz := g.Radius*math.Cos(th), g.Radius*math.Sin(th)
			out = append(out, biocrowds.Agent{
				Name: fmt.Sprintf("circle-%d", i),
				Pos:  biocrowds.Vec3{X: cx + dx, Z: cz + dz},
				Goal: biocrowds.Vec3{X: cx - dx, Z: cz - dz},
			})
		}
	case "lanes":
		if g.Length <= 0 || g.Spacing <= 0 {
			return nil, fmt.Errorf("lanes need positive length and spacing")
		}
		perLane := [2]int{(g.Count + 1) / 2, g.Count / 2}
		slot := [2]int{}
		half := g.Length / 2
		for i := 0; i < g.Count; i++ {
			lane := i % 2
			k := slot[lane]
			slot[lane]++
			z := cz + (float64(k)-float64(perLane[lane]-1)/2)*g.Spacing
			dir := 1.0
			if lane == 1 {
				z += g.Spacing / 2
				dir = -1
			}
			out = append(out, biocrowds.Agent{
				Name: fmt.Sprintf("lane%d-%d", lane, k),
				Pos:  biocrowds.Vec3{X: cx - dir*half, Z: z},
				Goal: biocrowds.Vec3{X: cx + dir*half, Z: z},
			})
		}
	case "grid":
		if g.Spacing <= 0 {
			return nil, fmt.Errorf("grid needs a positive spacing")
		}
		cols := int(math.Ceil(math.Sqrt(float64(g.Count))))
		rows := (g.Count + cols - 1) / cols
		for i := 0; i < g.Count; i++ {
			r, c := i/cols, i%cols
			x := cx + (float64(c)-float64(cols-1)/2)*g.Spacing
			z := cz + (float64(r)-float64(rows-1)/2)*g.Spacing
			out = append(out, biocrowds.Agent{
				Name: fmt.Sprintf("grid-%d", i),
				Pos:  biocrowds.Vec3{X: x, Z: z},
				Goal: biocrowds.Vec3{X: x + g.Offset[0], Z: z + g.Offset[1]},
			})
		}
	default:
		return nil, fmt.Errorf("unknown generator kind %q", g.Kind)
	}
	return out, nil
}
