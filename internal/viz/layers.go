// Package viz turns simulation buffers into images and text for the debug
// viewers. It has no windowing dependencies so it can run headless.
package viz

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"crowdfield.ai/internal/sim/biocrowds"
)

type Layer int

const (
	LayerRefined Layer = iota
	LayerRaw
	LayerWeight
	LayerComfort
	LayerVelocity
	layerCount
)

var layerNames = [layerCount]string{"refined", "raw", "weight", "comfort", "velocity"}

func (l Layer) String() string {
	if l < 0 || l >= layerCount {
		return fmt.Sprintf("layer(%d)", int(l))
	}
	return layerNames[l]
}

// Next cycles through the layers.
func (l Layer) Next() Layer { return (l + 1) % layerCount }

func Layers() []Layer {
	out := make([]Layer, layerCount)
	for i := range out {
		out[i] = Layer(i)
	}
	return out
}

var (
	colorBlocked    = color.RGBA{60, 60, 60, 255}
	colorUnassigned = color.RGBA{12, 12, 16, 255}
)

// Render draws one pixel per cell with +Z pointing up. dst is reused when
// its bounds match the grid.
func Render(s *biocrowds.Sim, layer Layer, dst *image.RGBA) *image.RGBA {
	p := s.Projector()
	w, d := p.Width(), p.Depth()
	if dst == nil || dst.Bounds().Dx() != w || dst.Bounds().Dy() != d {
		dst = image.NewRGBA(image.Rect(0, 0, w, d))
	}
	maxSpeed := s.Options().MaxSpeed
	for z := 0; z < d; z++ {
		y := d - 1 - z
		for x := 0; x < w; x++ {
			i := p.Index(x, z)
			var c color.RGBA
			switch layer {
			case LayerRaw:
				c = ownerColor(s.Ownership(), i)
			case LayerWeight:
				c = gray(float64(s.Velocity().Weight[i]))
				if !s.Velocity().Valid[i] {
					c = colorBlocked
				}
			case LayerComfort:
				c = gray(s.Comfort().At(i))
			case LayerVelocity:
				c = velocityColor(s.Velocity(), i, maxSpeed)
			default:
				c = ownerColor(s.RefinedOwnership(), i)
			}
			dst.SetRGBA(x, y, c)
		}
	}
	return dst
}

func ownerColor(b *biocrowds.OwnershipBuffer, i int) color.RGBA {
	switch id := b.Owner[i]; {
	case id == biocrowds.Blocked:
		return colorBlocked
	case id < 0:
		return colorUnassigned
	default:
		pc := biocrowds.PaletteColor(int(id))
		// Fade toward the edge of the search radius.
		k := 1 - 0.6*float64(b.Dist[i])
		return color.RGBA{u8(float64(pc[0]) * k), u8(float64(pc[1]) * k), u8(float64(pc[2]) * k), 255}
	}
}

// velocityColor maps direction to red/green and speed to brightness.
func velocityColor(b *biocrowds.VelocityBuffer, i int, maxSpeed float64) color.RGBA {
	if !b.Valid[i] {
		return colorBlocked
	}
	vx, vz := b.VX[i], b.VZ[i]
	sp := math.Hypot(vx, vz)
	if sp == 0 || maxSpeed <= 0 {
		return colorUnassigned
	}
	k := math.Min(sp/maxSpeed, 1)
	return color.RGBA{
		u8((0.5 + 0.5*vx/sp) * k),
		u8((0.5 + 0.5*vz/sp) * k),
		u8(0.25 * k),
		255,
	}
}

func gray(v float64) color.RGBA {
	g := u8(v)
	return color.RGBA{g, g, g, 255}
}

func u8(v float64) uint8 {
	switch {
	case !(v > 0):
		return 0
	case v >= 1:
		return 255
	default:
		return uint8(v*255 + 0.5)
	}
}

// WorldToPixel maps a ground position to image coordinates of Render's
// output at scale pixels per cell.
func WorldToPixel(p biocrowds.Projector, pos biocrowds.Vec3, scale float64) (float64, float64) {
	g := p.WorldToGrid(pos)
	return g.X * scale, (float64(p.Depth()) - g.Z) * scale
}

// Report is a plain-text dump of the current agent state, one line per agent.
func Report(runID string, s *biocrowds.Sim) string {
	var b strings.Builder
	agents := s.Frame().Agents
	fmt.Fprintf(&b, "run=%s tick=%d active=%d/%d digest=%s\n", runID, s.Tick(), s.Active(), len(agents), s.Digest())
	counts := s.RefinedOwnership().Counts(len(agents))
	fields := s.Frame().Fields
	for i, a := range agents {
		state := "walking"
		if a.Finished {
			state = "arrived"
		}
		markers := 0
		if i < len(fields) {
			markers = fields[i].Markers
		}
		fmt.Fprintf(&b, "%3d %-10s pos=(%.3f,%.3f) goal=(%.3f,%.3f) dist=%.3f speed=%.3f cells=%d markers=%d %s\n",
			a.ID, a.Name, a.Pos.X, a.Pos.Z, a.Goal.X, a.Goal.Z, a.GoalDistance(), a.Vel.PlanarLen(), counts[i], markers, state)
	}
	return b.String()
}
