package main

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"log"

	"github.com/atotto/clipboard"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"crowdfield.ai/internal/sim/biocrowds"
	"crowdfield.ai/internal/sim/world"
	"crowdfield.ai/internal/viz"
)

const hudH = 56

type Game struct {
	newWorld func() (*world.World, error)
	world    *world.World
	log      *log.Logger

	scale            int
	screenW, screenH int

	layer       viz.Layer
	paused      bool
	stepOnce    bool
	drawMarkers bool
	status      string

	pixels *image.RGBA
	field  *ebiten.Image

	prevKeys map[ebiten.Key]bool
}

func newGame(newWorld func() (*world.World, error), scale int, logger *log.Logger) (*Game, error) {
	w, err := newWorld()
	if err != nil {
		return nil, err
	}
	if scale < 1 {
		scale = 1
	}
	// Fields exist before the first tick so the window is never blank.
	if err := w.Sim().BuildFields(context.Background()); err != nil {
		return nil, err
	}
	p := w.Sim().Projector()
	return &Game{
		newWorld:    newWorld,
		world:       w,
		log:         logger,
		scale:       scale,
		screenW:     p.Width() * scale,
		screenH:     p.Depth()*scale + hudH,
		drawMarkers: w.Config().Tuning.DrawMarkers,
		field:       ebiten.NewImage(p.Width(), p.Depth()),
		prevKeys:    make(map[ebiten.Key]bool),
	}, nil
}

func (g *Game) pressed(k ebiten.Key, current map[ebiten.Key]bool) bool {
	current[k] = ebiten.IsKeyPressed(k)
	return current[k] && !g.prevKeys[k]
}

func (g *Game) Update() error {
	currentKeys := map[ebiten.Key]bool{}
	layerKeys := []ebiten.Key{ebiten.Key1, ebiten.Key2, ebiten.Key3, ebiten.Key4, ebiten.Key5}
	for i, k := range layerKeys {
		if g.pressed(k, currentKeys) && i < len(viz.Layers()) {
			g.layer = viz.Layers()[i]
		}
	}
	if g.pressed(ebiten.KeyTab, currentKeys) {
		g.layer = g.layer.Next()
	}
	if g.pressed(ebiten.KeySpace, currentKeys) {
		g.paused = !g.paused
	}
	if g.pressed(ebiten.KeyPeriod, currentKeys) {
		g.stepOnce = true
	}
	if g.pressed(ebiten.KeyM, currentKeys) {
		g.drawMarkers = !g.drawMarkers
	}
	if g.pressed(ebiten.KeyC, currentKeys) {
		if err := clipboard.WriteAll(viz.Report(g.world.ID(), g.world.Sim())); err != nil {
			g.status = "copy failed: " + err.Error()
		} else {
			g.status = fmt.Sprintf("copied report at tick %d", g.world.CurrentTick())
		}
	}
	if g.pressed(ebiten.KeyR, currentKeys) {
		w, err := g.newWorld()
		if err == nil {
			err = w.Sim().BuildFields(context.Background())
		}
		if err != nil {
			g.status = "reset failed: " + err.Error()
		} else {
			g.world = w
			g.status = "reset"
		}
	}
	g.prevKeys = currentKeys

	if (!g.paused || g.stepOnce) && !g.world.Sim().Done() {
		g.stepOnce = false
		if _, _, err := g.world.StepOnce(context.Background()); err != nil {
			g.log.Printf("step: %v", err)
			g.paused = true
		}
	}
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	sim := g.world.Sim()
	p := sim.Projector()
	s := float64(g.scale)

	g.pixels = viz.Render(sim, g.layer, g.pixels)
	g.field.WritePixels(g.pixels.Pix)
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(s, s)
	screen.DrawImage(g.field, op)

	if g.drawMarkers {
		g.drawMarkerField(screen, sim)
	}

	obstacleColor := color.RGBA{230, 230, 230, 255}
	for _, o := range sim.Obstacles() {
		for i := 0; i+1 < len(o.Boundary); i++ {
			a, b := o.Boundary[i], o.Boundary[i+1]
			ax, ay := viz.WorldToPixel(p, biocrowds.Vec3{X: a[0], Z: a[1]}, s)
			bx, by := viz.WorldToPixel(p, biocrowds.Vec3{X: b[0], Z: b[1]}, s)
			vector.StrokeLine(screen, float32(ax), float32(ay), float32(bx), float32(by), 1.5, obstacleColor, true)
		}
	}

	for _, a := range sim.Frame().Agents {
		x, y := viz.WorldToPixel(p, a.Pos, s)
		gx, gy := viz.WorldToPixel(p, a.Goal, s)
		c := color.RGBA{uint8(a.Color[0] * 255), uint8(a.Color[1] * 255), uint8(a.Color[2] * 255), 255}
		vector.StrokeLine(screen, float32(x), float32(y), float32(gx), float32(gy), 1, color.RGBA{c.R / 3, c.G / 3, c.B / 3, 255}, true)
		radius := float32(max(3, g.scale))
		if a.Finished {
			vector.StrokeCircle(screen, float32(x), float32(y), radius, 1, c, true)
			continue
		}
		vector.DrawFilledCircle(screen, float32(x), float32(y), radius, c, true)
		fx, fy := viz.WorldToPixel(p, a.Pos.Add(a.Forward), s)
		vector.StrokeLine(screen, float32(x), float32(y), float32(fx), float32(fy), 1.5, color.White, true)
	}

	hudY := p.Depth() * g.scale
	vector.DrawFilledRect(screen, 0, float32(hudY), float32(g.screenW), hudH, color.RGBA{20, 20, 28, 255}, false)
	state := "running"
	if g.paused {
		state = "paused"
	}
	ebitenutil.DebugPrintAt(screen, fmt.Sprintf("tick=%d active=%d/%d layer=%s %s",
		g.world.CurrentTick(), sim.Active(), len(sim.Frame().Agents), g.layer, state), 6, hudY+4)
	ebitenutil.DebugPrintAt(screen, "[1-5/Tab] layer  [Space] pause  [.] step  [M] markers  [C] copy  [R] reset", 6, hudY+20)
	if g.status != "" {
		ebitenutil.DebugPrintAt(screen, g.status, 6, hudY+36)
	}
}

// Marker positions are in grid units.
func (g *Game) drawMarkerField(screen *ebiten.Image, sim *biocrowds.Sim) {
	depth := float64(sim.Projector().Depth())
	s := float64(g.scale)
	for _, m := range sim.Markers().Markers() {
		c := color.RGBA{90, 90, 90, 255}
		if m.Owner >= 0 {
			k := uint8(80 + 175*m.Weight)
			c = color.RGBA{k, k, 40, 255}
		}
		vector.DrawFilledRect(screen, float32(m.X*s), float32((depth-m.Z)*s), 1, 1, c, false)
	}
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.screenW, g.screenH
}
