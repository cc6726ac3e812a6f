package main

import (
	"flag"
	"log"
	"os"

	"github.com/hajimehoshi/ebiten/v2"

	"crowdfield.ai/internal/sim/scenario"
	"crowdfield.ai/internal/sim/tuning"
	"crowdfield.ai/internal/sim/world"
)

func main() {
	var (
		scenarioRef = flag.String("scenario", "crossing", "built-in scenario name or path to a scenario yaml")
		tuningPath  = flag.String("tuning", "", "path to tuning.yaml (default: built-in defaults)")
		scale       = flag.Int("scale", 4, "window pixels per grid cell")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[viewer] ", log.LstdFlags|log.Lmicroseconds)

	base := tuning.Defaults()
	if *tuningPath != "" {
		t, err := tuning.Load(*tuningPath)
		if err != nil {
			logger.Fatalf("load tuning: %v", err)
		}
		base = t
	}
	sc, err := scenario.Resolve(*scenarioRef, base)
	if err != nil {
		logger.Fatalf("scenario: %v", err)
	}
	newWorld := func() (*world.World, error) {
		return world.New(world.ConfigFromScenario("viewer", sc))
	}
	g, err := newGame(newWorld, *scale, logger)
	if err != nil {
		logger.Fatalf("world: %v", err)
	}

	ebiten.SetWindowTitle("crowdfield - " + sc.Name)
	ebiten.SetWindowSize(g.screenW, g.screenH)
	ebiten.SetTPS(sc.Tuning.TickRateHz)
	if err := ebiten.RunGame(g); err != nil {
		logger.Fatal(err)
	}
}
