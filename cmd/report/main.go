package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"sort"

	"crowdfield.ai/internal/persistence/indexdb"
	"crowdfield.ai/internal/sim/scenario"
	"crowdfield.ai/internal/sim/tuning"
	"crowdfield.ai/internal/sim/world"
)

type runStats struct {
	runIndex int
	seed     uint32
	runID    string

	agents  int
	ticks   int
	arrived int

	firstArrivalTick int
	lastArrivalTick  int

	held    int
	skipped int

	// minCells is the smallest refined partition any active agent held on any tick.
	minCells   int
	meanSpeed  float64
	peakSpeed  float64
	stepMillis float64
}

type runConfig struct {
	ticks   int
	seed    uint32
	workers int
	index   *indexdb.SQLiteIndex
}

type runOption func(*runConfig)

func withTicks(n int) runOption      { return func(c *runConfig) { c.ticks = n } }
func withSeed(seed uint32) runOption { return func(c *runConfig) { c.seed = seed } }
func withWorkers(n int) runOption    { return func(c *runConfig) { c.workers = n } }

func withIndex(idx *indexdb.SQLiteIndex) runOption {
	return func(c *runConfig) { c.index = idx }
}

func main() {
	var runs int
	var ticks int
	var seedBase uint
	var seedStep uint
	var scenarioRef string
	var tuningPath string
	var indexPath string
	var workers int

	flag.IntVar(&runs, "runs", 3, "number of headless simulation runs")
	flag.IntVar(&ticks, "ticks", 600, "max ticks per run (stops early once every agent arrives)")
	flag.UintVar(&seedBase, "seed-base", 1, "marker seed for run 1")
	flag.UintVar(&seedStep, "seed-step", 1, "marker seed increment between runs")
	flag.StringVar(&scenarioRef, "scenario", "crossing", "built-in scenario name or path to a scenario yaml")
	flag.StringVar(&tuningPath, "tuning", "", "path to tuning.yaml (default: built-in defaults)")
	flag.StringVar(&indexPath, "index", "", "sqlite index to record runs into (optional)")
	flag.IntVar(&workers, "workers", 0, "worker goroutines (0: tuning value)")
	flag.Parse()

	if runs <= 0 {
		fmt.Println("error: -runs must be > 0")
		return
	}
	if ticks <= 0 {
		fmt.Println("error: -ticks must be > 0")
		return
	}

	base := tuning.Defaults()
	if tuningPath != "" {
		t, err := tuning.Load(tuningPath)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			return
		}
		base = t
	}
	sc, err := scenario.Resolve(scenarioRef, base)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}

	var idx *indexdb.SQLiteIndex
	if indexPath != "" {
		idx, err = indexdb.OpenSQLite(indexPath)
		if err != nil {
			fmt.Printf("error: open index: %v\n", err)
			return
		}
		defer idx.Close()
	}

	fmt.Printf("=== Headless Crowd Report ===\n")
	fmt.Printf("scenario=%s agents=%d obstacles=%d runs=%d ticks=%d seed_base=%d seed_step=%d\n\n",
		sc.Name, len(sc.Agents), len(sc.Obstacles), runs, ticks, seedBase, seedStep)

	all := make([]runStats, 0, runs)
	for i := 0; i < runs; i++ {
		seed := uint32(seedBase + uint(i)*seedStep)
		opts := []runOption{withTicks(ticks), withSeed(seed), withWorkers(workers)}
		if idx != nil {
			opts = append(opts, withIndex(idx))
		}
		rs, err := runScenario(context.Background(), i+1, sc, opts...)
		if err != nil {
			fmt.Printf("error: run %d: %v\n", i+1, err)
			return
		}
		all = append(all, rs)
		printRun(rs)
	}

	printAggregate(all)
	if idx != nil {
		idx.Sync()
		printIndex(idx, all)
	}
}

func runScenario(ctx context.Context, runIndex int, sc *scenario.Scenario, opts ...runOption) (runStats, error) {
	rc := runConfig{ticks: 600, seed: sc.Tuning.MarkerSeed}
	for _, o := range opts {
		o(&rc)
	}

	cfg := world.ConfigFromScenario("", sc)
	cfg.Tuning.MarkerSeed = rc.seed
	if rc.workers > 0 {
		cfg.Tuning.Workers = rc.workers
	}
	w, err := world.New(cfg)
	if err != nil {
		return runStats{}, err
	}

	rs := runStats{
		runIndex:         runIndex,
		seed:             rc.seed,
		agents:           len(cfg.Agents),
		firstArrivalTick: -1,
		lastArrivalTick:  -1,
		minCells:         -1,
	}
	if rc.index != nil {
		id, err := rc.index.BeginRun(indexdb.RunInfo{
			Scenario:  sc.Name,
			Tuning:    cfg.Tuning,
			Agents:    len(cfg.Agents),
			Obstacles: len(cfg.Obstacles),
		})
		if err != nil {
			return rs, err
		}
		rs.runID = id
		w.SetTickLogger(rc.index)
		w.SetArrivalLogger(rc.index)
	}

	var speedSum float64
	var speedN int
	sim := w.Sim()
	for i := 0; i < rc.ticks && !sim.Done(); i++ {
		if _, _, err := w.StepOnce(ctx); err != nil {
			return rs, err
		}
		m := w.Metrics()
		rs.ticks++
		rs.held += m.Held
		rs.skipped += m.Skipped
		rs.stepMillis += m.StepMS

		counts := sim.RefinedOwnership().Counts(rs.agents)
		for _, a := range sim.Frame().Agents {
			if a.Finished {
				continue
			}
			if c := counts[a.ID]; rs.minCells < 0 || c < rs.minCells {
				rs.minCells = c
			}
			s := a.Vel.PlanarLen()
			speedSum += s
			speedN++
			rs.peakSpeed = math.Max(rs.peakSpeed, s)
		}
		if n := rs.agents - m.Active; n > rs.arrived {
			if rs.firstArrivalTick < 0 {
				rs.firstArrivalTick = i
			}
			rs.lastArrivalTick = i
			rs.arrived = n
		}
	}
	if speedN > 0 {
		rs.meanSpeed = speedSum / float64(speedN)
	}
	if rs.ticks > 0 {
		rs.stepMillis /= float64(rs.ticks)
	}
	if rc.index != nil {
		rc.index.EndRun(w.CurrentTick())
	}
	return rs, nil
}

func printRun(rs runStats) {
	fmt.Printf("--- Run %d (seed=%d) ---\n", rs.runIndex, rs.seed)
	if rs.runID != "" {
		fmt.Printf("run_id=%s\n", rs.runID)
	}
	fmt.Printf("arrivals: %d/%d first=%d last=%d ticks=%d\n",
		rs.arrived, rs.agents, rs.firstArrivalTick, rs.lastArrivalTick, rs.ticks)
	fmt.Printf("agent_ticks: held=%d skipped=%d\n", rs.held, rs.skipped)
	fmt.Printf("space: min_cells=%d speed_mean=%.3f speed_peak=%.3f step_ms=%.3f\n",
		rs.minCells, rs.meanSpeed, rs.peakSpeed, rs.stepMillis)
	fmt.Println()
}

func printAggregate(all []runStats) {
	var arrived, agents, held, skipped int
	minCells := -1
	lastTicks := make([]int, 0, len(all))
	for _, rs := range all {
		arrived += rs.arrived
		agents += rs.agents
		held += rs.held
		skipped += rs.skipped
		if rs.minCells >= 0 && (minCells < 0 || rs.minCells < minCells) {
			minCells = rs.minCells
		}
		if rs.lastArrivalTick >= 0 {
			lastTicks = append(lastTicks, rs.lastArrivalTick)
		}
	}
	fmt.Printf("=== Aggregate ===\n")
	fmt.Printf("arrival_rate=%.3f (%d/%d) held=%d skipped=%d min_cells=%d\n",
		ratio(arrived, agents), arrived, agents, held, skipped, minCells)
	fmt.Printf("last_arrival_tick: %s\n", describeTicks(lastTicks))
}

func printIndex(idx *indexdb.SQLiteIndex, all []runStats) {
	fmt.Printf("=== Index ===\n")
	for _, rs := range all {
		sum, err := idx.Summary(rs.runID)
		if err != nil {
			fmt.Printf("run %s: %v\n", rs.runID, err)
			continue
		}
		fmt.Printf("run %s: ticks=%d arrivals=%d mean_moved=%.2f max_held=%d\n",
			rs.runID, sum.Ticks, sum.Arrivals, sum.MeanMoved, sum.MaxHeld)
	}
}

func ratio(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b)
}

// describeTicks renders min/median/max, or "n/a" when empty.
func describeTicks(ticks []int) string {
	if len(ticks) == 0 {
		return "n/a"
	}
	s := append([]int(nil), ticks...)
	sort.Ints(s)
	return fmt.Sprintf("min=%d median=%d max=%d", s[0], s[len(s)/2], s[len(s)-1])
}
