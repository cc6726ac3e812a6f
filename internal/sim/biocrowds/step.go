package biocrowds

import (
	"context"
	"math"
)

// StepReport lists what happened to each agent during one tick.
type StepReport struct {
	Tick    uint64
	DT      float64
	Moved   []int
	Held    []int
	Skipped []int
	Arrived []int
}

// TurnFactor is the heading interpolation factor for a tick of length dt.
func TurnFactor(dt float64) float64 {
	return min(MaxTurnFactor, dt/TurnTimeScale)
}

// stepAgents integrates every active agent from the velocity sampled at its
// own projected position. Agents are independent and only read the field,
// so the loop order does not matter.
func stepAgents(_ context.Context, f *Frame) error {
	alpha := TurnFactor(f.DT)
	rep := &f.Report
	for i := range f.Agents {
		a := &f.Agents[i]
		if a.Finished {
			continue
		}
		u, v := f.Projector.WorldToNormalized(a.Pos)
		sample, ok := f.Velocity.SampleNormalized(f.Projector, u, v)
		if !ok || sample.HasNaN() {
			rep.Skipped = append(rep.Skipped, i)
			continue
		}
		if sample.IsZero() {
			// Nothing steers the agent this tick: hold position and heading.
			rep.Held = append(rep.Held, i)
		} else {
			dir := sample.Normalize()
			if fwd := a.Forward.Lerp(dir, alpha).Normalize(); !fwd.IsZero() {
				a.Forward = fwd
			}
			a.Vel = sample
			a.Pos = a.Pos.Add(sample.Scale(f.DT))
			rep.Moved = append(rep.Moved, i)
		}
		if a.Pos.PlanarDist(a.Goal) < ArrivalTolerance {
			a.Finished = true
			rep.Arrived = append(rep.Arrived, i)
		}
	}
	return nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
