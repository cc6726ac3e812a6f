package world

import (
	"fmt"

	"github.com/paulmach/orb"

	"crowdfield.ai/internal/persistence/snapshot"
	"crowdfield.ai/internal/sim/biocrowds"
)

func (w *World) ExportSnapshot() snapshot.SnapshotV1 {
	agents := w.sim.Frame().Agents
	snap := snapshot.SnapshotV1{
		Header: snapshot.Header{
			Version:  snapshot.Version,
			RunID:    w.cfg.ID,
			Scenario: w.cfg.Scenario,
			Tick:     w.sim.Tick(),
		},
		Tuning: w.cfg.Tuning,
		Agents: make([]snapshot.AgentV1, len(agents)),
	}
	for i, a := range agents {
		snap.Agents[i] = snapshot.AgentV1{
			ID:       a.ID,
			Name:     a.Name,
			Pos:      vec3Arr(a.Pos),
			Forward:  vec3Arr(a.Forward),
			Vel:      vec3Arr(a.Vel),
			Goal:     vec3Arr(a.Goal),
			Finished: a.Finished,
			Color:    a.Color,
		}
	}
	for _, o := range w.sim.Obstacles() {
		ov := snapshot.ObstacleV1{ID: o.ID, Points: make([][2]float64, len(o.Boundary))}
		for i, p := range o.Boundary {
			ov.Points[i] = [2]float64{p[0], p[1]}
		}
		snap.Obstacles = append(snap.Obstacles, ov)
	}
	if c := w.sim.Comfort(); c != nil {
		snap.Comfort = append([]float32(nil), c.Values()...)
	}
	return snap
}

// ConfigFromSnapshot rebuilds the configuration a snapshot was taken under.
// The comfort field comes from the snapshot, not from the texture path.
func ConfigFromSnapshot(snap snapshot.SnapshotV1) (WorldConfig, error) {
	cfg := WorldConfig{
		ID:       snap.Header.RunID,
		Scenario: snap.Header.Scenario,
		Tuning:   snap.Tuning,
	}
	cfg.Tuning.ComfortTexture = ""
	cfg.Agents = agentsFromSnapshot(snap.Agents)
	for _, o := range snap.Obstacles {
		pts := make([]orb.Point, len(o.Points))
		for i, p := range o.Points {
			pts[i] = orb.Point{p[0], p[1]}
		}
		ob, err := biocrowds.NewObstacle(o.ID, pts)
		if err != nil {
			return cfg, err
		}
		cfg.Obstacles = append(cfg.Obstacles, ob)
	}
	if len(snap.Comfort) > 0 {
		wd, dp := cfg.Tuning.Options().GridDims()
		c, err := biocrowds.ComfortFromValues(wd, dp, snap.Comfort)
		if err != nil {
			return cfg, err
		}
		cfg.Comfort = c
	}
	return cfg, nil
}

// ImportSnapshot restores agent kinematics and the tick counter. The static
// scene must already match the snapshot (see ConfigFromSnapshot).
func (w *World) ImportSnapshot(snap snapshot.SnapshotV1) error {
	if snap.Header.Version != snapshot.Version {
		return fmt.Errorf("unsupported snapshot version %d", snap.Header.Version)
	}
	if err := w.sim.SetAgents(agentsFromSnapshot(snap.Agents)); err != nil {
		return err
	}
	w.sim.SetTick(snap.Header.Tick)
	w.tick.Store(snap.Header.Tick)
	return nil
}

func agentsFromSnapshot(in []snapshot.AgentV1) []biocrowds.Agent {
	out := make([]biocrowds.Agent, len(in))
	for i, a := range in {
		out[i] = biocrowds.Agent{
			ID:       a.ID,
			Name:     a.Name,
			Pos:      arrVec3(a.Pos),
			Forward:  arrVec3(a.Forward),
			Vel:      arrVec3(a.Vel),
			Goal:     arrVec3(a.Goal),
			Finished: a.Finished,
			Color:    a.Color,
		}
	}
	return out
}

func vec3Arr(v biocrowds.Vec3) [3]float64 { return [3]float64{v.X, v.Y, v.Z} }
func arrVec3(a [3]float64) biocrowds.Vec3 { return biocrowds.Vec3{X: a[0], Y: a[1], Z: a[2]} }
