package biocrowds

import (
	"context"
	"math"
	"testing"
)

func TestStepAgents_SkipsInvalidSamples(t *testing.T) {
	o := testOptions()
	p := NewProjector(o)
	vb := NewVelocityBuffer(p.Width(), p.Depth())
	for i := range vb.Valid {
		vb.Valid[i] = true
		vb.VZ[i] = 1
	}
	agents := []Agent{
		{ID: 0, Pos: Vec3{X: 1}, Goal: Vec3{X: 1, Z: 9}, Forward: Vec3{Z: 1}},
		{ID: 1, Pos: Vec3{X: -3}, Goal: Vec3{X: -3, Z: 9}, Forward: Vec3{Z: 1}},
		{ID: 2, Pos: Vec3{X: 40}, Goal: Vec3{X: 40, Z: 9}, Forward: Vec3{Z: 1}},
	}
	x, z, _ := p.CellOf(agents[0].Pos)
	vb.VX[p.Index(x, z)] = math.NaN()
	x, z, _ = p.CellOf(agents[1].Pos)
	vb.Valid[p.Index(x, z)] = false

	f := &Frame{DT: 0.1, Options: o, Projector: p, Velocity: vb, Agents: agents}
	if err := stepAgents(context.Background(), f); err != nil {
		t.Fatalf("stepAgents: %v", err)
	}
	if len(f.Report.Skipped) != 3 || len(f.Report.Moved) != 0 {
		t.Fatalf("report=%+v want all skipped", f.Report)
	}
	for i, a := range f.Agents {
		if a.Pos != agents[i].Pos {
			t.Fatalf("skipped agent %d moved", i)
		}
	}
}

func TestStepAgents_IntegratesSample(t *testing.T) {
	o := testOptions()
	p := NewProjector(o)
	vb := NewVelocityBuffer(p.Width(), p.Depth())
	for i := range vb.Valid {
		vb.Valid[i] = true
		vb.VX[i] = 0.5
	}
	agents := []Agent{{Pos: Vec3{Z: 2}, Goal: Vec3{X: 0.3, Z: 2}, Forward: Vec3{X: 1}}}
	f := &Frame{DT: 0.2, Options: o, Projector: p, Velocity: vb, Agents: agents}
	if err := stepAgents(context.Background(), f); err != nil {
		t.Fatalf("stepAgents: %v", err)
	}
	a := f.Agents[0]
	if math.Abs(a.Pos.X-0.1) > 1e-12 || a.Pos.Z != 2 {
		t.Fatalf("pos=%v want (0.1,0,2)", a.Pos)
	}
	if a.Vel != (Vec3{X: 0.5}) {
		t.Fatalf("vel=%v want raw sample", a.Vel)
	}
	if !a.Finished || len(f.Report.Arrived) != 1 {
		t.Fatalf("agent within tolerance should finish")
	}
}
