package biocrowds

import (
	"context"
	"fmt"
	"math"
)

// Frame is the shared state the passes of one tick read and write.
type Frame struct {
	Tick uint64
	DT   float64

	Options   Options
	Projector Projector
	Backend   Backend

	Agents      []Agent
	Obstacles   []Obstacle
	BlockedMask []bool
	Markers     *MarkerField
	Comfort     *ComfortField

	Ownership *OwnershipBuffer
	Refined   *OwnershipBuffer
	Velocity  *VelocityBuffer
	Fields    []AgentField

	Report StepReport
}

// DefaultPasses is the BioCrowds tick: coarse ownership, boundary refinement,
// velocity field construction, then agent integration.
func DefaultPasses() []Pass {
	return []Pass{
		{
			Name:   PassAssign,
			Reads:  []BufferID{BufAgents, BufObstacles},
			Writes: []BufferID{BufOwnership},
			Run:    assignOwnership,
		},
		{
			Name:   PassRefine,
			Reads:  []BufferID{BufOwnership, BufAgents, BufObstacles, BufMarkers},
			Writes: []BufferID{BufRefined},
			Run:    refineOwnership,
		},
		{
			Name:   PassBuild,
			Reads:  []BufferID{BufRefined, BufAgents, BufMarkers, BufComfort},
			Writes: []BufferID{BufVelocity},
			Run:    buildVelocity,
		},
		{
			Name:   PassStep,
			Reads:  []BufferID{BufVelocity, BufAgents},
			Writes: []BufferID{BufKinematics},
			Run:    stepAgents,
		},
	}
}

var setupInputs = []BufferID{BufAgents, BufObstacles, BufMarkers, BufComfort}

// Sim owns the agents, the static scene and the per-tick buffers. It is not
// safe for concurrent use; the caller's loop goroutine drives it.
type Sim struct {
	opts     Options
	pipeline *Pipeline
	frame    Frame
	tick     uint64
}

// New validates opts and allocates the buffers. A nil backend uses a
// CPUBackend sized to GOMAXPROCS.
func New(opts Options, backend Backend) (*Sim, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if backend == nil {
		backend = NewCPUBackend(0)
	}
	p, err := NewPipeline(setupInputs, DefaultPasses()...)
	if err != nil {
		return nil, err
	}
	proj := NewProjector(opts)
	w, d := proj.Width(), proj.Depth()
	s := &Sim{
		opts:     opts,
		pipeline: p,
		frame: Frame{
			Options:     opts,
			Projector:   proj,
			Backend:     backend,
			BlockedMask: make([]bool, w*d),
			Markers:     NewMarkerField(opts.MarkerSeed),
			Ownership:   NewOwnershipBuffer(w, d),
			Refined:     NewOwnershipBuffer(w, d),
			Velocity:    NewVelocityBuffer(w, d),
		},
	}
	if err := s.frame.Markers.Regenerate(w, d, opts.MarkersPerCell); err != nil {
		return nil, err
	}
	return s, nil
}

// SetAgents replaces the agent set. IDs are reassigned to list positions,
// forward vectors are made unit length (defaulting toward the goal), and
// the marker field is regenerated.
func (s *Sim) SetAgents(agents []Agent) error {
	out := make([]Agent, len(agents))
	for i, a := range agents {
		if a.Pos.HasNaN() || a.Goal.HasNaN() || a.Forward.HasNaN() || a.Vel.HasNaN() {
			return fmt.Errorf("%w: agent %d has a non-finite vector", ErrInvalidConfig, i)
		}
		a.ID = i
		a.Forward = unitForward(a)
		if a.Color == ([4]float32{}) {
			a.Color = PaletteColor(i)
		}
		out[i] = a
	}
	s.frame.Agents = out
	s.frame.Fields = make([]AgentField, len(out))
	w, d := s.frame.Projector.Width(), s.frame.Projector.Depth()
	return s.frame.Markers.Regenerate(w, d, s.opts.MarkersPerCell)
}

// unitForward leaves already-unit headings bit-for-bit untouched so restored
// snapshots continue exactly like the run that wrote them.
func unitForward(a Agent) Vec3 {
	f := a.Forward.Planar()
	if l := f.PlanarLen(); l > 0 {
		if math.Abs(l-1) <= 1e-12 {
			return f
		}
		return f.Scale(1 / l)
	}
	if g := a.Goal.Sub(a.Pos).Planar().Normalize(); !g.IsZero() {
		return g
	}
	return Vec3{X: 1}
}

// SetObstacles replaces the obstacle set and recomputes which cell centers
// fall inside a footprint.
func (s *Sim) SetObstacles(obs []Obstacle) {
	s.frame.Obstacles = append([]Obstacle(nil), obs...)
	set := obstacleSet(s.frame.Obstacles)
	p := s.frame.Projector
	for z := 0; z < p.Depth(); z++ {
		for x := 0; x < p.Width(); x++ {
			c := p.CellCenter(x, z)
			s.frame.BlockedMask[p.Index(x, z)] = set.contains(c.X, c.Z)
		}
	}
}

// SetComfort installs a comfort field matching the grid; nil restores the
// uniform default.
func (s *Sim) SetComfort(c *ComfortField) error {
	if c != nil {
		w, d := c.Dims()
		if w != s.frame.Projector.Width() || d != s.frame.Projector.Depth() {
			return fmt.Errorf("%w: comfort field %dx%d does not match grid %dx%d",
				ErrInvalidConfig, w, d, s.frame.Projector.Width(), s.frame.Projector.Depth())
		}
	}
	s.frame.Comfort = c
	return nil
}

// Step runs one full tick of dt seconds. An invalid dt is rejected before
// any pass runs and leaves the state untouched.
func (s *Sim) Step(ctx context.Context, dt float64) (StepReport, error) {
	if !finite(dt) || dt <= 0 {
		return StepReport{}, fmt.Errorf("%w: dt=%v", ErrInvalidTick, dt)
	}
	f := &s.frame
	f.Tick, f.DT = s.tick, dt
	f.Report = StepReport{Tick: s.tick, DT: dt}
	if err := s.pipeline.Run(ctx, f); err != nil {
		return StepReport{}, err
	}
	s.tick++
	return f.Report, nil
}

// BuildFields runs every pass up to the velocity field without moving agents.
func (s *Sim) BuildFields(ctx context.Context) error {
	s.frame.Tick = s.tick
	return s.pipeline.RunThrough(ctx, &s.frame, PassBuild)
}

// Refine runs the boundary refinement on a copy of buf against the current
// agents and scene.
func (s *Sim) Refine(ctx context.Context, buf *OwnershipBuffer) (*OwnershipBuffer, error) {
	out := buf.Clone()
	if err := refineBuffer(ctx, &s.frame, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Sim) Options() Options       { return s.opts }
func (s *Sim) Projector() Projector   { return s.frame.Projector }
func (s *Sim) Pipeline() *Pipeline    { return s.pipeline }
func (s *Sim) Tick() uint64           { return s.tick }
func (s *Sim) SetTick(t uint64)       { s.tick = t }
func (s *Sim) Markers() *MarkerField  { return s.frame.Markers }
func (s *Sim) Comfort() *ComfortField { return s.frame.Comfort }
func (s *Sim) BlockedMask() []bool    { return s.frame.BlockedMask }

// Frame exposes the live pass state for read-only inspection.
func (s *Sim) Frame() *Frame { return &s.frame }

// Agents returns a copy of the current agent states.
func (s *Sim) Agents() []Agent { return append([]Agent(nil), s.frame.Agents...) }

func (s *Sim) Obstacles() []Obstacle { return append([]Obstacle(nil), s.frame.Obstacles...) }

// Ownership is the coarse buffer from the last tick; callers must not modify it.
func (s *Sim) Ownership() *OwnershipBuffer        { return s.frame.Ownership }
func (s *Sim) RefinedOwnership() *OwnershipBuffer { return s.frame.Refined }
func (s *Sim) Velocity() *VelocityBuffer          { return s.frame.Velocity }

func (s *Sim) AgentFields() []AgentField { return append([]AgentField(nil), s.frame.Fields...) }

// Active counts agents that have not reached their goal.
func (s *Sim) Active() int {
	n := 0
	for i := range s.frame.Agents {
		if !s.frame.Agents[i].Finished {
			n++
		}
	}
	return n
}

func (s *Sim) Done() bool { return s.Active() == 0 }
