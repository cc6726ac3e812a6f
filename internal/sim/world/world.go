package world

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"crowdfield.ai/internal/persistence/snapshot"
	"crowdfield.ai/internal/sim/biocrowds"
)

// World drives one crowd simulation at a fixed tick rate.
// All simulation state must be accessed only from the world loop goroutine.
type World struct {
	cfg WorldConfig
	sim *biocrowds.Sim
	dt  float64

	// tick mirrors sim.Tick() for readers outside the loop.
	tick    atomic.Uint64
	metrics atomic.Pointer[WorldMetrics]

	// Optional loggers (may be nil). Implemented in internal/persistence/*.
	tickLogger    TickLogger
	arrivalLogger ArrivalLogger

	// Optional snapshot sink (may be nil). Snapshot writing should be off-thread.
	snapshotSink chan<- snapshot.SnapshotV1

	observers     map[string]*observerClient
	observerJoin  chan ObserverJoinRequest
	observerSub   chan ObserverSubscribeRequest
	observerLeave chan string

	stop     chan struct{}
	stopOnce sync.Once
}

type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

type ArrivalLogger interface {
	WriteArrival(entry ArrivalEntry) error
}

// TickLogEntry is the replay record of one tick. Digest is the agent state
// digest after the tick ran.
type TickLogEntry struct {
	Tick    uint64  `json:"tick"`
	DT      float64 `json:"dt"`
	Digest  string  `json:"digest"`
	Moved   int     `json:"moved"`
	Held    int     `json:"held,omitempty"`
	Skipped int     `json:"skipped,omitempty"`
	Arrived []int   `json:"arrived,omitempty"`
	Active  int     `json:"active"`
}

type ArrivalEntry struct {
	Tick    uint64     `json:"tick"`
	AgentID int        `json:"agent_id"`
	Name    string     `json:"name,omitempty"`
	Pos     [2]float64 `json:"pos"`
}

// WorldMetrics is a point-in-time view published by the loop after each tick.
type WorldMetrics struct {
	Tick      uint64  `json:"tick"`
	Agents    int     `json:"agents"`
	Active    int     `json:"active"`
	Observers int     `json:"observers"`
	Moved     int     `json:"moved"`
	Held      int     `json:"held"`
	Skipped   int     `json:"skipped"`
	StepMS    float64 `json:"step_ms"`
}

func New(cfg WorldConfig) (*World, error) {
	cfg.applyDefaults()
	if err := cfg.Tuning.Validate(); err != nil {
		return nil, err
	}
	sim, err := biocrowds.New(cfg.Tuning.Options(), cfg.Backend)
	if err != nil {
		return nil, err
	}
	if err := sim.SetAgents(cfg.Agents); err != nil {
		return nil, err
	}
	sim.SetObstacles(cfg.Obstacles)

	comfort := cfg.Comfort
	if comfort == nil && cfg.Tuning.ComfortTexture != "" {
		p := sim.Projector()
		comfort, err = biocrowds.LoadComfortImage(cfg.Tuning.ComfortTexture, p.Width(), p.Depth())
		if err != nil {
			return nil, err
		}
	}
	if err := sim.SetComfort(comfort); err != nil {
		return nil, err
	}

	w := &World{
		cfg:           cfg,
		sim:           sim,
		dt:            cfg.Tuning.TickDT(),
		observers:     map[string]*observerClient{},
		observerJoin:  make(chan ObserverJoinRequest, 64),
		observerSub:   make(chan ObserverSubscribeRequest, 256),
		observerLeave: make(chan string, 64),
		stop:          make(chan struct{}),
	}
	return w, nil
}

func (w *World) SetTickLogger(l TickLogger)                    { w.tickLogger = l }
func (w *World) SetArrivalLogger(l ArrivalLogger)              { w.arrivalLogger = l }
func (w *World) SetSnapshotSink(ch chan<- snapshot.SnapshotV1) { w.snapshotSink = ch }

func (w *World) ObserverJoin() chan<- ObserverJoinRequest           { return w.observerJoin }
func (w *World) ObserverSubscribe() chan<- ObserverSubscribeRequest { return w.observerSub }
func (w *World) ObserverLeave() chan<- string                       { return w.observerLeave }

// Config returns the static run configuration. Agent and obstacle slices
// describe the initial setup, not the live state.
func (w *World) Config() WorldConfig { return w.cfg }

func (w *World) ID() string { return w.cfg.ID }

func (w *World) CurrentTick() uint64 { return w.tick.Load() }

func (w *World) TickDT() float64 { return w.dt }

// Metrics is safe to call from any goroutine.
func (w *World) Metrics() WorldMetrics {
	if m := w.metrics.Load(); m != nil {
		return *m
	}
	return WorldMetrics{Tick: w.CurrentTick(), Agents: len(w.cfg.Agents), Active: len(w.cfg.Agents)}
}

// Sim exposes the simulation for loop-goroutine callers (tests, tools that
// step manually). It must not be used while Run is active.
func (w *World) Sim() *biocrowds.Sim { return w.sim }

// StepOnce advances the world by a single tick using the same ordering
// semantics as the server loop. It is primarily intended for deterministic
// replays and tests.
func (w *World) StepOnce(ctx context.Context) (tick uint64, digest string, err error) {
	return w.step(ctx)
}

func (w *World) step(ctx context.Context) (uint64, string, error) {
	nowTick := w.sim.Tick()
	start := time.Now()
	rep, err := w.sim.Step(ctx, w.dt)
	if err != nil {
		return nowTick, "", fmt.Errorf("tick %d: %w", nowTick, err)
	}
	w.tick.Store(w.sim.Tick())
	digest := w.sim.Digest()
	w.metrics.Store(&WorldMetrics{
		Tick:      w.sim.Tick(),
		Agents:    len(w.sim.Frame().Agents),
		Active:    w.sim.Active(),
		Observers: len(w.observers),
		Moved:     len(rep.Moved),
		Held:      len(rep.Held),
		Skipped:   len(rep.Skipped),
		StepMS:    float64(time.Since(start).Microseconds()) / 1000,
	})

	if w.tickLogger != nil {
		_ = w.tickLogger.WriteTick(TickLogEntry{
			Tick:    nowTick,
			DT:      w.dt,
			Digest:  digest,
			Moved:   len(rep.Moved),
			Held:    len(rep.Held),
			Skipped: len(rep.Skipped),
			Arrived: rep.Arrived,
			Active:  w.sim.Active(),
		})
	}
	if w.arrivalLogger != nil && len(rep.Arrived) > 0 {
		agents := w.sim.Frame().Agents
		for _, id := range rep.Arrived {
			a := agents[id]
			_ = w.arrivalLogger.WriteArrival(ArrivalEntry{
				Tick:    nowTick,
				AgentID: id,
				Name:    a.Name,
				Pos:     [2]float64{a.Pos.X, a.Pos.Z},
			})
		}
	}

	w.stepObservers(nowTick, rep, digest)

	if every := w.cfg.Tuning.SnapshotEveryTicks; every > 0 && w.snapshotSink != nil && w.sim.Tick()%uint64(every) == 0 {
		snap := w.ExportSnapshot()
		select {
		case w.snapshotSink <- snap:
		default:
			// Writer is behind; the next cadence point will catch up.
		}
	}
	return nowTick, digest, nil
}
