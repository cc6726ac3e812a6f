package world

import (
	"encoding/json"
	"math"

	"crowdfield.ai/internal/observerproto"
	"crowdfield.ai/internal/sim/biocrowds"
	"crowdfield.ai/internal/sim/encoding"
)

// ObserverJoinRequest registers a read-only observer session that receives:
// - per-tick agent state (TickOut)
// - encoded grid layers at the grid cadence (DataOut)
//
// All observer state is maintained by the world loop goroutine.
type ObserverJoinRequest struct {
	SessionID string
	TickOut   chan []byte
	DataOut   chan []byte

	Layers    []string
	GridEvery int
}

// ObserverSubscribeRequest updates an existing observer session subscription settings.
type ObserverSubscribeRequest struct {
	SessionID string
	Layers    []string
	GridEvery int
}

type observerClient struct {
	id      string
	tickOut chan []byte
	dataOut chan []byte

	layers    []string
	gridEvery int
}

func (w *World) handleObserverJoin(req ObserverJoinRequest) {
	if req.SessionID == "" || req.TickOut == nil || req.DataOut == nil {
		return
	}
	if old := w.observers[req.SessionID]; old != nil {
		close(old.tickOut)
		close(old.dataOut)
	}
	c := &observerClient{
		id:      req.SessionID,
		tickOut: req.TickOut,
		dataOut: req.DataOut,
	}
	w.applySubscription(c, req.Layers, req.GridEvery)
	w.observers[req.SessionID] = c
}

func (w *World) handleObserverSubscribe(req ObserverSubscribeRequest) {
	c := w.observers[req.SessionID]
	if c == nil {
		return
	}
	w.applySubscription(c, req.Layers, req.GridEvery)
}

func (w *World) applySubscription(c *observerClient, layers []string, every int) {
	c.layers = NormalizeLayers(layers)
	switch {
	case every <= 0:
		c.gridEvery = w.cfg.Tuning.ObserverGridEveryTicks
	case every > 1000:
		c.gridEvery = 1000
	default:
		c.gridEvery = every
	}
}

func (w *World) handleObserverLeave(sessionID string) {
	c := w.observers[sessionID]
	if c == nil {
		return
	}
	delete(w.observers, sessionID)
	close(c.tickOut)
	close(c.dataOut)
}

func (w *World) closeObservers() {
	for id := range w.observers {
		w.handleObserverLeave(id)
	}
}

// NormalizeLayers drops unknown and duplicate names, keeping request order.
// An empty request selects ownership only.
func NormalizeLayers(in []string) []string {
	out := make([]string, 0, 3)
	seen := map[string]bool{}
	for _, l := range in {
		switch l {
		case observerproto.LayerOwnership, observerproto.LayerWeight, observerproto.LayerSpeed:
			if !seen[l] {
				seen[l] = true
				out = append(out, l)
			}
		}
	}
	if len(out) == 0 {
		out = append(out, observerproto.LayerOwnership)
	}
	return out
}

func (w *World) stepObservers(nowTick uint64, rep biocrowds.StepReport, digest string) {
	if len(w.observers) == 0 {
		return
	}
	msg := w.TickMessage(nowTick, rep, digest)
	b, err := json.Marshal(msg)
	if err != nil {
		return
	}

	// Layers are encoded at most once per tick, shared by every observer.
	encoded := map[string]string{}
	for _, c := range w.observers {
		sendLatest(c.tickOut, b)
		if c.gridEvery <= 0 || nowTick%uint64(c.gridEvery) != 0 {
			continue
		}
		grid := observerproto.GridMsg{
			Type:            "GRID",
			ProtocolVersion: observerproto.Version,
			Tick:            nowTick,
			Width:           w.sim.Projector().Width(),
			Depth:           w.sim.Projector().Depth(),
			Encoding:        observerproto.EncodingRLE,
			Layers:          make(map[string]string, len(c.layers)),
		}
		for _, l := range c.layers {
			data, ok := encoded[l]
			if !ok {
				data = encoding.EncodeRLE(w.gridLayer(l))
				encoded[l] = data
			}
			grid.Layers[l] = data
		}
		gb, err := json.Marshal(grid)
		if err != nil {
			continue
		}
		sendLatest(c.dataOut, gb)
	}
}

// TickMessage builds the per-tick observer message for the current state.
func (w *World) TickMessage(nowTick uint64, rep biocrowds.StepReport, digest string) observerproto.TickMsg {
	agents := w.sim.Frame().Agents
	var counts []int
	if ref := w.sim.RefinedOwnership(); ref != nil {
		counts = ref.Counts(len(agents))
	}
	msg := observerproto.TickMsg{
		Type:            "TICK",
		ProtocolVersion: observerproto.Version,
		Tick:            nowTick,
		DT:              w.dt,
		Digest:          digest,
		Active:          w.sim.Active(),
		Agents:          make([]observerproto.AgentState, len(agents)),
		Arrived:         rep.Arrived,
	}
	for i, a := range agents {
		st := observerproto.AgentState{
			ID:       a.ID,
			Name:     a.Name,
			Pos:      [2]float64{a.Pos.X, a.Pos.Z},
			Goal:     [2]float64{a.Goal.X, a.Goal.Z},
			Forward:  [2]float64{a.Forward.X, a.Forward.Z},
			Vel:      [2]float64{a.Vel.X, a.Vel.Z},
			Finished: a.Finished,
		}
		if i < len(counts) {
			st.Cells = counts[i]
		}
		msg.Agents[i] = st
	}
	return msg
}

func (w *World) gridLayer(layer string) []int32 {
	p := w.sim.Projector()
	n := p.Cells()
	switch layer {
	case observerproto.LayerWeight:
		if vb := w.sim.Velocity(); vb != nil {
			return encoding.Quantize01(vb.Weight)
		}
	case observerproto.LayerSpeed:
		if vb := w.sim.Velocity(); vb != nil {
			maxSpeed := w.cfg.Tuning.MaxSpeed
			speeds := make([]float32, n)
			for i := range speeds {
				if vb.Valid[i] {
					speeds[i] = float32(math.Hypot(vb.VX[i], vb.VZ[i]) / maxSpeed)
				}
			}
			return encoding.Quantize01(speeds)
		}
	default:
		if ref := w.sim.RefinedOwnership(); ref != nil {
			return append([]int32(nil), ref.Owner...)
		}
	}
	out := make([]int32, n)
	if layer == observerproto.LayerOwnership {
		for i := range out {
			out[i] = biocrowds.Unassigned
		}
	}
	return out
}
