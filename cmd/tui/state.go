package main

import (
	"encoding/json"
	"fmt"
	"sync"

	"crowdfield.ai/internal/observerproto"
	"crowdfield.ai/internal/sim/encoding"
)

// frame is an immutable copy of what the screen shows.
type frame struct {
	Boot   observerproto.BootstrapResponse
	Layer  string
	Tick   observerproto.TickMsg
	Grid   []int32
	GridW  int
	GridD  int
	Status string
}

type state struct {
	mu sync.Mutex
	f  frame
}

func newState(boot observerproto.BootstrapResponse, layer string) *state {
	return &state{f: frame{Boot: boot, Layer: layer}}
}

func (s *state) setLayer(layer string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.f.Layer = layer
	s.f.Grid = nil
}

func (s *state) setStatus(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.f.Status = msg
}

func (s *state) snapshot() frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.f
	f.Grid = append([]int32(nil), s.f.Grid...)
	f.Tick.Agents = append([]observerproto.AgentState(nil), s.f.Tick.Agents...)
	return f
}

// apply decodes one server message into the state.
func (s *state) apply(raw []byte) error {
	var base struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &base); err != nil {
		return err
	}
	switch base.Type {
	case "TICK":
		var msg observerproto.TickMsg
		if err := json.Unmarshal(raw, &msg); err != nil {
			return err
		}
		s.mu.Lock()
		s.f.Tick = msg
		s.mu.Unlock()

	case "GRID":
		var msg observerproto.GridMsg
		if err := json.Unmarshal(raw, &msg); err != nil {
			return err
		}
		if msg.Encoding != observerproto.EncodingRLE {
			return fmt.Errorf("unsupported grid encoding %q", msg.Encoding)
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		data, ok := msg.Layers[s.f.Layer]
		if !ok {
			return nil
		}
		n := msg.Width * msg.Depth
		vals, err := encoding.DecodeRLE(data, n)
		if err != nil {
			return fmt.Errorf("grid %s: %w", s.f.Layer, err)
		}
		if len(vals) != n {
			return fmt.Errorf("grid %s: got %d cells want %d", s.f.Layer, len(vals), n)
		}
		s.f.Grid, s.f.GridW, s.f.GridD = vals, msg.Width, msg.Depth
	}
	return nil
}
