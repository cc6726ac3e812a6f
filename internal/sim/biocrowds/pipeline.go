package biocrowds

import (
	"context"
	"fmt"
)

// BufferID names a typed buffer a pass reads or writes.
type BufferID string

const (
	BufAgents     BufferID = "agents"
	BufObstacles  BufferID = "obstacles"
	BufMarkers    BufferID = "markers"
	BufComfort    BufferID = "comfort"
	BufOwnership  BufferID = "ownership"
	BufRefined    BufferID = "ownership.refined"
	BufVelocity   BufferID = "velocity"
	BufKinematics BufferID = "agents.kinematics"
)

const (
	PassAssign = "ownership.assign"
	PassRefine = "ownership.refine"
	PassBuild  = "velocity.build"
	PassStep   = "agents.step"
)

// Pass is one named stage of a tick.
type Pass struct {
	Name   string
	Reads  []BufferID
	Writes []BufferID
	Run    func(ctx context.Context, f *Frame) error
}

// Pipeline is an ordered list of passes whose buffer dependencies were
// checked at construction: every read is a setup input or an earlier write.
type Pipeline struct {
	passes []Pass
}

func NewPipeline(inputs []BufferID, passes ...Pass) (*Pipeline, error) {
	have := make(map[BufferID]bool, len(inputs))
	for _, id := range inputs {
		have[id] = true
	}
	seen := make(map[string]bool, len(passes))
	for _, p := range passes {
		if p.Name == "" || p.Run == nil {
			return nil, fmt.Errorf("%w: pass %q is incomplete", ErrInvalidConfig, p.Name)
		}
		if seen[p.Name] {
			return nil, fmt.Errorf("%w: duplicate pass %q", ErrInvalidConfig, p.Name)
		}
		seen[p.Name] = true
		for _, r := range p.Reads {
			if !have[r] {
				return nil, fmt.Errorf("%w: pass %q reads %q before it is produced", ErrInvalidConfig, p.Name, r)
			}
		}
		for _, w := range p.Writes {
			have[w] = true
		}
	}
	return &Pipeline{passes: passes}, nil
}

func (p *Pipeline) Names() []string {
	out := make([]string, len(p.passes))
	for i, ps := range p.passes {
		out[i] = ps.Name
	}
	return out
}

// Run executes every pass in order and stops at the first failure.
func (p *Pipeline) Run(ctx context.Context, f *Frame) error {
	return p.RunThrough(ctx, f, "")
}

// RunThrough executes passes in order up to and including last
// (all passes when last is empty).
func (p *Pipeline) RunThrough(ctx context.Context, f *Frame, last string) error {
	if last != "" {
		found := false
		for _, ps := range p.passes {
			if ps.Name == last {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: unknown pass %q", ErrInvalidConfig, last)
		}
	}
	for _, ps := range p.passes {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := ps.Run(ctx, f); err != nil {
			return fmt.Errorf("%s: %w", ps.Name, err)
		}
		if ps.Name == last {
			break
		}
	}
	return nil
}
