package world

import (
	"crowdfield.ai/internal/sim/biocrowds"
	"crowdfield.ai/internal/sim/scenario"
	"crowdfield.ai/internal/sim/tuning"
)

type WorldConfig struct {
	ID       string
	Scenario string
	Tuning   tuning.Tuning

	Agents    []biocrowds.Agent
	Obstacles []biocrowds.Obstacle

	// Comfort overrides Tuning.ComfortTexture when set.
	Comfort *biocrowds.ComfortField

	// Backend defaults to a CPU pool sized by Tuning.Workers.
	Backend biocrowds.Backend

	// StopWhenDone makes Run return once every agent has arrived.
	StopWhenDone bool
}

func ConfigFromScenario(id string, sc *scenario.Scenario) WorldConfig {
	return WorldConfig{
		ID:        id,
		Scenario:  sc.Name,
		Tuning:    sc.Tuning,
		Agents:    sc.Agents,
		Obstacles: sc.Obstacles,
	}
}

func (c *WorldConfig) applyDefaults() {
	if c.ID == "" {
		c.ID = "run"
	}
	if c.Backend == nil {
		c.Backend = biocrowds.NewCPUBackend(c.Tuning.Workers)
	}
}
