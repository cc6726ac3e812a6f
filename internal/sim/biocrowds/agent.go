package biocrowds

// Agent is the kinematic state of one crowd member. ID is its index in the
// simulation's agent list and also the ownership tie-break key. Goal is fixed
// at setup; Pos, Forward, Vel and Finished are written only by the stepper.
type Agent struct {
	ID       int
	Name     string
	Pos      Vec3
	Forward  Vec3
	Vel      Vec3
	Goal     Vec3
	Finished bool
	Color    [4]float32
}

var agentPalette = [][4]float32{
	{0.90, 0.30, 0.25, 1},
	{0.25, 0.55, 0.90, 1},
	{0.30, 0.75, 0.35, 1},
	{0.95, 0.75, 0.20, 1},
	{0.65, 0.35, 0.85, 1},
	{0.20, 0.80, 0.80, 1},
	{0.95, 0.50, 0.70, 1},
	{0.55, 0.55, 0.55, 1},
}

// PaletteColor returns a stable visualization color for agent id.
func PaletteColor(id int) [4]float32 {
	if id < 0 {
		return [4]float32{0, 0, 0, 1}
	}
	return agentPalette[id%len(agentPalette)]
}

// GoalDistance is the planar distance to the goal.
func (a Agent) GoalDistance() float64 { return a.Pos.PlanarDist(a.Goal) }

func (a Agent) planarOffset(x, z float64) (float64, float64) {
	return x - a.Pos.X, z - a.Pos.Z
}
