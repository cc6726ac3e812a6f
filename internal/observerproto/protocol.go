package observerproto

// Version is the observer protocol version.
const Version = "0.1"

// Grid layers an observer may subscribe to.
const (
	LayerOwnership = "ownership"
	LayerWeight    = "weight"
	LayerSpeed     = "speed"
)

// EncodingRLE is zigzag varint run-length pairs, base64 encoded
// (see internal/sim/encoding).
const EncodingRLE = "RLE"

// Client -> Server. First message on the observer WS connection, and can be re-sent to update settings.
type SubscribeMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	Layers          []string `json:"layers,omitempty"`
	// GridEvery overrides the server's grid cadence in ticks; 0 keeps the default.
	GridEvery int `json:"grid_every,omitempty"`
}

// HTTP response for GET /v1/observer/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string          `json:"protocol_version"`
	RunID           string          `json:"run_id"`
	Scenario        string          `json:"scenario"`
	Tick            uint64          `json:"tick"`
	Params          WorldParams     `json:"params"`
	Obstacles       []ObstacleState `json:"obstacles"`
}

type WorldParams struct {
	TickRateHz   int        `json:"tick_rate_hz"`
	Origin       [2]float64 `json:"origin"`
	Size         [2]float64 `json:"size"`
	Grid         [2]int     `json:"grid"`
	SearchRadius float64    `json:"search_radius"`
	MaxSpeed     float64    `json:"max_speed"`
	Agents       int        `json:"agents"`
	// ViewProj is the column-major top-down projection from world space to
	// the normalized plane (clip x = u, clip y = v).
	ViewProj [16]float64 `json:"view_proj"`
}

type ObstacleState struct {
	ID     int          `json:"id"`
	Points [][2]float64 `json:"points"`
}

// Server -> Client. Sent every tick.
type TickMsg struct {
	Type            string       `json:"type"`
	ProtocolVersion string       `json:"protocol_version"`
	Tick            uint64       `json:"tick"`
	DT              float64      `json:"dt"`
	Digest          string       `json:"digest"`
	Active          int          `json:"active"`
	Agents          []AgentState `json:"agents"`
	Arrived         []int        `json:"arrived,omitempty"`
}

type AgentState struct {
	ID       int        `json:"id"`
	Name     string     `json:"name,omitempty"`
	Pos      [2]float64 `json:"pos"`
	Goal     [2]float64 `json:"goal"`
	Forward  [2]float64 `json:"forward"`
	Vel      [2]float64 `json:"vel"`
	Finished bool       `json:"finished"`
	// Cells is the number of refined cells the agent owned this tick.
	Cells int `json:"cells"`
}

// Server -> Client. Sent every grid cadence tick, one message per subscribed layer.
type GridMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Tick            uint64 `json:"tick"`
	Width           int    `json:"width"`
	Depth           int    `json:"depth"`
	Encoding        string `json:"encoding"`
	// Layers maps layer name to encoded data. Ownership carries owner ids with
	// sentinels; weight and speed (relative to max speed) are quantized to 0..255.
	Layers map[string]string `json:"layers"`
}
