package tuning

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"crowdfield.ai/internal/sim/biocrowds"
)

var ErrInvalid = errors.New("tuning: invalid")

type Tuning struct {
	OriginX float64 `yaml:"origin_x"`
	OriginZ float64 `yaml:"origin_z"`
	SizeX   float64 `yaml:"size_x"`
	SizeZ   float64 `yaml:"size_z"`

	GridSize       float64 `yaml:"grid_size"`
	SearchRadius   float64 `yaml:"search_radius"`
	MarkersPerCell int     `yaml:"markers_per_cell"`
	MarkerSeed     uint32  `yaml:"marker_seed"`
	MaxSpeed       float64 `yaml:"max_speed"`

	TickRateHz int `yaml:"tick_rate_hz"`
	Workers    int `yaml:"workers"`

	ComfortTexture string `yaml:"comfort_texture"`
	DrawMarkers    bool   `yaml:"draw_markers"`

	SnapshotEveryTicks     int `yaml:"snapshot_every_ticks"`
	ObserverGridEveryTicks int `yaml:"observer_grid_every_ticks"`
}

func Defaults() Tuning {
	o := biocrowds.DefaultOptions()
	return Tuning{
		OriginX:                o.OriginX,
		OriginZ:                o.OriginZ,
		SizeX:                  o.SizeX,
		SizeZ:                  o.SizeZ,
		GridSize:               o.GridSize,
		SearchRadius:           o.SearchRadius,
		MarkersPerCell:         o.MarkersPerCell,
		MarkerSeed:             o.MarkerSeed,
		MaxSpeed:               o.MaxSpeed,
		TickRateHz:             10,
		SnapshotEveryTicks:     600,
		ObserverGridEveryTicks: 5,
	}
}

// Load reads a tuning file over the defaults; keys missing from the file keep
// their default values.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, err
	}
	return t, nil
}

func (t Tuning) Validate() error {
	if err := t.Options().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if t.TickRateHz <= 0 || t.TickRateHz > 1000 {
		return fmt.Errorf("%w: tick_rate_hz=%d", ErrInvalid, t.TickRateHz)
	}
	if t.Workers < 0 {
		return fmt.Errorf("%w: workers=%d", ErrInvalid, t.Workers)
	}
	if t.SnapshotEveryTicks < 0 || t.ObserverGridEveryTicks < 0 {
		return fmt.Errorf("%w: negative cadence", ErrInvalid)
	}
	return nil
}

func (t Tuning) Options() biocrowds.Options {
	return biocrowds.Options{
		OriginX:        t.OriginX,
		OriginZ:        t.OriginZ,
		SizeX:          t.SizeX,
		SizeZ:          t.SizeZ,
		GridSize:       t.GridSize,
		SearchRadius:   t.SearchRadius,
		MarkersPerCell: t.MarkersPerCell,
		MarkerSeed:     t.MarkerSeed,
		MaxSpeed:       t.MaxSpeed,
		DrawMarkers:    t.DrawMarkers,
	}
}

// TickDT is the fixed simulated time per tick.
func (t Tuning) TickDT() float64 {
	if t.TickRateHz <= 0 {
		return 0
	}
	return 1 / float64(t.TickRateHz)
}
