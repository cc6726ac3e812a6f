package biocrowds

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrInvalidConfig = errors.New("biocrowds: invalid config")
	ErrInvalidTick   = errors.New("biocrowds: invalid tick")
)

const (
	// ArrivalTolerance is the planar goal distance below which an agent finishes.
	ArrivalTolerance = 0.5
	// MaxTurnFactor caps the per-tick heading interpolation factor.
	MaxTurnFactor = 0.75
	// TurnTimeScale is the elapsed time that yields a full-strength turn.
	TurnTimeScale = 0.1

	maxGridAxis = 8192
)

type Options struct {
	OriginX float64
	OriginZ float64
	SizeX   float64
	SizeZ   float64

	// GridSize is the nominal cell edge in world units; dimensions are ceil(size/GridSize).
	GridSize     float64
	SearchRadius float64

	MarkersPerCell int

	// MarkerSeed digitally shifts the Sobol sequence; 0 keeps the plain sequence.
	MarkerSeed uint32

	// MaxSpeed clamps the steering magnitude written to the velocity field.
	MaxSpeed float64

	// DrawMarkers is consumed by visualization only.
	DrawMarkers bool
}

func DefaultOptions() Options {
	return Options{
		OriginX:        -16,
		OriginZ:        -16,
		SizeX:          32,
		SizeZ:          32,
		GridSize:       0.125,
		SearchRadius:   2,
		MarkersPerCell: 1,
		MaxSpeed:       1.4,
	}
}

func (o Options) GridDims() (width, depth int) {
	if o.GridSize <= 0 {
		return 0, 0
	}
	return int(math.Ceil(o.SizeX / o.GridSize)), int(math.Ceil(o.SizeZ / o.GridSize))
}

func (o Options) Validate() error {
	check := func(name string, v float64) error {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s is not finite", ErrInvalidConfig, name)
		}
		return nil
	}
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"originX", o.OriginX}, {"originZ", o.OriginZ},
		{"sizeX", o.SizeX}, {"sizeZ", o.SizeZ},
		{"gridSize", o.GridSize}, {"searchRadius", o.SearchRadius},
		{"maxSpeed", o.MaxSpeed},
	} {
		if err := check(f.name, f.v); err != nil {
			return err
		}
	}
	if o.SizeX <= 0 || o.SizeZ <= 0 {
		return fmt.Errorf("%w: size must be positive (sizeX=%v sizeZ=%v)", ErrInvalidConfig, o.SizeX, o.SizeZ)
	}
	if o.GridSize <= 0 {
		return fmt.Errorf("%w: gridSize must be positive (got %v)", ErrInvalidConfig, o.GridSize)
	}
	if o.SearchRadius <= 0 {
		return fmt.Errorf("%w: searchRadius must be positive (got %v)", ErrInvalidConfig, o.SearchRadius)
	}
	if o.MarkersPerCell <= 0 {
		return fmt.Errorf("%w: markersPerCell must be positive (got %d)", ErrInvalidConfig, o.MarkersPerCell)
	}
	if o.MaxSpeed <= 0 {
		return fmt.Errorf("%w: maxSpeed must be positive (got %v)", ErrInvalidConfig, o.MaxSpeed)
	}
	w, d := o.GridDims()
	if w <= 0 || d <= 0 || w > maxGridAxis || d > maxGridAxis {
		return fmt.Errorf("%w: grid dimensions %dx%d out of range", ErrInvalidConfig, w, d)
	}
	return nil
}
