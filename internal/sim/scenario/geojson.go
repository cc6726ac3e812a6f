package scenario

import (
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"crowdfield.ai/internal/sim/biocrowds"
)

// LoadGeoJSON reads obstacle footprints from a FeatureCollection of Polygon
// or MultiPolygon features. Coordinates are (world x, world z); only outer
// rings are used. IDs continue from firstID.
func LoadGeoJSON(path string, firstID int) ([]biocrowds.Obstacle, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(raw)
	if err != nil {
		return nil, fmt.Errorf("geojson %s: %w", path, err)
	}
	var out []biocrowds.Obstacle
	add := func(p orb.Polygon) error {
		if len(p) == 0 {
			return nil
		}
		ob, err := biocrowds.NewObstacle(firstID+len(out), p[0])
		if err != nil {
			return err
		}
		out = append(out, ob)
		return nil
	}
	for i, f := range fc.Features {
		switch g := f.Geometry.(type) {
		case nil:
			return nil, fmt.Errorf("feature %d: missing geometry", i)
		case orb.Polygon:
			if err := add(g); err != nil {
				return nil, fmt.Errorf("feature %d: %w", i, err)
			}
		case orb.MultiPolygon:
			for _, p := range g {
				if err := add(p); err != nil {
					return nil, fmt.Errorf("feature %d: %w", i, err)
				}
			}
		default:
			return nil, fmt.Errorf("feature %d: unsupported geometry %s", i, f.Geometry.GeoJSONType())
		}
	}
	return out, nil
}
