package dataset

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"
)

// Building is one building footprint used by the offline grid computation.
type Building struct {
	Geom   geom.T
	Use    string  // "residential", "commercial", ...
	Levels float64 // story count
	Units  float64 // dwelling units
}

// HazardZone is one hazard polygon (liquefaction susceptibility, flood depth).
type HazardZone struct {
	Geom       geom.T
	LiqRank    float64
	FloodDepth float64
}

// ReadFeatureCollection parses a GeoJSON FeatureCollection file.
func ReadFeatureCollection(path string) (*geojson.FeatureCollection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: read %s", path)
	}
	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, eris.Wrapf(err, "dataset: parse %s", path)
	}
	return &fc, nil
}

// LoadGrid reads the risk grid GeoJSON. Features must carry polygon geometry;
// anything else is skipped with a warning. A missing attribute property
// contributes zero, matching the scoring contract for unknown factors.
func LoadGrid(path string) ([]GridCell, error) {
	fc, err := ReadFeatureCollection(path)
	if err != nil {
		return nil, err
	}

	cells := make([]GridCell, 0, len(fc.Features))
	for i, f := range fc.Features {
		poly := asPolygon(f.Geometry)
		if poly == nil {
			zap.L().Warn("dataset: skipping non-polygon grid feature", zap.Int("index", i))
			continue
		}
		cells = append(cells, GridCell{
			ID:       featureID(f, i, "cell"),
			Polygon:  poly,
			Centroid: BoundsCenter(poly),
			Attrs: CellAttributes{
				PopulationDensity: propFloat(f.Properties, PropPopDensity, 0),
				ResidentialUnits:  propFloat(f.Properties, PropResidentialUnits, 0),
				BuildingStories:   propFloat(f.Properties, PropAvgStories, 0),
				LiquefactionRank:  propFloat(f.Properties, PropLiqRank, 0),
				FloodDepth:        propFloat(f.Properties, PropFloodDepth, 0),
				ShelterDistanceKm: propFloat(f.Properties, PropShelterDistKm, 0),
			},
		})
	}
	if len(cells) == 0 {
		return nil, eris.Errorf("dataset: no usable grid cells in %s", path)
	}
	return cells, nil
}

// LoadShelters reads the shelter GeoJSON. Features must carry point geometry.
func LoadShelters(path string) ([]Shelter, error) {
	fc, err := ReadFeatureCollection(path)
	if err != nil {
		return nil, err
	}

	shelters := make([]Shelter, 0, len(fc.Features))
	for i, f := range fc.Features {
		pt, ok := f.Geometry.(*geom.Point)
		if !ok {
			zap.L().Warn("dataset: skipping non-point shelter feature", zap.Int("index", i))
			continue
		}
		shelters = append(shelters, Shelter{
			ID:       featureID(f, i, "shelter"),
			Name:     propString(f.Properties, "name"),
			Lat:      pt.Y(),
			Lon:      pt.X(),
			Capacity: int(propFloat(f.Properties, "capacity", 0)),
		})
	}
	if len(shelters) == 0 {
		return nil, eris.Errorf("dataset: no usable shelters in %s", path)
	}
	return shelters, nil
}

// LoadBuildings reads the building footprint GeoJSON.
func LoadBuildings(path string) ([]Building, error) {
	fc, err := ReadFeatureCollection(path)
	if err != nil {
		return nil, err
	}

	buildings := make([]Building, 0, len(fc.Features))
	for _, f := range fc.Features {
		if f.Geometry == nil {
			continue
		}
		buildings = append(buildings, Building{
			Geom:   f.Geometry,
			Use:    propString(f.Properties, "use"),
			Levels: propFloat(f.Properties, "levels", 1),
			Units:  propFloat(f.Properties, "units", 0),
		})
	}
	return buildings, nil
}

// LoadHazards reads the hazard zone GeoJSON.
func LoadHazards(path string) ([]HazardZone, error) {
	fc, err := ReadFeatureCollection(path)
	if err != nil {
		return nil, err
	}

	zones := make([]HazardZone, 0, len(fc.Features))
	for _, f := range fc.Features {
		if f.Geometry == nil {
			continue
		}
		zones = append(zones, HazardZone{
			Geom:       f.Geometry,
			LiqRank:    propFloat(f.Properties, PropLiqRank, 1),
			FloodDepth: propFloat(f.Properties, PropFloodDepth, 0),
		})
	}
	return zones, nil
}

// asPolygon extracts a polygon from a geometry, taking the first member of a
// MultiPolygon. Grid sources exported by GIS tools vary between the two.
func asPolygon(g geom.T) *geom.Polygon {
	switch t := g.(type) {
	case *geom.Polygon:
		return t
	case *geom.MultiPolygon:
		if t.NumPolygons() > 0 {
			return t.Polygon(0)
		}
	}
	return nil
}

func featureID(f *geojson.Feature, index int, prefix string) string {
	if f.ID != "" {
		return f.ID
	}
	if id := propString(f.Properties, "id"); id != "" {
		return id
	}
	return fmt.Sprintf("%s_%03d", prefix, index+1)
}

func propFloat(props map[string]interface{}, key string, def float64) float64 {
	v, ok := props[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return def
		}
		return f
	default:
		return def
	}
}

func propString(props map[string]interface{}, key string) string {
	if v, ok := props[key].(string); ok {
		return v
	}
	return ""
}
