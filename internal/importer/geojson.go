package importer

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/tokyo-dap/riskmap/internal/dataset"
)

// WriteSheltersGeoJSON writes shelters as a GeoJSON FeatureCollection in the
// layout the service loads at startup.
func WriteSheltersGeoJSON(path string, shelters []dataset.Shelter) error {
	fc := geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(shelters))}
	for _, s := range shelters {
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       s.ID,
			Geometry: geom.NewPointFlat(geom.XY, []float64{s.Lon, s.Lat}).SetSRID(4326),
			Properties: map[string]interface{}{
				"id":       s.ID,
				"name":     s.Name,
				"capacity": s.Capacity,
			},
		})
	}

	data, err := json.Marshal(&fc)
	if err != nil {
		return eris.Wrap(err, "importer: marshal shelters")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "importer: write %s", path)
	}
	return nil
}
