package gridgen

import (
	"encoding/json"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/tokyo-dap/riskmap/internal/dataset"
)

// Manifest records how a scored grid artifact was produced. Scores are only
// comparable between artifacts built from the same weights version.
type Manifest struct {
	BuildID        string    `json:"build_id"`
	GeneratedAt    time.Time `json:"generated_at"`
	WeightsVersion int       `json:"weights_version"`
	CellCount      int       `json:"cell_count"`
}

// NewManifest creates a manifest for a finished build.
func NewManifest(weightsVersion, cellCount int) Manifest {
	return Manifest{
		BuildID:        uuid.New().String(),
		GeneratedAt:    time.Now().UTC(),
		WeightsVersion: weightsVersion,
		CellCount:      cellCount,
	}
}

// WriteScoredGrid writes the scored cells as a GeoJSON FeatureCollection.
func WriteScoredGrid(path string, cells []ScoredCell) error {
	fc := geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(cells))}
	for _, c := range cells {
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       c.ID,
			Geometry: c.Polygon,
			Properties: map[string]interface{}{
				"id":                         c.ID,
				dataset.PropPopDensity:       c.Attrs.PopulationDensity,
				dataset.PropResidentialUnits: c.Attrs.ResidentialUnits,
				dataset.PropAvgStories:       c.Attrs.BuildingStories,
				dataset.PropLiqRank:          c.Attrs.LiquefactionRank,
				dataset.PropFloodDepth:       c.Attrs.FloodDepth,
				dataset.PropShelterDistKm:    c.Attrs.ShelterDistanceKm,
				dataset.PropRiskScore:        c.Score,
				dataset.PropRiskBand:         c.Band,
			},
		})
	}

	data, err := json.Marshal(&fc)
	if err != nil {
		return eris.Wrap(err, "gridgen: marshal scored grid")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "gridgen: write %s", path)
	}
	return nil
}

// WriteManifest writes the build manifest beside the scored grid.
func WriteManifest(path string, m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return eris.Wrap(err, "gridgen: marshal manifest")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "gridgen: write %s", path)
	}
	return nil
}
