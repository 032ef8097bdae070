package dataset

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/tokyo-dap/riskmap/internal/config"
)

// LocalStore answers spatial queries by linear scan over in-memory data.
// The datasets are tens to low thousands of features, so no spatial index
// is needed.
type LocalStore struct {
	cells    []GridCell
	shelters []Shelter
}

// NewLocalStore builds a store from already-loaded data. Intended for tests
// and for the offline grid computation.
func NewLocalStore(cells []GridCell, shelters []Shelter) *LocalStore {
	return &LocalStore{cells: cells, shelters: shelters}
}

// OpenLocal loads the grid and shelter GeoJSON files named by cfg.
// Missing or malformed files are fatal: the process must not serve without
// its reference data.
func OpenLocal(cfg config.DataConfig) (*LocalStore, error) {
	cells, err := LoadGrid(cfg.GridFile)
	if err != nil {
		return nil, err
	}
	shelters, err := LoadShelters(cfg.SheltersFile)
	if err != nil {
		return nil, err
	}

	zap.L().Info("dataset: loaded local datasets",
		zap.Int("grid_cells", len(cells)),
		zap.Int("shelters", len(shelters)),
	)
	return NewLocalStore(cells, shelters), nil
}

func (s *LocalStore) CellAt(_ context.Context, lat, lon float64) (*GridCell, error) {
	for i := range s.cells {
		if PolygonContains(s.cells[i].Polygon, lon, lat) {
			return &s.cells[i], nil
		}
	}
	return nil, nil
}

func (s *LocalStore) NearestCell(_ context.Context, lat, lon float64) (*GridCell, float64, error) {
	if len(s.cells) == 0 {
		return nil, 0, nil
	}
	best := 0
	bestDist := Haversine(lat, lon, s.cells[0].Centroid.Lat, s.cells[0].Centroid.Lon)
	for i := 1; i < len(s.cells); i++ {
		d := Haversine(lat, lon, s.cells[i].Centroid.Lat, s.cells[i].Centroid.Lon)
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	return &s.cells[best], bestDist, nil
}

func (s *LocalStore) NearbyShelters(_ context.Context, lat, lon float64, limit int) ([]ShelterDistance, error) {
	result := make([]ShelterDistance, 0, len(s.shelters))
	for _, sh := range s.shelters {
		result = append(result, ShelterDistance{
			Shelter:    sh,
			DistanceKm: Haversine(lat, lon, sh.Lat, sh.Lon),
		})
	}
	// Stable keeps dataset order for equal distances.
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].DistanceKm < result[j].DistanceKm
	})
	if limit > 0 && limit < len(result) {
		result = result[:limit]
	}
	return result, nil
}

func (s *LocalStore) ShelterCount(_ context.Context) (int, error) {
	return len(s.shelters), nil
}

func (s *LocalStore) Mode() string { return config.ModeLocal }

func (s *LocalStore) Close() error { return nil }
