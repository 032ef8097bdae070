// Package dataset loads the static geospatial reference data and answers
// spatial queries over it. All data is loaded once at startup and never
// mutated afterwards, so every query path is safe for concurrent use.
package dataset

import (
	"context"

	"github.com/twpayne/go-geom"
)

// Canonical GeoJSON property keys for grid cell attributes.
const (
	PropPopDensity       = "pop_density"
	PropResidentialUnits = "residential_units"
	PropAvgStories       = "avg_stories"
	PropLiqRank          = "liq_rank"
	PropFloodDepth       = "flood_depth"
	PropShelterDistKm    = "shelter_dist_km"
	PropRiskScore        = "risk_score"
	PropRiskBand         = "risk_band"
)

// CellAttributes are the precomputed per-cell factors the risk formula reads.
type CellAttributes struct {
	PopulationDensity float64 `json:"pop_density"`       // residents per km²
	ResidentialUnits  float64 `json:"residential_units"` // dwelling units in cell
	BuildingStories   float64 `json:"avg_stories"`       // mean story count
	LiquefactionRank  float64 `json:"liq_rank"`          // 1 (low) .. 5 (severe)
	FloodDepth        float64 `json:"flood_depth"`       // meters
	ShelterDistanceKm float64 `json:"shelter_dist_km"`   // centroid to nearest shelter
}

// GridCell is one polygon of the risk grid with its precomputed attributes.
type GridCell struct {
	ID       string
	Polygon  *geom.Polygon // nil when the cell came from a PostGIS lookup
	Centroid Coord
	Attrs    CellAttributes
}

// Shelter is an evacuation shelter reference point.
type Shelter struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Capacity int     `json:"capacity"`
}

// ShelterDistance pairs a shelter with its distance from a query point.
type ShelterDistance struct {
	Shelter
	DistanceKm float64 `json:"distance_km"`
}

// Coord is a WGS84 position.
type Coord struct {
	Lat float64
	Lon float64
}

// Store answers spatial queries over the loaded reference data.
// Implementations must be safe for concurrent use.
type Store interface {
	// CellAt returns the grid cell containing the point, or nil when no
	// cell contains it.
	CellAt(ctx context.Context, lat, lon float64) (*GridCell, error)

	// NearestCell returns the cell whose centroid is closest to the point
	// along with the centroid distance in km. Returns nil when the grid is
	// empty.
	NearestCell(ctx context.Context, lat, lon float64) (*GridCell, float64, error)

	// NearbyShelters returns up to limit shelters ordered by non-decreasing
	// distance from the point. Ties preserve dataset order.
	NearbyShelters(ctx context.Context, lat, lon float64, limit int) ([]ShelterDistance, error)

	// ShelterCount reports how many shelters are known.
	ShelterCount(ctx context.Context) (int, error)

	// Mode identifies the backend ("local" or "postgis").
	Mode() string

	Close() error
}
