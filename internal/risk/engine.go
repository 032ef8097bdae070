package risk

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/tokyo-dap/riskmap/internal/config"
	"github.com/tokyo-dap/riskmap/internal/dataset"
)

// Bands derived from the continuous score.
const (
	BandLow     = "low"
	BandMedium  = "medium"
	BandHigh    = "high"
	BandUnknown = "unknown" // no containing grid cell
)

// Plausible query bounding box for the Tokyo datasets. Points outside it
// cannot be in any cell, so the scan is skipped.
const (
	tokyoMinLat = 34.5
	tokyoMaxLat = 36.5
	tokyoMinLon = 138.5
	tokyoMaxLon = 141.0
)

// ErrInvalidCoordinate marks non-finite or out-of-world coordinates.
// The API layer maps it to a client error.
var ErrInvalidCoordinate = eris.New("risk: invalid coordinate")

// Contributor is one factor's signed contribution to the score.
type Contributor struct {
	Factor      string  `json:"factor"`
	Value       float64 `json:"value"`
	Description string  `json:"description"`
}

// Result is the scored response for a query point.
type Result struct {
	RiskScore       float64       `json:"risk_score"`
	Band            string        `json:"band"`
	TopContributors []Contributor `json:"top_contributors"`
	Lat             float64       `json:"lat"`
	Lon             float64       `json:"lon"`
	CellID          string        `json:"cell_id,omitempty"`
}

// factorDef binds a factor name to its attribute and description rendering.
type factorDef struct {
	name     string
	extract  func(dataset.CellAttributes) float64
	describe func(raw float64) string
}

// factorDefs is the fixed, ordered factor list. Order breaks contribution
// ties, keeping results deterministic.
var factorDefs = []factorDef{
	{
		name:     FactorPopulationDensity,
		extract:  func(a dataset.CellAttributes) float64 { return a.PopulationDensity },
		describe: func(raw float64) string { return fmt.Sprintf("Population density: %.0f/km²", raw) },
	},
	{
		name:     FactorResidentialUnits,
		extract:  func(a dataset.CellAttributes) float64 { return a.ResidentialUnits },
		describe: func(raw float64) string { return fmt.Sprintf("Residential units: %.0f", raw) },
	},
	{
		name:     FactorBuildingStories,
		extract:  func(a dataset.CellAttributes) float64 { return a.BuildingStories },
		describe: func(raw float64) string { return fmt.Sprintf("Average stories: %.1f", raw) },
	},
	{
		name:     FactorLiquefaction,
		extract:  func(a dataset.CellAttributes) float64 { return a.LiquefactionRank },
		describe: func(raw float64) string { return fmt.Sprintf("Liquefaction risk: %.0f/5", raw) },
	},
	{
		name:     FactorFloodDepth,
		extract:  func(a dataset.CellAttributes) float64 { return a.FloodDepth },
		describe: func(raw float64) string { return fmt.Sprintf("Flood depth: %.1fm", raw) },
	},
	{
		name:     FactorShelterProximity,
		extract:  func(a dataset.CellAttributes) float64 { return a.ShelterDistanceKm },
		describe: func(raw float64) string { return fmt.Sprintf("Distance to shelter: %.0fm", raw*1000) },
	},
}

// Engine computes risk scores over an immutable spatial store. It holds no
// mutable state and is safe for concurrent use.
type Engine struct {
	store           dataset.Store
	weights         *WeightSet
	topN            int
	nearestFallback bool
	maxFallbackKm   float64
}

// NewEngine builds an engine over the given store and weight set.
func NewEngine(store dataset.Store, weights *WeightSet, cfg config.RiskConfig) *Engine {
	topN := cfg.TopContributors
	if topN <= 0 {
		topN = 3
	}
	return &Engine{
		store:           store,
		weights:         weights,
		topN:            topN,
		nearestFallback: cfg.NearestFallback,
		maxFallbackKm:   cfg.MaxFallbackKm,
	}
}

// Weights exposes the loaded weight set (for /config and the grid builder).
func (e *Engine) Weights() *WeightSet { return e.weights }

// Score computes the entrapment risk at a point. Non-finite or out-of-world
// coordinates return ErrInvalidCoordinate. A point with no containing cell
// (and no fallback hit) yields the defined unknown result, not an error.
func (e *Engine) Score(ctx context.Context, lat, lon float64) (*Result, error) {
	if !validCoordinate(lat, lon) {
		return nil, eris.Wrapf(ErrInvalidCoordinate, "lat=%v lon=%v", lat, lon)
	}

	if lat < tokyoMinLat || lat > tokyoMaxLat || lon < tokyoMinLon || lon > tokyoMaxLon {
		return unknownResult(lat, lon), nil
	}

	cell, err := e.store.CellAt(ctx, lat, lon)
	if err != nil {
		return nil, err
	}
	if cell == nil && e.nearestFallback {
		nearest, distKm, nErr := e.store.NearestCell(ctx, lat, lon)
		if nErr != nil {
			return nil, nErr
		}
		if nearest != nil && distKm <= e.maxFallbackKm {
			zap.L().Debug("risk: using nearest-centroid fallback",
				zap.String("cell", nearest.ID),
				zap.Float64("distance_km", distKm),
			)
			cell = nearest
		}
	}
	if cell == nil {
		return unknownResult(lat, lon), nil
	}

	score, band, contributors := e.ScoreAttributes(cell.Attrs)
	if len(contributors) > e.topN {
		contributors = contributors[:e.topN]
	}

	return &Result{
		RiskScore:       score,
		Band:            band,
		TopContributors: contributors,
		Lat:             lat,
		Lon:             lon,
		CellID:          cell.ID,
	}, nil
}

// ScoreAttributes applies the weighted-sum formula to a cell attribute
// vector. Returns the clamped score, its band, and all factor contributions
// sorted by descending magnitude.
func (e *Engine) ScoreAttributes(attrs dataset.CellAttributes) (float64, string, []Contributor) {
	contributors := make([]Contributor, 0, len(factorDefs))
	score := 0.0

	for _, fd := range factorDefs {
		w := e.weights.weight(fd.name)
		raw := fd.extract(attrs)
		contribution := w * e.weights.normalize(fd.name, raw)
		score += contribution

		if w == 0 {
			continue // unweighted factors neither score nor rank
		}
		contributors = append(contributors, Contributor{
			Factor:      fd.name,
			Value:       contribution,
			Description: fd.describe(raw),
		})
	}

	// Stable sort: equal magnitudes keep factor declaration order.
	sort.SliceStable(contributors, func(i, j int) bool {
		return math.Abs(contributors[i].Value) > math.Abs(contributors[j].Value)
	})

	score = clamp01(score)
	return score, e.band(score), contributors
}

func (e *Engine) band(score float64) string {
	switch {
	case score < e.weights.Bands.LowMax:
		return BandLow
	case score < e.weights.Bands.MediumMax:
		return BandMedium
	default:
		return BandHigh
	}
}

func validCoordinate(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lon) || math.IsInf(lon, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

func unknownResult(lat, lon float64) *Result {
	return &Result{
		RiskScore:       0,
		Band:            BandUnknown,
		TopContributors: []Contributor{},
		Lat:             lat,
		Lon:             lon,
	}
}
