// Package risk implements the entrapment risk scoring contract: a weighted
// sum over normalized grid cell attributes, clamped to [0,1] and discretized
// into bands.
package risk

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Factor names. The weights file must use these keys; unknown keys are
// ignored and missing keys contribute zero.
const (
	FactorPopulationDensity = "population_density"
	FactorResidentialUnits  = "residential_unit_count"
	FactorBuildingStories   = "building_stories"
	FactorLiquefaction      = "hazard_liquefaction_rank"
	FactorFloodDepth        = "flood_depth"
	FactorShelterProximity  = "proximity_to_shelter"
)

// Bounds are the fixed min/max used to normalize a raw attribute to [0,1].
// Scores are only reproducible across deployments when these are identical,
// which is why they live in the versioned weights file rather than in code.
type Bounds struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// BandThresholds discretize a score into low/medium/high.
type BandThresholds struct {
	LowMax    float64 `json:"low_max" yaml:"low_max"`
	MediumMax float64 `json:"medium_max" yaml:"medium_max"`
}

// WeightSet is the versioned scoring configuration.
type WeightSet struct {
	Version int                `json:"version" yaml:"version"`
	Weights map[string]float64 `json:"weights" yaml:"weights"`
	Bounds  map[string]Bounds  `json:"bounds" yaml:"bounds"`
	Bands   BandThresholds     `json:"bands" yaml:"bands"`
}

// DefaultWeights returns the documented sample weight set for the Tokyo MVP.
func DefaultWeights() *WeightSet {
	return &WeightSet{
		Version: 1,
		Weights: map[string]float64{
			FactorPopulationDensity: 0.25,
			FactorResidentialUnits:  0.20,
			FactorBuildingStories:   0.15,
			FactorLiquefaction:      0.25,
			FactorFloodDepth:        0.10,
			FactorShelterProximity:  -0.05,
		},
		Bounds: map[string]Bounds{
			FactorPopulationDensity: {Min: 0, Max: 20000},
			FactorResidentialUnits:  {Min: 0, Max: 500},
			FactorBuildingStories:   {Min: 0, Max: 20},
			FactorLiquefaction:      {Min: 1, Max: 5},
			FactorFloodDepth:        {Min: 0, Max: 5},
			FactorShelterProximity:  {Min: 0, Max: 1},
		},
		Bands: BandThresholds{LowMax: 0.33, MediumMax: 0.67},
	}
}

// LoadWeights reads a weight set from a JSON file (YAML accepted for .yaml
// and .yml extensions). A missing or malformed file is an error; startup
// treats it as fatal.
func LoadWeights(path string) (*WeightSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "risk: read weights %s", path)
	}

	var ws WeightSet
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &ws)
	default:
		err = json.Unmarshal(data, &ws)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "risk: parse weights %s", path)
	}

	if err := ws.Validate(); err != nil {
		return nil, err
	}
	return &ws, nil
}

// Validate checks structural invariants of the weight set.
func (ws *WeightSet) Validate() error {
	if len(ws.Weights) == 0 {
		return eris.New("risk: weight set has no weights")
	}
	if ws.Bands.LowMax <= 0 || ws.Bands.MediumMax <= ws.Bands.LowMax {
		return eris.Errorf("risk: invalid band thresholds (%g, %g)", ws.Bands.LowMax, ws.Bands.MediumMax)
	}

	known := make(map[string]bool, len(factorDefs))
	for _, fd := range factorDefs {
		known[fd.name] = true
	}
	for name := range ws.Weights {
		if !known[name] {
			zap.L().Warn("risk: ignoring unknown weight factor", zap.String("factor", name))
			continue
		}
		b, ok := ws.Bounds[name]
		if !ok {
			return eris.Errorf("risk: factor %s has no normalization bounds", name)
		}
		if b.Max <= b.Min {
			return eris.Errorf("risk: factor %s has invalid bounds [%g, %g]", name, b.Min, b.Max)
		}
	}
	return nil
}

// weight returns the configured weight for a factor, zero when absent.
func (ws *WeightSet) weight(name string) float64 {
	return ws.Weights[name]
}

// normalize maps a raw attribute value into [0,1] using the factor's bounds.
func (ws *WeightSet) normalize(name string, raw float64) float64 {
	b, ok := ws.Bounds[name]
	if !ok {
		return clamp01(raw)
	}
	return clamp01((raw - b.Min) / (b.Max - b.Min))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
