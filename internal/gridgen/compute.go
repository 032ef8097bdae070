// Package gridgen builds the scored risk grid offline: it joins building and
// hazard layers onto the grid, derives per-cell attributes, and scores every
// cell. The output is the static artifact the service loads at startup.
package gridgen

import (
	"context"
	"math"
	"runtime"

	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tokyo-dap/riskmap/internal/dataset"
	"github.com/tokyo-dap/riskmap/internal/risk"
)

// ScoredCell is a grid cell with derived attributes and its computed score.
type ScoredCell struct {
	dataset.GridCell
	Score float64
	Band  string
}

// Compute derives attributes and scores for every grid cell. Cells are
// processed concurrently but the result order matches the input order, so
// output is deterministic given identical inputs.
func Compute(ctx context.Context, cells []dataset.GridCell, buildings []dataset.Building, hazards []dataset.HazardZone, shelters []dataset.Shelter, engine *risk.Engine, workers int) ([]ScoredCell, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	result := make([]ScoredCell, len(cells))

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := range cells {
		g.Go(func() error {
			cell := cells[i]
			cell.Attrs = deriveAttributes(cell, buildings, hazards, shelters)
			score, band, _ := engine.ScoreAttributes(cell.Attrs)
			result[i] = ScoredCell{GridCell: cell, Score: score, Band: band}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	zap.L().Info("gridgen: scored grid",
		zap.Int("cells", len(cells)),
		zap.Int("buildings", len(buildings)),
		zap.Int("hazards", len(hazards)),
		zap.Int("shelters", len(shelters)),
	)
	return result, nil
}

// deriveAttributes computes a cell's attribute vector from the raw layers.
// Population density is carried over from the source grid; everything else
// is derived here.
func deriveAttributes(cell dataset.GridCell, buildings []dataset.Building, hazards []dataset.HazardZone, shelters []dataset.Shelter) dataset.CellAttributes {
	attrs := dataset.CellAttributes{
		PopulationDensity: cell.Attrs.PopulationDensity,
		LiquefactionRank:  1, // baseline when no hazard zone overlaps
	}

	// Buildings: assigned to the cell containing their bbox center.
	var stories float64
	var count int
	for _, b := range buildings {
		c := dataset.BoundsCenter(b.Geom)
		if !dataset.PolygonContains(cell.Polygon, c.Lon, c.Lat) {
			continue
		}
		count++
		stories += b.Levels
		if b.Use == "residential" {
			attrs.ResidentialUnits += b.Units
		}
	}
	if count > 0 {
		attrs.BuildingStories = stories / float64(count)
	}

	// Hazards: take the worst rank and depth over overlapping zones.
	for _, hz := range hazards {
		if !hazardOverlaps(cell.Polygon, hz.Geom) {
			continue
		}
		attrs.LiquefactionRank = math.Max(attrs.LiquefactionRank, hz.LiqRank)
		attrs.FloodDepth = math.Max(attrs.FloodDepth, hz.FloodDepth)
	}

	// Shelter proximity from the cell centroid.
	nearest := math.Inf(1)
	for _, sh := range shelters {
		d := dataset.Haversine(cell.Centroid.Lat, cell.Centroid.Lon, sh.Lat, sh.Lon)
		if d < nearest {
			nearest = d
		}
	}
	if !math.IsInf(nearest, 1) {
		attrs.ShelterDistanceKm = nearest
	}

	return attrs
}

// hazardOverlaps approximates polygon intersection with a bbox overlap plus
// mutual center containment checks. Grid cells are small axis-aligned
// squares, so this is adequate for the MVP layers.
func hazardOverlaps(cell *geom.Polygon, hz geom.T) bool {
	if !dataset.BoundsOverlap(cell, hz) {
		return false
	}
	cellCenter := dataset.BoundsCenter(cell)
	if geomContains(hz, cellCenter.Lon, cellCenter.Lat) {
		return true
	}
	hzCenter := dataset.BoundsCenter(hz)
	return dataset.PolygonContains(cell, hzCenter.Lon, hzCenter.Lat)
}

func geomContains(g geom.T, lon, lat float64) bool {
	switch t := g.(type) {
	case *geom.Polygon:
		return dataset.PolygonContains(t, lon, lat)
	case *geom.MultiPolygon:
		return dataset.MultiPolygonContains(t, lon, lat)
	default:
		return false
	}
}
