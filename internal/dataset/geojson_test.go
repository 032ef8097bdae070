package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const gridFixture = `{
	"type": "FeatureCollection",
	"features": [
		{
			"type": "Feature",
			"properties": {
				"id": "cell_001",
				"pop_density": 16000,
				"residential_units": 400,
				"avg_stories": 12,
				"liq_rank": 4,
				"flood_depth": 2.5,
				"shelter_dist_km": 0.43
			},
			"geometry": {
				"type": "Polygon",
				"coordinates": [[[139.70,35.65],[139.71,35.65],[139.71,35.66],[139.70,35.66],[139.70,35.65]]]
			}
		},
		{
			"type": "Feature",
			"properties": {},
			"geometry": {
				"type": "MultiPolygon",
				"coordinates": [[[[139.72,35.65],[139.73,35.65],[139.73,35.66],[139.72,35.66],[139.72,35.65]]]]
			}
		},
		{
			"type": "Feature",
			"properties": {"id": "not_a_cell"},
			"geometry": {"type": "Point", "coordinates": [139.70, 35.65]}
		}
	]
}`

func TestLoadGrid(t *testing.T) {
	t.Parallel()

	path := writeFixture(t, "grid.geojson", gridFixture)
	cells, err := LoadGrid(path)
	require.NoError(t, err)
	require.Len(t, cells, 2, "point feature is skipped")

	first := cells[0]
	assert.Equal(t, "cell_001", first.ID)
	assert.Equal(t, 16000.0, first.Attrs.PopulationDensity)
	assert.Equal(t, 400.0, first.Attrs.ResidentialUnits)
	assert.Equal(t, 12.0, first.Attrs.BuildingStories)
	assert.Equal(t, 4.0, first.Attrs.LiquefactionRank)
	assert.Equal(t, 2.5, first.Attrs.FloodDepth)
	assert.Equal(t, 0.43, first.Attrs.ShelterDistanceKm)
	assert.InDelta(t, 35.655, first.Centroid.Lat, 1e-9)
	assert.InDelta(t, 139.705, first.Centroid.Lon, 1e-9)

	// MultiPolygon feature without attributes gets defaults and a synthetic ID.
	second := cells[1]
	assert.Equal(t, "cell_002", second.ID)
	assert.Zero(t, second.Attrs.PopulationDensity)
	require.NotNil(t, second.Polygon)
}

func TestLoadGrid_Empty(t *testing.T) {
	t.Parallel()

	path := writeFixture(t, "empty.geojson", `{"type":"FeatureCollection","features":[]}`)
	_, err := LoadGrid(path)
	assert.Error(t, err)
}

func TestLoadGrid_Missing(t *testing.T) {
	t.Parallel()

	_, err := LoadGrid(filepath.Join(t.TempDir(), "absent.geojson"))
	assert.Error(t, err)
}

func TestLoadGrid_Malformed(t *testing.T) {
	t.Parallel()

	path := writeFixture(t, "bad.geojson", `{"type": "FeatureCollection", "features": [`)
	_, err := LoadGrid(path)
	assert.Error(t, err)
}

const sheltersFixture = `{
	"type": "FeatureCollection",
	"features": [
		{
			"type": "Feature",
			"properties": {"id": "shelter_a", "name": "Shibuya Elementary", "capacity": 350},
			"geometry": {"type": "Point", "coordinates": [139.7016, 35.6580]}
		},
		{
			"type": "Feature",
			"properties": {"name": "No ID Hall"},
			"geometry": {"type": "Point", "coordinates": [139.71, 35.66]}
		},
		{
			"type": "Feature",
			"properties": {"name": "Bad Geometry"},
			"geometry": {
				"type": "Polygon",
				"coordinates": [[[139.70,35.65],[139.71,35.65],[139.71,35.66],[139.70,35.65]]]
			}
		}
	]
}`

func TestLoadShelters(t *testing.T) {
	t.Parallel()

	path := writeFixture(t, "shelters.geojson", sheltersFixture)
	shelters, err := LoadShelters(path)
	require.NoError(t, err)
	require.Len(t, shelters, 2, "polygon feature is skipped")

	assert.Equal(t, "shelter_a", shelters[0].ID)
	assert.Equal(t, "Shibuya Elementary", shelters[0].Name)
	assert.Equal(t, 350, shelters[0].Capacity)
	assert.InDelta(t, 35.6580, shelters[0].Lat, 1e-9)
	assert.InDelta(t, 139.7016, shelters[0].Lon, 1e-9)

	assert.Equal(t, "shelter_002", shelters[1].ID)
	assert.Zero(t, shelters[1].Capacity)
}

func TestLoadBuildings(t *testing.T) {
	t.Parallel()

	path := writeFixture(t, "buildings.geojson", `{
		"type": "FeatureCollection",
		"features": [
			{
				"type": "Feature",
				"properties": {"use": "residential", "levels": 8, "units": 40},
				"geometry": {
					"type": "Polygon",
					"coordinates": [[[139.70,35.65],[139.701,35.65],[139.701,35.651],[139.70,35.65]]]
				}
			},
			{
				"type": "Feature",
				"properties": {"use": "commercial"},
				"geometry": {
					"type": "Polygon",
					"coordinates": [[[139.71,35.65],[139.711,35.65],[139.711,35.651],[139.71,35.65]]]
				}
			}
		]
	}`)

	buildings, err := LoadBuildings(path)
	require.NoError(t, err)
	require.Len(t, buildings, 2)

	assert.Equal(t, "residential", buildings[0].Use)
	assert.Equal(t, 8.0, buildings[0].Levels)
	assert.Equal(t, 40.0, buildings[0].Units)

	assert.Equal(t, 1.0, buildings[1].Levels, "missing levels defaults to 1")
	assert.Zero(t, buildings[1].Units)
}

func TestLoadHazards(t *testing.T) {
	t.Parallel()

	path := writeFixture(t, "hazards.geojson", `{
		"type": "FeatureCollection",
		"features": [
			{
				"type": "Feature",
				"properties": {"liq_rank": 4, "flood_depth": 2.5},
				"geometry": {
					"type": "Polygon",
					"coordinates": [[[139.70,35.65],[139.72,35.65],[139.72,35.67],[139.70,35.65]]]
				}
			},
			{
				"type": "Feature",
				"properties": {},
				"geometry": {
					"type": "Polygon",
					"coordinates": [[[139.80,35.65],[139.82,35.65],[139.82,35.67],[139.80,35.65]]]
				}
			}
		]
	}`)

	zones, err := LoadHazards(path)
	require.NoError(t, err)
	require.Len(t, zones, 2)

	assert.Equal(t, 4.0, zones[0].LiqRank)
	assert.Equal(t, 2.5, zones[0].FloodDepth)
	assert.Equal(t, 1.0, zones[1].LiqRank, "missing rank defaults to the lowest")
	assert.Zero(t, zones[1].FloodDepth)
}
