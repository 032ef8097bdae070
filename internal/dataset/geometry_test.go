package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/twpayne/go-geom"
)

func TestHaversine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		wantKm                 float64
		delta                  float64
	}{
		{"same point", 35.66, 139.70, 35.66, 139.70, 0, 1e-9},
		{"shibuya to shinjuku", 35.6580, 139.7016, 35.6896, 139.7006, 3.5, 0.1},
		{"tokyo to osaka", 35.6762, 139.6503, 34.6937, 135.5023, 396, 5},
		{"one degree latitude", 35.0, 139.0, 36.0, 139.0, 111.2, 0.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Haversine(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			assert.InDelta(t, tt.wantKm, got, tt.delta)

			// Symmetric.
			assert.InDelta(t, got, Haversine(tt.lat2, tt.lon2, tt.lat1, tt.lon1), 1e-9)
		})
	}
}

func TestPolygonContains(t *testing.T) {
	t.Parallel()

	unit := geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{{
		{0, 0}, {2, 0}, {2, 2}, {0, 2}, {0, 0},
	}})

	assert.True(t, PolygonContains(unit, 1, 1))
	assert.False(t, PolygonContains(unit, 3, 1))
	assert.False(t, PolygonContains(unit, -1, -1))
	assert.False(t, PolygonContains(nil, 1, 1))

	donut := geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{
		{{0, 0}, {4, 0}, {4, 4}, {0, 4}, {0, 0}},
		{{1, 1}, {3, 1}, {3, 3}, {1, 3}, {1, 1}},
	})
	assert.True(t, PolygonContains(donut, 0.5, 0.5))
	assert.False(t, PolygonContains(donut, 2, 2), "point in the hole is outside")
}

func TestMultiPolygonContains(t *testing.T) {
	t.Parallel()

	mp := geom.NewMultiPolygon(geom.XY).MustSetCoords([][][]geom.Coord{
		{{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}},
		{{{5, 5}, {6, 5}, {6, 6}, {5, 6}, {5, 5}}},
	})

	assert.True(t, MultiPolygonContains(mp, 0.5, 0.5))
	assert.True(t, MultiPolygonContains(mp, 5.5, 5.5))
	assert.False(t, MultiPolygonContains(mp, 3, 3))
	assert.False(t, MultiPolygonContains(nil, 0.5, 0.5))
}

func TestBoundsCenter(t *testing.T) {
	t.Parallel()

	cell := geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{{
		{139.70, 35.65}, {139.72, 35.65}, {139.72, 35.67}, {139.70, 35.67}, {139.70, 35.65},
	}})
	c := BoundsCenter(cell)
	assert.InDelta(t, 35.66, c.Lat, 1e-9)
	assert.InDelta(t, 139.71, c.Lon, 1e-9)
}

func TestBoundsOverlap(t *testing.T) {
	t.Parallel()

	a := geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{{
		{0, 0}, {2, 0}, {2, 2}, {0, 2}, {0, 0},
	}})
	b := geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{{
		{1, 1}, {3, 1}, {3, 3}, {1, 3}, {1, 1},
	}})
	c := geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{{
		{5, 5}, {6, 5}, {6, 6}, {5, 6}, {5, 5},
	}})

	assert.True(t, BoundsOverlap(a, b))
	assert.True(t, BoundsOverlap(b, a))
	assert.False(t, BoundsOverlap(a, c))
}
