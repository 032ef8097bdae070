package dataset

import (
	"math"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
)

const earthRadiusKm = 6371.0

// Haversine returns the great-circle distance between two WGS84 points in km.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	la1 := lat1 * math.Pi / 180
	lo1 := lon1 * math.Pi / 180
	la2 := lat2 * math.Pi / 180
	lo2 := lon2 * math.Pi / 180

	dLat := la2 - la1
	dLon := lo2 - lo1

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(la1)*math.Cos(la2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}

// PolygonContains reports whether the polygon contains the point (lon/lat
// order, matching GeoJSON). A point inside an interior ring does not count.
func PolygonContains(p *geom.Polygon, lon, lat float64) bool {
	if p == nil || p.NumLinearRings() == 0 {
		return false
	}
	c := geom.Coord{lon, lat}
	if !xy.IsPointInRing(p.Layout(), c, p.LinearRing(0).FlatCoords()) {
		return false
	}
	for i := 1; i < p.NumLinearRings(); i++ {
		if xy.IsPointInRing(p.Layout(), c, p.LinearRing(i).FlatCoords()) {
			return false
		}
	}
	return true
}

// MultiPolygonContains reports whether any member polygon contains the point.
func MultiPolygonContains(mp *geom.MultiPolygon, lon, lat float64) bool {
	if mp == nil {
		return false
	}
	for i := 0; i < mp.NumPolygons(); i++ {
		if PolygonContains(mp.Polygon(i), lon, lat) {
			return true
		}
	}
	return false
}

// BoundsCenter returns the bounding-box center of a geometry as lat/lon.
// Grid cells are axis-aligned squares, so this matches the true centroid
// for them.
func BoundsCenter(g geom.T) Coord {
	b := g.Bounds()
	return Coord{
		Lat: (b.Min(1) + b.Max(1)) / 2,
		Lon: (b.Min(0) + b.Max(0)) / 2,
	}
}

// BoundsOverlap reports whether the bounding boxes of two geometries overlap.
func BoundsOverlap(a, b geom.T) bool {
	ab, bb := a.Bounds(), b.Bounds()
	return ab.Min(0) <= bb.Max(0) && bb.Min(0) <= ab.Max(0) &&
		ab.Min(1) <= bb.Max(1) && bb.Min(1) <= ab.Max(1)
}
