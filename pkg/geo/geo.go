// Package geo provides the geometry model used for geo-targeting broadcast
// alerts: circles and polygons over latitude/longitude, plus the delimited
// string codec shared with the message store.
//
// Most algorithms here treat latitude and longitude as coordinates on a plane,
// so results are inaccurate at large scales. Don't use this package for
// anything other than alert geo-targeting.
package geo

import (
	"math"
)

// EPS is the tolerance for treating a value as zero. Distances within EPS of
// a boundary count as inside, which absorbs floating point noise at edges.
const EPS = 1e-7

const earthRadiusMeters = 6371000

// Point is a geographic coordinate in decimal degrees.
type Point struct {
	Lat float64
	Lng float64
}

// Distance returns the great-circle distance in meters between p and other,
// computed with the haversine formula.
func (p Point) Distance(other Point) float64 {
	lat1 := p.Lat * math.Pi / 180
	lat2 := other.Lat * math.Pi / 180
	dLat := (other.Lat - p.Lat) * math.Pi / 180
	dLng := (other.Lng - p.Lng) * math.Pi / 180

	sinDLat := math.Sin(dLat / 2)
	sinDLng := math.Sin(dLng / 2)

	h := sinDLat*sinDLat + math.Cos(lat1)*math.Cos(lat2)*sinDLng*sinDLng
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}

// Geometry is a broadcast target area that can answer point containment.
type Geometry interface {
	Contains(p Point) bool
}

// Circle is a broadcast area given by a center point and a radius in meters.
type Circle struct {
	Center Point
	Radius float64
}

// Contains reports whether p lies within the circle, boundary included.
func (c Circle) Contains(p Point) bool {
	return c.Center.Distance(p) <= c.Radius+EPS
}

// Polygon is a closed polygon given by its vertices in insertion order; the
// last vertex connects back to the first. Vertices are not validated: a
// self-intersecting polygon yields undefined containment results.
type Polygon struct {
	Vertices []Point
}

// Contains reports whether p lies inside the polygon using the even-odd rule.
// A ray is cast from p toward increasing longitude and edge crossings are
// counted; a point within EPS of an edge counts as inside.
func (pg Polygon) Contains(p Point) bool {
	n := len(pg.Vertices)
	if n < 3 {
		return false
	}

	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a := pg.Vertices[i]
		b := pg.Vertices[j]

		if (a.Lat > p.Lat) == (b.Lat > p.Lat) {
			continue
		}

		// Longitude where edge a-b crosses the ray's latitude.
		cross := (b.Lng-a.Lng)*(p.Lat-a.Lat)/(b.Lat-a.Lat) + a.Lng
		if math.Abs(cross-p.Lng) < EPS {
			return true
		}
		if p.Lng < cross {
			inside = !inside
		}
	}
	return inside
}

// Area is an ordered sequence of geometries evaluated as a logical OR: a
// point is in the area when any element contains it.
type Area []Geometry

// Contains reports whether any geometry in the area contains p. It
// short-circuits on the first match.
func (a Area) Contains(p Point) bool {
	for _, g := range a {
		if g.Contains(p) {
			return true
		}
	}
	return false
}
