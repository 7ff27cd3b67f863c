// Package geo provides pure geographic computation helpers: point-in-polygon
// containment, polygon validity, circle normalization, and distance/bearing.
// Valid and NormalizeCircle report malformed input via an error rather than
// silently degrading, since these results gate alerting decisions; Contains
// returns false for a polygon with fewer than four vertices.
package geo

import (
	"math"

	"sentinel/internal/types"
)

const earthRadiusM = 6371000.0

// defaultCircleVertices is the vertex count used to normalize a circle into
// a polygon.
const defaultCircleVertices = 64

// Polygon is a closed simple ring in WGS84: Vertices[0] == Vertices[len-1],
// at least four vertices.
type Polygon struct {
	Vertices []types.Point
}

// ErrInvalidGeometry is returned by Valid and NormalizeCircle for malformed input.
type ErrInvalidGeometry struct {
	Reason string
}

func (e *ErrInvalidGeometry) Error() string { return "invalid geometry: " + e.Reason }

// Valid reports whether p is a closed simple polygon: first and last vertex
// coincide, at least four vertices, and no self-intersections.
func Valid(p Polygon) error {
	if len(p.Vertices) < 4 {
		return &ErrInvalidGeometry{Reason: "fewer than 4 vertices"}
	}
	first, last := p.Vertices[0], p.Vertices[len(p.Vertices)-1]
	if first.Lat != last.Lat || first.Lng != last.Lng {
		return &ErrInvalidGeometry{Reason: "ring is not closed"}
	}
	for _, v := range p.Vertices {
		if v.Lat < -90 || v.Lat > 90 || v.Lng < -180 || v.Lng > 180 {
			return &ErrInvalidGeometry{Reason: "vertex out of WGS84 range"}
		}
	}
	if selfIntersects(p) {
		return &ErrInvalidGeometry{Reason: "ring self-intersects"}
	}
	return nil
}

// selfIntersects runs the naive O(n^2) pairwise segment-intersection check,
// adequate for the small vertex counts (polygons drawn by an authority, or
// circles normalized to 64 points) this engine deals with.
func selfIntersects(p Polygon) bool {
	edges := p.Vertices[:len(p.Vertices)-1] // ring is closed; last == first
	n := len(edges)
	if n < 4 {
		return false
	}
	for i := 0; i < n; i++ {
		a1, a2 := edges[i], edges[(i+1)%n]
		for j := i + 1; j < n; j++ {
			// Adjacent edges share an endpoint by construction; skip them.
			if j == i || (j+1)%n == i || (i+1)%n == j {
				continue
			}
			b1, b2 := edges[j], edges[(j+1)%n]
			if segmentsIntersect(a1, a2, b1, b2) {
				return true
			}
		}
	}
	return false
}

func segmentsIntersect(p1, p2, p3, p4 types.Point) bool {
	d1 := cross(p3, p4, p1)
	d2 := cross(p3, p4, p2)
	d3 := cross(p1, p2, p3)
	d4 := cross(p1, p2, p4)
	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	return false
}

func cross(a, b, c types.Point) float64 {
	return (b.Lng-a.Lng)*(c.Lat-a.Lat) - (b.Lat-a.Lat)*(c.Lng-a.Lng)
}

// Contains reports whether point is inside polygon using ray-casting parity,
// counting a point exactly on an edge as inside for deterministic behavior
// at shared zone boundaries.
func Contains(p Polygon, point types.Point) bool {
	verts := p.Vertices
	n := len(verts)
	if n < 4 {
		return false
	}
	for i := 0; i < n-1; i++ {
		if onSegment(verts[i], verts[i+1], point) {
			return true
		}
	}

	inside := false
	j := n - 2 // last vertex before the closing duplicate
	for i := 0; i < n-1; i++ {
		vi, vj := verts[i], verts[j]
		if (vi.Lat > point.Lat) != (vj.Lat > point.Lat) {
			slope := (vj.Lng - vi.Lng) / (vj.Lat - vi.Lat)
			xIntersect := vi.Lng + slope*(point.Lat-vi.Lat)
			if point.Lng < xIntersect {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}

func onSegment(a, b, p types.Point) bool {
	if cross(a, b, p) != 0 {
		return false
	}
	minLat, maxLat := math.Min(a.Lat, b.Lat), math.Max(a.Lat, b.Lat)
	minLng, maxLng := math.Min(a.Lng, b.Lng), math.Max(a.Lng, b.Lng)
	return p.Lat >= minLat && p.Lat <= maxLat && p.Lng >= minLng && p.Lng <= maxLng
}

// NormalizeCircle renders a center+radius circle into a closed polygon at
// defaultCircleVertices points (circles are normalized at
// registration time so the hot path never branches on geometry variant).
func NormalizeCircle(center types.Point, radiusMeters float64) (Polygon, error) {
	if radiusMeters <= 0 {
		return Polygon{}, &ErrInvalidGeometry{Reason: "non-positive radius"}
	}
	verts := make([]types.Point, defaultCircleVertices+1)
	for i := 0; i <= defaultCircleVertices; i++ {
		bearingDeg := float64(i%defaultCircleVertices) * (360.0 / float64(defaultCircleVertices))
		verts[i] = destination(center, bearingDeg, radiusMeters)
	}
	return Polygon{Vertices: verts}, nil
}

// destination computes the point reached by travelling distanceMeters from
// origin along bearingDeg (forward azimuth, degrees).
func destination(origin types.Point, bearingDeg, distanceMeters float64) types.Point {
	angularDist := distanceMeters / earthRadiusM
	bearingRad := deg2rad(bearingDeg)
	lat1 := deg2rad(origin.Lat)
	lng1 := deg2rad(origin.Lng)

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(angularDist) +
		math.Cos(lat1)*math.Sin(angularDist)*math.Cos(bearingRad))
	lng2 := lng1 + math.Atan2(
		math.Sin(bearingRad)*math.Sin(angularDist)*math.Cos(lat1),
		math.Cos(angularDist)-math.Sin(lat1)*math.Sin(lat2),
	)
	return types.Point{Lat: rad2deg(lat2), Lng: normalizeLng(rad2deg(lng2))}
}

// Distance returns the great-circle distance between a and b in meters
// (haversine).
func Distance(a, b types.Point) float64 {
	dLat := deg2rad(b.Lat - a.Lat)
	dLng := deg2rad(b.Lng - a.Lng)
	rLat1 := deg2rad(a.Lat)
	rLat2 := deg2rad(b.Lat)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusM * c
}

// Bearing returns the forward azimuth from a to b in degrees, [0, 360).
func Bearing(a, b types.Point) float64 {
	lat1 := deg2rad(a.Lat)
	lat2 := deg2rad(b.Lat)
	dLng := deg2rad(b.Lng - a.Lng)

	y := math.Sin(dLng) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLng)
	theta := math.Atan2(y, x)
	return math.Mod(rad2deg(theta)+360, 360)
}

func deg2rad(d float64) float64 { return d * math.Pi / 180.0 }
func rad2deg(r float64) float64 { return r * 180.0 / math.Pi }

func normalizeLng(lng float64) float64 {
	for lng > 180 {
		lng -= 360
	}
	for lng < -180 {
		lng += 360
	}
	return lng
}
