// Package geo implements the time and geometry primitives shared by the
// availability engine, the route optimiser, and the service-area lookup:
// coordinates, distance estimation, and polygon containment.
package geo

import (
	"fmt"
	"math"
)

const earthRadiusKM = 6371.0

// Coordinates is a WGS-84 point.
type Coordinates struct {
	Lat float64
	Lng float64
}

// NewCoordinates validates and constructs a Coordinates value.
func NewCoordinates(lat, lng float64) (Coordinates, error) {
	if lat < -90 || lat > 90 {
		return Coordinates{}, fmt.Errorf("geo: latitude %f out of range [-90,90]", lat)
	}
	if lng < -180 || lng > 180 {
		return Coordinates{}, fmt.Errorf("geo: longitude %f out of range [-180,180]", lng)
	}
	return Coordinates{Lat: lat, Lng: lng}, nil
}

// String renders the coordinate at 6-decimal precision.
func (c Coordinates) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lng)
}

// DistanceKM returns the great-circle distance between c and other in kilometres.
func (c Coordinates) DistanceKM(other Coordinates) float64 {
	lat1 := c.Lat * math.Pi / 180
	lat2 := other.Lat * math.Pi / 180
	dLat := (other.Lat - c.Lat) * math.Pi / 180
	dLng := (other.Lng - c.Lng) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c2 := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKM * c2
}

// EstimateTravelMinutes buckets DistanceKM into speed regimes and floors at 5 minutes.
func (c Coordinates) EstimateTravelMinutes(other Coordinates) int {
	km := c.DistanceKM(other)
	var speedKMH float64
	switch {
	case km < 5:
		speedKMH = 25
	case km < 20:
		speedKMH = 35
	default:
		speedKMH = 50
	}
	minutes := int(math.Ceil(km / speedKMH * 60))
	if minutes < 5 {
		minutes = 5
	}
	return minutes
}

// PolygonPoint is one vertex of a service-area polygon.
type PolygonPoint struct {
	Lat float64
	Lng float64
}

// Polygon is a tagged variant: a service area either declares only a bounding
// box or a full set of vertices (>= 3 points). Kept as a tag rather than a
// nullable points slice so containment checks never have to guess which mode
// a zero-value polygon is in.
type Polygon struct {
	Kind    PolygonKind
	Points  []PolygonPoint
	MinLat  float64
	MaxLat  float64
	MinLng  float64
	MaxLng  float64
}

// PolygonKind distinguishes a bounding-box-only area from a fully vertexed one.
type PolygonKind int

const (
	BoundingBoxOnly PolygonKind = iota
	FullPolygon
)

// NewBoundingBoxPolygon builds a bounding-box-only area.
func NewBoundingBoxPolygon(minLat, maxLat, minLng, maxLng float64) Polygon {
	return Polygon{Kind: BoundingBoxOnly, MinLat: minLat, MaxLat: maxLat, MinLng: minLng, MaxLng: maxLng}
}

// NewFullPolygon builds a polygon from its vertices, deriving the bounding box.
func NewFullPolygon(points []PolygonPoint) (Polygon, error) {
	if len(points) < 3 {
		return Polygon{}, fmt.Errorf("geo: polygon needs at least 3 points, got %d", len(points))
	}
	p := Polygon{Kind: FullPolygon, Points: points}
	p.MinLat, p.MaxLat = points[0].Lat, points[0].Lat
	p.MinLng, p.MaxLng = points[0].Lng, points[0].Lng
	for _, pt := range points[1:] {
		if pt.Lat < p.MinLat {
			p.MinLat = pt.Lat
		}
		if pt.Lat > p.MaxLat {
			p.MaxLat = pt.Lat
		}
		if pt.Lng < p.MinLng {
			p.MinLng = pt.Lng
		}
		if pt.Lng > p.MaxLng {
			p.MaxLng = pt.Lng
		}
	}
	return p, nil
}

// IsWithinBounds is the cheap bounding-box pre-filter.
func (p Polygon) IsWithinBounds(c Coordinates) bool {
	return c.Lat >= p.MinLat && c.Lat <= p.MaxLat && c.Lng >= p.MinLng && c.Lng <= p.MaxLng
}

// Contains runs the bounding-box pre-filter, then the full even-odd ray-cast
// when the polygon has vertices.
func (p Polygon) Contains(c Coordinates) bool {
	if !p.IsWithinBounds(c) {
		return false
	}
	if p.Kind == BoundingBoxOnly {
		return true
	}
	return rayCast(p.Points, c)
}

func rayCast(points []PolygonPoint, c Coordinates) bool {
	inside := false
	n := len(points)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		pi, pj := points[i], points[j]
		intersects := (pi.Lng > c.Lng) != (pj.Lng > c.Lng) &&
			c.Lat < (pj.Lat-pi.Lat)*(c.Lng-pi.Lng)/(pj.Lng-pi.Lng)+pi.Lat
		if intersects {
			inside = !inside
		}
	}
	return inside
}
