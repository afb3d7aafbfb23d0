package geo

import (
	"math"
	"testing"
)

func TestNewCoordinatesValidation(t *testing.T) {
	if _, err := NewCoordinates(91, 0); err == nil {
		t.Fatal("expected error for out-of-range latitude")
	}
	if _, err := NewCoordinates(0, 181); err == nil {
		t.Fatal("expected error for out-of-range longitude")
	}
	if _, err := NewCoordinates(39.7392, -104.9903); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCoordinatesStringRoundTrip(t *testing.T) {
	c, _ := NewCoordinates(39.739200, -104.990300)
	got := c.String()
	want := "39.739200,-104.990300"
	if got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}

func TestDistanceKMKnownPoints(t *testing.T) {
	denver, _ := NewCoordinates(39.7392, -104.9903)
	boulder, _ := NewCoordinates(40.0150, -105.2705)
	d := denver.DistanceKM(boulder)
	if d < 35 || d > 45 {
		t.Fatalf("distance Denver-Boulder = %f, want ~38-40km", d)
	}
	if denver.DistanceKM(denver) != 0 {
		t.Fatalf("self-distance should be zero")
	}
}

func TestEstimateTravelMinutesBuckets(t *testing.T) {
	a, _ := NewCoordinates(0, 0)
	near, _ := NewCoordinates(0.01, 0) // ~1.1km
	mid, _ := NewCoordinates(0.1, 0)   // ~11km
	far, _ := NewCoordinates(1, 0)     // ~111km

	if m := a.EstimateTravelMinutes(near); m < 5 {
		t.Fatalf("floor not applied: got %d", m)
	}
	if m := a.EstimateTravelMinutes(mid); m <= 0 {
		t.Fatalf("mid estimate should be positive, got %d", m)
	}
	if m := a.EstimateTravelMinutes(far); m < 100 {
		t.Fatalf("far estimate should reflect 50km/h bucket, got %d", m)
	}
}

func TestPolygonBoundingBoxOnly(t *testing.T) {
	p := NewBoundingBoxPolygon(39.0, 40.0, -105.5, -104.5)
	inside, _ := NewCoordinates(39.5, -105.0)
	outside, _ := NewCoordinates(41.0, -105.0)
	if !p.Contains(inside) {
		t.Fatal("expected point inside bounding box")
	}
	if p.Contains(outside) {
		t.Fatal("expected point outside bounding box")
	}
}

func TestFullPolygonRayCast(t *testing.T) {
	// A simple square around Denver roughly [39.6,39.9] x [-105.1,-104.8]
	points := []PolygonPoint{
		{Lat: 39.6, Lng: -105.1},
		{Lat: 39.6, Lng: -104.8},
		{Lat: 39.9, Lng: -104.8},
		{Lat: 39.9, Lng: -105.1},
	}
	poly, err := NewFullPolygon(points)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	inside, _ := NewCoordinates(39.75, -104.95)
	outside, _ := NewCoordinates(40.5, -104.95)
	if !poly.Contains(inside) {
		t.Fatal("expected point inside polygon")
	}
	if poly.Contains(outside) {
		t.Fatal("expected point outside polygon")
	}
}

func TestNewFullPolygonRejectsTooFewPoints(t *testing.T) {
	_, err := NewFullPolygon([]PolygonPoint{{Lat: 0, Lng: 0}, {Lat: 1, Lng: 1}})
	if err == nil {
		t.Fatal("expected error for polygon with fewer than 3 points")
	}
}

func TestDistanceKMSymmetric(t *testing.T) {
	a, _ := NewCoordinates(10, 10)
	b, _ := NewCoordinates(-10, -10)
	if math.Abs(a.DistanceKM(b)-b.DistanceKM(a)) > 1e-9 {
		t.Fatal("distance should be symmetric")
	}
}
