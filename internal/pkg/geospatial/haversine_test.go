package geospatial_test

import (
	"math"
	"testing"

	"github.com/samirrijal/fieldtrace/internal/pkg/geospatial"
)

func TestHaversine_ShortDistance(t *testing.T) {
	// ~0.0006 degrees of latitude near Delhi is about 67 m.
	d := geospatial.Haversine(28.6139, 77.2090, 28.6145, 77.2090)
	if d < 60 || d > 75 {
		t.Errorf("expected ~67m, got %.1f", d)
	}
}

func TestHaversine_Kilometer(t *testing.T) {
	// 0.01 degrees of latitude is about 1112 m.
	d := geospatial.Haversine(28.6139, 77.2090, 28.6239, 77.2090)
	if d < 1100 || d > 1125 {
		t.Errorf("expected ~1112m, got %.1f", d)
	}
}

func TestHaversine_ZeroDistance(t *testing.T) {
	d := geospatial.Haversine(43.263, -2.935, 43.263, -2.935)
	if d != 0 {
		t.Errorf("expected 0, got %f", d)
	}
}

func TestBearing_CardinalDirections(t *testing.T) {
	cases := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		want                   float64
	}{
		{"north", 0, 0, 1, 0, 0},
		{"east", 0, 0, 0, 1, 90},
		{"south", 1, 0, 0, 0, 180},
		{"west", 0, 1, 0, 0, 270},
	}

	for _, tc := range cases {
		got := geospatial.Bearing(tc.lat1, tc.lon1, tc.lat2, tc.lon2)
		if math.Abs(got-tc.want) > 0.5 {
			t.Errorf("%s: expected %.0f, got %.2f", tc.name, tc.want, got)
		}
	}
}

func TestBearing_Range(t *testing.T) {
	pts := [][4]float64{
		{28.6139, 77.2090, 28.6145, 77.2091},
		{43.263, -2.935, 43.262, -2.936},
		{-33.9, 151.2, -33.8, 151.1},
	}
	for _, p := range pts {
		b := geospatial.Bearing(p[0], p[1], p[2], p[3])
		if b < 0 || b >= 360 {
			t.Errorf("bearing %f out of [0,360)", b)
		}
	}
}

func TestBoundingBox_Contains(t *testing.T) {
	minLat, minLon, maxLat, maxLon := geospatial.BoundingBox(43.263, -2.935, 500)
	if minLat >= 43.263 || maxLat <= 43.263 || minLon >= -2.935 || maxLon <= -2.935 {
		t.Errorf("box does not contain center: %f %f %f %f", minLat, minLon, maxLat, maxLon)
	}
}
