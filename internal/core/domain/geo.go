package domain

import "time"

// GeoPoint represents a geographic coordinate (WGS 84).
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the coordinate is inside WGS 84 bounds.
func (p GeoPoint) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// Position is a single device GPS reading. Immutable once captured.
type Position struct {
	GeoPoint
	Accuracy *float64  `json:"accuracy,omitempty"` // meters, nil when the device did not report one
	Time     time.Time `json:"time"`
}

// Valid reports whether the reading can be used for decisioning.
func (p Position) Valid() bool {
	if !p.GeoPoint.Valid() {
		return false
	}
	if p.Accuracy != nil && *p.Accuracy < 0 {
		return false
	}
	return !p.Time.IsZero()
}

// Bounds represents a geographic bounding box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}
