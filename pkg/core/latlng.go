// pkg/core/latlng.go
package core

import "math"

// LatLng is a WGS84 position in degrees. Longitude is stored as given and
// never normalized.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// NewLatLng is a small convenience constructor.
func NewLatLng(lat, lng float64) LatLng {
	return LatLng{Lat: lat, Lng: lng}
}

// IsValid reports whether both coordinates are finite and the latitude is
// within [-90, 90].
func (p LatLng) IsValid() bool {
	if math.IsNaN(p.Lat) || math.IsInf(p.Lat, 0) || math.IsNaN(p.Lng) || math.IsInf(p.Lng, 0) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90
}

// CircleObstacle is the native circle representation used by local saves.
type CircleObstacle struct {
	Center       LatLng  `json:"center"`
	RadiusMeters float64 `json:"radiusMeters"`
}

// Viewport is the map view restored between sessions.
type Viewport struct {
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Zoom      float64 `json:"zoom"`
	MapTypeID string  `json:"mapTypeId"`
}

// Center returns the viewport center as a LatLng.
func (v Viewport) Center() LatLng {
	return LatLng{Lat: v.Lat, Lng: v.Lng}
}
