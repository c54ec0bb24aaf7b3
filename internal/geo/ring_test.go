package geo

import (
	"math"
	"testing"

	"github.com/precisionmule/missionplanner/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var square = []core.LatLng{
	{Lat: 30.0001, Lng: -87.0001},
	{Lat: 30.0001, Lng: -86.9999},
	{Lat: 29.9999, Lng: -86.9999},
	{Lat: 29.9999, Lng: -87.0001},
}

var (
	collinear = []core.LatLng{{Lat: 0, Lng: 0}, {Lat: 1, Lng: 1}, {Lat: 2, Lng: 2}}
	bowTie    = []core.LatLng{{Lat: 0, Lng: 0}, {Lat: 1, Lng: 1}, {Lat: 1, Lng: 0}, {Lat: 0, Lng: 1}}
)

func TestValidateRing(t *testing.T) {
	tests := []struct {
		name    string
		ring    []core.LatLng
		wantErr bool
	}{
		{"square", square, false},
		{"triangle", square[:3], false},
		{"too few", square[:2], true},
		{"empty", nil, true},
		{"nan vertex", []core.LatLng{{Lat: math.NaN(), Lng: 0}, {Lat: 1, Lng: 1}, {Lat: 0, Lng: 1}}, true},
		{"latitude out of range", []core.LatLng{{Lat: 91, Lng: 0}, {Lat: 1, Lng: 1}, {Lat: 0, Lng: 1}}, true},
		{"collinear", collinear, false},
		{"bow tie", bowTie, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRing(tt.ring)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRing)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPointTo3857_RoundTrip(t *testing.T) {
	p := core.NewLatLng(30.563413767103118, -87.67843377406932)

	pt, err := PointTo3857(p)
	require.NoError(t, err)

	c, ok := pt.Coordinates()
	require.True(t, ok)
	assert.Less(t, c.X, 0.0)
	assert.Greater(t, c.Y, 0.0)

	back, err := PointFrom3857(pt)
	require.NoError(t, err)
	assert.InDelta(t, p.Lat, back.Lat, 1e-9)
	assert.InDelta(t, p.Lng, back.Lng, 1e-9)
}

func TestPointTo3857_Invalid(t *testing.T) {
	_, err := PointTo3857(core.NewLatLng(math.Inf(1), 0))
	assert.ErrorIs(t, err, ErrInvalidCoordinates)
}

func TestPolygonTo3857(t *testing.T) {
	poly, err := PolygonTo3857(square)
	require.NoError(t, err)

	assert.False(t, poly.IsEmpty())
	ring := poly.ExteriorRing()
	// closing vertex appended
	assert.Equal(t, len(square)+1, ring.Coordinates().Length())
	assert.Greater(t, poly.Area(), 0.0)
}

func TestPolygonTo3857_Empty(t *testing.T) {
	poly, err := PolygonTo3857(nil)
	require.NoError(t, err)
	assert.True(t, poly.IsEmpty())
}

func TestPolygonTo3857_Invalid(t *testing.T) {
	_, err := PolygonTo3857(square[:2])
	assert.ErrorIs(t, err, ErrInvalidRing)
}

func TestPolygonTo3857_DegenerateRingIsEmpty(t *testing.T) {
	for name, ring := range map[string][]core.LatLng{"collinear": collinear, "bow tie": bowTie} {
		poly, err := PolygonTo3857(ring)
		require.NoError(t, err, name)
		assert.True(t, poly.IsEmpty(), name)
	}
}
