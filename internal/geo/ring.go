package geo

import (
	"errors"
	"fmt"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/precisionmule/missionplanner/pkg/core"
	"github.com/wroge/wgs84"
)

// Geometry destined for storage is projected to EPSG:3857, the same way for
// SQLite and Postgres, so SQLite (no spatial awareness) can still read the
// WKB back through the geometry Scan implementations.

// ErrInvalidRing is returned for rings with too few or out of range vertices.
var ErrInvalidRing = errors.New("invalid polygon ring")

// MinRingVertices is the smallest vertex count of an open polygon ring.
const MinRingVertices = 3

// ValidateRing checks that vertices form an open ring of at least three
// valid positions. Degenerate rings (collinear, self-intersecting) pass:
// they are valid drawing states and must survive a save and reload.
func ValidateRing(vertices []core.LatLng) error {
	if len(vertices) < MinRingVertices {
		return fmt.Errorf("%w: need at least %d vertices, got %d", ErrInvalidRing, MinRingVertices, len(vertices))
	}
	for i, v := range vertices {
		if !v.IsValid() {
			return fmt.Errorf("%w: vertex %d: %w", ErrInvalidRing, i, ErrInvalidCoordinates)
		}
	}
	return nil
}

// PointTo3857 projects a WGS84 position to a web-mercator point.
func PointTo3857(p core.LatLng) (geom.Point, error) {
	if !p.IsValid() {
		return geom.NewEmptyPoint(geom.DimXY), ErrInvalidCoordinates
	}
	x, y := to3857(p)
	return geom.NewPoint(geom.Coordinates{
		XY:   geom.XY{X: x, Y: y},
		Type: geom.DimXY,
	})
}

// PointFrom3857 converts a web-mercator point back to WGS84.
func PointFrom3857(pt geom.Point) (core.LatLng, error) {
	c, ok := pt.Coordinates()
	if !ok {
		return core.LatLng{}, ErrInvalidCoordinates
	}
	f := wgs84.EPSG().Transform(3857, 4326)
	lng, lat, _ := f(c.X, c.Y, 0)
	return core.LatLng{Lat: lat, Lng: lng}, nil
}

// PolygonTo3857 projects an open WGS84 ring to a closed web-mercator
// polygon. An empty ring yields an empty polygon, and so does a ring that
// is not a valid simple polygon (collinear or self-intersecting).
func PolygonTo3857(vertices []core.LatLng) (geom.Polygon, error) {
	if len(vertices) == 0 {
		return geom.Polygon{}, nil
	}
	if err := ValidateRing(vertices); err != nil {
		return geom.Polygon{}, err
	}
	ring, err := closedRing(vertices, to3857)
	if err != nil {
		return geom.Polygon{}, fmt.Errorf("%w: %w", ErrInvalidRing, err)
	}
	return geom.NewPolygon([]geom.LineString{ring}, geom.OmitInvalid)
}

func to3857(p core.LatLng) (float64, float64) {
	f := wgs84.EPSG().Transform(4326, 3857)
	x, y, _ := f(p.Lng, p.Lat, 0)
	return x, y
}

func closedRing(vertices []core.LatLng, project func(core.LatLng) (float64, float64)) (geom.LineString, error) {
	flat := make([]float64, 0, (len(vertices)+1)*2)
	for _, v := range vertices {
		x, y := project(v)
		flat = append(flat, x, y)
	}
	flat = append(flat, flat[0], flat[1])
	return geom.NewLineString(geom.NewSequence(flat, geom.DimXY), geom.OmitInvalid)
}
