package geo

import (
	"errors"
	"math"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
	"github.com/precisionmule/missionplanner/pkg/core"
)

const (
	// EarthRadiusMeters is the mean earth radius used by every spherical
	// computation in this package.
	EarthRadiusMeters = 6371000.0

	// HeadingLineMeters is the length of the heading indicator drawn from
	// the start marker.
	HeadingLineMeters = 1000.0

	// DefaultCircleVertices is the vertex count used when a circle obstacle
	// is sent to the mission builder as a polygon.
	DefaultCircleVertices = 18
)

// ErrInvalidCoordinates is returned when a position is not finite or its
// latitude is out of range.
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

func toRad(deg float64) float64 { return deg * math.Pi / 180 }
func toDeg(rad float64) float64 { return rad * 180 / math.Pi }

// DestinationPoint returns the point reached by travelling distanceMeters
// from (lat1, lon1) along the great circle with the given initial bearing
// (degrees, clockwise from north).
//
// The longitude is not normalized; callers that display it are responsible
// for wrapping it into (-180, 180].
func DestinationPoint(lat1, lon1, bearingDeg, distanceMeters, earthRadiusMeters float64) core.LatLng {
	phi1 := toRad(lat1)
	lambda1 := toRad(lon1)
	theta := toRad(bearingDeg)
	delta := distanceMeters / earthRadiusMeters

	phi2 := math.Asin(math.Sin(phi1)*math.Cos(delta) + math.Cos(phi1)*math.Sin(delta)*math.Cos(theta))
	lambda2 := lambda1 + math.Atan2(math.Sin(theta)*math.Sin(delta)*math.Cos(phi1), math.Cos(delta)-math.Sin(phi1)*math.Sin(phi2))

	return core.LatLng{Lat: toDeg(phi2), Lng: toDeg(lambda2)}
}

// ApproximateCircleAsPolygon returns vertexCount points on the circle of
// radiusMeters around center, at bearings i*(360/vertexCount) in increasing
// order. The result is an approximation of the circle, not an exact one.
func ApproximateCircleAsPolygon(center core.LatLng, radiusMeters float64, vertexCount int) []core.LatLng {
	if vertexCount <= 0 {
		return nil
	}
	step := 360.0 / float64(vertexCount)
	points := make([]core.LatLng, 0, vertexCount)
	for i := 0; i < vertexCount; i++ {
		points = append(points, DestinationPoint(center.Lat, center.Lng, float64(i)*step, radiusMeters, EarthRadiusMeters))
	}
	return points
}

// HeadingLine returns the two endpoints of the heading indicator that starts
// at the start marker.
func HeadingLine(start core.LatLng, headingDeg float64) [2]core.LatLng {
	return [2]core.LatLng{
		start,
		DestinationPoint(start.Lat, start.Lng, headingDeg, HeadingLineMeters, EarthRadiusMeters),
	}
}

// Distance returns the great-circle distance in meters between a and b.
func Distance(a, b core.LatLng) float64 {
	// orb uses the WGS84 semi-major axis; rescale to our mean radius.
	d := orbgeo.DistanceHaversine(orb.Point{a.Lng, a.Lat}, orb.Point{b.Lng, b.Lat})
	return d * EarthRadiusMeters / orb.EarthRadius
}
