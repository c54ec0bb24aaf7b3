// Package export renders a mission and its coverage path as GeoJSON or KML
// for viewing in GIS tools.
package export

import (
	"fmt"
	"io"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/precisionmule/missionplanner/internal/geo"
	"github.com/precisionmule/missionplanner/pkg/core"
)

// Feature kinds, stored in the "kind" property.
const (
	KindMissionPolygon  = "missionPolygon"
	KindPolygonObstacle = "polygonObstacle"
	KindCircleObstacle  = "circleObstacle"
	KindStartMarker     = "startMarker"
	KindHeadingLine     = "headingLine"
	KindMissionPath     = "missionPath"
)

func point(p core.LatLng) orb.Point {
	return orb.Point{p.Lng, p.Lat}
}

// ring closes an open vertex list.
func ring(vertices []core.LatLng) orb.Ring {
	r := make(orb.Ring, 0, len(vertices)+1)
	for _, v := range vertices {
		r = append(r, point(v))
	}
	if len(vertices) > 0 {
		r = append(r, point(vertices[0]))
	}
	return r
}

func lineString(path []core.LatLng) orb.LineString {
	ls := make(orb.LineString, 0, len(path))
	for _, p := range path {
		ls = append(ls, point(p))
	}
	return ls
}

// GeoJSON builds a feature collection with one feature per shape. Circles
// stay points with a radiusMeters property; path may be empty.
func GeoJSON(rec core.MissionRecord, path []core.LatLng) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	if len(rec.MissionPolygon) > 0 {
		f := geojson.NewFeature(orb.Polygon{ring(rec.MissionPolygon)})
		f.Properties["kind"] = KindMissionPolygon
		fc.Append(f)
	}

	for i, obstacle := range rec.PolyObstacles {
		f := geojson.NewFeature(orb.Polygon{ring(obstacle)})
		f.Properties["kind"] = KindPolygonObstacle
		f.Properties["index"] = i
		fc.Append(f)
	}

	for i, c := range rec.CircleObstacles {
		f := geojson.NewFeature(point(c.Center))
		f.Properties["kind"] = KindCircleObstacle
		f.Properties["index"] = i
		f.Properties["radiusMeters"] = c.RadiusMeters
		fc.Append(f)
	}

	start := geojson.NewFeature(point(rec.StartMarker))
	start.Properties["kind"] = KindStartMarker
	start.Properties["heading"] = rec.Heading
	fc.Append(start)

	hl := geo.HeadingLine(rec.StartMarker, rec.Heading)
	heading := geojson.NewFeature(lineString(hl[:]))
	heading.Properties["kind"] = KindHeadingLine
	fc.Append(heading)

	if len(path) > 0 {
		f := geojson.NewFeature(lineString(path))
		f.Properties["kind"] = KindMissionPath
		f.Properties["pathWidthMeters"] = rec.PathWidthMeters
		f.Properties["waypoints"] = len(path)
		fc.Append(f)
	}

	return fc
}

// WriteGeoJSON writes the GeoJSON rendering of the mission to w.
func WriteGeoJSON(w io.Writer, rec core.MissionRecord, path []core.LatLng) error {
	data, err := GeoJSON(rec, path).MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to encode geojson: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write geojson: %w", err)
	}
	return nil
}
