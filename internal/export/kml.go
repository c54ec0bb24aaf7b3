package export

import (
	"fmt"
	"io"

	"github.com/precisionmule/missionplanner/internal/geo"
	"github.com/precisionmule/missionplanner/pkg/core"
	"github.com/twpayne/go-kml/v3"
)

func kmlCoord(p core.LatLng) kml.Coordinate {
	return kml.Coordinate{Lon: p.Lng, Lat: p.Lat}
}

func kmlRing(vertices []core.LatLng) []kml.Coordinate {
	coords := make([]kml.Coordinate, 0, len(vertices)+1)
	for _, v := range vertices {
		coords = append(coords, kmlCoord(v))
	}
	if len(vertices) > 0 {
		coords = append(coords, kmlCoord(vertices[0]))
	}
	return coords
}

func polygonPlacemark(name string, vertices []core.LatLng) kml.Element {
	return kml.Placemark(
		kml.Name(name),
		kml.Polygon(
			kml.OuterBoundaryIs(
				kml.LinearRing(
					kml.Coordinates(kmlRing(vertices)...),
				),
			),
		),
	)
}

// WriteKML writes the mission as a KML document. KML has no circle
// geometry, so circle obstacles are written as 18-vertex polygons.
func WriteKML(w io.Writer, name string, rec core.MissionRecord, path []core.LatLng) error {
	elements := []kml.Element{kml.Name(name)}

	if len(rec.MissionPolygon) > 0 {
		elements = append(elements, polygonPlacemark("Mission area", rec.MissionPolygon))
	}

	var obstacles []kml.Element
	for i, o := range rec.PolyObstacles {
		obstacles = append(obstacles, polygonPlacemark(fmt.Sprintf("Obstacle %d", i+1), o))
	}
	for i, c := range rec.CircleObstacles {
		approx := geo.ApproximateCircleAsPolygon(c.Center, c.RadiusMeters, geo.DefaultCircleVertices)
		p := polygonPlacemark(fmt.Sprintf("Circle obstacle %d", i+1), approx)
		obstacles = append(obstacles, p)
	}
	if len(obstacles) > 0 {
		elements = append(elements, kml.Folder(append([]kml.Element{kml.Name("Obstacles")}, obstacles...)...))
	}

	elements = append(elements, kml.Placemark(
		kml.Name("Start"),
		kml.Description(fmt.Sprintf("Heading: %g°", rec.Heading)),
		kml.Point(kml.Coordinates(kmlCoord(rec.StartMarker))),
	))

	if len(path) > 0 {
		coords := make([]kml.Coordinate, 0, len(path))
		for _, p := range path {
			coords = append(coords, kmlCoord(p))
		}
		elements = append(elements, kml.Placemark(
			kml.Name("Mission path"),
			kml.Description(fmt.Sprintf("%d waypoints, path width %gm", len(path), rec.PathWidthMeters)),
			kml.LineString(
				kml.Tessellate(true),
				kml.Coordinates(coords...),
			),
		))
	}

	doc := kml.KML(kml.Document(elements...))
	if err := doc.WriteIndent(w, "", "  "); err != nil {
		return fmt.Errorf("failed to write kml: %w", err)
	}
	return nil
}
