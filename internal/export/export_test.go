package export

import (
	"bytes"
	"encoding/xml"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/precisionmule/missionplanner/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecord() core.MissionRecord {
	return core.MissionRecord{
		MissionPolygon: []core.LatLng{{Lat: 30.1, Lng: -87.1}, {Lat: 30.1, Lng: -87.0}, {Lat: 30.0, Lng: -87.0}},
		PolyObstacles: [][]core.LatLng{
			{{Lat: 30.05, Lng: -87.05}, {Lat: 30.05, Lng: -87.04}, {Lat: 30.04, Lng: -87.04}},
		},
		CircleObstacles: []core.CircleObstacle{{Center: core.LatLng{Lat: 30.06, Lng: -87.06}, RadiusMeters: 3}},
		StartMarker:     core.LatLng{Lat: 30.0, Lng: -87.1},
		PathWidthMeters: 0.5,
		Heading:         90,
	}
}

var testPath = []core.LatLng{{Lat: 30.0, Lng: -87.1}, {Lat: 30.1, Lng: -87.1}, {Lat: 30.1, Lng: -87.0}}

func kinds(fc *geojson.FeatureCollection) []string {
	var out []string
	for _, f := range fc.Features {
		out = append(out, f.Properties.MustString("kind"))
	}
	return out
}

func TestGeoJSON_Features(t *testing.T) {
	fc := GeoJSON(testRecord(), testPath)

	assert.Equal(t, []string{
		KindMissionPolygon, KindPolygonObstacle, KindCircleObstacle,
		KindStartMarker, KindHeadingLine, KindMissionPath,
	}, kinds(fc))

	poly, ok := fc.Features[0].Geometry.(orb.Polygon)
	require.True(t, ok)
	require.Len(t, poly, 1)
	assert.Len(t, poly[0], 4, "ring is closed")
	assert.Equal(t, poly[0][0], poly[0][3])
	assert.Equal(t, orb.Point{-87.1, 30.1}, poly[0][0], "lng first")

	circle := fc.Features[2]
	assert.Equal(t, 3.0, circle.Properties.MustFloat64("radiusMeters"))

	path, ok := fc.Features[5].Geometry.(orb.LineString)
	require.True(t, ok)
	assert.Len(t, path, 3)
}

func TestGeoJSON_NoPolygonNoPath(t *testing.T) {
	fc := GeoJSON(core.MissionRecord{StartMarker: core.LatLng{Lat: 1, Lng: 2}}, nil)
	assert.Equal(t, []string{KindStartMarker, KindHeadingLine}, kinds(fc))
}

func TestWriteGeoJSON_Parses(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteGeoJSON(&buf, testRecord(), testPath))

	fc, err := geojson.UnmarshalFeatureCollection(buf.Bytes())
	require.NoError(t, err)
	assert.Len(t, fc.Features, 6)
}

func TestWriteKML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteKML(&buf, "North field", testRecord(), testPath))

	out := buf.String()
	assert.Contains(t, out, "<name>North field</name>")
	assert.Contains(t, out, "<name>Mission area</name>")
	assert.Contains(t, out, "<name>Obstacle 1</name>")
	assert.Contains(t, out, "<name>Circle obstacle 1</name>")
	assert.Contains(t, out, "<name>Mission path</name>")
	assert.Contains(t, out, "-87.1,30.1")

	// well formed
	dec := xml.NewDecoder(strings.NewReader(out))
	for {
		_, err := dec.Token()
		if err != nil {
			assert.Equal(t, "EOF", err.Error())
			break
		}
	}
}

func TestWriteKML_Minimal(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteKML(&buf, "Empty", core.MissionRecord{}, nil))

	out := buf.String()
	assert.Contains(t, out, "<name>Start</name>")
	assert.NotContains(t, out, "Mission path")
	assert.NotContains(t, out, "Obstacles")
}
