// pkg/core/record.go
package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// MissionRecord is the canonical shape used for saving, loading, file
// exchange and the outbound build request.
//
// Heading and path width are carried as JSON strings on the wire, the way
// the browser form fields submit them to the mission-builder service;
// decoding accepts either a string or a number for both.
type MissionRecord struct {
	MissionPolygon  []LatLng         `json:"missionPolygon"`
	PolyObstacles   [][]LatLng       `json:"polyObstacles"`
	CircleObstacles []CircleObstacle `json:"circleObstacles,omitempty"`
	StartMarker     LatLng           `json:"startMarker"`
	PathWidthMeters float64          `json:"mowingPathWidthInMeters"`
	Heading         float64          `json:"heading"`
}

type recordWire struct {
	MissionPolygon  []LatLng         `json:"missionPolygon"`
	PolyObstacles   [][]LatLng       `json:"polyObstacles"`
	CircleObstacles []CircleObstacle `json:"circleObstacles,omitempty"`
	StartMarker     LatLng           `json:"startMarker"`
	PathWidthMeters FlexFloat        `json:"mowingPathWidthInMeters"`
	Heading         FlexFloat        `json:"heading"`
}

// MarshalJSON writes heading and path width as strings.
func (r MissionRecord) MarshalJSON() ([]byte, error) {
	w := recordWire{
		MissionPolygon:  r.MissionPolygon,
		PolyObstacles:   r.PolyObstacles,
		CircleObstacles: r.CircleObstacles,
		StartMarker:     r.StartMarker,
		PathWidthMeters: FlexFloat(r.PathWidthMeters),
		Heading:         FlexFloat(r.Heading),
	}
	if w.MissionPolygon == nil {
		w.MissionPolygon = []LatLng{}
	}
	if w.PolyObstacles == nil {
		w.PolyObstacles = [][]LatLng{}
	}
	return json.Marshal(w)
}

// UnmarshalJSON accepts numeric or string heading and path width.
func (r *MissionRecord) UnmarshalJSON(data []byte) error {
	var w recordWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*r = MissionRecord{
		MissionPolygon:  w.MissionPolygon,
		PolyObstacles:   w.PolyObstacles,
		CircleObstacles: w.CircleObstacles,
		StartMarker:     w.StartMarker,
		PathWidthMeters: float64(w.PathWidthMeters),
		Heading:         float64(w.Heading),
	}
	return nil
}

// FlexFloat decodes from either a JSON number or a JSON string holding a
// number. The browser form fields send their values as strings.
type FlexFloat float64

// MarshalJSON writes the shortest exact decimal form as a JSON string.
func (f FlexFloat) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatFloat(float64(f), 'f', -1, 64))
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid number %q", s)
		}
		*f = FlexFloat(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = FlexFloat(v)
	return nil
}
