package mission

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/precisionmule/missionplanner/internal/geo"
	"github.com/precisionmule/missionplanner/internal/registry"
	"github.com/precisionmule/missionplanner/pkg/core"
)

// ImportError describes why a mission record was rejected. Importing
// stops at the first problem and leaves the session untouched.
type ImportError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ImportError) Error() string {
	if e.Field == "" {
		return "import mission: " + e.Reason
	}
	return fmt.Sprintf("import mission: %s: %s", e.Field, e.Reason)
}

func (e *ImportError) Unwrap() error { return e.Err }

var requiredFields = []string{"missionPolygon", "startMarker", "heading", "mowingPathWidthInMeters"}

// DecodeRecord reads a mission record from JSON and checks that the
// required fields are present.
func DecodeRecord(r io.Reader) (core.MissionRecord, error) {
	var rec core.MissionRecord

	data, err := io.ReadAll(r)
	if err != nil {
		return rec, &ImportError{Reason: "read failed", Err: err}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return rec, &ImportError{Reason: "not a JSON object", Err: err}
	}
	for _, name := range requiredFields {
		raw, ok := fields[name]
		if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			return rec, &ImportError{Field: name, Reason: "missing"}
		}
	}

	if err := json.Unmarshal(data, &rec); err != nil {
		ie := &ImportError{Reason: "malformed value", Err: err}
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			ie.Field = typeErr.Field
			ie.Reason = "expected " + typeErr.Type.String()
		}
		return rec, ie
	}
	return rec, nil
}

// Import applies a mission document. A full record replaces the session
// content through FromRecord. A bare JSON array of positions, the older
// polygon.json export, replaces only the mission polygon (and its path).
func (s *Session) Import(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return &ImportError{Reason: "read failed", Err: err}
	}
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		return s.importPolygon(trimmed)
	}
	rec, err := DecodeRecord(bytes.NewReader(data))
	if err != nil {
		return err
	}
	return s.FromRecord(rec)
}

func (s *Session) importPolygon(data []byte) error {
	var vertices []core.LatLng
	if err := json.Unmarshal(data, &vertices); err != nil {
		return &ImportError{Field: "missionPolygon", Reason: "malformed polygon", Err: err}
	}
	if err := geo.ValidateRing(vertices); err != nil {
		return &ImportError{Field: "missionPolygon", Reason: err.Error(), Err: err}
	}
	return s.Update(func(r *registry.Registry) error {
		_, err := r.SetMissionPolygon(vertices)
		return err
	})
}

// ToRecord captures the session as a mission record. With
// approximateCirclesAsPolygons the circle obstacles are appended to
// PolyObstacles as 18-vertex polygons (an approximation) and
// CircleObstacles is left nil; otherwise circles are kept natively.
func (s *Session) ToRecord(approximateCirclesAsPolygons bool) core.MissionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.toRecord(approximateCirclesAsPolygons)
}

func (s *Session) toRecord(approximate bool) core.MissionRecord {
	rec := core.MissionRecord{
		MissionPolygon:  []core.LatLng{},
		PolyObstacles:   [][]core.LatLng{},
		StartMarker:     s.reg.StartMarker().Position(),
		PathWidthMeters: s.pathWidth,
		Heading:         s.heading,
	}
	if p := s.reg.MissionPolygon(); p != nil {
		rec.MissionPolygon = p.Vertices()
	}
	for _, p := range s.reg.PolyObstacles() {
		rec.PolyObstacles = append(rec.PolyObstacles, p.Vertices())
	}

	circles := s.reg.CircleObstacles()
	if approximate {
		for _, c := range circles {
			rec.PolyObstacles = append(rec.PolyObstacles,
				geo.ApproximateCircleAsPolygon(c.Center(), c.RadiusMeters(), geo.DefaultCircleVertices))
		}
		return rec
	}
	if len(circles) > 0 {
		rec.CircleObstacles = make([]core.CircleObstacle, 0, len(circles))
		for _, c := range circles {
			rec.CircleObstacles = append(rec.CircleObstacles, core.CircleObstacle{
				Center:       c.Center(),
				RadiusMeters: c.RadiusMeters(),
			})
		}
	}
	return rec
}

// FromRecord replaces the session content with rec. The record is fully
// validated first; on error nothing changes. A mission polygon with fewer
// than three vertices is ignored rather than rejected.
func (s *Session) FromRecord(rec core.MissionRecord) error {
	if err := validateRecord(rec); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.reg.Clear()
	s.reg.MoveMarker(rec.StartMarker)
	if len(rec.MissionPolygon) >= geo.MinRingVertices {
		if _, err := s.reg.SetMissionPolygon(rec.MissionPolygon); err != nil {
			return err
		}
	}
	for _, ring := range rec.PolyObstacles {
		if _, err := s.reg.InsertPolyObstacle(ring); err != nil {
			return err
		}
	}
	for _, c := range rec.CircleObstacles {
		if _, err := s.reg.InsertCircleObstacle(c.Center, c.RadiusMeters); err != nil {
			return err
		}
	}
	s.heading = rec.Heading
	s.pathWidth = rec.PathWidthMeters
	return nil
}

func validateRecord(rec core.MissionRecord) error {
	if !rec.StartMarker.IsValid() {
		return &ImportError{Field: "startMarker", Reason: "invalid coordinates"}
	}
	if !finite(rec.Heading) {
		return &ImportError{Field: "heading", Reason: "not a finite number"}
	}
	if !finite(rec.PathWidthMeters) || rec.PathWidthMeters <= 0 {
		return &ImportError{Field: "mowingPathWidthInMeters", Reason: "must be a positive number"}
	}

	if len(rec.MissionPolygon) >= geo.MinRingVertices {
		if err := geo.ValidateRing(rec.MissionPolygon); err != nil {
			return &ImportError{Field: "missionPolygon", Reason: err.Error(), Err: err}
		}
	} else {
		for i, p := range rec.MissionPolygon {
			if !p.IsValid() {
				return &ImportError{Field: fmt.Sprintf("missionPolygon[%d]", i), Reason: "invalid coordinates"}
			}
		}
	}

	for i, ring := range rec.PolyObstacles {
		if err := geo.ValidateRing(ring); err != nil {
			return &ImportError{Field: fmt.Sprintf("polyObstacles[%d]", i), Reason: err.Error(), Err: err}
		}
	}
	for i, c := range rec.CircleObstacles {
		field := fmt.Sprintf("circleObstacles[%d]", i)
		if !c.Center.IsValid() {
			return &ImportError{Field: field + ".center", Reason: "invalid coordinates"}
		}
		if !finite(c.RadiusMeters) || c.RadiusMeters <= 0 {
			return &ImportError{Field: field + ".radiusMeters", Reason: "must be a positive number", Err: registry.ErrInvalidRadius}
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
