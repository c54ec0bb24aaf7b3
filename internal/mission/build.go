package mission

import (
	"context"
	"errors"

	"github.com/precisionmule/missionplanner/pkg/core"
)

// ErrStaleResponse is returned when a build finished after a newer build
// was started, or after the mission polygon it was built for was replaced
// or deleted. The session is left untouched.
var ErrStaleResponse = errors.New("stale mission build response")

// ErrNoMissionPolygon is returned when a build is requested before a
// mission polygon has been drawn.
var ErrNoMissionPolygon = errors.New("no mission polygon to build")

// Planner turns a mission record into a coverage path. api.Client is the
// production implementation.
type Planner interface {
	BuildMission(ctx context.Context, rec core.MissionRecord) ([]core.LatLng, error)
}

// BuildRequest is an issued build: its id and the record to send.
type BuildRequest struct {
	ID     uint64
	Record core.MissionRecord
}

// BeginBuild issues a new request id and snapshots the record for the
// mission builder, with circles approximated as polygons. Every earlier
// request becomes stale. Without a mission polygon no id is issued.
func (s *Session) BeginBuild() (BuildRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.reg.MissionPolygon()
	if p == nil {
		return BuildRequest{}, ErrNoMissionPolygon
	}
	s.lastRequest++
	s.requestPolygon = p.ID()

	return BuildRequest{ID: s.lastRequest, Record: s.toRecord(true)}, nil
}

// ApplyBuild installs path as the mission path if id is the latest request
// and the mission polygon is the one the request was built for.
func (s *Session) ApplyBuild(id uint64, path []core.LatLng) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == 0 || id != s.lastRequest {
		return ErrStaleResponse
	}
	current := s.reg.MissionPolygon()
	if current == nil || current.ID() != s.requestPolygon {
		return ErrStaleResponse
	}
	s.reg.SetMissionPath(path)
	return nil
}

// Build runs a full build through p. The lock is not held while p runs.
// Transport errors are returned as is and leave the session unchanged.
func (s *Session) Build(ctx context.Context, p Planner) ([]core.LatLng, error) {
	req, err := s.BeginBuild()
	if err != nil {
		return nil, err
	}
	path, err := p.BuildMission(ctx, req.Record)
	if err != nil {
		return nil, err
	}
	if err := s.ApplyBuild(req.ID, path); err != nil {
		return nil, err
	}
	return path, nil
}

// MissionPath returns the current mission path.
func (s *Session) MissionPath() []core.LatLng {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reg.MissionPath()
}
