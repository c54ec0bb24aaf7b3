// Package mission holds the application state of one planning session and
// converts it to and from the mission record exchanged with files, local
// storage and the mission-builder service.
package mission

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/precisionmule/missionplanner/internal/geo"
	"github.com/precisionmule/missionplanner/internal/registry"
	"github.com/precisionmule/missionplanner/pkg/core"
)

// DefaultPathWidthMeters is the path width of a new session.
const DefaultPathWidthMeters = 1.0

// ErrInvalidNumber is returned when heading or path width input is rejected.
var ErrInvalidNumber = errors.New("not a valid number")

// Session is the state of one planning session: the shape registry, the
// heading and path width inputs, the map viewport and the build request
// counter. It is safe for concurrent use.
type Session struct {
	mu sync.Mutex

	reg       *registry.Registry
	heading   float64
	pathWidth float64
	viewport  core.Viewport

	lastRequest    uint64
	requestPolygon registry.ShapeID
}

// NewSession creates a session with the start marker at the viewport center.
func NewSession(vp core.Viewport) *Session {
	return &Session{
		reg:       registry.New(vp.Center()),
		pathWidth: DefaultPathWidthMeters,
		viewport:  vp,
	}
}

// Update runs fn with exclusive access to the registry.
func (s *Session) Update(fn func(r *registry.Registry) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.reg)
}

// View runs fn with exclusive access to the registry. fn must not mutate it.
func (s *Session) View(fn func(r *registry.Registry)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.reg)
}

// Heading returns the committed heading in degrees.
func (s *Session) Heading() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.heading
}

// PathWidth returns the committed path width in meters.
func (s *Session) PathWidth() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pathWidth
}

// SetHeading parses and commits a heading. Any finite number is accepted;
// on error the previous heading is kept.
func (s *Session) SetHeading(input string) error {
	v, err := parseNumber(input)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.heading = v
	return nil
}

// SetPathWidth parses and commits a path width, which must be positive.
// On error the previous width is kept.
func (s *Session) SetPathWidth(input string) error {
	v, err := parseNumber(input)
	if err != nil {
		return err
	}
	if v <= 0 {
		return fmt.Errorf("%w: path width %q must be greater than zero", ErrInvalidNumber, input)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pathWidth = v
	return nil
}

func parseNumber(input string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(input), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNumber, input)
	}
	return v, nil
}

// Viewport returns the last known map viewport.
func (s *Session) Viewport() core.Viewport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewport
}

// SetViewport records the map viewport. New obstacles are placed at its
// center.
func (s *Session) SetViewport(v core.Viewport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.viewport = v
}

// HeadingLine returns the heading indicator from the start marker.
func (s *Session) HeadingLine() [2]core.LatLng {
	s.mu.Lock()
	defer s.mu.Unlock()
	return geo.HeadingLine(s.reg.StartMarker().Position(), s.heading)
}

// LogAttrs summarizes the session for log records.
func (s *Session) LogAttrs() []slog.Attr {
	s.mu.Lock()
	defer s.mu.Unlock()

	vertices := 0
	if p := s.reg.MissionPolygon(); p != nil {
		vertices = len(p.Vertices())
	}
	return []slog.Attr{
		slog.Int("polygonVertices", vertices),
		slog.Int("obstacles", len(s.reg.PolyObstacles())+len(s.reg.CircleObstacles())),
		slog.Int("pathPoints", len(s.reg.MissionPath())),
	}
}
