// Package registry tracks the shapes of a mission (boundary polygon,
// obstacles, start marker, derived mission path) and enforces the
// selection and deletion rules between them.
//
// A Registry is not safe for concurrent use; mission.Session serializes
// access to it.
package registry

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/precisionmule/missionplanner/pkg/core"
)

// Default geometry for obstacles created from the toolbar.
const (
	DefaultPolyObstacleHalfSizeDeg = 0.00002
	DefaultCircleRadiusMeters      = 2.0

	minPolygonVertices = 3
)

var (
	ErrUnknownShape       = errors.New("shape is not in the registry")
	ErrTooFewVertices     = errors.New("polygon needs at least 3 vertices")
	ErrInvalidRadius      = errors.New("circle radius must be a positive finite number")
	ErrIndexOutOfRange    = errors.New("vertex index out of range")
	ErrNoPendingDelete    = errors.New("no delete awaiting confirmation")
	ErrMarkerNotDeletable = errors.New("the start marker cannot be deleted")
	ErrNoMissionPath      = errors.New("no mission path")
	ErrNoVertices         = errors.New("shape has no vertices")
	ErrInvalidCoordinates = errors.New("coordinates out of range")
)

// DrawingMode mirrors the drawing tool state.
type DrawingMode int

const (
	// AwaitingPolygon means the drawing tool is waiting for a new mission polygon.
	AwaitingPolygon DrawingMode = iota
	// Idle means a mission polygon exists and the drawing control is hidden.
	Idle
)

func (m DrawingMode) String() string {
	if m == Idle {
		return "idle"
	}
	return "awaitingPolygon"
}

// DeleteOutcome is the result of a delete request.
type DeleteOutcome int

const (
	NothingSelected DeleteOutcome = iota
	Deleted
	ConfirmationRequired
	Cancelled
)

func (o DeleteOutcome) String() string {
	switch o {
	case Deleted:
		return "deleted"
	case ConfirmationRequired:
		return "confirmationRequired"
	case Cancelled:
		return "cancelled"
	default:
		return "nothingSelected"
	}
}

// ConfirmFunc asks the user to confirm deleting the mission polygon.
type ConfirmFunc func(ctx context.Context) (bool, error)

// Registry owns every live shape.
type Registry struct {
	nextID ShapeID

	polygon *MissionPolygon
	path    []core.LatLng
	circles []*CircleObstacle
	polys   []*PolygonObstacle
	marker  *StartMarker

	selected      Shape
	pendingDelete Shape
	mode          DrawingMode
}

// New creates a registry with the start marker placed at start.
func New(start core.LatLng) *Registry {
	r := &Registry{mode: AwaitingPolygon}
	r.marker = &StartMarker{base: base{id: r.newID()}, position: start}
	return r
}

func (r *Registry) newID() ShapeID {
	r.nextID++
	return r.nextID
}

// Mode returns the drawing mode.
func (r *Registry) Mode() DrawingMode { return r.mode }

// MissionPolygon returns the mission polygon, or nil.
func (r *Registry) MissionPolygon() *MissionPolygon { return r.polygon }

// StartMarker returns the start marker.
func (r *Registry) StartMarker() *StartMarker { return r.marker }

// CircleObstacles returns the circle obstacles in insertion order.
func (r *Registry) CircleObstacles() []*CircleObstacle {
	return append([]*CircleObstacle(nil), r.circles...)
}

// PolyObstacles returns the polygon obstacles in insertion order.
func (r *Registry) PolyObstacles() []*PolygonObstacle {
	return append([]*PolygonObstacle(nil), r.polys...)
}

// MissionPath returns a copy of the current mission path.
func (r *Registry) MissionPath() []core.LatLng { return clone(r.path) }

// SetMissionPath replaces the mission path returned by the mission builder.
func (r *Registry) SetMissionPath(path []core.LatLng) {
	r.path = clone(path)
}

// MovePathPoint moves one waypoint of the mission path.
func (r *Registry) MovePathPoint(index int, p core.LatLng) error {
	if r.path == nil {
		return ErrNoMissionPath
	}
	if index < 0 || index >= len(r.path) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	r.path[index] = p
	return nil
}

// Shape looks up a live shape by ID.
func (r *Registry) Shape(id ShapeID) (Shape, bool) {
	if r.marker != nil && r.marker.id == id {
		return r.marker, true
	}
	if r.polygon != nil && r.polygon.id == id {
		return r.polygon, true
	}
	for _, c := range r.circles {
		if c.id == id {
			return c, true
		}
	}
	for _, p := range r.polys {
		if p.id == id {
			return p, true
		}
	}
	return nil, false
}

func (r *Registry) isLive(s Shape) bool {
	if s == nil {
		return false
	}
	got, ok := r.Shape(s.ID())
	return ok && got == s
}

// SetMissionPolygon installs a mission polygon, replacing any previous one
// together with its mission path. The drawing tool goes idle.
func (r *Registry) SetMissionPolygon(vertices []core.LatLng) (*MissionPolygon, error) {
	if err := checkRing(vertices); err != nil {
		return nil, err
	}
	r.removeMissionPolygon()
	r.polygon = &MissionPolygon{base: base{id: r.newID()}, vertices: clone(vertices)}
	r.mode = Idle
	return r.polygon, nil
}

// CompletePolygon handles the drawing tool finishing a polygon: the polygon
// becomes the mission polygon and is selected.
func (r *Registry) CompletePolygon(vertices []core.LatLng) (*MissionPolygon, error) {
	p, err := r.SetMissionPolygon(vertices)
	if err != nil {
		return nil, err
	}
	_ = r.Select(p)
	return p, nil
}

// AddPolyObstacle creates a small square obstacle around center and selects it.
func (r *Registry) AddPolyObstacle(center core.LatLng) *PolygonObstacle {
	d := DefaultPolyObstacleHalfSizeDeg
	north, south := clampLat(center.Lat+d), clampLat(center.Lat-d)
	p, _ := r.InsertPolyObstacle([]core.LatLng{
		{Lat: north, Lng: center.Lng - d},
		{Lat: north, Lng: center.Lng + d},
		{Lat: south, Lng: center.Lng + d},
		{Lat: south, Lng: center.Lng - d},
	})
	_ = r.Select(p)
	return p
}

// AddCircleObstacle creates a small circle obstacle at center and selects it.
func (r *Registry) AddCircleObstacle(center core.LatLng) *CircleObstacle {
	c, _ := r.InsertCircleObstacle(center, DefaultCircleRadiusMeters)
	_ = r.Select(c)
	return c
}

// InsertPolyObstacle adds a polygon obstacle without selecting it.
func (r *Registry) InsertPolyObstacle(vertices []core.LatLng) (*PolygonObstacle, error) {
	if err := checkRing(vertices); err != nil {
		return nil, err
	}
	p := &PolygonObstacle{base: base{id: r.newID()}, vertices: clone(vertices)}
	r.polys = append(r.polys, p)
	return p, nil
}

// InsertCircleObstacle adds a circle obstacle without selecting it.
func (r *Registry) InsertCircleObstacle(center core.LatLng, radiusMeters float64) (*CircleObstacle, error) {
	if !center.IsValid() {
		return nil, ErrInvalidCoordinates
	}
	if !validRadius(radiusMeters) {
		return nil, ErrInvalidRadius
	}
	c := &CircleObstacle{base: base{id: r.newID()}, center: center, radiusMeters: radiusMeters}
	r.circles = append(r.circles, c)
	return c, nil
}

func validRadius(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// checkRing accepts any ring of at least three valid positions. Collinear
// or self-intersecting rings are allowed while editing.
func checkRing(vertices []core.LatLng) error {
	if len(vertices) < minPolygonVertices {
		return ErrTooFewVertices
	}
	for i, v := range vertices {
		if !v.IsValid() {
			return fmt.Errorf("%w: vertex %d", ErrInvalidCoordinates, i)
		}
	}
	return nil
}

func clampLat(lat float64) float64 {
	return math.Max(-90, math.Min(90, lat))
}

// MoveMarker moves the start marker.
func (r *Registry) MoveMarker(p core.LatLng) {
	r.marker.position = p
}

// MoveCircle moves a circle obstacle.
func (r *Registry) MoveCircle(c *CircleObstacle, center core.LatLng) error {
	if !r.isLive(c) {
		return ErrUnknownShape
	}
	if !center.IsValid() {
		return ErrInvalidCoordinates
	}
	c.center = center
	return nil
}

// ResizeCircle changes the radius of a circle obstacle.
func (r *Registry) ResizeCircle(c *CircleObstacle, radiusMeters float64) error {
	if !r.isLive(c) {
		return ErrUnknownShape
	}
	if !validRadius(radiusMeters) {
		return ErrInvalidRadius
	}
	c.radiusMeters = radiusMeters
	return nil
}

func (r *Registry) ring(s Shape) (*[]core.LatLng, error) {
	if !r.isLive(s) {
		return nil, ErrUnknownShape
	}
	switch v := s.(type) {
	case *MissionPolygon:
		return &v.vertices, nil
	case *PolygonObstacle:
		return &v.vertices, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrNoVertices, s.Kind())
	}
}

// MoveVertex moves one vertex of a polygon shape.
func (r *Registry) MoveVertex(s Shape, index int, p core.LatLng) error {
	ring, err := r.ring(s)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(*ring) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	if !p.IsValid() {
		return ErrInvalidCoordinates
	}
	(*ring)[index] = p
	return nil
}

// RemoveVertex removes one vertex of a polygon shape and selects it. A
// polygon left with fewer than 3 vertices is removed; for the mission
// polygon that also drops the mission path. It reports whether the shape
// was removed.
func (r *Registry) RemoveVertex(s Shape, index int) (bool, error) {
	ring, err := r.ring(s)
	if err != nil {
		return false, err
	}
	if index < 0 || index >= len(*ring) {
		return false, fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	*ring = append((*ring)[:index], (*ring)[index+1:]...)
	if len(*ring) < minPolygonVertices {
		r.remove(s)
		return true, nil
	}
	_ = r.Select(s)
	return false, nil
}

// Selected returns the selected shape, or nil.
func (r *Registry) Selected() Shape { return r.selected }

// Select makes s the selection. The previous selection, if different, loses
// its editable state; s becomes editable unless it is the start marker.
func (r *Registry) Select(s Shape) error {
	if !r.isLive(s) {
		return ErrUnknownShape
	}
	if r.selected != nil && r.selected != s {
		setEditable(r.selected, false)
	}
	if r.pendingDelete != nil && r.pendingDelete != s {
		r.pendingDelete = nil
	}
	setEditable(s, true)
	r.selected = s
	return nil
}

// ClearSelection drops the selection and makes the shape non-editable.
func (r *Registry) ClearSelection() {
	if r.selected != nil {
		setEditable(r.selected, false)
	}
	r.selected = nil
	r.pendingDelete = nil
}

func setEditable(s Shape, v bool) {
	if e, ok := s.(Editable); ok {
		e.SetEditable(v)
	}
}

// RequestDelete starts deleting the selected shape. Obstacles are removed
// immediately. The mission polygon is only marked for deletion and
// ConfirmationRequired is returned; call ConfirmDelete or CancelDelete next.
func (r *Registry) RequestDelete() (DeleteOutcome, error) {
	switch s := r.selected.(type) {
	case nil:
		return NothingSelected, nil
	case *StartMarker:
		return NothingSelected, ErrMarkerNotDeletable
	case *MissionPolygon:
		r.pendingDelete = s
		return ConfirmationRequired, nil
	default:
		r.remove(s)
		return Deleted, nil
	}
}

// ConfirmDelete completes a mission polygon delete started by RequestDelete.
func (r *Registry) ConfirmDelete() error {
	if r.pendingDelete == nil || r.pendingDelete != r.selected || !r.isLive(r.pendingDelete) {
		r.pendingDelete = nil
		return ErrNoPendingDelete
	}
	r.remove(r.pendingDelete)
	return nil
}

// CancelDelete abandons a pending delete. Nothing else changes.
func (r *Registry) CancelDelete() {
	r.pendingDelete = nil
}

// DeleteSelected runs the whole delete flow, asking confirm before the
// mission polygon goes. If confirm declines or fails nothing changes.
func (r *Registry) DeleteSelected(ctx context.Context, confirm ConfirmFunc) (DeleteOutcome, error) {
	outcome, err := r.RequestDelete()
	if err != nil || outcome != ConfirmationRequired {
		return outcome, err
	}
	ok, err := confirm(ctx)
	if err != nil {
		r.CancelDelete()
		return Cancelled, err
	}
	if !ok {
		r.CancelDelete()
		return Cancelled, nil
	}
	if err := r.ConfirmDelete(); err != nil {
		return Cancelled, err
	}
	return Deleted, nil
}

// remove detaches s from the registry and clears the selection if it held s.
func (r *Registry) remove(s Shape) {
	if r.selected == s {
		setEditable(s, false)
		r.selected = nil
	}
	if r.pendingDelete == s {
		r.pendingDelete = nil
	}
	switch v := s.(type) {
	case *MissionPolygon:
		if r.polygon == v {
			r.removeMissionPolygon()
		}
	case *CircleObstacle:
		for i, c := range r.circles {
			if c == v {
				r.circles = append(r.circles[:i], r.circles[i+1:]...)
				break
			}
		}
	case *PolygonObstacle:
		for i, p := range r.polys {
			if p == v {
				r.polys = append(r.polys[:i], r.polys[i+1:]...)
				break
			}
		}
	}
}

func (r *Registry) removeMissionPolygon() {
	if r.polygon == nil {
		return
	}
	if r.selected == Shape(r.polygon) {
		setEditable(r.polygon, false)
		r.selected = nil
	}
	if r.pendingDelete == Shape(r.polygon) {
		r.pendingDelete = nil
	}
	r.polygon = nil
	r.path = nil
	r.mode = AwaitingPolygon
}

// Clear removes the mission polygon, its path and every obstacle. The start
// marker stays.
func (r *Registry) Clear() {
	r.ClearSelection()
	r.removeMissionPolygon()
	r.circles = nil
	r.polys = nil
}
