package registry

import (
	"fmt"

	"github.com/precisionmule/missionplanner/pkg/core"
)

// ShapeID identifies a shape for the lifetime of a registry.
type ShapeID uint64

// Shape is one of *MissionPolygon, *PolygonObstacle, *CircleObstacle or
// *StartMarker. The set is closed; use a type switch to branch on it.
type Shape interface {
	ID() ShapeID
	Kind() Kind
	shape()
}

// Editable is implemented by every shape except the start marker.
type Editable interface {
	Shape
	Editable() bool
	SetEditable(bool)
}

// Kind names a shape variant.
type Kind int

const (
	KindMissionPolygon Kind = iota
	KindPolygonObstacle
	KindCircleObstacle
	KindStartMarker
)

func (k Kind) String() string {
	switch k {
	case KindMissionPolygon:
		return "missionPolygon"
	case KindPolygonObstacle:
		return "polygonObstacle"
	case KindCircleObstacle:
		return "circleObstacle"
	case KindStartMarker:
		return "startMarker"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

type base struct {
	id ShapeID
}

func (b *base) ID() ShapeID { return b.id }
func (*base) shape()        {}

type editState struct {
	editable bool
}

func (e *editState) Editable() bool     { return e.editable }
func (e *editState) SetEditable(v bool) { e.editable = v }

// MissionPolygon is the boundary of the area to cover.
type MissionPolygon struct {
	base
	editState
	vertices []core.LatLng
}

func (*MissionPolygon) Kind() Kind { return KindMissionPolygon }

// Vertices returns a copy of the open ring.
func (p *MissionPolygon) Vertices() []core.LatLng { return clone(p.vertices) }

// PolygonObstacle is a polygonal area to avoid.
type PolygonObstacle struct {
	base
	editState
	vertices []core.LatLng
}

func (*PolygonObstacle) Kind() Kind { return KindPolygonObstacle }

// Vertices returns a copy of the open ring.
func (p *PolygonObstacle) Vertices() []core.LatLng { return clone(p.vertices) }

// CircleObstacle is a circular area to avoid.
type CircleObstacle struct {
	base
	editState
	center       core.LatLng
	radiusMeters float64
}

func (*CircleObstacle) Kind() Kind { return KindCircleObstacle }

func (c *CircleObstacle) Center() core.LatLng   { return c.center }
func (c *CircleObstacle) RadiusMeters() float64 { return c.radiusMeters }

// StartMarker is where the mission begins. It carries no editable state.
type StartMarker struct {
	base
	position core.LatLng
}

func (*StartMarker) Kind() Kind { return KindStartMarker }

func (m *StartMarker) Position() core.LatLng { return m.position }

func clone(in []core.LatLng) []core.LatLng {
	if in == nil {
		return nil
	}
	out := make([]core.LatLng, len(in))
	copy(out, in)
	return out
}
