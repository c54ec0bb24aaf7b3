package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/precisionmule/missionplanner/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	origin = core.NewLatLng(30.5634, -87.6784)
	field  = []core.LatLng{
		{Lat: 30.5640, Lng: -87.6790},
		{Lat: 30.5640, Lng: -87.6778},
		{Lat: 30.5628, Lng: -87.6778},
		{Lat: 30.5628, Lng: -87.6790},
	}
)

func newWithPolygon(t *testing.T) (*Registry, *MissionPolygon) {
	t.Helper()
	r := New(origin)
	p, err := r.SetMissionPolygon(field)
	require.NoError(t, err)
	return r, p
}

func TestNew(t *testing.T) {
	r := New(origin)

	require.NotNil(t, r.StartMarker())
	assert.Equal(t, origin, r.StartMarker().Position())
	assert.Nil(t, r.MissionPolygon())
	assert.Nil(t, r.Selected())
	assert.Equal(t, AwaitingPolygon, r.Mode())
}

func TestSelect_SwitchesEditable(t *testing.T) {
	r := New(origin)
	a := r.AddPolyObstacle(origin)
	b := r.AddCircleObstacle(origin)

	require.NoError(t, r.Select(a))
	assert.True(t, a.Editable())

	require.NoError(t, r.Select(b))
	assert.False(t, a.Editable())
	assert.True(t, b.Editable())
	assert.Equal(t, Shape(b), r.Selected())
}

func TestSelect_MarkerNeverEditable(t *testing.T) {
	r := New(origin)
	a := r.AddPolyObstacle(origin)

	require.NoError(t, r.Select(r.StartMarker()))
	assert.False(t, a.Editable(), "previous selection loses editable")
	assert.Equal(t, Shape(r.StartMarker()), r.Selected())
	_, editable := Shape(r.StartMarker()).(Editable)
	assert.False(t, editable)

	require.NoError(t, r.Select(a))
	assert.True(t, a.Editable())
}

func TestSelect_UnknownShape(t *testing.T) {
	r := New(origin)
	other := New(origin)
	foreign := other.AddPolyObstacle(origin)

	assert.ErrorIs(t, r.Select(foreign), ErrUnknownShape)
	assert.Nil(t, r.Selected())
}

func TestClearSelection(t *testing.T) {
	r := New(origin)
	a := r.AddPolyObstacle(origin)

	r.ClearSelection()
	assert.False(t, a.Editable())
	assert.Nil(t, r.Selected())

	// marker selection clears without touching editable state
	require.NoError(t, r.Select(r.StartMarker()))
	r.ClearSelection()
	assert.Nil(t, r.Selected())
}

func TestAddObstacles_DefaultGeometryAndSelection(t *testing.T) {
	r := New(origin)

	p := r.AddPolyObstacle(origin)
	assert.Equal(t, Shape(p), r.Selected())
	assert.True(t, p.Editable())
	require.Len(t, p.Vertices(), 4)
	assert.InDelta(t, origin.Lat+DefaultPolyObstacleHalfSizeDeg, p.Vertices()[0].Lat, 1e-12)
	assert.InDelta(t, origin.Lng-DefaultPolyObstacleHalfSizeDeg, p.Vertices()[0].Lng, 1e-12)

	c := r.AddCircleObstacle(origin)
	assert.Equal(t, Shape(c), r.Selected())
	assert.False(t, p.Editable())
	assert.Equal(t, origin, c.Center())
	assert.Equal(t, DefaultCircleRadiusMeters, c.RadiusMeters())

	assert.Len(t, r.PolyObstacles(), 1)
	assert.Len(t, r.CircleObstacles(), 1)
}

func TestRequestDelete_Obstacle(t *testing.T) {
	r := New(origin)
	keep := r.AddCircleObstacle(origin)
	gone := r.AddPolyObstacle(origin)

	outcome, err := r.RequestDelete()
	require.NoError(t, err)
	assert.Equal(t, Deleted, outcome)
	assert.Nil(t, r.Selected())
	assert.Empty(t, r.PolyObstacles())
	assert.Equal(t, []*CircleObstacle{keep}, r.CircleObstacles())

	_, ok := r.Shape(gone.ID())
	assert.False(t, ok)
}

func TestRequestDelete_NothingSelected(t *testing.T) {
	r := New(origin)
	outcome, err := r.RequestDelete()
	require.NoError(t, err)
	assert.Equal(t, NothingSelected, outcome)
}

func TestRequestDelete_Marker(t *testing.T) {
	r := New(origin)
	require.NoError(t, r.Select(r.StartMarker()))

	_, err := r.RequestDelete()
	assert.ErrorIs(t, err, ErrMarkerNotDeletable)
	assert.NotNil(t, r.StartMarker())
}

func TestRequestDelete_MissionPolygonNeedsConfirmation(t *testing.T) {
	r, p := newWithPolygon(t)
	r.SetMissionPath([]core.LatLng{origin, field[0]})
	require.NoError(t, r.Select(p))

	outcome, err := r.RequestDelete()
	require.NoError(t, err)
	assert.Equal(t, ConfirmationRequired, outcome)
	assert.Equal(t, p, r.MissionPolygon(), "nothing removed before confirmation")
	assert.Len(t, r.MissionPath(), 2)

	require.NoError(t, r.ConfirmDelete())
	assert.Nil(t, r.MissionPolygon())
	assert.Nil(t, r.MissionPath())
	assert.Nil(t, r.Selected())
	assert.Equal(t, AwaitingPolygon, r.Mode())
}

func TestCancelDelete(t *testing.T) {
	r, p := newWithPolygon(t)
	require.NoError(t, r.Select(p))

	_, err := r.RequestDelete()
	require.NoError(t, err)
	r.CancelDelete()

	assert.ErrorIs(t, r.ConfirmDelete(), ErrNoPendingDelete)
	assert.Equal(t, p, r.MissionPolygon())
	assert.Equal(t, Idle, r.Mode())
}

func TestConfirmDelete_SelectionChanged(t *testing.T) {
	r, p := newWithPolygon(t)
	require.NoError(t, r.Select(p))
	_, err := r.RequestDelete()
	require.NoError(t, err)

	r.AddCircleObstacle(origin)

	assert.ErrorIs(t, r.ConfirmDelete(), ErrNoPendingDelete)
	assert.NotNil(t, r.MissionPolygon())
}

func TestDeleteSelected_ConfirmFlow(t *testing.T) {
	tests := []struct {
		name        string
		answer      bool
		answerErr   error
		wantOutcome DeleteOutcome
		wantGone    bool
	}{
		{"accepted", true, nil, Deleted, true},
		{"rejected", false, nil, Cancelled, false},
		{"dialog failed", false, errors.New("closed"), Cancelled, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, p := newWithPolygon(t)
			r.SetMissionPath([]core.LatLng{origin})
			require.NoError(t, r.Select(p))

			asked := false
			outcome, err := r.DeleteSelected(context.Background(), func(ctx context.Context) (bool, error) {
				asked = true
				assert.NotNil(t, r.MissionPolygon(), "polygon still present while confirming")
				return tt.answer, tt.answerErr
			})

			assert.True(t, asked)
			assert.Equal(t, tt.wantOutcome, outcome)
			if tt.answerErr != nil {
				assert.ErrorIs(t, err, tt.answerErr)
			} else {
				assert.NoError(t, err)
			}
			if tt.wantGone {
				assert.Nil(t, r.MissionPolygon())
				assert.Nil(t, r.MissionPath())
			} else {
				assert.Equal(t, p, r.MissionPolygon())
				assert.Len(t, r.MissionPath(), 1)
			}
		})
	}
}

func TestDeleteSelected_ObstacleSkipsConfirm(t *testing.T) {
	r := New(origin)
	r.AddCircleObstacle(origin)

	outcome, err := r.DeleteSelected(context.Background(), func(context.Context) (bool, error) {
		t.Fatal("confirm must not be called for obstacles")
		return false, nil
	})
	require.NoError(t, err)
	assert.Equal(t, Deleted, outcome)
	assert.Empty(t, r.CircleObstacles())
}

func TestSetMissionPolygon_ReplacesPolygonAndPath(t *testing.T) {
	r, first := newWithPolygon(t)
	r.SetMissionPath([]core.LatLng{origin})

	second, err := r.SetMissionPolygon(field[:3])
	require.NoError(t, err)

	assert.NotEqual(t, first.ID(), second.ID())
	assert.Equal(t, second, r.MissionPolygon())
	assert.Nil(t, r.MissionPath())
	assert.Equal(t, Idle, r.Mode())
}

func TestSetMissionPolygon_TooFewVertices(t *testing.T) {
	r := New(origin)
	_, err := r.SetMissionPolygon(field[:2])
	assert.ErrorIs(t, err, ErrTooFewVertices)
	assert.Nil(t, r.MissionPolygon())
}

func TestCompletePolygon_Selects(t *testing.T) {
	r := New(origin)
	p, err := r.CompletePolygon(field)
	require.NoError(t, err)

	assert.Equal(t, Shape(p), r.Selected())
	assert.True(t, p.Editable())
}

func TestRemoveVertex(t *testing.T) {
	r, p := newWithPolygon(t)

	removed, err := r.RemoveVertex(p, 0)
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Equal(t, field[1:], p.Vertices())
	assert.Equal(t, Shape(p), r.Selected())

	r.SetMissionPath([]core.LatLng{origin})
	removed, err = r.RemoveVertex(p, 0)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Nil(t, r.MissionPolygon())
	assert.Nil(t, r.MissionPath())
	assert.Nil(t, r.Selected())
}

func TestRemoveVertex_ObstacleBelowThree(t *testing.T) {
	r := New(origin)
	p, err := r.InsertPolyObstacle(field[:3])
	require.NoError(t, err)

	removed, err := r.RemoveVertex(p, 2)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Empty(t, r.PolyObstacles())
}

func TestRemoveVertex_Errors(t *testing.T) {
	r, p := newWithPolygon(t)

	_, err := r.RemoveVertex(p, 9)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	_, err = r.RemoveVertex(r.StartMarker(), 0)
	assert.Error(t, err)
}

func TestMoveVertexAndMarker(t *testing.T) {
	r, p := newWithPolygon(t)
	moved := core.NewLatLng(30.6, -87.7)

	require.NoError(t, r.MoveVertex(p, 1, moved))
	assert.Equal(t, moved, p.Vertices()[1])

	r.MoveMarker(moved)
	assert.Equal(t, moved, r.StartMarker().Position())
}

func TestCircleEdits(t *testing.T) {
	r := New(origin)
	c := r.AddCircleObstacle(origin)

	require.NoError(t, r.ResizeCircle(c, 7.5))
	assert.Equal(t, 7.5, c.RadiusMeters())
	assert.ErrorIs(t, r.ResizeCircle(c, 0), ErrInvalidRadius)

	require.NoError(t, r.MoveCircle(c, field[0]))
	assert.Equal(t, field[0], c.Center())

	_, err := r.InsertCircleObstacle(origin, -1)
	assert.ErrorIs(t, err, ErrInvalidRadius)
}

func TestInvalidCoordinatesRejected(t *testing.T) {
	r, p := newWithPolygon(t)
	bad := core.NewLatLng(91, 0)

	assert.ErrorIs(t, r.MoveVertex(p, 0, bad), ErrInvalidCoordinates)
	assert.Equal(t, field, p.Vertices())

	_, err := r.SetMissionPolygon([]core.LatLng{field[0], field[1], bad})
	assert.ErrorIs(t, err, ErrInvalidCoordinates)
	assert.Same(t, p, r.MissionPolygon())

	_, err = r.InsertPolyObstacle([]core.LatLng{bad, field[1], field[2]})
	assert.ErrorIs(t, err, ErrInvalidCoordinates)
	_, err = r.InsertCircleObstacle(bad, 2)
	assert.ErrorIs(t, err, ErrInvalidCoordinates)

	c := r.AddCircleObstacle(origin)
	assert.ErrorIs(t, r.MoveCircle(c, bad), ErrInvalidCoordinates)
	assert.Equal(t, origin, c.Center())
}

func TestDegenerateRingsAccepted(t *testing.T) {
	r := New(origin)
	collinear := []core.LatLng{{Lat: 0, Lng: 0}, {Lat: 1, Lng: 1}, {Lat: 2, Lng: 2}}

	_, err := r.CompletePolygon(collinear)
	require.NoError(t, err)
	o, err := r.InsertPolyObstacle(field)
	require.NoError(t, err)
	// drag into a bow tie
	require.NoError(t, r.MoveVertex(o, 1, field[2]))
	require.NoError(t, r.MoveVertex(o, 2, field[1]))
}

func TestAddPolyObstacle_NearPoleStaysInRange(t *testing.T) {
	r := New(origin)
	o := r.AddPolyObstacle(core.NewLatLng(90, 10))
	require.NotNil(t, o)
	for _, v := range o.Vertices() {
		assert.True(t, v.IsValid())
	}
}

func TestMovePathPoint(t *testing.T) {
	r := New(origin)
	assert.ErrorIs(t, r.MovePathPoint(0, origin), ErrNoMissionPath)

	r.SetMissionPath(field)
	require.NoError(t, r.MovePathPoint(2, origin))
	assert.Equal(t, origin, r.MissionPath()[2])
	assert.ErrorIs(t, r.MovePathPoint(4, origin), ErrIndexOutOfRange)
}

func TestVerticesAreCopies(t *testing.T) {
	r, p := newWithPolygon(t)
	v := p.Vertices()
	v[0] = core.LatLng{}

	assert.Equal(t, field[0], r.MissionPolygon().Vertices()[0])
}

func TestClear(t *testing.T) {
	r, p := newWithPolygon(t)
	r.SetMissionPath([]core.LatLng{origin})
	r.AddCircleObstacle(origin)
	r.AddPolyObstacle(origin)

	r.Clear()

	assert.Nil(t, r.MissionPolygon())
	assert.Nil(t, r.MissionPath())
	assert.Empty(t, r.CircleObstacles())
	assert.Empty(t, r.PolyObstacles())
	assert.Nil(t, r.Selected())
	assert.NotNil(t, r.StartMarker())
	_, ok := r.Shape(p.ID())
	assert.False(t, ok)
}
