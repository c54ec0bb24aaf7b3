package server

import (
	"errors"
	"net/http"

	"github.com/precisionmule/missionplanner/internal/registry"
	"github.com/precisionmule/missionplanner/pkg/core"
)

// shapeView is the JSON form of a shape.
type shapeView struct {
	ID           registry.ShapeID `json:"id"`
	Kind         string           `json:"kind"`
	Editable     bool             `json:"editable"`
	Vertices     []core.LatLng    `json:"vertices,omitempty"`
	Center       *core.LatLng     `json:"center,omitempty"`
	RadiusMeters float64          `json:"radiusMeters,omitempty"`
	Position     *core.LatLng     `json:"position,omitempty"`
}

func viewOf(s registry.Shape) shapeView {
	v := shapeView{ID: s.ID(), Kind: s.Kind().String()}
	if e, ok := s.(registry.Editable); ok {
		v.Editable = e.Editable()
	}
	switch sh := s.(type) {
	case *registry.MissionPolygon:
		v.Vertices = sh.Vertices()
	case *registry.PolygonObstacle:
		v.Vertices = sh.Vertices()
	case *registry.CircleObstacle:
		c := sh.Center()
		v.Center = &c
		v.RadiusMeters = sh.RadiusMeters()
	case *registry.StartMarker:
		p := sh.Position()
		v.Position = &p
	}
	return v
}

type stateView struct {
	Mode        string           `json:"mode"`
	Selected    registry.ShapeID `json:"selected,omitempty"`
	Shapes      []shapeView      `json:"shapes"`
	MissionPath []core.LatLng    `json:"missionPath"`
	Heading     float64          `json:"heading"`
	PathWidth   float64          `json:"pathWidthMeters"`
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	st := stateView{
		Heading:   s.session.Heading(),
		PathWidth: s.session.PathWidth(),
	}
	s.session.View(func(r *registry.Registry) {
		st.Mode = r.Mode().String()
		if sel := r.Selected(); sel != nil {
			st.Selected = sel.ID()
		}
		st.Shapes = append(st.Shapes, viewOf(r.StartMarker()))
		if p := r.MissionPolygon(); p != nil {
			st.Shapes = append(st.Shapes, viewOf(p))
		}
		for _, o := range r.PolyObstacles() {
			st.Shapes = append(st.Shapes, viewOf(o))
		}
		for _, c := range r.CircleObstacles() {
			st.Shapes = append(st.Shapes, viewOf(c))
		}
		st.MissionPath = r.MissionPath()
	})
	if st.MissionPath == nil {
		st.MissionPath = []core.LatLng{}
	}
	s.writeJSON(w, http.StatusOK, st)
}

type polygonBody struct {
	Vertices []core.LatLng `json:"vertices"`
}

func (s *Server) handleCompletePolygon(w http.ResponseWriter, r *http.Request) {
	var body polygonBody
	if err := decodeBody(w, r, &body); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	var view shapeView
	err := s.session.Update(func(reg *registry.Registry) error {
		p, err := reg.CompletePolygon(body.Vertices)
		if err != nil {
			return err
		}
		view = viewOf(p)
		return nil
	})
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.logger.Info("Mission polygon drawn", "vertices", len(body.Vertices))
	s.writeJSON(w, http.StatusCreated, view)
}

func (s *Server) handleAddPolyObstacle(w http.ResponseWriter, _ *http.Request) {
	center := s.session.Viewport().Center()
	var view shapeView
	_ = s.session.Update(func(reg *registry.Registry) error {
		view = viewOf(reg.AddPolyObstacle(center))
		return nil
	})
	s.writeJSON(w, http.StatusCreated, view)
}

func (s *Server) handleAddCircleObstacle(w http.ResponseWriter, _ *http.Request) {
	center := s.session.Viewport().Center()
	var view shapeView
	_ = s.session.Update(func(reg *registry.Registry) error {
		view = viewOf(reg.AddCircleObstacle(center))
		return nil
	})
	s.writeJSON(w, http.StatusCreated, view)
}

// updateShape resolves the {id} path value and runs fn on the live shape.
func (s *Server) updateShape(w http.ResponseWriter, r *http.Request, fn func(reg *registry.Registry, sh registry.Shape) error) {
	id, err := pathShapeID(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	var view *shapeView
	err = s.session.Update(func(reg *registry.Registry) error {
		sh, ok := reg.Shape(id)
		if !ok {
			return registry.ErrUnknownShape
		}
		if err := fn(reg, sh); err != nil {
			return err
		}
		if _, ok := reg.Shape(id); ok {
			v := viewOf(sh)
			view = &v
		}
		return nil
	})
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	if view == nil {
		s.writeJSON(w, http.StatusOK, map[string]any{"id": id, "removed": true})
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleMoveVertex(w http.ResponseWriter, r *http.Request) {
	index, err := pathIndex(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	var p core.LatLng
	if err := decodeBody(w, r, &p); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.updateShape(w, r, func(reg *registry.Registry, sh registry.Shape) error {
		return reg.MoveVertex(sh, index, p)
	})
}

func (s *Server) handleRemoveVertex(w http.ResponseWriter, r *http.Request) {
	index, err := pathIndex(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.updateShape(w, r, func(reg *registry.Registry, sh registry.Shape) error {
		_, err := reg.RemoveVertex(sh, index)
		return err
	})
}

func (s *Server) handleMoveCircle(w http.ResponseWriter, r *http.Request) {
	var p core.LatLng
	if err := decodeBody(w, r, &p); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.updateShape(w, r, func(reg *registry.Registry, sh registry.Shape) error {
		c, ok := sh.(*registry.CircleObstacle)
		if !ok {
			return errNotCircle
		}
		return reg.MoveCircle(c, p)
	})
}

func (s *Server) handleResizeCircle(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RadiusMeters float64 `json:"radiusMeters"`
	}
	if err := decodeBody(w, r, &body); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.updateShape(w, r, func(reg *registry.Registry, sh registry.Shape) error {
		c, ok := sh.(*registry.CircleObstacle)
		if !ok {
			return errNotCircle
		}
		return reg.ResizeCircle(c, body.RadiusMeters)
	})
}

func (s *Server) handleMoveMarker(w http.ResponseWriter, r *http.Request) {
	var p core.LatLng
	if err := decodeBody(w, r, &p); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if !p.IsValid() {
		s.writeError(w, http.StatusBadRequest, errors.New("invalid marker position"))
		return
	}
	var view shapeView
	_ = s.session.Update(func(reg *registry.Registry) error {
		reg.MoveMarker(p)
		view = viewOf(reg.StartMarker())
		return nil
	})
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleMovePathPoint(w http.ResponseWriter, r *http.Request) {
	index, err := pathIndex(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	var p core.LatLng
	if err := decodeBody(w, r, &p); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	var path []core.LatLng
	err = s.session.Update(func(reg *registry.Registry) error {
		if err := reg.MovePathPoint(index, p); err != nil {
			return err
		}
		path = reg.MissionPath()
		return nil
	})
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, path)
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	s.updateShape(w, r, func(reg *registry.Registry, sh registry.Shape) error {
		return reg.Select(sh)
	})
}

func (s *Server) handleClearSelection(w http.ResponseWriter, _ *http.Request) {
	_ = s.session.Update(func(reg *registry.Registry) error {
		reg.ClearSelection()
		return nil
	})
	w.WriteHeader(http.StatusNoContent)
}

type outcomeBody struct {
	Outcome string `json:"outcome"`
}

func (s *Server) handleRequestDelete(w http.ResponseWriter, _ *http.Request) {
	var outcome registry.DeleteOutcome
	err := s.session.Update(func(reg *registry.Registry) error {
		var err error
		outcome, err = reg.RequestDelete()
		return err
	})
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	status := http.StatusOK
	if outcome == registry.ConfirmationRequired {
		status = http.StatusAccepted
	}
	s.writeJSON(w, status, outcomeBody{Outcome: outcome.String()})
}

func (s *Server) handleConfirmDelete(w http.ResponseWriter, _ *http.Request) {
	err := s.session.Update(func(reg *registry.Registry) error {
		return reg.ConfirmDelete()
	})
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.logger.Info("Mission polygon deleted")
	s.writeJSON(w, http.StatusOK, outcomeBody{Outcome: registry.Deleted.String()})
}

func (s *Server) handleCancelDelete(w http.ResponseWriter, _ *http.Request) {
	_ = s.session.Update(func(reg *registry.Registry) error {
		reg.CancelDelete()
		return nil
	})
	s.writeJSON(w, http.StatusOK, outcomeBody{Outcome: registry.Cancelled.String()})
}
