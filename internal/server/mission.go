package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/precisionmule/missionplanner/internal/api"
	"github.com/precisionmule/missionplanner/internal/export"
	"github.com/precisionmule/missionplanner/internal/mission"
	"github.com/precisionmule/missionplanner/internal/storage"
	"github.com/precisionmule/missionplanner/internal/viewport"
	"github.com/precisionmule/missionplanner/internal/waypoint"
	"github.com/precisionmule/missionplanner/pkg/core"
)

var errNoStore = errors.New("no storage backend configured")

func (s *Server) handleGetMission(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.session.ToRecord(false))
}

func (s *Server) handleDownloadMission(w http.ResponseWriter, _ *http.Request) {
	data, err := json.MarshalIndent(s.session.ToRecord(false), "", "  ")
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="mission.json"`)
	_, _ = w.Write(data)
}

func (s *Server) handlePutMission(w http.ResponseWriter, r *http.Request) {
	if err := s.session.Import(http.MaxBytesReader(w, r.Body, maxBodyBytes)); err != nil {
		s.logger.Warn("Mission import rejected", "error", err)
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.logger.Info("Mission imported")
	s.writeJSON(w, http.StatusOK, s.session.ToRecord(false))
}

type numberView struct {
	Value float64 `json:"value"`
}

func (s *Server) handleGetHeading(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, numberView{Value: s.session.Heading()})
}

func (s *Server) handleGetPathWidth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, numberView{Value: s.session.PathWidth()})
}

func (s *Server) handleSetHeading(w http.ResponseWriter, r *http.Request) {
	s.setNumber(w, r, s.session.SetHeading, s.session.Heading)
}

func (s *Server) handleSetPathWidth(w http.ResponseWriter, r *http.Request) {
	s.setNumber(w, r, s.session.SetPathWidth, s.session.PathWidth)
}

func (s *Server) setNumber(w http.ResponseWriter, r *http.Request, set func(string) error, get func() float64) {
	var body valueBody
	if err := decodeBody(w, r, &body); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	input, err := body.String()
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := set(input); err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, numberView{Value: get()})
}

func (s *Server) handleHeadingLine(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.session.HeadingLine())
}

func (s *Server) handleBuild(w http.ResponseWriter, r *http.Request) {
	path, err := s.session.Build(r.Context(), s.planner)
	if err != nil {
		var se *api.StatusError
		switch {
		case errors.Is(err, mission.ErrNoMissionPolygon):
			s.writeError(w, http.StatusBadRequest, err)
		case errors.Is(err, mission.ErrStaleResponse):
			s.logger.Info("Discarded stale mission build")
			s.writeError(w, http.StatusConflict, err)
		case errors.As(err, &se), errors.Is(err, api.ErrBadResponse):
			s.logger.Error("Mission builder rejected request", "error", err)
			s.writeError(w, http.StatusBadGateway, err)
		default:
			s.logger.Warn("Mission build failed", "error", err)
			s.writeError(w, http.StatusBadGateway, err)
		}
		return
	}

	http.SetCookie(w, viewport.Cookie(s.session.Viewport(), s.now()))
	s.logger.Info("Mission built", "waypoints", len(path))
	s.writeJSON(w, http.StatusOK, path)
}

// currentPath returns the mission path, or writes 404 when there is none.
func (s *Server) currentPath(w http.ResponseWriter) ([]core.LatLng, bool) {
	path := s.session.MissionPath()
	if len(path) == 0 {
		s.writeError(w, http.StatusNotFound, errors.New("no mission path, build the mission first"))
		return nil, false
	}
	return path, true
}

func (s *Server) handleWaypoints(w http.ResponseWriter, _ *http.Request) {
	path, ok := s.currentPath(w)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="mission.waypoints"`)
	if err := waypoint.Write(w, path); err != nil {
		s.logger.Warn("Failed to write waypoints", "error", err)
	}
}

func (s *Server) handleExportGeoJSON(w http.ResponseWriter, _ *http.Request) {
	var buf bytes.Buffer
	if err := export.WriteGeoJSON(&buf, s.session.ToRecord(false), s.session.MissionPath()); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.Header().Set("Content-Disposition", `attachment; filename="mission.geojson"`)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleExportKML(w http.ResponseWriter, _ *http.Request) {
	var buf bytes.Buffer
	if err := export.WriteKML(&buf, "Mission", s.session.ToRecord(false), s.session.MissionPath()); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.google-earth.kml+xml")
	w.Header().Set("Content-Disposition", `attachment; filename="mission.kml"`)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleListSaves(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, http.StatusServiceUnavailable, errNoStore)
		return
	}
	keys, err := s.store.Keys(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if keys == nil {
		keys = []string{}
	}
	s.writeJSON(w, http.StatusOK, keys)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, http.StatusServiceUnavailable, errNoStore)
		return
	}
	key := r.PathValue("key")
	if err := s.session.Save(r.Context(), s.store, key); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, storage.ErrInvalidKey) {
			status = http.StatusBadRequest
		}
		s.logger.Error("Failed to save mission", "key", key, "error", err)
		s.writeError(w, status, err)
		return
	}
	s.logger.Info("Mission saved", "key", key)
	s.writeJSON(w, http.StatusOK, map[string]string{"key": key})
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, http.StatusServiceUnavailable, errNoStore)
		return
	}
	key := r.PathValue("key")
	if err := s.session.Load(r.Context(), s.store, key); err != nil {
		var ie *mission.ImportError
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, storage.ErrNotFound):
			status = http.StatusNotFound
		case errors.As(err, &ie):
			status = http.StatusUnprocessableEntity
		}
		s.logger.Warn("Failed to load mission", "key", key, "error", err)
		s.writeError(w, status, err)
		return
	}
	s.logger.Info("Mission loaded", "key", key)
	s.writeJSON(w, http.StatusOK, s.session.ToRecord(false))
}

// handleGetViewport restores the viewport from the cookie and makes it the
// session viewport, so new obstacles land in the visible map center.
func (s *Server) handleGetViewport(w http.ResponseWriter, r *http.Request) {
	v := viewport.FromRequest(r)
	s.session.SetViewport(v)
	s.writeJSON(w, http.StatusOK, v)
}

func (s *Server) handlePutViewport(w http.ResponseWriter, r *http.Request) {
	var v core.Viewport
	if err := decodeBody(w, r, &v); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if !v.Center().IsValid() || v.MapTypeID == "" {
		s.writeError(w, http.StatusBadRequest, viewport.ErrInvalidLocation)
		return
	}
	s.session.SetViewport(v)
	http.SetCookie(w, viewport.Cookie(v, s.now()))
	s.writeJSON(w, http.StatusOK, v)
}
