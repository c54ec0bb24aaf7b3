// Package server exposes a planning session over a local JSON HTTP API for
// the browser map frontend.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/precisionmule/missionplanner/internal/mission"
	"github.com/precisionmule/missionplanner/internal/storage"
)

const shutdownTimeout = 10 * time.Second

// Server serves one planning session.
type Server struct {
	session *mission.Session
	planner mission.Planner
	store   storage.Store
	logger  *slog.Logger
	now     func() time.Time
	mux     *http.ServeMux
}

// New creates a server for session. store may be nil, in which case the
// save and load endpoints answer 503.
func New(session *mission.Session, planner mission.Planner, store storage.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		session: session,
		planner: planner,
		store:   store,
		logger:  logger,
		now:     time.Now,
		mux:     http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/state", s.handleState)

	s.mux.HandleFunc("GET /api/mission", s.handleGetMission)
	s.mux.HandleFunc("PUT /api/mission", s.handlePutMission)
	s.mux.HandleFunc("GET /api/mission.json", s.handleDownloadMission)
	s.mux.HandleFunc("PUT /api/mission/polygon", s.handleCompletePolygon)

	s.mux.HandleFunc("POST /api/obstacles/polygon", s.handleAddPolyObstacle)
	s.mux.HandleFunc("POST /api/obstacles/circle", s.handleAddCircleObstacle)

	s.mux.HandleFunc("PUT /api/shapes/{id}/vertices/{index}", s.handleMoveVertex)
	s.mux.HandleFunc("DELETE /api/shapes/{id}/vertices/{index}", s.handleRemoveVertex)
	s.mux.HandleFunc("PUT /api/shapes/{id}/center", s.handleMoveCircle)
	s.mux.HandleFunc("PUT /api/shapes/{id}/radius", s.handleResizeCircle)
	s.mux.HandleFunc("PUT /api/marker", s.handleMoveMarker)
	s.mux.HandleFunc("PUT /api/path/{index}", s.handleMovePathPoint)

	s.mux.HandleFunc("PUT /api/selection/{id}", s.handleSelect)
	s.mux.HandleFunc("DELETE /api/selection", s.handleClearSelection)
	s.mux.HandleFunc("POST /api/selection/delete", s.handleRequestDelete)
	s.mux.HandleFunc("POST /api/selection/delete/confirm", s.handleConfirmDelete)
	s.mux.HandleFunc("POST /api/selection/delete/cancel", s.handleCancelDelete)

	s.mux.HandleFunc("GET /api/heading", s.handleGetHeading)
	s.mux.HandleFunc("PUT /api/heading", s.handleSetHeading)
	s.mux.HandleFunc("GET /api/path-width", s.handleGetPathWidth)
	s.mux.HandleFunc("PUT /api/path-width", s.handleSetPathWidth)
	s.mux.HandleFunc("GET /api/heading-line", s.handleHeadingLine)

	s.mux.HandleFunc("POST /api/build", s.handleBuild)
	s.mux.HandleFunc("GET /api/waypoints", s.handleWaypoints)
	s.mux.HandleFunc("GET /api/export.geojson", s.handleExportGeoJSON)
	s.mux.HandleFunc("GET /api/export.kml", s.handleExportKML)

	s.mux.HandleFunc("GET /api/saves", s.handleListSaves)
	s.mux.HandleFunc("POST /api/save/{key}", s.handleSave)
	s.mux.HandleFunc("POST /api/load/{key}", s.handleLoad)

	s.mux.HandleFunc("GET /api/viewport", s.handleGetViewport)
	s.mux.HandleFunc("PUT /api/viewport", s.handlePutViewport)

	s.mux.HandleFunc("GET /healthcheck", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("Shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}
