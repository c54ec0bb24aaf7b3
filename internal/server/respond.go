package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/precisionmule/missionplanner/internal/mission"
	"github.com/precisionmule/missionplanner/internal/registry"
)

const maxBodyBytes = 8 << 20

var errNotCircle = errors.New("shape is not a circle obstacle")

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// valueBody is the body of heading, path width and radius updates.
type valueBody struct {
	Value json.RawMessage `json:"value"`
}

// String accepts the value as a JSON string or number, the way a form
// input would send it.
func (b valueBody) String() (string, error) {
	if len(b.Value) == 0 {
		return "", errors.New("missing value")
	}
	var s string
	if err := json.Unmarshal(b.Value, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(b.Value, &n); err != nil {
		return "", fmt.Errorf("value must be a string or number")
	}
	return n.String(), nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("Failed to write response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	body := errorBody{Error: err.Error()}
	var ie *mission.ImportError
	if errors.As(err, &ie) {
		body.Field = ie.Field
	}
	s.writeJSON(w, status, body)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// statusFor maps registry errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, registry.ErrUnknownShape), errors.Is(err, registry.ErrNoMissionPath):
		return http.StatusNotFound
	case errors.Is(err, registry.ErrNoPendingDelete), errors.Is(err, registry.ErrMarkerNotDeletable):
		return http.StatusConflict
	case errors.Is(err, registry.ErrIndexOutOfRange),
		errors.Is(err, registry.ErrTooFewVertices),
		errors.Is(err, registry.ErrInvalidRadius),
		errors.Is(err, registry.ErrNoVertices),
		errors.Is(err, registry.ErrInvalidCoordinates),
		errors.Is(err, errNotCircle),
		errors.Is(err, mission.ErrInvalidNumber):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func pathShapeID(r *http.Request) (registry.ShapeID, error) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid shape id %q", r.PathValue("id"))
	}
	return registry.ShapeID(id), nil
}

func pathIndex(r *http.Request) (int, error) {
	i, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		return 0, fmt.Errorf("invalid index %q", r.PathValue("index"))
	}
	return i, nil
}
