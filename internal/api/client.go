// internal/api/client.go
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/precisionmule/missionplanner/pkg/core"
)

// BuildPath is the mission-builder endpoint, relative to the server URL.
const BuildPath = "/missionbuilder/api/buildMissionFromLatLngPoints"

// DefaultTimeout is used when New is given a non-positive timeout.
const DefaultTimeout = 30 * time.Second

// maxResponseBytes bounds the decoded path payload.
const maxResponseBytes = 32 << 20

// ErrBadResponse is returned when the service answers with something other
// than a JSON array of positions.
var ErrBadResponse = errors.New("mission builder returned an invalid response")

// StatusError reports a non-2xx answer.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("mission builder returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("mission builder returned status %d: %s", e.StatusCode, e.Body)
}

// Client handles communication with the mission-builder service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new API client.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// BuildMission posts rec to the mission builder and returns the ordered
// coverage path. The path width travels both in the body and as the
// mowingPathWidthInMeters query parameter.
func (c *Client) BuildMission(ctx context.Context, rec core.MissionRecord) ([]core.LatLng, error) {
	body, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode mission: %w", err)
	}

	q := url.Values{}
	q.Set("mowingPathWidthInMeters", strconv.FormatFloat(rec.PathWidthMeters, 'f', -1, 64))
	endpoint := c.baseURL + BuildPath + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("build request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	var path []core.LatLng
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&path); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadResponse, err)
	}
	if path == nil {
		return nil, fmt.Errorf("%w: null path", ErrBadResponse)
	}
	return path, nil
}
