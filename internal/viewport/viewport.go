// Package viewport encodes the map viewport into the single string persisted
// between sessions, and restores it.
package viewport

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/precisionmule/missionplanner/pkg/core"
)

const (
	// CookieName is the cookie the viewport is persisted under.
	CookieName = "GoogleMapsLocation"

	// CookieLifetime is how long a stored viewport is kept.
	CookieLifetime = 30 * 24 * time.Hour

	// MaxRestoreZoom caps a restored zoom level; beyond it the imagery is
	// blank and the map looks broken until the user zooms out.
	MaxRestoreZoom = 21.0

	separator = "_"
)

// ErrInvalidLocation is returned when a stored viewport string cannot be decoded.
var ErrInvalidLocation = errors.New("invalid viewport location")

// Default is the viewport used when nothing has been stored yet.
func Default() core.Viewport {
	return core.Viewport{
		Lat:       30.563413767103118,
		Lng:       -87.67843377406932,
		Zoom:      21,
		MapTypeID: "hybrid",
	}
}

// Encode joins lat, lng, zoom and map type with "_" in that order.
func Encode(v core.Viewport) string {
	return strings.Join([]string{
		strconv.FormatFloat(v.Lat, 'f', -1, 64),
		strconv.FormatFloat(v.Lng, 'f', -1, 64),
		strconv.FormatFloat(v.Zoom, 'f', -1, 64),
		v.MapTypeID,
	}, separator)
}

// Decode parses a string produced by Encode. The zoom is clamped to
// MaxRestoreZoom and the map type is taken verbatim.
func Decode(s string) (core.Viewport, error) {
	parts := strings.SplitN(s, separator, 4)
	if len(parts) < 4 {
		return core.Viewport{}, fmt.Errorf("%w: expected 4 fields, got %d", ErrInvalidLocation, len(parts))
	}

	var vals [3]float64
	for i := range vals {
		f, err := strconv.ParseFloat(parts[i], 64)
		if err != nil {
			return core.Viewport{}, fmt.Errorf("%w: field %d: %q", ErrInvalidLocation, i, parts[i])
		}
		vals[i] = f
	}

	zoom := vals[2]
	if zoom > MaxRestoreZoom {
		zoom = MaxRestoreZoom
	}

	return core.Viewport{
		Lat:       vals[0],
		Lng:       vals[1],
		Zoom:      zoom,
		MapTypeID: parts[3],
	}, nil
}

// Cookie builds the persisted cookie for v, expiring CookieLifetime after now.
func Cookie(v core.Viewport, now time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    url.QueryEscape(Encode(v)),
		Path:     "/",
		Expires:  now.Add(CookieLifetime),
		MaxAge:   int(CookieLifetime / time.Second),
		SameSite: http.SameSiteLaxMode,
	}
}

// FromRequest restores the viewport from the request cookie, falling back
// to Default when it is missing or cannot be decoded.
func FromRequest(r *http.Request) core.Viewport {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return Default()
	}
	raw, err := url.QueryUnescape(c.Value)
	if err != nil {
		return Default()
	}
	v, err := Decode(raw)
	if err != nil {
		return Default()
	}
	return v
}
