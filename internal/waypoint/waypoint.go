// Package waypoint writes and reads the QGC WPL 110 plain-text waypoint
// format consumed by ground-control software and flight controllers.
//
// See https://mavlink.io/en/file_formats/ for the format description.
package waypoint

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/precisionmule/missionplanner/pkg/core"
)

// Header is the first line of every waypoint file.
const Header = "QGC WPL 110"

// Fixed columns of a waypoint line. These belong to the format the
// flight controller expects and are not configurable.
const (
	currentWP    = "0"
	frame        = "3"  // MAV_FRAME_GLOBAL_RELATIVE_ALT
	command      = "16" // MAV_CMD_NAV_WAYPOINT
	param        = "0"
	altitude     = "100.000000"
	autocontinue = "1"

	fieldCount = 12
)

// ErrMalformedLine is returned by Parse for a line that does not follow the
// waypoint layout.
var ErrMalformedLine = errors.New("malformed waypoint line")

// Build renders path as a waypoint document. The first point is written
// twice, at index 0 (home) and index 1; every point x is then written at
// index x+1.
func Build(path []core.LatLng) string {
	var b strings.Builder
	_ = Write(&b, path)
	return b.String()
}

// Write streams the waypoint document for path to w.
func Write(w io.Writer, path []core.LatLng) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(Header + "\n"); err != nil {
		return err
	}
	for x, p := range path {
		if x == 0 {
			if _, err := bw.WriteString(line(0, p) + "\n"); err != nil {
				return err
			}
		}
		if _, err := bw.WriteString(line(x+1, p) + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func line(index int, p core.LatLng) string {
	return strings.Join([]string{
		strconv.Itoa(index),
		currentWP,
		frame,
		command,
		param, param, param, param,
		strconv.FormatFloat(p.Lat, 'f', -1, 64),
		strconv.FormatFloat(p.Lng, 'f', -1, 64),
		altitude,
		autocontinue,
	}, "\t")
}

// Parse reads a document produced by Build back into the path. The home
// line at index 0 is dropped.
func Parse(r io.Reader) ([]core.LatLng, error) {
	br := bufio.NewReader(r)
	first, err := br.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && first != "") {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if strings.TrimSpace(first) != Header {
		return nil, fmt.Errorf("unsupported waypoint file header %q", strings.TrimSpace(first))
	}

	cr := csv.NewReader(br)
	cr.Comma = '\t'
	cr.FieldsPerRecord = -1

	var path []core.LatLng
	for lineNo := 2; ; lineNo++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if len(rec) != fieldCount {
			return nil, fmt.Errorf("%w: line %d has %d fields", ErrMalformedLine, lineNo, len(rec))
		}
		index, err := strconv.Atoi(rec[0])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: bad index %q", ErrMalformedLine, lineNo, rec[0])
		}
		lat, err := strconv.ParseFloat(rec[8], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: bad latitude %q", ErrMalformedLine, lineNo, rec[8])
		}
		lng, err := strconv.ParseFloat(rec[9], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: bad longitude %q", ErrMalformedLine, lineNo, rec[9])
		}
		if index == 0 {
			continue
		}
		path = append(path, core.LatLng{Lat: lat, Lng: lng})
	}
	return path, nil
}
