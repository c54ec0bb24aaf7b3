// Package metrics records mission builds as OTel instruments and InfluxDB
// points.
package metrics

import (
	"context"
	"fmt"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeasurementBuild is the InfluxDB measurement for mission builds.
const MeasurementBuild = "mission_build"

// Build outcomes, used as the "outcome" tag and attribute.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// BuildResult describes one finished call to the mission builder.
type BuildResult struct {
	Started         time.Time
	Duration        time.Duration
	Err             error
	PolygonVertices int
	Obstacles       int
	Waypoints       int
	PathWidthMeters float64
	Heading         float64
}

// Outcome returns OutcomeOK or OutcomeError.
func (r BuildResult) Outcome() string {
	if r.Err != nil {
		return OutcomeError
	}
	return OutcomeOK
}

// Point converts the result to an InfluxDB point.
func (r BuildResult) Point() *influxdb2_write.Point {
	p := influxdb2_write.NewPointWithMeasurement(MeasurementBuild).
		AddTag("outcome", r.Outcome()).
		AddField("duration_ms", float64(r.Duration)/float64(time.Millisecond)).
		AddField("polygon_vertices", r.PolygonVertices).
		AddField("obstacles", r.Obstacles).
		AddField("waypoints", r.Waypoints).
		AddField("path_width_m", r.PathWidthMeters).
		AddField("heading", r.Heading).
		SetTime(r.Started)
	if r.Err != nil {
		p.AddField("error", r.Err.Error())
	}
	return p
}

// Instruments holds the OTel instruments for mission builds.
type Instruments struct {
	builds    metric.Int64Counter
	duration  metric.Float64Histogram
	waypoints metric.Int64Histogram
}

// NewInstruments creates the build instruments on meter.
func NewInstruments(meter metric.Meter) (*Instruments, error) {
	builds, err := meter.Int64Counter("missionplanner.builds",
		metric.WithDescription("Mission builds sent to the mission builder"),
		metric.WithUnit("{build}"))
	if err != nil {
		return nil, fmt.Errorf("failed to create builds counter: %w", err)
	}
	duration, err := meter.Float64Histogram("missionplanner.build.duration",
		metric.WithDescription("Mission builder round-trip time"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}
	waypoints, err := meter.Int64Histogram("missionplanner.build.waypoints",
		metric.WithDescription("Waypoints in returned mission paths"),
		metric.WithUnit("{waypoint}"))
	if err != nil {
		return nil, fmt.Errorf("failed to create waypoints histogram: %w", err)
	}
	return &Instruments{builds: builds, duration: duration, waypoints: waypoints}, nil
}

// Record adds r to the instruments.
func (i *Instruments) Record(ctx context.Context, r BuildResult) {
	attrs := metric.WithAttributes(attribute.String("outcome", r.Outcome()))
	i.builds.Add(ctx, 1, attrs)
	i.duration.Record(ctx, r.Duration.Seconds(), attrs)
	if r.Err == nil {
		i.waypoints.Record(ctx, int64(r.Waypoints))
	}
}
