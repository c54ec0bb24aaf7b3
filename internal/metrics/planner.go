package metrics

import (
	"context"
	"log/slog"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/precisionmule/missionplanner/internal/mission"
	"github.com/precisionmule/missionplanner/pkg/core"
)

// PointWriter receives InfluxDB points; *Manager implements it.
type PointWriter interface {
	WritePoint(point *influxdb2_write.Point) error
}

// InstrumentedPlanner wraps a mission.Planner and records every call.
// Instruments and Points are both optional.
type InstrumentedPlanner struct {
	Next        mission.Planner
	Instruments *Instruments
	Points      PointWriter
	Logger      *slog.Logger

	now func() time.Time
}

var _ mission.Planner = (*InstrumentedPlanner)(nil)

// NewInstrumentedPlanner wraps next.
func NewInstrumentedPlanner(next mission.Planner, inst *Instruments, points PointWriter, logger *slog.Logger) *InstrumentedPlanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &InstrumentedPlanner{
		Next:        next,
		Instruments: inst,
		Points:      points,
		Logger:      logger,
		now:         time.Now,
	}
}

// BuildMission calls the wrapped planner and records the result.
func (p *InstrumentedPlanner) BuildMission(ctx context.Context, rec core.MissionRecord) ([]core.LatLng, error) {
	started := p.now()
	path, err := p.Next.BuildMission(ctx, rec)

	result := BuildResult{
		Started:         started,
		Duration:        p.now().Sub(started),
		Err:             err,
		PolygonVertices: len(rec.MissionPolygon),
		Obstacles:       len(rec.PolyObstacles) + len(rec.CircleObstacles),
		Waypoints:       len(path),
		PathWidthMeters: float64(rec.PathWidthMeters),
		Heading:         rec.Heading,
	}

	if p.Instruments != nil {
		p.Instruments.Record(ctx, result)
	}
	if p.Points != nil {
		if werr := p.Points.WritePoint(result.Point()); werr != nil {
			p.Logger.Warn("Failed to write build point", "error", werr)
		}
	}

	p.Logger.Debug("Mission build finished",
		"outcome", result.Outcome(),
		"duration", result.Duration,
		"waypoints", result.Waypoints)

	return path, err
}
