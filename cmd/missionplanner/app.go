package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/precisionmule/missionplanner/internal/api"
	"github.com/precisionmule/missionplanner/internal/config"
	"github.com/precisionmule/missionplanner/internal/logging"
	"github.com/precisionmule/missionplanner/internal/metrics"
	"github.com/precisionmule/missionplanner/internal/mission"
	intOtel "github.com/precisionmule/missionplanner/internal/otel"
	"github.com/precisionmule/missionplanner/internal/viewport"
	"github.com/rs/zerolog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// app carries everything a command needs: logging, telemetry and the
// planning session.
type app struct {
	stdout io.Writer
	stderr io.Writer

	sessionStart time.Time
	logFile      *os.File
	logFilePath  string

	logOut   io.Writer
	logLevel string

	slogManager  *logging.SlogManager
	logger       *slog.Logger
	otelProvider *intOtel.Provider
	influx       *metrics.Manager

	session *mission.Session
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{
		stdout:       stdout,
		stderr:       stderr,
		sessionStart: time.Now(),
		slogManager:  logging.NewSlogManager(),
		session:      mission.NewSession(viewport.Default()),
	}
}

// setup loads the config and wires logging, OTel and InfluxDB.
func (a *app) setup(ctx context.Context, configDir string) error {
	configErr := config.Load(configDir)

	var logOut io.Writer = a.stderr
	if logsDir := config.GetString("logsDir"); logsDir != "" {
		if err := os.MkdirAll(logsDir, 0755); err != nil {
			return fmt.Errorf("failed to create logs dir: %w", err)
		}
		a.logFilePath = logging.LogFilePath(logsDir, a.sessionStart)
		f, err := os.OpenFile(a.logFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		a.logFile = f
		logOut = f
	}
	level := config.GetString("logLevel")
	a.logOut = logOut
	a.logLevel = level

	otelCfg := config.GetOTelConfig()
	provider, err := intOtel.New(otelCfg, logOut)
	if err != nil {
		return fmt.Errorf("failed to initialize OTel provider: %w", err)
	}
	a.otelProvider = provider

	var otelLogProvider *sdklog.LoggerProvider
	if provider.Enabled() {
		otelLogProvider = provider.LoggerProvider()
	}

	var opts []logging.Option
	var graylogErr error
	if config.GetBool("graylog.enabled") {
		w, err := logging.NewGraylogWriter(config.GetString("graylog.address"))
		if err != nil {
			graylogErr = err
		} else {
			opts = append(opts, logging.WithGraylog(w))
		}
	}

	opts = append(opts, logging.WithSession(a.session.LogAttrs))
	a.slogManager.Setup(logOut, level, otelLogProvider, opts...)
	a.logger = a.slogManager.Logger()

	if configErr != nil {
		a.logger.Warn("Failed to load config, using defaults!", "error", configErr)
	} else {
		a.logger.Info("Loaded config", "dir", configDir)
	}
	if graylogErr != nil {
		a.logger.Warn("Failed to connect to Graylog", "error", graylogErr)
	}
	if a.logFilePath != "" {
		a.logger.Info("Logging to file", "path", a.logFilePath)
	}
	if provider.Enabled() {
		a.logger.Info("OTel provider initialized", "endpoint", otelCfg.Endpoint)
	}

	influxCfg := config.GetInfluxConfig()
	if influxCfg.Enabled {
		backup := filepath.Join(config.GetString("logsDir"), "influx_backup.log.gz")
		a.influx = metrics.NewManager(influxCfg, a.componentLogger("influx"), backup)
		if err := a.influx.Connect(ctx); err != nil {
			a.logger.Warn("Failed to set up InfluxDB, build points disabled", "error", err)
			a.influx = nil
		}
	}

	return nil
}

// componentLogger returns a zerolog logger for the database and InfluxDB
// managers, writing to the same destination as slog.
func (a *app) componentLogger(component string) zerolog.Logger {
	return logging.NewZerolog(a.logOut, a.logLevel, component)
}

// planner returns the mission-builder client wrapped with build metrics.
func (a *app) planner() (mission.Planner, error) {
	apiCfg := config.GetAPIConfig()
	client := api.New(apiCfg.ServerURL, apiCfg.Timeout)

	inst, err := metrics.NewInstruments(a.otelProvider.Meter(AppName))
	if err != nil {
		return nil, err
	}
	var points metrics.PointWriter
	if a.influx != nil {
		points = a.influx
	}
	return metrics.NewInstrumentedPlanner(client, inst, points, a.logger), nil
}

func (a *app) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if a.influx != nil {
		if err := a.influx.Close(); err != nil {
			a.logger.Warn("Failed to close InfluxDB", "error", err)
		}
	}
	if a.logger != nil {
		a.logger.Debug("Shutting down")
	}
	if err := a.slogManager.Flush(ctx); err != nil {
		fmt.Fprintln(a.stderr, "log flush failed:", err)
	}
	if a.otelProvider != nil {
		if err := a.otelProvider.Shutdown(ctx); err != nil {
			fmt.Fprintln(a.stderr, "otel shutdown failed:", err)
		}
	}
	_ = a.slogManager.Close()
	if a.logFile != nil {
		_ = a.logFile.Close()
	}
}
