package otel

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/precisionmule/missionplanner/internal/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// ErrNoLogSink is returned when OTel is enabled with neither a log writer
// nor an OTLP endpoint.
var ErrNoLogSink = errors.New("otel enabled without a log writer or endpoint")

// Provider carries the planner's OTel log pipeline and hands out meters
// for the build instruments. The zero value is disabled.
type Provider struct {
	logs *sdklog.LoggerProvider
}

// New builds the log pipeline described by cfg. Records are pretty-printed
// to logWriter and, when cfg.Endpoint is set, shipped over OTLP/HTTP.
func New(cfg config.OTelConfig, logWriter io.Writer) (*Provider, error) {
	if !cfg.Enabled {
		return &Provider{}, nil
	}

	res, err := resource.New(context.Background(), resource.WithAttributes(semconv.ServiceName(cfg.ServiceName)))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	opts := []sdklog.LoggerProviderOption{sdklog.WithResource(res)}
	for _, exp := range []func(config.OTelConfig, io.Writer) (sdklog.Exporter, error){fileExporter, otlpExporter} {
		e, err := exp(cfg, logWriter)
		if err != nil {
			return nil, err
		}
		if e != nil {
			opts = append(opts, sdklog.WithProcessor(sdklog.NewBatchProcessor(e, sdklog.WithExportTimeout(cfg.BatchTimeout))))
		}
	}
	if len(opts) == 1 {
		return nil, ErrNoLogSink
	}
	return &Provider{logs: sdklog.NewLoggerProvider(opts...)}, nil
}

func fileExporter(_ config.OTelConfig, w io.Writer) (sdklog.Exporter, error) {
	if w == nil {
		return nil, nil
	}
	e, err := stdoutlog.New(stdoutlog.WithWriter(w), stdoutlog.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("failed to create file log exporter: %w", err)
	}
	return e, nil
}

func otlpExporter(cfg config.OTelConfig, _ io.Writer) (sdklog.Exporter, error) {
	if cfg.Endpoint == "" {
		return nil, nil
	}
	opts := []otlploghttp.Option{otlploghttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlploghttp.WithInsecure())
	}
	e, err := otlploghttp.New(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP log exporter: %w", err)
	}
	return e, nil
}

// Enabled reports whether a log pipeline was built.
func (p *Provider) Enabled() bool {
	return p.logs != nil
}

// LoggerProvider feeds the otelslog bridge. Nil when disabled.
func (p *Provider) LoggerProvider() *sdklog.LoggerProvider {
	return p.logs
}

// Meter returns a meter from the global meter provider, or a no-op meter
// when disabled so build instruments can always be created.
func (p *Provider) Meter(name string) metric.Meter {
	if !p.Enabled() {
		return noop.Meter{}
	}
	return otel.GetMeterProvider().Meter(name)
}

// Shutdown flushes pending records and stops the exporters.
func (p *Provider) Shutdown(ctx context.Context) error {
	if !p.Enabled() {
		return nil
	}
	if err := p.logs.Shutdown(ctx); err != nil {
		return fmt.Errorf("log shutdown failed: %w", err)
	}
	return nil
}
