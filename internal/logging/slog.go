package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// InstrumentationName is the scope name used for the OTel log bridge and
// the prefix of log file names.
const InstrumentationName = "missionplanner"

// SlogManager owns the planner's slog logger and the sinks behind it: a
// text log, optionally GELF to Graylog and the OTel log bridge.
type SlogManager struct {
	logger      *slog.Logger
	logProvider *sdklog.LoggerProvider
	graylog     io.WriteCloser
}

// Option tweaks Setup.
type Option func(*setupOptions)

type setupOptions struct {
	graylog io.Writer
	session SessionAttrs
}

// WithGraylog sends every record as GELF to w as well. Use NewGraylogWriter
// to get a UDP writer for a Graylog input.
func WithGraylog(w io.Writer) Option {
	return func(o *setupOptions) {
		o.graylog = w
	}
}

// WithSession appends the mission state reported by attrs to every record.
func WithSession(attrs SessionAttrs) Option {
	return func(o *setupOptions) {
		o.session = attrs
	}
}

// NewGraylogWriter dials a Graylog GELF UDP input.
func NewGraylogWriter(address string) (*gelf.Writer, error) {
	return gelf.NewWriter(address)
}

func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// ParseLevel reads a logLevel config value. Unknown values fall back to info.
func ParseLevel(level string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// Setup builds the logger. Text records go to w, or to stderr when w is
// nil, so stdout stays free for command output such as exported KML.
// A nil provider disables the OTel bridge.
func (m *SlogManager) Setup(w io.Writer, level string, provider *sdklog.LoggerProvider, opts ...Option) {
	var o setupOptions
	for _, opt := range opts {
		opt(&o)
	}
	if w == nil {
		w = os.Stderr
	}
	if m.graylog != nil {
		_ = m.Close()
	}
	m.logProvider = provider

	handlerOpts := &slog.HandlerOptions{
		Level: ParseLevel(level),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
				}
			}
			return a
		},
	}

	handlers := []slog.Handler{slog.NewTextHandler(w, handlerOpts)}
	// GELF messages carry the JSON record as their short message
	if o.graylog != nil {
		handlers = append(handlers, slog.NewJSONHandler(o.graylog, handlerOpts))
		if c, ok := o.graylog.(io.WriteCloser); ok {
			m.graylog = c
		}
	}
	if provider != nil {
		handlers = append(handlers, otelslog.NewHandler(InstrumentationName, otelslog.WithLoggerProvider(provider)))
	}

	handler := newFanout(handlers...)
	if o.session != nil {
		handler = &sessionHandler{inner: handler, attrs: o.session}
	}

	m.logger = slog.New(handler)
	m.logger.Info("Logging initialized", "level", handlerOpts.Level)
}

// Logger returns the configured logger, or slog.Default before Setup.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		return slog.Default()
	}
	return m.logger
}

// Flush pushes pending OTel log records.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.logProvider != nil {
		return m.logProvider.ForceFlush(ctx)
	}
	return nil
}

// Close releases the Graylog connection, if any.
func (m *SlogManager) Close() error {
	if m.graylog == nil {
		return nil
	}
	err := m.graylog.Close()
	m.graylog = nil
	return err
}
