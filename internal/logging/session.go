package logging

import (
	"context"
	"log/slog"
)

// SessionAttrs reports the current mission state, for example vertex and
// obstacle counts. It is called once per record, so it must not log.
type SessionAttrs func() []slog.Attr

// sessionHandler appends the mission state to every record under a
// "mission" group. The group sits at the top level even when the logger
// was derived with WithGroup.
type sessionHandler struct {
	inner slog.Handler
	attrs SessionAttrs
	// pending holds attrs and groups added after the session wrapper, so
	// the mission group can be attached before them.
	pending []func(slog.Handler) slog.Handler
}

func (h *sessionHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *sessionHandler) Handle(ctx context.Context, r slog.Record) error {
	inner := h.inner
	if state := h.attrs(); len(state) > 0 {
		inner = inner.WithAttrs([]slog.Attr{{Key: "mission", Value: slog.GroupValue(state...)}})
	}
	for _, fn := range h.pending {
		inner = fn(inner)
	}
	return inner.Handle(ctx, r)
}

func (h *sessionHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	return h.with(func(inner slog.Handler) slog.Handler { return inner.WithAttrs(attrs) })
}

func (h *sessionHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return h.with(func(inner slog.Handler) slog.Handler { return inner.WithGroup(name) })
}

func (h *sessionHandler) with(fn func(slog.Handler) slog.Handler) *sessionHandler {
	pending := make([]func(slog.Handler) slog.Handler, len(h.pending), len(h.pending)+1)
	copy(pending, h.pending)
	return &sessionHandler{inner: h.inner, attrs: h.attrs, pending: append(pending, fn)}
}
