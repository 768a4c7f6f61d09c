package logging

import (
	"context"
	"log/slog"
	"strings"
)

const redacted = "[REDACTED]"

// runHandler stamps run_id on every record and masks secret values in the
// message and in string attributes before they reach the wrapped handler.
type runHandler struct {
	base     slog.Handler
	runID    string
	replacer *strings.Replacer
}

func newRunHandler(base slog.Handler, runID string, secrets []string) slog.Handler {
	h := &runHandler{base: base, runID: runID}
	var pairs []string
	for _, s := range secrets {
		if s != "" {
			pairs = append(pairs, s, redacted)
		}
	}
	if len(pairs) > 0 {
		h.replacer = strings.NewReplacer(pairs...)
	}
	return h
}

func (h *runHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

func (h *runHandler) Handle(ctx context.Context, record slog.Record) error {
	out := slog.NewRecord(record.Time, record.Level, h.mask(record.Message), record.PC)
	record.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(h.maskAttr(a))
		return true
	})
	if h.runID != "" {
		out.AddAttrs(slog.String(FieldRunID, h.runID))
	}
	return h.base.Handle(ctx, out)
}

func (h *runHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		masked[i] = h.maskAttr(a)
	}
	return &runHandler{base: h.base.WithAttrs(masked), runID: h.runID, replacer: h.replacer}
}

func (h *runHandler) WithGroup(name string) slog.Handler {
	return &runHandler{base: h.base.WithGroup(name), runID: h.runID, replacer: h.replacer}
}

func (h *runHandler) mask(s string) string {
	if h.replacer == nil {
		return s
	}
	return h.replacer.Replace(s)
}

func (h *runHandler) maskAttr(a slog.Attr) slog.Attr {
	if h.replacer == nil {
		return a
	}
	v := a.Value.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return slog.String(a.Key, h.mask(v.String()))
	case slog.KindGroup:
		group := v.Group()
		masked := make([]any, len(group))
		for i, inner := range group {
			masked[i] = h.maskAttr(inner)
		}
		return slog.Group(a.Key, masked...)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return slog.String(a.Key, h.mask(err.Error()))
		}
	}
	return a
}
