package logging

import (
	"context"
	"errors"
	"log/slog"
)

// fanout tees records to every child handler that accepts them.
type fanout struct {
	handlers []slog.Handler
}

// NewFanout returns a handler duplicating records across handlers. The local
// sink and the notify bridge are the usual pair.
func NewFanout(handlers ...slog.Handler) slog.Handler {
	return &fanout{handlers: handlers}
}

func (f *fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f *fanout) Handle(ctx context.Context, rec slog.Record) error {
	var errs []error
	for _, h := range f.handlers {
		if !h.Enabled(ctx, rec.Level) {
			continue
		}
		if err := h.Handle(ctx, rec.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		next[i] = h.WithAttrs(attrs)
	}
	return &fanout{handlers: next}
}

func (f *fanout) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		next[i] = h.WithGroup(name)
	}
	return &fanout{handlers: next}
}

// quiet drops records from named noisy loggers below a level floor. It is the
// local-sink analogue of silencing chatty third-party SDK loggers.
type quiet struct {
	next    slog.Handler
	floor   slog.Level
	loggers map[string]struct{}
	name    string
}

// NewQuiet wraps next so records carrying a logger attribute in loggers are
// dropped below floor. Records from other loggers pass through untouched.
func NewQuiet(next slog.Handler, floor slog.Level, loggers ...string) slog.Handler {
	set := make(map[string]struct{}, len(loggers))
	for _, l := range loggers {
		set[l] = struct{}{}
	}
	return &quiet{next: next, floor: floor, loggers: set}
}

func (q *quiet) Enabled(ctx context.Context, level slog.Level) bool {
	return q.next.Enabled(ctx, level)
}

func (q *quiet) Handle(ctx context.Context, rec slog.Record) error {
	if rec.Level < q.floor {
		name := q.name
		rec.Attrs(func(a slog.Attr) bool {
			if a.Key == LoggerAttr {
				name = a.Value.String()
				return false
			}
			return true
		})
		if _, muted := q.loggers[name]; muted {
			return nil
		}
	}
	return q.next.Handle(ctx, rec)
}

func (q *quiet) WithAttrs(attrs []slog.Attr) slog.Handler {
	cp := *q
	for _, a := range attrs {
		if a.Key == LoggerAttr {
			cp.name = a.Value.String()
		}
	}
	cp.next = q.next.WithAttrs(attrs)
	return &cp
}

func (q *quiet) WithGroup(name string) slog.Handler {
	cp := *q
	cp.next = q.next.WithGroup(name)
	return &cp
}
