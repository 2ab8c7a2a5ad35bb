package logging

import (
	"context"
	"log/slog"

	"github.com/opsflare-systems/opsflare/awslink"
	"github.com/opsflare-systems/opsflare/event"
	"github.com/opsflare-systems/opsflare/notify"
	"github.com/opsflare-systems/opsflare/runtimectx"
)

// NotifyHandler is the slog.Handler bridge into the notification pipeline:
// records at or above its threshold become events routed through the
// dispatcher. It is meant to sit beside a local sink inside a Fanout, never to
// replace it.
type NotifyHandler struct {
	notifier *notify.Notifier
	min      slog.Level

	// App and Env stamp forwarded events with deployment identity.
	App string
	Env string

	attrs  []slog.Attr
	groups []string
}

// NewNotifyHandler builds the bridge. min is the forwarding threshold and is
// typically the notifier's own minimum level.
func NewNotifyHandler(n *notify.Notifier, min event.Level) *NotifyHandler {
	return &NotifyHandler{notifier: n, min: min.Slog()}
}

// Enabled implements slog.Handler.
func (h *NotifyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return h.notifier != nil && level >= h.min
}

// Handle converts the record into an event and routes it through the
// dispatcher. Records marked internal are dropped so the pipeline's own
// diagnostics cannot loop back.
func (h *NotifyHandler) Handle(ctx context.Context, rec slog.Record) error {
	ev := event.New(event.FromSlog(rec.Level), rec.Message)
	ev.Message = rec.Message
	ev.App = h.App
	ev.Env = h.Env

	internal := false
	consume := func(a slog.Attr) {
		switch a.Key {
		case notify.InternalAttr:
			internal = true
		case LoggerAttr:
			ev.Logger = a.Value.String()
		default:
			if err, ok := a.Value.Any().(error); ok && ev.Exception == nil {
				ev.WithError(err)
				return
			}
			if ev.Extra == nil {
				ev.Extra = make(map[string]any)
			}
			ev.Extra[a.Key] = a.Value.Any()
		}
	}
	for _, a := range h.attrs {
		consume(a)
	}
	rec.Attrs(func(a slog.Attr) bool {
		a.Key = h.qualify(a.Key)
		consume(a)
		return true
	})
	if internal {
		return nil
	}

	if ev.Action == "" {
		ev.Action = ev.Logger
	}

	rc := runtimectx.FromContext(ctx)
	if rc == nil {
		rc = runtimectx.Current()
	}
	if rc != nil {
		ev.Context = rc.Clone()
		if ev.Workflow == "" {
			ev.Workflow = rc.Workflow
		}
		if ev.LogURL == "" {
			ev.LogURL = awslink.CloudWatchLogStream(rc.Region, rc.LogGroup, rc.LogStream)
		}
	}

	h.notifier.Handle(ctx, ev)
	return nil
}

// WithAttrs implements slog.Handler.
func (h *NotifyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	cp := *h
	cp.attrs = append([]slog.Attr{}, h.attrs...)
	for _, a := range attrs {
		a.Key = h.qualify(a.Key)
		cp.attrs = append(cp.attrs, a)
	}
	return &cp
}

// WithGroup implements slog.Handler.
func (h *NotifyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	cp := *h
	cp.groups = append(append([]string{}, h.groups...), name)
	return &cp
}

func (h *NotifyHandler) qualify(key string) string {
	for i := len(h.groups) - 1; i >= 0; i-- {
		key = h.groups[i] + "." + key
	}
	return key
}
