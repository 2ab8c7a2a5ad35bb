package opsflare

import (
	"context"

	"github.com/opsflare-systems/opsflare/awslink"
	"github.com/opsflare-systems/opsflare/destination"
	"github.com/opsflare-systems/opsflare/event"
	"github.com/opsflare-systems/opsflare/runtimectx"
)

// NotifyOption refines an event built by Notify.
type NotifyOption func(*event.Event)

// WithMessage sets the detailed message body.
func WithMessage(msg string) NotifyOption {
	return func(ev *event.Event) { ev.Message = msg }
}

// WithWorkflow tags the event with the workflow it belongs to.
func WithWorkflow(name string) NotifyOption {
	return func(ev *event.Event) { ev.Workflow = name }
}

// WithAction names the step that was running.
func WithAction(name string) NotifyOption {
	return func(ev *event.Event) { ev.Action = name }
}

// WithSubjectID attaches the business identifier being processed.
func WithSubjectID(id string) NotifyOption {
	return func(ev *event.Event) { ev.SubjectID = id }
}

// WithExtra merges structured detail fields into the event.
func WithExtra(extra map[string]any) NotifyOption {
	return func(ev *event.Event) { ev.WithExtra(extra) }
}

// WithError records err as the event's exception.
func WithError(err error) NotifyOption {
	return func(ev *event.Event) { ev.WithError(err) }
}

// Notify builds an event and dispatches it through the package-level
// pipeline. Events below the configured minimum level are dropped. It never
// panics and never returns an error; per-destination outcomes come back as
// results.
func Notify(ctx context.Context, level event.Level, summary string, opts ...NotifyOption) []destination.Result {
	p := currentPipeline()
	if p == nil {
		return nil
	}
	return p.Notify(ctx, level, summary, opts...)
}

// Notify dispatches an event through this pipeline. See the package-level
// Notify.
func (p *Pipeline) Notify(ctx context.Context, level event.Level, summary string, opts ...NotifyOption) []destination.Result {
	ev := event.New(level, summary)
	for _, opt := range opts {
		opt(ev)
	}
	return p.notifyEvent(ctx, ev)
}

// notifyEvent fills app, env, runtime context, and log links on ev, then
// hands it to the dispatch core.
func (p *Pipeline) notifyEvent(ctx context.Context, ev *event.Event) []destination.Result {
	if ev.App == "" {
		ev.App = p.cfg.App
	}
	if ev.Env == "" {
		ev.Env = p.cfg.Env
	}

	rc := runtimectx.FromContext(ctx)
	if rc == nil {
		rc = runtimectx.Current()
	}
	if rc != nil {
		ev.Context = rc.Clone()
		if ev.App == "" {
			ev.App = rc.App
		}
		if ev.Workflow != "" {
			ev.Context.Workflow = ev.Workflow
		} else {
			ev.Workflow = ev.Context.Workflow
		}
		if ev.LogURL == "" {
			ev.LogURL = awslink.CloudWatchLogStream(rc.Region, rc.LogGroup, rc.LogStream)
		}
	}

	return p.notifier.Handle(ctx, ev)
}
