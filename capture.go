package opsflare

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/opsflare-systems/opsflare/event"
)

// CaptureOption tags events produced by a capture boundary.
type CaptureOption func(*captureOptions)

type captureOptions struct {
	workflow string
	action   string
	extra    map[string]any
}

// ForWorkflow names the workflow the wrapped entrypoint belongs to.
func ForWorkflow(name string) CaptureOption {
	return func(o *captureOptions) { o.workflow = name }
}

// ForAction names the step; defaults to the workflow name.
func ForAction(name string) CaptureOption {
	return func(o *captureOptions) { o.action = name }
}

// ForExtra attaches fixed detail fields to any failure event.
func ForExtra(extra map[string]any) CaptureOption {
	return func(o *captureOptions) { o.extra = extra }
}

// Capture wraps a handler-style entrypoint so that a returned error or a
// panic is reported at critical level before propagating. The original error
// and the original panic value pass through unchanged; runtime context is
// detected on entry and torn down on every exit path, after notification.
func Capture[TIn, TOut any](fn func(context.Context, TIn) (TOut, error), opts ...CaptureOption) func(context.Context, TIn) (TOut, error) {
	o := captureOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.action == "" {
		o.action = o.workflow
	}

	return func(ctx context.Context, in TIn) (out TOut, err error) {
		ctx, tok := SetContext(ctx)
		defer ResetContext(tok)

		defer func() {
			if r := recover(); r != nil {
				reportPanic(ctx, &o, r, debug.Stack())
				panic(r)
			}
		}()

		out, err = fn(ctx, in)
		if err != nil {
			reportError(ctx, &o, err)
		}
		return out, err
	}
}

// CaptureFunc wraps an entrypoint that takes no input and returns only an
// error, a common shape for cron-style tasks.
func CaptureFunc(fn func(context.Context) error, opts ...CaptureOption) func(context.Context) error {
	wrapped := Capture(func(ctx context.Context, _ struct{}) (struct{}, error) {
		return struct{}{}, fn(ctx)
	}, opts...)
	return func(ctx context.Context) error {
		_, err := wrapped(ctx, struct{}{})
		return err
	}
}

func reportError(ctx context.Context, o *captureOptions, err error) {
	Notify(ctx, event.LevelCritical, summaryFor(o, err.Error()),
		WithError(err),
		WithWorkflow(o.workflow),
		WithAction(o.action),
		WithExtra(o.extra),
	)
}

func reportPanic(ctx context.Context, o *captureOptions, r any, stack []byte) {
	err, ok := r.(error)
	if !ok {
		err = fmt.Errorf("panic: %v", r)
	}
	p := currentPipeline()
	if p == nil {
		return
	}
	ev := event.New(event.LevelCritical, summaryFor(o, fmt.Sprint(r)))
	ev.WithError(err)
	ev.Exception.Stack = string(stack)
	ev.Workflow = o.workflow
	ev.Action = o.action
	ev.WithExtra(o.extra)
	p.notifyEvent(ctx, ev)
}

func summaryFor(o *captureOptions, detail string) string {
	if o.workflow != "" {
		return o.workflow + " failed: " + detail
	}
	return "unhandled failure: " + detail
}
