// Package event defines the notification event model and its ordered severity
// levels. Events are values: construct them, hand them to the dispatcher, and
// do not mutate them afterwards.
package event

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/opsflare-systems/opsflare/runtimectx"
)

// ExceptionInfo carries the failure attached to an event.
type ExceptionInfo struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"`
}

// Event is one candidate notification.
type Event struct {
	Level     Level     `json:"level"`
	Summary   string    `json:"summary"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`

	// Logger is the name of the emitting logger, when the event came through
	// the logging bridge.
	Logger string `json:"logger,omitempty"`

	RunID     string `json:"run_id"`
	App       string `json:"app,omitempty"`
	Env       string `json:"env,omitempty"`
	Workflow  string `json:"workflow,omitempty"`
	Action    string `json:"action,omitempty"`
	SubjectID string `json:"subject_id,omitempty"`
	LogURL    string `json:"log_url,omitempty"`

	Exception *ExceptionInfo `json:"exception,omitempty"`

	// Extra holds arbitrary structured context attached by the caller.
	Extra map[string]any `json:"extra,omitempty"`

	// Context snapshots the runtime context active at emission time, or nil.
	Context *runtimectx.RuntimeContext `json:"context,omitempty"`
}

// New constructs an event with a fresh run ID and UTC timestamp.
func New(level Level, summary string) *Event {
	return &Event{
		Level:     level,
		Summary:   summary,
		Timestamp: time.Now().UTC(),
		RunID:     uuid.New().String(),
	}
}

// WithExtra returns the event with a copy of extra attached. The input map is
// copied so later caller mutations cannot leak into the pipeline.
func (e *Event) WithExtra(extra map[string]any) *Event {
	if len(extra) == 0 {
		return e
	}
	if e.Extra == nil {
		e.Extra = make(map[string]any, len(extra))
	}
	for k, v := range extra {
		e.Extra[k] = v
	}
	return e
}

// WithError attaches err as the event's exception info.
func (e *Event) WithError(err error) *Event {
	if err == nil {
		return e
	}
	e.Exception = &ExceptionInfo{
		Type:    fmt.Sprintf("%T", err),
		Message: err.Error(),
	}
	return e
}

// Template is the dedup key text: the message when present, the summary
// otherwise. Callers logging through slog pass constant message templates with
// values as attrs, so repeated failures differing only in dynamic values
// collapse to one fingerprint.
func (e *Event) Template() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Summary
}

// SourceLabel renders the runtime origin, e.g. "lambda:orders-sync".
func (e *Event) SourceLabel() string {
	if e.Context == nil {
		return ""
	}
	return e.Context.Label()
}
