// Package destination defines the external notification sinks and the
// per-destination result contract: a destination reports failure through its
// Result, never by panicking past the dispatcher.
package destination

import (
	"context"
	"errors"

	"github.com/opsflare-systems/opsflare/event"
)

// ErrNotConfigured marks a destination whose required settings are absent.
// Missing configuration makes a destination inert, never an error.
var ErrNotConfigured = errors.New("destination not configured")

// Result is the outcome of one delivery attempt sequence.
type Result struct {
	Destination string
	Success     bool
	Err         error
	Attempts    int
}

// Destination is an external notification sink.
//
// Send must be safe for concurrent use, bounded in time, and must convert
// every failure into its Result.
type Destination interface {
	Name() string

	// Enabled reports whether required configuration is present. Disabled
	// destinations self-report rather than being attempted.
	Enabled() bool

	Send(ctx context.Context, ev *event.Event) Result
}
