// Package notify implements the dispatch choke point every candidate
// notification passes through: level filter, windowed deduplication, local
// structured copy, and destination fan-out with per-destination failure
// isolation.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/opsflare-systems/opsflare/dedup"
	"github.com/opsflare-systems/opsflare/destination"
	"github.com/opsflare-systems/opsflare/event"
	"github.com/opsflare-systems/opsflare/metrics"
	"github.com/opsflare-systems/opsflare/redact"
)

// InternalAttr marks diagnostic records emitted by the pipeline itself so the
// logging bridge never feeds them back into Handle.
const InternalAttr = "opsflare_internal"

// DefaultDedupWindow suppresses repeats of the same fingerprint for this long
// unless configured otherwise. Zero disables deduplication.
const DefaultDedupWindow = 30 * time.Second

// Notifier is the event interceptor. Handle is safe for concurrent use;
// Configure may be re-applied, but not concurrently with Handle.
type Notifier struct {
	minLevel     event.Level
	destinations []destination.Destination
	window       time.Duration
	emitLocal    bool
	store        dedup.Store
	logger       *slog.Logger
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithMinLevel sets the minimum severity dispatched externally.
func WithMinLevel(l event.Level) Option {
	return func(n *Notifier) { n.minLevel = l }
}

// WithDestinations replaces the fan-out set.
func WithDestinations(dests ...destination.Destination) Option {
	return func(n *Notifier) { n.destinations = dests }
}

// WithDedupWindow sets the suppression window; zero disables deduplication.
func WithDedupWindow(d time.Duration) Option {
	return func(n *Notifier) { n.window = d }
}

// WithEmitLocalCopy toggles the local structured copy of every handled event.
func WithEmitLocalCopy(emit bool) Option {
	return func(n *Notifier) { n.emitLocal = emit }
}

// WithStore swaps the dedup store (memory by default, Redis for warm fleets).
func WithStore(s dedup.Store) Option {
	return func(n *Notifier) { n.store = s }
}

// WithLogger sets the sink for local copies and diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(n *Notifier) { n.logger = l }
}

// New builds a Notifier with the documented defaults: minimum level error,
// 30 second dedup window, local copy on, in-process store.
func New(opts ...Option) *Notifier {
	n := &Notifier{
		minLevel:  event.LevelError,
		window:    DefaultDedupWindow,
		emitLocal: true,
		store:     dedup.NewMemory(),
		logger:    slog.Default(),
	}
	n.Configure(opts...)
	return n
}

// Configure re-applies options.
func (n *Notifier) Configure(opts ...Option) {
	for _, opt := range opts {
		opt(n)
	}
	if n.store == nil {
		n.store = dedup.NewMemory()
	}
	if n.logger == nil {
		n.logger = slog.Default()
	}
}

// MinLevel returns the configured external dispatch threshold.
func (n *Notifier) MinLevel() event.Level { return n.minLevel }

// Handle routes one event through the pipeline and returns the per-destination
// outcomes. It never panics and never returns an error: destination and dedup
// failures are converted into results and diagnostics. Events below the
// minimum level are invisible — no dispatch, no dedup bookkeeping.
func (n *Notifier) Handle(ctx context.Context, ev *event.Event) (results []destination.Result) {
	defer func() {
		if r := recover(); r != nil {
			n.diag().Error("notification pipeline recovered from panic", "panic", fmt.Sprint(r))
			results = nil
		}
	}()

	if ev == nil || ev.Level < n.minLevel {
		return nil
	}
	metrics.EventsTotal.WithLabelValues(ev.Level.String()).Inc()

	// The local copy is independent of dedup and destination outcomes, so
	// operators keep visibility even when external sinks are suppressed or
	// failing.
	if n.emitLocal {
		n.emitLocalCopy(ctx, ev)
	}

	if n.window > 0 {
		fp := dedup.Fingerprint(ev.Logger, ev.Level, ev.Template(), ev.Exception != nil)
		send, err := n.store.ShouldSend(ctx, fp, n.window)
		if err != nil {
			// Fail open: a broken store must not drop notifications.
			n.diag().Debug("dedup store failed, dispatching anyway", "error", err)
		}
		if !send {
			metrics.SuppressedTotal.Inc()
			n.diag().Debug("notification suppressed by dedup window",
				"fingerprint", fp[:12], "window", n.window)
			return nil
		}
	}

	results = make([]destination.Result, 0, len(n.destinations))
	for _, dest := range n.destinations {
		if !dest.Enabled() {
			continue
		}
		res := n.sendOne(ctx, dest, ev)
		results = append(results, res)
		if !res.Success {
			n.diag().Warn("notification destination failed",
				"destination", res.Destination,
				"attempts", res.Attempts,
				"error", res.Err)
		}
	}
	return results
}

// sendOne isolates a single destination: even a panicking Send is contained.
func (n *Notifier) sendOne(ctx context.Context, dest destination.Destination, ev *event.Event) (res destination.Result) {
	defer func() {
		if r := recover(); r != nil {
			res = destination.Result{
				Destination: dest.Name(),
				Err:         fmt.Errorf("destination panicked: %v", r),
			}
		}
	}()
	return dest.Send(ctx, ev)
}

func (n *Notifier) emitLocalCopy(ctx context.Context, ev *event.Event) {
	attrs := []any{
		slog.Bool(InternalAttr, true),
		slog.String("level", ev.Level.String()),
		slog.String("run_id", ev.RunID),
	}
	add := func(k, v string) {
		if v != "" {
			attrs = append(attrs, slog.String(k, v))
		}
	}
	add("app", ev.App)
	add("env", ev.Env)
	add("workflow", ev.Workflow)
	add("action", ev.Action)
	add("subject_id", ev.SubjectID)
	add("source", ev.SourceLabel())
	add("log_url", ev.LogURL)
	add("message", redact.String(ev.Message))
	if ev.Exception != nil {
		attrs = append(attrs,
			slog.String("exception_type", ev.Exception.Type),
			slog.String("exception", redact.String(ev.Exception.Message)))
	}
	if len(ev.Extra) > 0 {
		attrs = append(attrs, slog.Any("extra", redact.Map(ev.Extra)))
	}

	n.logger.Log(ctx, ev.Level.Slog(), ev.Summary, attrs...)
}

func (n *Notifier) diag() *slog.Logger {
	return n.logger.With(slog.Bool(InternalAttr, true))
}
