// Package opsflare captures failures from short-lived automation processes
// and dispatches them to notification destinations. A single Init call wires
// the local structured log, the Slack and email destinations, dedup
// suppression, and runtime context detection; after that, logging at error or
// above notifies, and Capture wraps an entrypoint so panics and returned
// errors notify before propagating unchanged.
package opsflare

import (
	"context"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/opsflare-systems/opsflare/config"
	"github.com/opsflare-systems/opsflare/dedup"
	"github.com/opsflare-systems/opsflare/destination"
	"github.com/opsflare-systems/opsflare/event"
	"github.com/opsflare-systems/opsflare/logging"
	"github.com/opsflare-systems/opsflare/notify"
	"github.com/opsflare-systems/opsflare/runtimectx"
)

// Pipeline is a fully wired capture pipeline. Most programs use the
// package-level one set up by Init, but tests and multi-tenant hosts can
// build their own.
type Pipeline struct {
	cfg      *config.Config
	notifier *notify.Notifier
	logger   *logging.Logger
	handler  slog.Handler
}

var (
	globalMu sync.Mutex
	global   *Pipeline
)

// Option adjusts Init beyond what configuration expresses.
type Option func(*initOptions)

type initOptions struct {
	destinations []destination.Destination
	store        dedup.Store
	reset        bool
	setDefault   bool
}

// WithDestination adds a destination alongside the configured ones.
func WithDestination(d destination.Destination) Option {
	return func(o *initOptions) { o.destinations = append(o.destinations, d) }
}

// WithStore overrides the dedup store.
func WithStore(s dedup.Store) Option {
	return func(o *initOptions) { o.store = s }
}

// WithReset forces a rebuild even when a pipeline already exists. Warm
// container reuse keeps the prior pipeline otherwise.
func WithReset() Option {
	return func(o *initOptions) { o.reset = true }
}

// WithoutDefaultLogger leaves slog.Default untouched.
func WithoutDefaultLogger() Option {
	return func(o *initOptions) { o.setDefault = false }
}

// Init wires the package-level pipeline from cfg. A nil cfg reads everything
// from the environment. Calling Init again in a warm container is a no-op
// unless WithReset is given.
func Init(cfg *config.Config, opts ...Option) (*Pipeline, error) {
	globalMu.Lock()
	defer globalMu.Unlock()

	o := initOptions{setDefault: true}
	for _, opt := range opts {
		opt(&o)
	}

	if global != nil && !o.reset {
		return global, nil
	}

	p, err := build(cfg, &o)
	if err != nil {
		return nil, err
	}
	global = p

	if o.setDefault {
		slog.SetDefault(slog.New(p.handler))
	}
	return p, nil
}

// NewPipeline builds an independent pipeline without touching package state
// or slog.Default.
func NewPipeline(cfg *config.Config, opts ...Option) (*Pipeline, error) {
	o := initOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	return build(cfg, &o)
}

func build(cfg *config.Config, o *initOptions) (*Pipeline, error) {
	if cfg == nil {
		cfg = config.FromEnv()
	} else {
		cfg.ApplyEnvDefaults()
	}

	sink := logging.NewSinkHandler(logging.ParseLevel(cfg.Log.Level), cfg.Log.Format)

	minLevel, err := event.ParseLevel(cfg.MinLevel)
	if err != nil {
		return nil, err
	}

	store := o.store
	if store == nil {
		store = buildStore(cfg)
	}

	dests := buildDestinations(cfg)
	dests = append(dests, o.destinations...)

	diag := slog.New(sink).With(notify.InternalAttr, true)
	notifier := notify.New(
		notify.WithMinLevel(minLevel),
		notify.WithDestinations(dests...),
		notify.WithDedupWindow(cfg.DedupWindow()),
		notify.WithEmitLocalCopy(cfg.EmitLocal()),
		notify.WithStore(store),
		notify.WithLogger(diag),
	)

	nh := logging.NewNotifyHandler(notifier, minLevel)
	nh.App = cfg.App
	nh.Env = cfg.Env

	var handler slog.Handler = logging.NewFanout(sink, nh)
	if cfg.QuietLevel != "" {
		handler = logging.NewQuiet(handler, logging.ParseLevel(cfg.QuietLevel), noisyLoggers...)
	}

	return &Pipeline{
		cfg:      cfg,
		notifier: notifier,
		logger:   logging.Wrap(slog.New(handler)),
		handler:  handler,
	}, nil
}

// noisyLoggers are third-party logger names muted when quiet_level is set.
var noisyLoggers = []string{
	"aws", "botocore", "urllib3", "redis", "http",
}

func buildDestinations(cfg *config.Config) []destination.Destination {
	var dests []destination.Destination
	if s := destination.NewSlack(cfg.Slack.WebhookURL, cfg.Slack.Format); s.Enabled() {
		dests = append(dests, s)
	}
	if e := destination.NewEmail(cfg.SES.From, cfg.Recipients(), cfg.ReplyTo(), cfg.SES.Region); e.Enabled() {
		dests = append(dests, e)
	}
	return dests
}

func buildStore(cfg *config.Config) dedup.Store {
	if cfg.Redis.Enabled && cfg.Redis.URL != "" {
		if opt, err := redis.ParseURL(cfg.Redis.URL); err == nil {
			return dedup.NewRedis(redis.NewClient(opt))
		}
	}
	return dedup.NewMemory()
}

// Logger returns the pipeline's structured logger.
func (p *Pipeline) Logger() *logging.Logger { return p.logger }

// Notifier exposes the dispatch core, mainly for tests.
func (p *Pipeline) Notifier() *notify.Notifier { return p.notifier }

// Handler returns the combined slog handler (sink + notify).
func (p *Pipeline) Handler() slog.Handler { return p.handler }

// Logger returns the package-level pipeline's logger, or a plain slog-backed
// logger when Init has not run.
func Logger() *logging.Logger {
	globalMu.Lock()
	defer globalMu.Unlock()
	if global != nil {
		return global.logger
	}
	return logging.Wrap(slog.Default())
}

func currentPipeline() *Pipeline {
	globalMu.Lock()
	defer globalMu.Unlock()
	return global
}

// SetContext detects the runtime environment, pushes it as the process-level
// context, and returns a derived ctx plus the token to hand to ResetContext.
func SetContext(ctx context.Context) (context.Context, runtimectx.Token) {
	rc := runtimectx.Detect(ctx)
	p := currentPipeline()
	if p != nil {
		rc.App = p.cfg.App
		if rc.Env == "" {
			rc.Env = p.cfg.Env
		}
	}
	tok := runtimectx.Set(rc)
	return runtimectx.NewContext(ctx, rc), tok
}

// ResetContext pops the context frame for tok. Safe to call more than once.
func ResetContext(tok runtimectx.Token) {
	runtimectx.Reset(tok)
}
