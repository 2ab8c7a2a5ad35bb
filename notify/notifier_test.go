package notify

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsflare-systems/opsflare/dedup"
	"github.com/opsflare-systems/opsflare/destination"
	"github.com/opsflare-systems/opsflare/event"
)

// fakeDestination records what it was asked to send.
type fakeDestination struct {
	name    string
	enabled bool
	fail    error
	panics  bool
	sent    []*event.Event
}

func (f *fakeDestination) Name() string  { return f.name }
func (f *fakeDestination) Enabled() bool { return f.enabled }

func (f *fakeDestination) Send(_ context.Context, ev *event.Event) destination.Result {
	if f.panics {
		panic("destination exploded")
	}
	f.sent = append(f.sent, ev)
	if f.fail != nil {
		return destination.Result{Destination: f.name, Err: f.fail, Attempts: 3}
	}
	return destination.Result{Destination: f.name, Success: true, Attempts: 1}
}

type failingStore struct{ err error }

func (s *failingStore) ShouldSend(context.Context, string, time.Duration) (bool, error) {
	return true, s.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError + 8}))
}

func newTestNotifier(dests []destination.Destination, opts ...Option) *Notifier {
	base := []Option{
		WithDestinations(dests...),
		WithDedupWindow(0),
		WithEmitLocalCopy(false),
		WithLogger(discardLogger()),
	}
	return New(append(base, opts...)...)
}

func TestHandleDispatches(t *testing.T) {
	slack := &fakeDestination{name: "slack", enabled: true}
	email := &fakeDestination{name: "email", enabled: true}
	n := newTestNotifier([]destination.Destination{slack, email})

	ev := event.New(event.LevelError, "boom")
	results := n.Handle(context.Background(), ev)

	require.Len(t, results, 2)
	assert.True(t, results[0].Success)
	assert.True(t, results[1].Success)
	assert.Len(t, slack.sent, 1)
	assert.Len(t, email.sent, 1)
}

func TestHandleBelowMinLevelInvisible(t *testing.T) {
	slack := &fakeDestination{name: "slack", enabled: true}
	store := dedup.NewMemory()
	n := newTestNotifier([]destination.Destination{slack},
		WithDedupWindow(30*time.Second), WithStore(store))

	results := n.Handle(context.Background(), event.New(event.LevelWarning, "meh"))

	assert.Nil(t, results)
	assert.Empty(t, slack.sent)
	// Filtered events leave no dedup bookkeeping behind: the same event at
	// error level afterwards still dispatches.
	assert.Zero(t, store.Len())
}

func TestHandleNilEvent(t *testing.T) {
	n := newTestNotifier(nil)
	assert.Nil(t, n.Handle(context.Background(), nil))
}

func TestHandleSkipsDisabledDestinations(t *testing.T) {
	on := &fakeDestination{name: "slack", enabled: true}
	off := &fakeDestination{name: "email", enabled: false}
	n := newTestNotifier([]destination.Destination{on, off})

	results := n.Handle(context.Background(), event.New(event.LevelError, "boom"))

	require.Len(t, results, 1)
	assert.Equal(t, "slack", results[0].Destination)
	assert.Empty(t, off.sent)
}

func TestHandleFailureIsolation(t *testing.T) {
	failing := &fakeDestination{name: "slack", enabled: true, fail: errors.New("webhook gone")}
	healthy := &fakeDestination{name: "email", enabled: true}
	n := newTestNotifier([]destination.Destination{failing, healthy})

	results := n.Handle(context.Background(), event.New(event.LevelError, "boom"))

	require.Len(t, results, 2)
	assert.False(t, results[0].Success)
	assert.True(t, results[1].Success)
	assert.Len(t, healthy.sent, 1, "healthy destination still attempted")
}

func TestHandlePanickingDestinationContained(t *testing.T) {
	exploding := &fakeDestination{name: "slack", enabled: true, panics: true}
	healthy := &fakeDestination{name: "email", enabled: true}
	n := newTestNotifier([]destination.Destination{exploding, healthy})

	var results []destination.Result
	require.NotPanics(t, func() {
		results = n.Handle(context.Background(), event.New(event.LevelError, "boom"))
	})

	require.Len(t, results, 2)
	assert.False(t, results[0].Success)
	assert.ErrorContains(t, results[0].Err, "panicked")
	assert.True(t, results[1].Success)
}

func TestHandleDedupSuppression(t *testing.T) {
	slack := &fakeDestination{name: "slack", enabled: true}
	n := newTestNotifier([]destination.Destination{slack},
		WithDedupWindow(30*time.Second), WithStore(dedup.NewMemory()))

	ev := event.New(event.LevelError, "sync failed")
	ev.Logger = "orders"

	first := n.Handle(context.Background(), ev)
	require.Len(t, first, 1)

	repeat := event.New(event.LevelError, "sync failed")
	repeat.Logger = "orders"
	second := n.Handle(context.Background(), repeat)

	assert.Nil(t, second)
	assert.Len(t, slack.sent, 1)
}

func TestHandleDedupWindowZeroDisables(t *testing.T) {
	slack := &fakeDestination{name: "slack", enabled: true}
	n := newTestNotifier([]destination.Destination{slack}, WithDedupWindow(0))

	for i := 0; i < 3; i++ {
		n.Handle(context.Background(), event.New(event.LevelError, "sync failed"))
	}
	assert.Len(t, slack.sent, 3)
}

func TestHandleStoreFailureFailsOpen(t *testing.T) {
	slack := &fakeDestination{name: "slack", enabled: true}
	n := newTestNotifier([]destination.Destination{slack},
		WithDedupWindow(30*time.Second),
		WithStore(&failingStore{err: errors.New("redis down")}))

	results := n.Handle(context.Background(), event.New(event.LevelError, "boom"))

	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
}

func TestHandleEmitsLocalCopy(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	t.Run("local copy precedes suppression", func(t *testing.T) {
		n := New(
			WithDestinations(),
			WithDedupWindow(30*time.Second),
			WithEmitLocalCopy(true),
			WithLogger(logger),
		)
		for i := 0; i < 2; i++ {
			n.Handle(context.Background(), eventWithLogger("orders", "sync failed"))
		}

		// Both handled events hit the local log even though the second was
		// suppressed externally.
		assert.Equal(t, 2, bytes.Count(buf.Bytes(), []byte("sync failed")))
		assert.Contains(t, buf.String(), InternalAttr)
	})

	t.Run("local copy off", func(t *testing.T) {
		buf.Reset()
		n := newTestNotifier(nil)
		n.Handle(context.Background(), event.New(event.LevelError, "quiet"))
		assert.Empty(t, buf.String())
	})
}

func TestHandleLocalCopyRedacts(t *testing.T) {
	var buf bytes.Buffer
	n := New(
		WithDestinations(),
		WithDedupWindow(0),
		WithEmitLocalCopy(true),
		WithLogger(slog.New(slog.NewJSONHandler(&buf, nil))),
	)

	ev := event.New(event.LevelError, "auth failed")
	ev.WithExtra(map[string]any{"password": "hunter2", "user": "alice"})
	n.Handle(context.Background(), ev)

	out := buf.String()
	assert.NotContains(t, out, "hunter2")
	assert.Contains(t, out, "alice")
}

func eventWithLogger(logger, summary string) *event.Event {
	ev := event.New(event.LevelError, summary)
	ev.Logger = logger
	return ev
}
