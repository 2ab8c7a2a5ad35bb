package destination

import (
	"context"
	"errors"
	"time"

	"github.com/opsflare-systems/opsflare/metrics"
)

const (
	// sendTimeout bounds a single network attempt. It is deliberately not
	// caller-configurable: a slow destination must never stall the hosting
	// invocation.
	sendTimeout = 5 * time.Second

	maxAttempts = 3
	baseBackoff = 100 * time.Millisecond
)

// transientError wraps failures worth retrying: network errors, 5xx, 429.
type transientError struct {
	err error
}

func (t *transientError) Error() string { return t.err.Error() }
func (t *transientError) Unwrap() error { return t.err }

// transient marks err as retryable.
func transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

func isTransient(err error) bool {
	var t *transientError
	return errors.As(err, &t)
}

// sendWithRetry runs attempt up to maxAttempts times with doubling backoff on
// transient failures. Permanent failures stop immediately. Every attempt runs
// under a sendTimeout deadline so no destination can stall the hosting
// invocation. The returned Result carries the last error and the attempt
// count; nothing escapes.
func sendWithRetry(ctx context.Context, name string, attempt func(context.Context) error) Result {
	var err error
	attempts := 0

	for attempts < maxAttempts {
		attempts++

		start := time.Now()
		actx, cancel := context.WithTimeout(ctx, sendTimeout)
		err = attempt(actx)
		cancel()
		metrics.SendDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

		if err == nil {
			metrics.SendsTotal.WithLabelValues(name, "success").Inc()
			return Result{Destination: name, Success: true, Attempts: attempts}
		}
		if !isTransient(err) {
			break
		}
		if attempts == maxAttempts {
			break
		}

		backoff := baseBackoff << (attempts - 1)
		select {
		case <-ctx.Done():
			metrics.SendsTotal.WithLabelValues(name, "failure").Inc()
			return Result{Destination: name, Err: ctx.Err(), Attempts: attempts}
		case <-time.After(backoff):
		}
	}

	metrics.SendsTotal.WithLabelValues(name, "failure").Inc()
	return Result{Destination: name, Err: err, Attempts: attempts}
}
