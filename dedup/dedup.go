// Package dedup provides time-windowed suppression of repeated notifications.
// A fingerprint identifies "the same kind of event" independent of dynamic
// argument values; a store remembers when a fingerprint was last dispatched.
package dedup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/opsflare-systems/opsflare/event"
)

// Fingerprint derives the dedup key from the emitting logger, the severity,
// the message template, and whether an exception is attached. Interpolated
// values are excluded by hashing the template rather than the rendered text.
func Fingerprint(logger string, level event.Level, template string, hasException bool) string {
	h := sha256.New()
	h.Write([]byte(logger))
	h.Write([]byte{0x1f})
	h.Write([]byte(level.String()))
	h.Write([]byte{0x1f})
	h.Write([]byte(template))
	h.Write([]byte{0x1f})
	if hasException {
		h.Write([]byte{1})
	} else {
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Store decides whether a fingerprint may be dispatched.
//
// ShouldSend reports true when no unexpired entry exists for fp, recording the
// send in the same operation so the check-and-record is atomic per
// fingerprint. This is best-effort suppression, not a lock: two concurrent
// calls racing on the same fresh fingerprint may both see true.
type Store interface {
	ShouldSend(ctx context.Context, fp string, window time.Duration) (bool, error)
}
