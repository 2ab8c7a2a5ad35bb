package dedup

import (
	"context"
	"sync"
	"time"
)

// pruneThreshold bounds how large the map may grow before expired entries are
// swept opportunistically during a write.
const pruneThreshold = 1024

// Memory is the default in-process store. Entries expire lazily: an entry
// older than the caller's window is treated as absent, no background sweeper
// runs.
type Memory struct {
	mu       sync.Mutex
	lastSent map[string]time.Time

	// now is swappable for tests.
	now func() time.Time
}

// NewMemory returns an empty in-process store.
func NewMemory() *Memory {
	return &Memory{
		lastSent: make(map[string]time.Time),
		now:      time.Now,
	}
}

// ShouldSend implements Store. A non-positive window disables suppression.
func (m *Memory) ShouldSend(_ context.Context, fp string, window time.Duration) (bool, error) {
	if window <= 0 {
		return true, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if last, ok := m.lastSent[fp]; ok && now.Sub(last) < window {
		return false, nil
	}

	if len(m.lastSent) >= pruneThreshold {
		for k, t := range m.lastSent {
			if now.Sub(t) >= window {
				delete(m.lastSent, k)
			}
		}
	}
	m.lastSent[fp] = now
	return true, nil
}

// Len reports the number of tracked fingerprints, expired or not.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.lastSent)
}
