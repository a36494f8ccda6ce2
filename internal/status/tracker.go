// internal/status/tracker.go
package status

import "sync"

// Tracker caches the last snapshot per receiver so callers can act on
// transitions only and keep the periodic pass quiet when nothing
// changed.
type Tracker struct {
	mu   sync.Mutex
	last map[string]Snapshot
}

func NewTracker() *Tracker {
	return &Tracker{last: make(map[string]Snapshot)}
}

// Observe records a snapshot and reports whether it differs from the
// previous one for the same receiver. The first observation of a
// receiver is always a change.
func (t *Tracker) Observe(s Snapshot) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	prev, seen := t.last[s.Name]
	t.last[s.Name] = s
	return !seen || prev != s
}

// Last returns the most recent snapshot for a receiver.
func (t *Tracker) Last(name string) (Snapshot, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.last[name]
	return s, ok
}
