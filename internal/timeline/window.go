package timeline

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/ry4ntr1/ppe-violation-detection/internal/models"
)

// DefaultRetention is the window used until the user picks another one
const DefaultRetention = 5 * time.Minute

// Window buffers detection events and evicts them once they are older than
// the retention window. Insertion order is preserved.
type Window struct {
	clock clockwork.Clock

	mu        sync.RWMutex
	events    []models.DetectionEvent
	retention time.Duration
}

// NewWindow creates an empty buffer with the given retention
func NewWindow(clock clockwork.Clock, retention time.Duration) *Window {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Window{
		clock:     clock,
		retention: retention,
	}
}

// Append adds one event, then evicts everything outside the current window
func (w *Window) Append(event models.DetectionEvent) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.events = append(w.events, event)
	w.pruneLocked(w.clock.Now())
}

// SetWindow changes the retention. The buffer is re-pruned on the next
// append or render, not here.
func (w *Window) SetWindow(retention time.Duration) {
	if retention <= 0 {
		return
	}
	w.mu.Lock()
	w.retention = retention
	w.mu.Unlock()
}

// Retention returns the current window length
func (w *Window) Retention() time.Duration {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.retention
}

// Prune evicts events whose timestamp is not after now - retention. It
// returns the number of events removed.
func (w *Window) Prune(now time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pruneLocked(now)
}

func (w *Window) pruneLocked(now time.Time) int {
	cutoff := now.Add(-w.retention)

	kept := w.events[:0]
	for _, event := range w.events {
		if event.Timestamp.After(cutoff) {
			kept = append(kept, event)
		}
	}
	removed := len(w.events) - len(kept)

	// clear the tail so evicted events can be collected
	for i := len(kept); i < len(w.events); i++ {
		w.events[i] = models.DetectionEvent{}
	}
	w.events = kept

	return removed
}

// Events returns a copy of every buffered event
func (w *Window) Events() []models.DetectionEvent {
	w.mu.RLock()
	defer w.mu.RUnlock()

	events := make([]models.DetectionEvent, len(w.events))
	copy(events, w.events)
	return events
}

// EventsForSource returns the buffered events of one source
func (w *Window) EventsForSource(sourceID string) []models.DetectionEvent {
	w.mu.RLock()
	defer w.mu.RUnlock()

	var events []models.DetectionEvent
	for _, event := range w.events {
		if event.SourceID == sourceID {
			events = append(events, event)
		}
	}
	return events
}

// CountForSource returns the number of buffered events of one source
func (w *Window) CountForSource(sourceID string) int {
	w.mu.RLock()
	defer w.mu.RUnlock()

	count := 0
	for _, event := range w.events {
		if event.SourceID == sourceID {
			count++
		}
	}
	return count
}

// Len returns the number of buffered events
func (w *Window) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.events)
}
