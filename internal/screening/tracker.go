package screening

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/ry4ntr1/ppe-violation-detection/internal/models"
)

// DefaultDwell is how long every required item must stay detected before auto-complete
const DefaultDwell = 2 * time.Second

// Snapshot is the tracker state after one detection cycle
type Snapshot struct {
	Detected map[string]bool
	Passing  bool
	Missing  []models.PPERequirement
}

// Tracker holds which requirements the latest frame satisfied and arms the
// auto-complete timer when the checklist starts passing.
type Tracker struct {
	requirements []models.PPERequirement
	clock        clockwork.Clock
	dwell        time.Duration
	onDwell      func()

	mu       sync.Mutex
	detected map[string]bool
	passing  bool
	timer    clockwork.Timer
	gen      uint64
	stopped  bool
}

// NewTracker creates a tracker with every requirement undetected. onDwell
// may be nil, in which case no timer is armed.
func NewTracker(requirements []models.PPERequirement, clock clockwork.Clock, dwell time.Duration, onDwell func()) *Tracker {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	t := &Tracker{
		requirements: requirements,
		clock:        clock,
		dwell:        dwell,
		onDwell:      onDwell,
	}
	t.detected = t.baseline()
	return t
}

func (t *Tracker) baseline() map[string]bool {
	state := make(map[string]bool, len(t.requirements))
	for _, req := range t.requirements {
		state[req.ID] = false
	}
	return state
}

// Apply replaces the detected state from a fresh all-false baseline. Nothing
// carries over from earlier cycles.
func (t *Tracker) Apply(detections []models.Detection) Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	next := t.baseline()
	for id := range Matched(detections) {
		if _, tracked := next[id]; tracked {
			next[id] = true
		}
	}
	t.detected = next

	passing := t.evaluate()
	switch {
	case passing && !t.passing:
		t.arm()
	case !passing && t.passing:
		t.disarm()
	}
	t.passing = passing

	return t.snapshot()
}

// Snapshot returns the current state
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshot()
}

// Passing reports whether every required item is detected
func (t *Tracker) Passing() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.evaluate()
}

// Pending reports whether an auto-complete timer is armed
func (t *Tracker) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.timer != nil
}

// Stop cancels any pending timer. A stopped tracker never arms again.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	t.disarm()
}

// Record builds the completion record for the current state
func (t *Tracker) Record(employeeID, site string, at time.Time) models.ScreeningRecord {
	t.mu.Lock()
	defer t.mu.Unlock()

	record := models.ScreeningRecord{
		EmployeeID:    employeeID,
		Site:          site,
		Timestamp:     at.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		Passed:        t.evaluate(),
		DetectedPPE:   []string{},
		MissingPPE:    []string{},
		AllDetections: make(map[string]bool, len(t.detected)),
	}
	for _, req := range t.requirements {
		detected := t.detected[req.ID]
		record.AllDetections[req.ID] = detected
		if detected {
			record.DetectedPPE = append(record.DetectedPPE, req.ID)
		} else if req.Required {
			record.MissingPPE = append(record.MissingPPE, req.ID)
		}
	}
	return record
}

// evaluate requires t.mu. An empty required set passes.
func (t *Tracker) evaluate() bool {
	for _, req := range t.requirements {
		if req.Required && !t.detected[req.ID] {
			return false
		}
	}
	return true
}

func (t *Tracker) snapshot() Snapshot {
	snap := Snapshot{
		Detected: make(map[string]bool, len(t.detected)),
		Passing:  t.evaluate(),
	}
	for id, v := range t.detected {
		snap.Detected[id] = v
	}
	for _, req := range t.requirements {
		if req.Required && !t.detected[req.ID] {
			snap.Missing = append(snap.Missing, req)
		}
	}
	return snap
}

func (t *Tracker) arm() {
	if t.stopped || t.onDwell == nil {
		return
	}
	t.disarm()

	gen := t.gen
	t.timer = t.clock.AfterFunc(t.dwell, func() { t.fire(gen) })
}

func (t *Tracker) disarm() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.gen++
}

// fire runs on the timer goroutine. A timer cancelled after it already
// expired is recognised by its stale generation.
func (t *Tracker) fire(gen uint64) {
	t.mu.Lock()
	if t.stopped || gen != t.gen || !t.evaluate() {
		t.mu.Unlock()
		return
	}
	t.timer = nil
	t.mu.Unlock()

	t.onDwell()
}
