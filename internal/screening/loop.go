package screening

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Polling periods of the two screening loops
const (
	DefaultDetectInterval   = 500 * time.Millisecond
	DefaultPositionInterval = 2 * time.Second
)

// LoopState is the state of a capture loop
type LoopState int

const (
	Idle LoopState = iota
	Armed
	Capturing
	AwaitingResult
)

func (s LoopState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	case Capturing:
		return "capturing"
	case AwaitingResult:
		return "awaiting_result"
	default:
		return fmt.Sprintf("LoopState(%d)", int(s))
	}
}

// CaptureFunc grabs and encodes one frame
type CaptureFunc func(ctx context.Context) (string, error)

// SubmitFunc sends a frame and returns the function that applies the
// response. Apply runs under the loop lock and must not call back into the loop.
type SubmitFunc func(ctx context.Context, frame string) (apply func(), err error)

// CaptureLoop is a single-flight poller. A tick starts a capture only when
// the previous request has completed.
type CaptureLoop struct {
	name    string
	clock   clockwork.Clock
	period  time.Duration
	capture CaptureFunc
	submit  SubmitFunc

	mu       sync.Mutex
	state    LoopState
	gen      uint64
	ctx      context.Context
	cancel   context.CancelFunc
	inflight context.CancelFunc

	wg sync.WaitGroup
}

// NewCaptureLoop creates an idle loop
func NewCaptureLoop(name string, clock clockwork.Clock, period time.Duration, capture CaptureFunc, submit SubmitFunc) *CaptureLoop {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &CaptureLoop{
		name:    name,
		clock:   clock,
		period:  period,
		capture: capture,
		submit:  submit,
	}
}

// State returns the current loop state
func (l *CaptureLoop) State() LoopState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Start arms the loop and starts its ticker. It is a no-op unless idle.
func (l *CaptureLoop) Start(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != Idle {
		return
	}

	l.ctx, l.cancel = context.WithCancel(ctx)
	l.state = Armed
	l.gen++

	ticker := l.clock.NewTicker(l.period)
	l.wg.Add(1)
	go l.run(l.ctx, ticker)
}

func (l *CaptureLoop) run(ctx context.Context, ticker clockwork.Ticker) {
	defer l.wg.Done()
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			l.Tick()
		}
	}
}

// Tick starts one capture if the loop is armed. It reports whether a
// request was started.
func (l *CaptureLoop) Tick() bool {
	l.mu.Lock()
	if l.state != Armed {
		l.mu.Unlock()
		return false
	}

	l.state = Capturing
	gen := l.gen
	ctx, cancel := context.WithCancel(l.ctx)
	l.inflight = cancel
	l.mu.Unlock()

	go l.execute(ctx, cancel, gen)
	return true
}

func (l *CaptureLoop) execute(ctx context.Context, cancel context.CancelFunc, gen uint64) {
	defer cancel()

	var apply func()
	frame, err := l.capture(ctx)
	if err == nil && l.advance(gen, Capturing, AwaitingResult) {
		apply, err = l.submit(ctx, frame)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if gen != l.gen || l.state == Idle {
		// Stopped while in flight: the response is dropped
		return
	}

	if err != nil {
		log.Printf("Screening: %s request failed: %v", l.name, err)
	} else if apply != nil {
		apply()
	}

	l.state = Armed
	l.inflight = nil
}

func (l *CaptureLoop) advance(gen uint64, from, to LoopState) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.gen || l.state != from {
		return false
	}
	l.state = to
	return true
}

// Stop returns the loop to idle from any state and cancels the in-flight
// request. It waits for the ticker goroutine but not for the request.
func (l *CaptureLoop) Stop() {
	l.mu.Lock()
	if l.state == Idle {
		l.mu.Unlock()
		return
	}

	l.state = Idle
	l.gen++
	if l.inflight != nil {
		l.inflight()
		l.inflight = nil
	}
	l.cancel()
	l.mu.Unlock()

	l.wg.Wait()
}
