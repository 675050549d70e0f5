package screening

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/ry4ntr1/ppe-violation-detection/internal/camera"
	"github.com/ry4ntr1/ppe-violation-detection/internal/models"
	"github.com/ry4ntr1/ppe-violation-detection/internal/notify"
)

var (
	ErrEmployeeRequired = errors.New("employee id is required")
	ErrSiteRequired     = errors.New("site is required")
	ErrInvalidImage     = errors.New("not a valid image file")
	ErrNotPassing       = errors.New("required PPE not detected")
	ErrSessionClosed    = errors.New("screening session is closed")
	ErrSubmitting       = errors.New("screening result is already being submitted")
)

// API is the part of the detection API a screening uses
type API interface {
	Detect(ctx context.Context, image, employeeID string) ([]models.Detection, error)
	CheckPosition(ctx context.Context, image string) (*models.PositionCheck, error)
	CompleteScreening(ctx context.Context, record models.ScreeningRecord) error
}

// Archive stores completed screenings locally
type Archive interface {
	SaveScreeningResult(ctx context.Context, sessionID string, record models.ScreeningRecord) error
}

// Outcome is how a session ended
type Outcome struct {
	Record    *models.ScreeningRecord // nil unless a result was saved
	Cancelled bool
}

// Session is one live screening. It holds the capture device from Start
// until it ends, and every timer and loop it owns is stopped when it ends.
type Session struct {
	ID         string
	EmployeeID string
	Site       string

	api          API
	view         View
	notify       notify.Sender
	archive      Archive
	clock        clockwork.Clock
	requirements []models.PPERequirement
	stream       camera.Stream

	tracker  *Tracker
	detect   *CaptureLoop
	position *CaptureLoop

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	closed     bool
	submitting bool

	once sync.Once
	done chan Outcome
}

func (s *Session) begin() {
	s.detect.Start(s.ctx)
	s.position.Start(s.ctx)

	go func() {
		<-s.ctx.Done()
		s.finish(Outcome{Cancelled: true}, false)
	}()
}

// Done delivers the outcome once the session has ended
func (s *Session) Done() <-chan Outcome {
	return s.done
}

// Closed reports whether the session has ended
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Snapshot returns the current checklist state
func (s *Session) Snapshot() Snapshot {
	return s.tracker.Snapshot()
}

// Complete submits the result now. It is only allowed while every
// required item is detected.
func (s *Session) Complete(ctx context.Context) error {
	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		return ErrSessionClosed
	case s.submitting:
		s.mu.Unlock()
		return ErrSubmitting
	case !s.tracker.Passing():
		s.mu.Unlock()
		return ErrNotPassing
	}
	s.submitting = true
	record := s.tracker.Record(s.EmployeeID, s.Site, s.clock.Now())
	s.mu.Unlock()

	return s.submit(ctx, record)
}

// Cancel ends the session without a result and resets the view
func (s *Session) Cancel() {
	s.finish(Outcome{Cancelled: true}, true)
}

func (s *Session) captureFrame(quality int) CaptureFunc {
	return func(ctx context.Context) (string, error) {
		frame, err := s.stream.Capture(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to capture frame: %w", err)
		}
		return camera.EncodeDataURL(frame, quality)
	}
}

func (s *Session) submitDetection(ctx context.Context, frame string) (func(), error) {
	detections, err := s.api.Detect(ctx, frame, s.EmployeeID)
	if err != nil {
		return nil, err
	}
	return func() { s.applyDetections(detections) }, nil
}

func (s *Session) submitPosition(ctx context.Context, frame string) (func(), error) {
	check, err := s.api.CheckPosition(ctx, frame)
	if err != nil {
		return nil, err
	}
	return func() { s.applyPosition(*check) }, nil
}

func (s *Session) applyDetections(detections []models.Detection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	snap := s.tracker.Apply(detections)
	s.view.ShowChecklist(Checklist(s.requirements, snap))
	s.view.ShowStatus(StatusOf(snap))
	s.view.ShowOverlay(Overlay(detections))
}

func (s *Session) applyPosition(check models.PositionCheck) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	s.view.ShowGuide(Guide(check))
}

// autoComplete runs when the checklist has passed for the full dwell
func (s *Session) autoComplete() {
	s.mu.Lock()
	if s.closed || s.submitting {
		s.mu.Unlock()
		return
	}
	s.submitting = true
	record := s.tracker.Record(s.EmployeeID, s.Site, s.clock.Now())
	s.mu.Unlock()

	s.notify.Success("All PPE detected! Completing screening...")
	if err := s.submit(s.ctx, record); err != nil {
		log.Printf("Screening: auto-complete for %s failed: %v", s.EmployeeID, err)
	}
}

func (s *Session) submit(ctx context.Context, record models.ScreeningRecord) error {
	if err := s.api.CompleteScreening(ctx, record); err != nil {
		s.mu.Lock()
		closed := s.closed
		s.submitting = false
		s.mu.Unlock()

		if !closed {
			s.notify.Error("Failed to save screening result")
		}
		return fmt.Errorf("failed to save screening result: %w", err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.closed = true
	s.view.ShowResult(record)
	s.mu.Unlock()

	if s.archive != nil {
		if err := s.archive.SaveScreeningResult(ctx, s.ID, record); err != nil {
			log.Printf("Screening: failed to archive session %s: %v", s.ID, err)
		}
	}

	s.finish(Outcome{Record: &record}, false)
	return nil
}

// finish tears the session down exactly once
func (s *Session) finish(outcome Outcome, reset bool) {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		s.cancel()
		s.detect.Stop()
		s.position.Stop()
		s.tracker.Stop()

		if err := s.stream.Close(); err != nil {
			log.Printf("Screening: failed to release camera: %v", err)
		}
		if reset {
			s.view.Reset()
		}

		log.Printf("Screening: session %s for %s ended (cancelled=%v)", s.ID, s.EmployeeID, outcome.Cancelled)

		s.done <- outcome
		close(s.done)
	})
}
