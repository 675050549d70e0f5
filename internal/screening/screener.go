package screening

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/ry4ntr1/ppe-violation-detection/internal/camera"
	"github.com/ry4ntr1/ppe-violation-detection/internal/models"
	"github.com/ry4ntr1/ppe-violation-detection/internal/notify"
)

// Options configures a Screener
type Options struct {
	API          API
	Camera       camera.Camera
	View         View
	Notifier     notify.Notifier
	Archive      Archive // optional
	Clock        clockwork.Clock
	Requirements []models.PPERequirement

	DetectInterval   time.Duration
	PositionInterval time.Duration
	Dwell            time.Duration
}

// Screener starts screening sessions against one capture device
type Screener struct {
	opts   Options
	notify notify.Sender
}

// NewScreener creates a screener. The requirement list is fixed for its lifetime.
func NewScreener(opts Options) *Screener {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.View == nil {
		opts.View = nopView{}
	}
	if opts.DetectInterval <= 0 {
		opts.DetectInterval = DefaultDetectInterval
	}
	if opts.PositionInterval <= 0 {
		opts.PositionInterval = DefaultPositionInterval
	}
	if opts.Dwell <= 0 {
		opts.Dwell = DefaultDwell
	}
	opts.Requirements = append([]models.PPERequirement(nil), opts.Requirements...)

	return &Screener{
		opts:   opts,
		notify: notify.Sender{Notifier: opts.Notifier, Now: opts.Clock.Now},
	}
}

// Requirements returns the checklist used by every session
func (s *Screener) Requirements() []models.PPERequirement {
	return append([]models.PPERequirement(nil), s.opts.Requirements...)
}

// Start validates the operator input, acquires the camera, and arms both
// capture loops. On a camera failure the view is reset and no session exists.
func (s *Screener) Start(ctx context.Context, employeeID, site string) (*Session, error) {
	employeeID = strings.TrimSpace(employeeID)
	if employeeID == "" {
		s.notify.Error("Please enter Employee ID")
		return nil, ErrEmployeeRequired
	}
	if site == "" {
		s.notify.Error("Please select a site")
		return nil, ErrSiteRequired
	}

	view := s.opts.View
	view.ShowChecklist(PendingChecklist(s.opts.Requirements, StatusChecking))

	stream, err := s.opts.Camera.Open(ctx)
	if err != nil {
		s.notify.Error("Failed to access webcam. Please check permissions.")
		view.Reset()
		return nil, fmt.Errorf("failed to open camera: %w", err)
	}

	sess := &Session{
		ID:           uuid.NewString(),
		EmployeeID:   employeeID,
		Site:         site,
		api:          s.opts.API,
		view:         view,
		notify:       s.notify,
		archive:      s.opts.Archive,
		clock:        s.opts.Clock,
		requirements: s.opts.Requirements,
		stream:       stream,
		done:         make(chan Outcome, 1),
	}
	sess.ctx, sess.cancel = context.WithCancel(ctx)
	sess.tracker = NewTracker(s.opts.Requirements, s.opts.Clock, s.opts.Dwell, sess.autoComplete)
	sess.detect = NewCaptureLoop("detection", s.opts.Clock, s.opts.DetectInterval,
		sess.captureFrame(camera.DetectionQuality), sess.submitDetection)
	sess.position = NewCaptureLoop("position", s.opts.Clock, s.opts.PositionInterval,
		sess.captureFrame(camera.PositionQuality), sess.submitPosition)

	sess.begin()
	log.Printf("Screening: session %s started for %s at %s", sess.ID, employeeID, site)

	return sess, nil
}

// ImageResult is the outcome of screening an uploaded image
type ImageResult struct {
	Snapshot Snapshot
	Record   *models.ScreeningRecord // set when a passing result was saved
}

// ScreenImage screens one uploaded image. A passing result is shown for the
// dwell time and then submitted.
func (s *Screener) ScreenImage(ctx context.Context, employeeID, site string, image []byte) (*ImageResult, error) {
	if !camera.IsImage(image) {
		s.notify.Error("Please select a valid image file")
		return nil, ErrInvalidImage
	}

	employeeID = strings.TrimSpace(employeeID)
	if employeeID == "" {
		s.notify.Error("Please enter Employee ID first")
		return nil, ErrEmployeeRequired
	}
	if site == "" {
		s.notify.Error("Please select a site first")
		return nil, ErrSiteRequired
	}

	frame, err := camera.EncodeDataURL(image, camera.DetectionQuality)
	if err != nil {
		s.notify.Error("Please select a valid image file")
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	view := s.opts.View
	view.ShowChecklist(PendingChecklist(s.opts.Requirements, StatusAnalyzing))

	detections, err := s.opts.API.Detect(ctx, frame, employeeID)
	if err != nil {
		s.notify.Error("Failed to analyze image. Please try again.")
		view.Reset()
		return nil, fmt.Errorf("failed to analyze image: %w", err)
	}

	tracker := NewTracker(s.opts.Requirements, s.opts.Clock, s.opts.Dwell, nil)
	snap := tracker.Apply(detections)
	view.ShowOverlay(Overlay(detections))
	view.ShowChecklist(Checklist(s.opts.Requirements, snap))
	view.ShowStatus(StatusOf(snap))

	result := &ImageResult{Snapshot: snap}
	if !snap.Passing {
		return result, nil
	}

	select {
	case <-ctx.Done():
		return result, ctx.Err()
	case <-s.opts.Clock.After(s.opts.Dwell):
	}
	s.notify.Success("All required PPE detected! Completing screening...")

	record := tracker.Record(employeeID, site, s.opts.Clock.Now())
	record.Passed = true
	record.MissingPPE = []string{}
	record.Method = models.MethodImageUpload

	if err := s.opts.API.CompleteScreening(ctx, record); err != nil {
		s.notify.Error("Failed to save screening result")
		return result, fmt.Errorf("failed to save screening result: %w", err)
	}
	view.ShowResult(record)

	if s.opts.Archive != nil {
		if err := s.opts.Archive.SaveScreeningResult(ctx, uuid.NewString(), record); err != nil {
			log.Printf("Screening: failed to archive image screening: %v", err)
		}
	}

	result.Record = &record
	return result, nil
}
