package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/ry4ntr1/ppe-violation-detection/internal/api"
	"github.com/ry4ntr1/ppe-violation-detection/internal/feed"
	"github.com/ry4ntr1/ppe-violation-detection/internal/models"
	"github.com/ry4ntr1/ppe-violation-detection/internal/notify"
	"github.com/ry4ntr1/ppe-violation-detection/internal/registry"
	"github.com/ry4ntr1/ppe-violation-detection/internal/timeline"
)

// DefaultAlertConfidence is the confidence above which a detection raises a warning
const DefaultAlertConfidence = 0.8

// SourceAPI is the part of the detection API the dashboard calls
type SourceAPI interface {
	ListSources(ctx context.Context) ([]models.Source, error)
	CreateSource(ctx context.Context, req models.CreateSourceRequest) (*models.Source, error)
	DeleteSource(ctx context.Context, id string) error
	ListCaptureFiles(ctx context.Context) (*api.CaptureFiles, error)
	UpdateSettings(ctx context.Context, settings models.Settings) error
}

// Archive persists what the dashboard observed
type Archive interface {
	SaveDetectionEvent(ctx context.Context, event *models.DetectionEvent) error
	SaveSourceUpdate(ctx context.Context, update *models.SourceUpdate, at time.Time) error
}

// Display is the surface the timeline and the stats are drawn on
type Display interface {
	timeline.Surface
	ShowStats(stats models.DashboardStats)
}

// DashboardConfig holds configuration for the dashboard service
type DashboardConfig struct {
	Window          time.Duration
	Tick            time.Duration
	AlertConfidence float64
	ChannelSize     int
}

// DefaultDashboardConfig returns default configuration
func DefaultDashboardConfig() DashboardConfig {
	return DashboardConfig{
		Window:          timeline.DefaultRetention,
		Tick:            timeline.DefaultTick,
		AlertConfidence: DefaultAlertConfidence,
		ChannelSize:     100,
	}
}

// DashboardService applies pushed messages to the source registry and the
// event window, and runs the operator actions
type DashboardService struct {
	api      SourceAPI
	archive  Archive // may be nil
	display  Display
	notify   notify.Sender
	clock    clockwork.Clock
	alertAt  float64
	registry *registry.Registry
	window   *timeline.Window
	renderer *timeline.Renderer

	messages chan feed.Message
	done     chan struct{}
	stopOnce sync.Once

	statsMu sync.RWMutex
	stats   *models.DashboardStats
}

// NewDashboardService creates a new dashboard service. A nil clock uses the
// real clock; a nil archive disables archiving.
func NewDashboardService(
	sources SourceAPI,
	archive Archive,
	display Display,
	notifier notify.Notifier,
	clock clockwork.Clock,
	config DashboardConfig,
) *DashboardService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if config.ChannelSize <= 0 {
		config.ChannelSize = DefaultDashboardConfig().ChannelSize
	}
	if config.AlertConfidence <= 0 {
		config.AlertConfidence = DefaultAlertConfidence
	}

	reg := registry.New()
	window := timeline.NewWindow(clock, config.Window)

	return &DashboardService{
		api:      sources,
		archive:  archive,
		display:  display,
		notify:   notify.Sender{Notifier: notifier, Now: clock.Now},
		clock:    clock,
		alertAt:  config.AlertConfidence,
		registry: reg,
		window:   window,
		renderer: timeline.NewRenderer(window, reg, display, clock, config.Tick),
		messages: make(chan feed.Message, config.ChannelSize),
		done:     make(chan struct{}),
	}
}

// Handle queues a pushed message. It is the feed.Handler of the transport;
// messages are applied in arrival order by Run.
func (s *DashboardService) Handle(msg feed.Message) {
	select {
	case s.messages <- msg:
	case <-s.done:
	}
}

// Start runs the renderer and the message loop until the context is cancelled
func (s *DashboardService) Start(ctx context.Context) {
	log.Println("DashboardService: Starting...")

	go s.renderer.Run(ctx)

	defer s.stopOnce.Do(func() { close(s.done) })
	for {
		select {
		case <-ctx.Done():
			log.Println("DashboardService: Shutdown complete")
			return
		case msg := <-s.messages:
			s.apply(ctx, msg)
		}
	}
}

func (s *DashboardService) apply(ctx context.Context, msg feed.Message) {
	switch msg.Kind {
	case feed.KindDetection:
		s.processDetection(ctx, msg.Detection)
	case feed.KindSourceUpdate:
		s.processSourceUpdate(ctx, msg.SourceUpdate)
	case feed.KindStats:
		s.processStats(msg.Stats)
	default:
		log.Printf("DashboardService: ignoring message of kind %q", msg.Kind)
	}
}

func (s *DashboardService) processDetection(ctx context.Context, event *models.DetectionEvent) {
	if event == nil {
		return
	}

	s.window.Append(*event)

	if s.archive != nil {
		if err := s.archive.SaveDetectionEvent(ctx, event); err != nil {
			log.Printf("DashboardService: failed to archive detection: %v", err)
		}
	}

	s.renderer.Render()

	if event.Confidence > s.alertAt {
		s.notify.Warning(fmt.Sprintf("%s detected at %s", event.ViolationType, s.registry.Name(event.SourceID)))
	}
}

func (s *DashboardService) processSourceUpdate(ctx context.Context, update *models.SourceUpdate) {
	if update == nil {
		return
	}

	if !s.registry.ApplyUpdate(*update) {
		log.Printf("DashboardService: update for unknown source %s ignored", update.SourceID)
		return
	}

	if s.archive != nil {
		if err := s.archive.SaveSourceUpdate(ctx, update, s.clock.Now()); err != nil {
			log.Printf("DashboardService: failed to archive source update: %v", err)
		}
	}

	s.renderer.Render()
}

func (s *DashboardService) processStats(stats *models.DashboardStats) {
	if stats == nil {
		return
	}

	s.statsMu.Lock()
	copied := *stats
	s.stats = &copied
	s.statsMu.Unlock()

	s.display.ShowStats(copied)
}

// Stats returns the last pushed stats, or nil before the first push
func (s *DashboardService) Stats() *models.DashboardStats {
	s.statsMu.RLock()
	defer s.statsMu.RUnlock()
	if s.stats == nil {
		return nil
	}
	copied := *s.stats
	return &copied
}

// Sources returns the registered sources in display order
func (s *DashboardService) Sources() []models.Source {
	return s.registry.List()
}

// Window returns the event window
func (s *DashboardService) Window() *timeline.Window {
	return s.window
}

// Layout returns the most recent timeline layout
func (s *DashboardService) Layout() timeline.Layout {
	return s.renderer.Last()
}

// LoadSources replaces the registry with the server's source list
func (s *DashboardService) LoadSources(ctx context.Context) error {
	sources, err := s.api.ListSources(ctx)
	if err != nil {
		return fmt.Errorf("failed to load sources: %w", err)
	}

	s.registry.Load(sources)
	s.renderer.Render()

	log.Printf("DashboardService: loaded %d sources", len(sources))
	return nil
}

// AddSource creates a source. An empty name lets the server pick one.
func (s *DashboardService) AddSource(ctx context.Context, name, sourceType, path string) (*models.Source, error) {
	if strings.TrimSpace(path) == "" {
		s.notify.Error("Please select a source")
		return nil, api.ErrEmptyPath
	}

	source, err := s.api.CreateSource(ctx, models.CreateSourceRequest{Name: name, Type: sourceType, Path: path})
	if err != nil {
		s.notify.Error(api.Message(err, "Failed to add source"))
		return nil, fmt.Errorf("failed to add source: %w", err)
	}

	s.registry.Put(*source)
	s.renderer.Render()
	s.notify.Success("Source added successfully")

	return source, nil
}

// RemoveSource deletes a source
func (s *DashboardService) RemoveSource(ctx context.Context, id string) error {
	if err := s.api.DeleteSource(ctx, id); err != nil {
		s.notify.Error("Failed to remove source")
		return fmt.Errorf("failed to remove source %s: %w", id, err)
	}

	s.registry.Remove(id)
	s.renderer.Render()
	s.notify.Success("Source removed successfully")

	return nil
}

// ListCaptureFiles returns the video files the server can open
func (s *DashboardService) ListCaptureFiles(ctx context.Context) (*api.CaptureFiles, error) {
	files, err := s.api.ListCaptureFiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list capture files: %w", err)
	}
	return files, nil
}

// SetWindow changes the timeline window and re-renders
func (s *DashboardService) SetWindow(window time.Duration) error {
	if window <= 0 {
		return errors.New("window must be positive")
	}
	s.window.SetWindow(window)
	s.renderer.Render()
	return nil
}

// SaveSettings pushes the alerting settings
func (s *DashboardService) SaveSettings(ctx context.Context, settings models.Settings) error {
	if err := s.api.UpdateSettings(ctx, settings); err != nil {
		s.notify.Error("Failed to save settings")
		return fmt.Errorf("failed to save settings: %w", err)
	}

	s.notify.Success("Settings saved successfully")
	return nil
}

// ExportTimeline writes the window and the sources as JSON. It returns the
// conventional file name for the export.
func (s *DashboardService) ExportTimeline(w io.Writer) (string, error) {
	now := s.clock.Now()
	export := timeline.NewExport(s.window, s.registry.List(), now)
	if _, err := export.WriteTo(w); err != nil {
		return "", fmt.Errorf("failed to export timeline: %w", err)
	}

	s.notify.Success("Timeline data exported")
	return timeline.ExportFileName(now), nil
}
