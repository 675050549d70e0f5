package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ry4ntr1/ppe-violation-detection/internal/api"
	"github.com/ry4ntr1/ppe-violation-detection/internal/feed"
	"github.com/ry4ntr1/ppe-violation-detection/internal/models"
	"github.com/ry4ntr1/ppe-violation-detection/internal/notify"
	"github.com/ry4ntr1/ppe-violation-detection/internal/timeline"
)

var epoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type fakeSourceAPI struct {
	mu       sync.Mutex
	sources  []models.Source
	created  []models.CreateSourceRequest
	deleted  []string
	settings []models.Settings
	err      error
}

func (f *fakeSourceAPI) ListSources(context.Context) ([]models.Source, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sources, f.err
}

func (f *fakeSourceAPI) CreateSource(_ context.Context, req models.CreateSourceRequest) (*models.Source, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, req)
	if f.err != nil {
		return nil, f.err
	}
	return &models.Source{ID: "cam-9", Name: req.Name, Type: req.Type, Path: req.Path, Status: models.StatusInactive}, nil
}

func (f *fakeSourceAPI) DeleteSource(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return f.err
}

func (f *fakeSourceAPI) ListCaptureFiles(context.Context) (*api.CaptureFiles, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &api.CaptureFiles{Videos: []string{"a.mp4"}, Current: "a.mp4"}, nil
}

func (f *fakeSourceAPI) UpdateSettings(_ context.Context, settings models.Settings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settings = append(f.settings, settings)
	return f.err
}

type fakeArchive struct {
	mu         sync.Mutex
	detections []models.DetectionEvent
	updates    []models.SourceUpdate
}

func (a *fakeArchive) SaveDetectionEvent(_ context.Context, event *models.DetectionEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detections = append(a.detections, *event)
	return nil
}

func (a *fakeArchive) SaveSourceUpdate(_ context.Context, update *models.SourceUpdate, _ time.Time) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.updates = append(a.updates, *update)
	return nil
}

type recordingDisplay struct {
	mu      sync.Mutex
	layouts []timeline.Layout
	stats   []models.DashboardStats
}

func (d *recordingDisplay) Width() float64 { return 100 }

func (d *recordingDisplay) Draw(layout timeline.Layout) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.layouts = append(d.layouts, layout)
	return nil
}

func (d *recordingDisplay) ShowStats(stats models.DashboardStats) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stats = append(d.stats, stats)
}

func (d *recordingDisplay) draws() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.layouts)
}

type fixture struct {
	service *DashboardService
	api     *fakeSourceAPI
	archive *fakeArchive
	display *recordingDisplay
	notes   *notify.Recorder
	clock   clockwork.FakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		api: &fakeSourceAPI{sources: []models.Source{
			{ID: "cam-1", Name: "Gate", Status: models.StatusActive, FPS: 10},
		}},
		archive: &fakeArchive{},
		display: &recordingDisplay{},
		notes:   &notify.Recorder{},
		clock:   clockwork.NewFakeClockAt(epoch),
	}
	f.service = NewDashboardService(f.api, f.archive, f.display, f.notes, f.clock, DefaultDashboardConfig())
	require.NoError(t, f.service.LoadSources(context.Background()))
	return f
}

func detection(sourceID, violation string, confidence float64, age time.Duration) feed.Message {
	return feed.Message{
		Kind: feed.KindDetection,
		Detection: &models.DetectionEvent{
			SourceID:      sourceID,
			ViolationType: violation,
			Confidence:    confidence,
			Timestamp:     epoch.Add(-age),
		},
	}
}

func TestDashboard_Detection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.service.apply(ctx, detection("cam-1", "NO-Hardhat", 0.95, 10*time.Second))
	f.service.apply(ctx, detection("cam-1", "NO-Mask", 0.8, 5*time.Second))
	f.service.apply(ctx, detection("cam-7", "NO-Safety Vest", 0.81, time.Second))

	assert.Equal(t, []string{
		"NO-Hardhat detected at Gate",
		"NO-Safety Vest detected at Unknown",
	}, f.notes.Messages())
	assert.Equal(t, notify.LevelWarning, f.notes.All()[0].Level)

	assert.Equal(t, 3, f.service.Window().Len())
	assert.Len(t, f.archive.detections, 3)

	layout := f.service.Layout()
	require.Len(t, layout.Tracks, 1)
	assert.Equal(t, 2, layout.Tracks[0].ViolationCount)
	assert.Len(t, layout.Tracks[0].Markers, 2)
}

func TestDashboard_SourceUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	draws := f.display.draws()

	f.service.apply(ctx, feed.Message{
		Kind:         feed.KindSourceUpdate,
		SourceUpdate: &models.SourceUpdate{SourceID: "cam-404", Status: models.StatusActive, FPS: 30},
	})
	assert.Equal(t, draws, f.display.draws())
	assert.Empty(t, f.archive.updates)

	f.service.apply(ctx, feed.Message{
		Kind:         feed.KindSourceUpdate,
		SourceUpdate: &models.SourceUpdate{SourceID: "cam-1", Status: models.StatusInactive, FPS: 0},
	})
	assert.Equal(t, draws+1, f.display.draws())
	assert.Len(t, f.archive.updates, 1)

	sources := f.service.Sources()
	require.Len(t, sources, 1)
	assert.Equal(t, models.StatusInactive, sources[0].Status)
	assert.False(t, f.service.Layout().Tracks[0].Active)
}

func TestDashboard_Stats(t *testing.T) {
	f := newFixture(t)
	assert.Nil(t, f.service.Stats())

	f.service.apply(context.Background(), feed.Message{
		Kind:  feed.KindStats,
		Stats: &models.DashboardStats{ActiveSources: 1, ComplianceRate: 92.5},
	})

	require.NotNil(t, f.service.Stats())
	assert.Equal(t, 92.5, f.service.Stats().ComplianceRate)
	require.Len(t, f.display.stats, 1)
	assert.Equal(t, 1, f.display.stats[0].ActiveSources)
}

func TestDashboard_NilArchive(t *testing.T) {
	service := NewDashboardService(&fakeSourceAPI{}, nil, &recordingDisplay{}, nil, clockwork.NewFakeClockAt(epoch), DashboardConfig{})

	service.apply(context.Background(), detection("cam-1", "NO-Hardhat", 0.99, time.Second))
	assert.Equal(t, 1, service.Window().Len())
}

func TestDashboard_StartKeepsArrivalOrder(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stopped := make(chan struct{})
	go func() {
		f.service.Start(ctx)
		close(stopped)
	}()

	violations := []string{"NO-Hardhat", "NO-Mask", "NO-Safety Vest", "NO-Hardhat"}
	for i, violation := range violations {
		f.service.Handle(detection("cam-1", violation, 0.5, time.Duration(10-i)*time.Second))
	}

	require.Eventually(t, func() bool { return f.service.Window().Len() == len(violations) },
		time.Second, 5*time.Millisecond)

	events := f.service.Window().Events()
	for i, violation := range violations {
		assert.Equal(t, violation, events[i].ViolationType)
	}

	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("dashboard did not stop")
	}

	// Handle must not block once the loop has exited
	for i := 0; i < 200; i++ {
		f.service.Handle(detection("cam-1", "NO-Hardhat", 0.5, time.Second))
	}
}

func TestDashboard_AddSource(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.AddSource(ctx, "Dock", models.SourceTypeStream, "  ")
	assert.ErrorIs(t, err, api.ErrEmptyPath)
	assert.Empty(t, f.api.created)

	source, err := f.service.AddSource(ctx, "Dock", models.SourceTypeStream, "rtsp://dock")
	require.NoError(t, err)
	assert.Equal(t, "cam-9", source.ID)
	assert.Len(t, f.service.Sources(), 2)

	f.api.err = &api.Error{Status: 400, Message: "Invalid stream URL"}
	_, err = f.service.AddSource(ctx, "", models.SourceTypeStream, "rtsp://bad")
	assert.Error(t, err)

	f.api.err = errors.New("connection refused")
	_, err = f.service.AddSource(ctx, "", models.SourceTypeFile, "x.mp4")
	assert.Error(t, err)

	assert.Equal(t, []string{
		"Please select a source",
		"Source added successfully",
		"Invalid stream URL",
		"Failed to add source",
	}, f.notes.Messages())
}

func TestDashboard_RemoveSource(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.api.err = errors.New("boom")
	assert.Error(t, f.service.RemoveSource(ctx, "cam-1"))
	assert.Len(t, f.service.Sources(), 1)

	f.api.err = nil
	require.NoError(t, f.service.RemoveSource(ctx, "cam-1"))
	assert.Empty(t, f.service.Sources())
	assert.Empty(t, f.service.Layout().Tracks)

	assert.Equal(t, []string{"Failed to remove source", "Source removed successfully"}, f.notes.Messages())
}

func TestDashboard_SetWindow(t *testing.T) {
	f := newFixture(t)

	f.service.apply(context.Background(), detection("cam-1", "NO-Hardhat", 0.5, 90*time.Second))
	assert.Equal(t, 1, f.service.Window().Len())

	require.NoError(t, f.service.SetWindow(time.Minute))
	assert.Equal(t, time.Minute, f.service.Layout().Window)
	assert.Equal(t, 0, f.service.Window().Len())

	assert.Error(t, f.service.SetWindow(0))
}

func TestDashboard_SaveSettings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	settings := models.Settings{EmailRecipient: "ops@example.com", EmailAlertEnabled: true, ConfidenceThreshold: 0.7}

	require.NoError(t, f.service.SaveSettings(ctx, settings))
	assert.Equal(t, []models.Settings{settings}, f.api.settings)

	f.api.err = errors.New("boom")
	assert.Error(t, f.service.SaveSettings(ctx, settings))

	assert.Equal(t, []string{"Settings saved successfully", "Failed to save settings"}, f.notes.Messages())
}

func TestDashboard_ListCaptureFiles(t *testing.T) {
	f := newFixture(t)

	files, err := f.service.ListCaptureFiles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.mp4"}, files.Videos)

	f.api.err = errors.New("boom")
	_, err = f.service.ListCaptureFiles(context.Background())
	assert.Error(t, err)
}

func TestDashboard_ExportTimeline(t *testing.T) {
	f := newFixture(t)
	f.service.apply(context.Background(), detection("cam-1", "NO-Hardhat", 0.5, 10*time.Second))

	var buf bytes.Buffer
	name, err := f.service.ExportTimeline(&buf)
	require.NoError(t, err)
	assert.Equal(t, timeline.ExportFileName(epoch), name)

	var doc struct {
		TimeRange int                      `json:"timeRange"`
		Events    []models.DetectionEvent  `json:"events"`
		Sources   map[string]models.Source `json:"sources"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, 300, doc.TimeRange)
	assert.Len(t, doc.Events, 1)
	assert.Equal(t, "Gate", doc.Sources["cam-1"].Name)
	assert.Contains(t, f.notes.Messages(), "Timeline data exported")
}
