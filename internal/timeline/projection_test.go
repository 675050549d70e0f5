package timeline

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ry4ntr1/ppe-violation-detection/internal/models"
)

func sources(ids ...string) []models.Source {
	list := make([]models.Source, 0, len(ids))
	for _, id := range ids {
		list = append(list, models.Source{ID: id, Name: "Camera " + id, Status: models.StatusActive})
	}
	return list
}

func TestProject_PositionScenario(t *testing.T) {
	clock := clockwork.NewFakeClockAt(epoch)
	w := NewWindow(clock, 300*time.Second)
	w.Append(event("cam-1", epoch.Add(-400*time.Second)))
	w.Append(event("cam-1", epoch.Add(-100*time.Second)))

	layout := Project(w.Events(), sources("cam-1"), w.Retention(), epoch, 600)

	require.Len(t, layout.Tracks, 1)
	require.Len(t, layout.Tracks[0].Markers, 1)
	assert.InDelta(t, (300000.0-100000.0)/300000.0*600, layout.Tracks[0].Markers[0].Position, 1e-9)
	assert.InDelta(t, 400.0, layout.Tracks[0].Markers[0].Position, 1e-9)
}

func TestProject_ShrunkWindowHidesOlderEvents(t *testing.T) {
	clock := clockwork.NewFakeClockAt(epoch)
	w := NewWindow(clock, 10*time.Minute)
	w.Append(event("cam-1", epoch.Add(-5*time.Minute)))
	w.Append(event("cam-1", epoch.Add(-30*time.Second)))

	w.SetWindow(time.Minute)

	// not pruned yet, but still not drawn
	layout := Project(w.Events(), sources("cam-1"), w.Retention(), epoch, 800)
	require.Len(t, layout.Tracks[0].Markers, 1)
	assert.Equal(t, epoch.Add(-30*time.Second), layout.Tracks[0].Markers[0].Timestamp)
}

func TestProject_IsIdempotent(t *testing.T) {
	events := []models.DetectionEvent{
		event("cam-1", epoch.Add(-10*time.Second)),
		event("cam-2", epoch.Add(-20*time.Second)),
		event("cam-1", epoch.Add(-200*time.Second)),
	}

	first := Project(events, sources("cam-1", "cam-2"), 5*time.Minute, epoch, 1024)
	second := Project(events, sources("cam-1", "cam-2"), 5*time.Minute, epoch, 1024)

	assert.Equal(t, first, second)
}

func TestProject_SkipsUnregisteredSources(t *testing.T) {
	events := []models.DetectionEvent{
		event("cam-1", epoch.Add(-10*time.Second)),
		event("ghost", epoch.Add(-10*time.Second)),
	}

	layout := Project(events, sources("cam-1"), time.Minute, epoch, 800)

	require.Len(t, layout.Tracks, 1)
	assert.Equal(t, "cam-1", layout.Tracks[0].SourceID)
	assert.Len(t, layout.Tracks[0].Markers, 1)
}

func TestProject_EmptyTracksStillDrawn(t *testing.T) {
	layout := Project(nil, sources("cam-1", "cam-2"), time.Minute, epoch, 800)

	require.Len(t, layout.Tracks, 2)
	assert.Empty(t, layout.Tracks[0].Markers)
	assert.Len(t, layout.Axis, 5)
}

func TestProject_FallbackWidth(t *testing.T) {
	events := []models.DetectionEvent{event("cam-1", epoch.Add(-30*time.Second))}

	layout := Project(events, sources("cam-1"), time.Minute, epoch, 0)

	assert.Equal(t, FallbackWidth, layout.Width)
	assert.InDelta(t, 400.0, layout.Tracks[0].Markers[0].Position, 1e-9)
}

func TestProject_ViolationCountIncludesHiddenEvents(t *testing.T) {
	events := []models.DetectionEvent{
		event("cam-1", epoch.Add(-10*time.Second)),
		event("cam-1", epoch.Add(-2*time.Minute)),
	}

	layout := Project(events, sources("cam-1"), time.Minute, epoch, 800)

	assert.Equal(t, 2, layout.Tracks[0].ViolationCount)
	assert.Len(t, layout.Tracks[0].Markers, 1)
}

func TestAxis_Labels(t *testing.T) {
	tests := []struct {
		window time.Duration
		labels []string
	}{
		{5 * time.Minute, []string{"Now", "1m", "2m", "3m", "5m"}},
		{time.Minute, []string{"Now", "15s", "30s", "45s", "1m"}},
		{30 * time.Second, []string{"Now", "7.5s", "15s", "22.5s", "30s"}},
		{2 * time.Hour, []string{"Now", "30m", "1h", "1h", "2h"}},
	}

	for _, tt := range tests {
		t.Run(tt.window.String(), func(t *testing.T) {
			axis := Axis(tt.window)

			labels := make([]string, 0, len(axis))
			for _, tick := range axis {
				labels = append(labels, tick.Label)
			}
			assert.Equal(t, tt.labels, labels)
			assert.Equal(t, 100.0, axis[0].Offset)
			assert.Equal(t, 0.0, axis[4].Offset)
		})
	}
}

func TestViolationClass(t *testing.T) {
	assert.Equal(t, "no-hardhat", ViolationClass("NO-Hardhat"))
	assert.Equal(t, "no-safety-vest", ViolationClass("NO-Safety Vest"))
	assert.Equal(t, "a-b c", ViolationClass("A B C"))
}
