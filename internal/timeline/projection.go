package timeline

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/ry4ntr1/ppe-violation-detection/internal/models"
)

// FallbackWidth is used when the surface cannot report its width
const FallbackWidth = 800.0

// AxisFractions are the window fractions that always get a tick mark
var AxisFractions = []float64{0, 0.25, 0.5, 0.75, 1}

// Marker is one event placed on a track
type Marker struct {
	SourceID      string
	EventID       string
	ViolationType string
	Class         string // e.g. "no-hardhat"
	Confidence    float64
	FrameNumber   int64
	Timestamp     time.Time
	Position      float64 // distance from the left edge, in surface units
}

// Track is the projection of one registered source
type Track struct {
	SourceID       string
	Name           string
	Active         bool
	FPS            float64
	ViolationCount int
	Markers        []Marker
}

// AxisTick is a labelled tick. Offset is a percentage from the left edge.
type AxisTick struct {
	Fraction float64
	Offset   float64
	Label    string
}

// Layout is the full draw list for one render
type Layout struct {
	RenderedAt time.Time
	Window     time.Duration
	Width      float64
	Tracks     []Track
	Axis       []AxisTick
}

// Project places events on one track per source. It is pure: the same
// inputs always yield the same layout. Events of sources absent from the
// list are never drawn.
func Project(events []models.DetectionEvent, sources []models.Source, window time.Duration, now time.Time, width float64) Layout {
	if width <= 0 || math.IsNaN(width) {
		width = FallbackWidth
	}

	layout := Layout{
		RenderedAt: now,
		Window:     window,
		Width:      width,
		Tracks:     make([]Track, 0, len(sources)),
		Axis:       Axis(window),
	}

	bySource := make(map[string][]models.DetectionEvent)
	for _, event := range events {
		bySource[event.SourceID] = append(bySource[event.SourceID], event)
	}

	windowMs := float64(window.Milliseconds())
	for _, src := range sources {
		sourceEvents := bySource[src.ID]
		track := Track{
			SourceID:       src.ID,
			Name:           src.Name,
			Active:         src.Active(),
			FPS:            src.FPS,
			ViolationCount: len(sourceEvents),
		}

		for _, event := range sourceEvents {
			if windowMs <= 0 {
				break
			}
			ageMs := float64(now.Sub(event.Timestamp).Milliseconds())
			position := (windowMs - ageMs) / windowMs * width
			if position <= 0 {
				continue
			}
			track.Markers = append(track.Markers, Marker{
				SourceID:      event.SourceID,
				EventID:       event.EventID,
				ViolationType: event.ViolationType,
				Class:         ViolationClass(event.ViolationType),
				Confidence:    event.Confidence,
				FrameNumber:   event.FrameNumber,
				Timestamp:     event.Timestamp,
				Position:      position,
			})
		}

		layout.Tracks = append(layout.Tracks, track)
	}

	return layout
}

// Axis returns the fixed tick marks for a window
func Axis(window time.Duration) []AxisTick {
	ticks := make([]AxisTick, 0, len(AxisFractions))
	for _, fraction := range AxisFractions {
		ticks = append(ticks, AxisTick{
			Fraction: fraction,
			Offset:   (1 - fraction) * 100,
			Label:    FormatDuration(fraction * window.Seconds()),
		})
	}
	return ticks
}

// FormatDuration labels an age in seconds with the largest unit that keeps
// the value at or above one: "Now", "45s", "5m", "2h".
func FormatDuration(seconds float64) string {
	switch {
	case seconds == 0:
		return "Now"
	case seconds < 60:
		return strconv.FormatFloat(seconds, 'f', -1, 64) + "s"
	case seconds < 3600:
		return strconv.Itoa(int(math.Floor(seconds/60))) + "m"
	default:
		return strconv.Itoa(int(math.Floor(seconds/3600))) + "h"
	}
}

// ViolationClass derives the marker class from a violation type: lower case
// with the first space replaced by a dash.
func ViolationClass(violationType string) string {
	return strings.Replace(strings.ToLower(violationType), " ", "-", 1)
}
