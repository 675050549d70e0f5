package models

import (
	"fmt"
	"strings"
	"time"
)

// DetectionEvent represents a PPE violation pushed by the live feed
type DetectionEvent struct {
	SourceID      string    `json:"source_id"`
	Timestamp     time.Time `json:"timestamp"`
	ViolationType string    `json:"violation_type"` // e.g. "NO-Hardhat"
	Confidence    float64   `json:"confidence"`     // 0-1
	EventID       string    `json:"event_id"`       // may be empty
	FrameNumber   int64     `json:"frame_number"`
}

// DashboardStats represents the aggregate counters pushed on the "stats" event
type DashboardStats struct {
	ActiveSources    int        `json:"active_sources"`
	ActiveViolations int        `json:"active_violations"`
	ComplianceRate   float64    `json:"compliance_rate"` // Percentage 0-100
	LastDetection    *time.Time `json:"last_detection,omitempty"`
}

// Detection is a single labelled box returned by the detection endpoint
type Detection struct {
	Class      string     `json:"class"`
	Confidence float64    `json:"confidence"` // 0-1
	BBox       [4]float64 `json:"bbox"`       // x1, y1, x2, y2
}

// IsViolation reports whether the model labelled the box as missing PPE
func (d Detection) IsViolation() bool {
	return strings.HasPrefix(d.Class, "NO-")
}

// PositionCheck is the response of the position-check endpoint
type PositionCheck struct {
	PersonDetected bool   `json:"person_detected"`
	PositionOK     bool   `json:"position_ok"`
	Message        string `json:"message,omitempty"`
}

// Layouts accepted for wire timestamps. The server emits Python isoformat()
// values which may carry no zone offset.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// ParseTimestamp parses a wire timestamp. Values without a zone are read in local time.
func ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}

	for i, layout := range timestampLayouts {
		var (
			t   time.Time
			err error
		)
		if i == 0 {
			t, err = time.Parse(layout, value)
		} else {
			t, err = time.ParseInLocation(layout, value, time.Local)
		}
		if err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", value)
}
