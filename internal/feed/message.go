package feed

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ry4ntr1/ppe-violation-detection/internal/models"
)

// Kind is the event name carried by the push channel
type Kind string

const (
	KindDetection    Kind = "detection"
	KindSourceUpdate Kind = "source_update"
	KindStats        Kind = "stats"
)

// Message is one decoded push-channel event. Exactly one payload field is set.
type Message struct {
	Kind         Kind
	Detection    *models.DetectionEvent
	SourceUpdate *models.SourceUpdate
	Stats        *models.DashboardStats
}

// Handler receives decoded messages in arrival order
type Handler func(Message)

// ErrUnknownKind is returned for event names the dashboard does not handle
type ErrUnknownKind struct {
	Name string
}

func (e *ErrUnknownKind) Error() string {
	return fmt.Sprintf("unknown event type %q", e.Name)
}

// detectionPayload is the wire shape of a "detection" event
type detectionPayload struct {
	SourceID      string   `json:"source_id"`
	Timestamp     string   `json:"timestamp"`
	ViolationType string   `json:"violation_type"`
	Confidence    *float64 `json:"confidence"`
	EventID       *string  `json:"event_id"`
	FrameNumber   *int64   `json:"frame_number"`
}

// statsPayload is the wire shape of a "stats" event
type statsPayload struct {
	ActiveSources    int      `json:"active_sources"`
	ActiveViolations int      `json:"active_violations"`
	ComplianceRate   *float64 `json:"compliance_rate"`
	LastDetection    *string  `json:"last_detection"`
}

// Decode turns one named payload into a Message. fallbackSourceID is used
// when a detection or source update carries no source id (e.g. MQTT topic).
func Decode(name string, data []byte, fallbackSourceID string) (Message, error) {
	switch Kind(strings.TrimSpace(name)) {
	case KindDetection:
		return decodeDetection(data, fallbackSourceID)
	case KindSourceUpdate:
		return decodeSourceUpdate(data, fallbackSourceID)
	case KindStats:
		return decodeStats(data)
	default:
		return Message{}, &ErrUnknownKind{Name: name}
	}
}

func decodeDetection(data []byte, fallbackSourceID string) (Message, error) {
	var payload detectionPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return Message{}, fmt.Errorf("failed to unmarshal detection: %w", err)
	}

	if payload.SourceID == "" {
		payload.SourceID = fallbackSourceID
	}
	if payload.SourceID == "" {
		return Message{}, fmt.Errorf("detection without source_id")
	}
	if payload.Confidence == nil {
		return Message{}, fmt.Errorf("detection without confidence")
	}

	timestamp, err := models.ParseTimestamp(payload.Timestamp)
	if err != nil {
		return Message{}, fmt.Errorf("invalid detection timestamp: %w", err)
	}

	event := &models.DetectionEvent{
		SourceID:      payload.SourceID,
		Timestamp:     timestamp,
		ViolationType: payload.ViolationType,
		Confidence:    *payload.Confidence,
	}
	if payload.EventID != nil {
		event.EventID = *payload.EventID
	}
	if payload.FrameNumber != nil && *payload.FrameNumber > 0 {
		event.FrameNumber = *payload.FrameNumber
	}

	return Message{Kind: KindDetection, Detection: event}, nil
}

func decodeSourceUpdate(data []byte, fallbackSourceID string) (Message, error) {
	var update models.SourceUpdate
	if err := json.Unmarshal(data, &update); err != nil {
		return Message{}, fmt.Errorf("failed to unmarshal source update: %w", err)
	}

	if update.SourceID == "" {
		update.SourceID = fallbackSourceID
	}
	if update.SourceID == "" {
		return Message{}, fmt.Errorf("source update without source_id")
	}

	return Message{Kind: KindSourceUpdate, SourceUpdate: &update}, nil
}

func decodeStats(data []byte) (Message, error) {
	var payload statsPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return Message{}, fmt.Errorf("failed to unmarshal stats: %w", err)
	}
	if payload.ComplianceRate == nil {
		return Message{}, fmt.Errorf("stats without compliance_rate")
	}

	stats := &models.DashboardStats{
		ActiveSources:    payload.ActiveSources,
		ActiveViolations: payload.ActiveViolations,
		ComplianceRate:   *payload.ComplianceRate,
	}
	if payload.LastDetection != nil && *payload.LastDetection != "" {
		last, err := models.ParseTimestamp(*payload.LastDetection)
		if err != nil {
			return Message{}, fmt.Errorf("invalid last_detection: %w", err)
		}
		stats.LastDetection = &last
	}

	return Message{Kind: KindStats, Stats: stats}, nil
}
