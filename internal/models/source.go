package models

// SourceStatus is the reported state of a camera source
type SourceStatus string

const (
	StatusActive   SourceStatus = "active"
	StatusInactive SourceStatus = "inactive"
)

// Source types accepted by the create endpoint
const (
	SourceTypeFile   = "file"
	SourceTypeStream = "stream"
)

// Source represents a monitored camera or video file
type Source struct {
	ID     string       `json:"id"`
	Name   string       `json:"name"`
	Type   string       `json:"type"` // "file" or "stream"
	Path   string       `json:"path"`
	Status SourceStatus `json:"status"`
	FPS    float64      `json:"fps"`
}

// Active reports whether the source is currently processing frames
func (s Source) Active() bool {
	return s.Status == StatusActive
}

// SourceUpdate is the payload of the "source_update" event
type SourceUpdate struct {
	SourceID string       `json:"source_id"`
	Status   SourceStatus `json:"status"`
	FPS      float64      `json:"fps"`
}

// CreateSourceRequest is the body of the create-source call. An empty name
// lets the server generate one.
type CreateSourceRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Path string `json:"path"`
}

// Settings holds the alerting settings pushed to the server
type Settings struct {
	EmailRecipient      string  `json:"email_recipient"`
	EmailAlertEnabled   bool    `json:"email_alert_enabled"`
	ConfidenceThreshold float64 `json:"confidence_threshold"` // 0-1
}
