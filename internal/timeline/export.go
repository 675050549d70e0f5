package timeline

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/ry4ntr1/ppe-violation-detection/internal/models"
)

// Export is the JSON document written by the timeline export action
type Export struct {
	TimeRange  int                      `json:"timeRange"` // seconds
	Events     []models.DetectionEvent  `json:"events"`
	Sources    map[string]models.Source `json:"sources"`
	ExportTime time.Time                `json:"exportTime"`
}

// NewExport snapshots the window and the given sources
func NewExport(window *Window, sources []models.Source, now time.Time) Export {
	bySource := make(map[string]models.Source, len(sources))
	for _, src := range sources {
		bySource[src.ID] = src
	}
	return Export{
		TimeRange:  int(window.Retention().Seconds()),
		Events:     window.Events(),
		Sources:    bySource,
		ExportTime: now.UTC(),
	}
}

// ExportFileName returns the conventional file name for an export
func ExportFileName(now time.Time) string {
	return fmt.Sprintf("timeline_export_%d.json", now.UnixMilli())
}

// WriteTo writes the export as indented JSON
func (e Export) WriteTo(w io.Writer) (int64, error) {
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("failed to marshal timeline export: %w", err)
	}
	n, err := w.Write(data)
	return int64(n), err
}
