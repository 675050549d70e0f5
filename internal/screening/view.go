package screening

import (
	"fmt"
	"math"
	"strings"

	"github.com/ry4ntr1/ppe-violation-detection/internal/models"
)

// ItemStatus is the label shown next to a checklist item
type ItemStatus string

const (
	StatusChecking    ItemStatus = "Checking..."
	StatusAnalyzing   ItemStatus = "Analyzing..."
	StatusDetected    ItemStatus = "Detected"
	StatusNotDetected ItemStatus = "Not Detected"
)

// MissingIcon replaces a requirement's icon while it is not detected
const MissingIcon = "ri-close-line"

// Overlay colours
const (
	ColorViolation = "#ef4444"
	ColorPPE       = "#22c55e"
	ColorOther     = "#3b82f6"
)

// GuideLevel is the severity of the position guide
type GuideLevel string

const (
	GuideSuccess GuideLevel = "success"
	GuideWarning GuideLevel = "warning"
	GuideError   GuideLevel = "error"
)

// ChecklistItem is one projected checklist row
type ChecklistItem struct {
	ID       string
	Name     string
	Icon     string
	Required bool
	Status   ItemStatus
}

// Status is the overall screening banner
type Status struct {
	Passing bool
	Message string
}

// OverlayBox is one labelled detection box
type OverlayBox struct {
	BBox  [4]float64
	Label string // "<class> <pct>%"
	Color string
}

// PositionGuide is the projected position-check result
type PositionGuide struct {
	Level   GuideLevel
	Message string
}

// View is the kiosk surface. Calls arrive from session goroutines but never
// concurrently for one session.
type View interface {
	ShowChecklist(items []ChecklistItem)
	ShowStatus(status Status)
	ShowOverlay(boxes []OverlayBox)
	ShowGuide(guide PositionGuide)
	ShowResult(record models.ScreeningRecord)
	Reset()
}

// PendingChecklist lists every requirement with the same status
func PendingChecklist(requirements []models.PPERequirement, status ItemStatus) []ChecklistItem {
	items := make([]ChecklistItem, 0, len(requirements))
	for _, req := range requirements {
		items = append(items, ChecklistItem{
			ID:       req.ID,
			Name:     req.Name,
			Icon:     req.Icon,
			Required: req.Required,
			Status:   status,
		})
	}
	return items
}

// Checklist projects a snapshot onto the requirement list
func Checklist(requirements []models.PPERequirement, snap Snapshot) []ChecklistItem {
	items := PendingChecklist(requirements, StatusNotDetected)
	for i := range items {
		if snap.Detected[items[i].ID] {
			items[i].Status = StatusDetected
		} else {
			items[i].Icon = MissingIcon
		}
	}
	return items
}

// StatusOf returns the banner for a snapshot
func StatusOf(snap Snapshot) Status {
	if snap.Passing {
		return Status{Passing: true, Message: "All required PPE detected!"}
	}

	names := make([]string, 0, len(snap.Missing))
	for _, req := range snap.Missing {
		names = append(names, req.Name)
	}
	return Status{Message: "Missing: " + strings.Join(names, ", ")}
}

// Overlay projects detections onto colour-coded boxes
func Overlay(detections []models.Detection) []OverlayBox {
	boxes := make([]OverlayBox, 0, len(detections))
	for _, d := range detections {
		boxes = append(boxes, OverlayBox{
			BBox:  d.BBox,
			Label: fmt.Sprintf("%s %d%%", d.Class, int(math.Round(d.Confidence*100))),
			Color: colorFor(d),
		})
	}
	return boxes
}

func colorFor(d models.Detection) string {
	if d.IsViolation() {
		return ColorViolation
	}
	switch d.Class {
	case "Hardhat", "Safety Vest", "Safety", "Mask":
		return ColorPPE
	}
	return ColorOther
}

// Guide projects a position check
func Guide(check models.PositionCheck) PositionGuide {
	switch {
	case !check.PersonDetected:
		return PositionGuide{Level: GuideError, Message: "No person detected. Please step into view"}
	case check.PositionOK:
		return PositionGuide{Level: GuideSuccess, Message: "Perfect! Stay in position"}
	case check.Message != "":
		return PositionGuide{Level: GuideWarning, Message: check.Message}
	default:
		return PositionGuide{Level: GuideWarning, Message: "Please adjust your position"}
	}
}

type nopView struct{}

func (nopView) ShowChecklist([]ChecklistItem)     {}
func (nopView) ShowStatus(Status)                 {}
func (nopView) ShowOverlay([]OverlayBox)          {}
func (nopView) ShowGuide(PositionGuide)           {}
func (nopView) ShowResult(models.ScreeningRecord) {}
func (nopView) Reset()                            {}
