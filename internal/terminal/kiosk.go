package terminal

import (
	"fmt"
	"io"
	"strings"

	"github.com/ry4ntr1/ppe-violation-detection/internal/models"
	"github.com/ry4ntr1/ppe-violation-detection/internal/screening"
)

// Kiosk renders the screening view as text
type Kiosk struct {
	printer
	lastGuide screening.PositionGuide
}

// NewKiosk creates a kiosk view writing to out
func NewKiosk(out io.Writer) *Kiosk {
	return &Kiosk{printer: printer{out: out}}
}

func (k *Kiosk) ShowChecklist(items []screening.ChecklistItem) {
	var b strings.Builder
	for _, item := range items {
		mark := faint.Sprint("…")
		switch item.Status {
		case screening.StatusDetected:
			mark = green.Sprint("✓")
		case screening.StatusNotDetected:
			mark = red.Sprint("✗")
		}
		required := ""
		if !item.Required {
			required = faint.Sprint(" (optional)")
		}
		fmt.Fprintf(&b, "  %s %-14s %s%s\n", mark, item.Name, item.Status, required)
	}
	k.write(b.String())
}

func (k *Kiosk) ShowStatus(status screening.Status) {
	if status.Passing {
		k.printf("%s\n", green.Sprint(status.Message))
		return
	}
	k.printf("%s\n", yellow.Sprint(status.Message))
}

func (k *Kiosk) ShowOverlay(boxes []screening.OverlayBox) {
	if len(boxes) == 0 {
		return
	}
	labels := make([]string, 0, len(boxes))
	for _, box := range boxes {
		c := cyan
		switch box.Color {
		case screening.ColorViolation:
			c = red
		case screening.ColorPPE:
			c = green
		}
		labels = append(labels, c.Sprint(box.Label))
	}
	k.printf("  %s %s\n", faint.Sprint("boxes:"), strings.Join(labels, ", "))
}

// ShowGuide prints the position guide when it changes
func (k *Kiosk) ShowGuide(guide screening.PositionGuide) {
	k.mu.Lock()
	if guide == k.lastGuide {
		k.mu.Unlock()
		return
	}
	k.lastGuide = guide
	k.mu.Unlock()

	c := yellow
	switch guide.Level {
	case screening.GuideSuccess:
		c = green
	case screening.GuideError:
		c = red
	}
	k.printf("%s %s\n", faint.Sprint("position:"), c.Sprint(guide.Message))
}

func (k *Kiosk) ShowResult(record models.ScreeningRecord) {
	var b strings.Builder
	if record.Passed {
		b.WriteString(green.Sprint("Screening passed") + "\n")
	} else {
		b.WriteString(red.Sprint("Screening failed") + "\n")
	}
	fmt.Fprintf(&b, "  employee %s at %s, %s\n", record.EmployeeID, record.Site, record.Timestamp)
	if len(record.DetectedPPE) > 0 {
		fmt.Fprintf(&b, "  detected: %s\n", strings.Join(record.DetectedPPE, ", "))
	}
	if len(record.MissingPPE) > 0 {
		fmt.Fprintf(&b, "  missing: %s\n", strings.Join(record.MissingPPE, ", "))
	}
	k.write(b.String())
}

func (k *Kiosk) Reset() {
	k.mu.Lock()
	k.lastGuide = screening.PositionGuide{}
	k.mu.Unlock()
	k.printf("%s\n", faint.Sprint("Ready for next screening"))
}

// ShowSites lists the selectable sites
func (k *Kiosk) ShowSites(sites []models.Site) {
	var b strings.Builder
	for _, site := range sites {
		fmt.Fprintf(&b, "  %-22s %s\n", site.ID, site.Name)
	}
	k.write(b.String())
}
