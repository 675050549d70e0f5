package terminal

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/ry4ntr1/ppe-violation-detection/internal/models"
	"github.com/ry4ntr1/ppe-violation-detection/internal/timeline"
)

// DefaultColumns is the track width when neither the config nor $COLUMNS set one
const DefaultColumns = 60

// nameWidth is the width of the source label column
const nameWidth = 18

// Dashboard draws the violation timeline as text
type Dashboard struct {
	printer
	columns int
	clear   bool
}

// NewDashboard creates a timeline surface. A non-positive width is read from
// $COLUMNS, leaving room for the label column.
func NewDashboard(out io.Writer, width int, clear bool) *Dashboard {
	if width <= 0 {
		width = columnsFromEnv()
	}
	return &Dashboard{
		printer: printer{out: out},
		columns: width,
		clear:   clear,
	}
}

func columnsFromEnv() int {
	cols, err := strconv.Atoi(os.Getenv("COLUMNS"))
	if err != nil || cols <= nameWidth+20 {
		return DefaultColumns
	}
	return cols - nameWidth - 20
}

// Width implements timeline.Surface
func (d *Dashboard) Width() float64 {
	return float64(d.columns)
}

// Draw implements timeline.Surface
func (d *Dashboard) Draw(layout timeline.Layout) error {
	var b strings.Builder
	if d.clear {
		b.WriteString(clearScreen)
	}

	fmt.Fprintf(&b, "%s  %s\n", bold.Sprint("Violation timeline"),
		faint.Sprintf("window %s, %s", timeline.FormatDuration(layout.Window.Seconds()), layout.RenderedAt.Format("15:04:05")))

	if len(layout.Tracks) == 0 {
		b.WriteString(faint.Sprint("No sources registered") + "\n")
	}

	for _, track := range layout.Tracks {
		b.WriteString(d.trackLine(track, layout.Width))
		b.WriteByte('\n')
	}

	b.WriteString(d.axisLine(layout.Axis))
	b.WriteByte('\n')

	return d.write(b.String())
}

func (d *Dashboard) trackLine(track timeline.Track, width float64) string {
	cells := make([]string, d.columns)
	for i := range cells {
		cells[i] = faint.Sprint("·")
	}

	for _, marker := range track.Markers {
		col := int(marker.Position / width * float64(d.columns))
		if col >= d.columns {
			col = d.columns - 1
		}
		if col < 0 {
			continue
		}
		glyph, c := markerGlyph(marker.Class)
		cells[col] = c.Sprint(glyph)
	}

	dot := red.Sprint("○")
	if track.Active {
		dot = green.Sprint("●")
	}

	return fmt.Sprintf("%s %-*s %s %s",
		dot,
		nameWidth, truncate(track.Name, nameWidth),
		strings.Join(cells, ""),
		faint.Sprintf("%5.1f fps %3d", track.FPS, track.ViolationCount),
	)
}

// axisLine places tick labels under the track, oldest on the left. The end
// labels are placed first; inner labels that would overlap are dropped.
func (d *Dashboard) axisLine(ticks []timeline.AxisTick) string {
	line := []rune(strings.Repeat(" ", d.columns+8))
	used := make([]bool, len(line))

	ordered := ticks
	if len(ticks) > 2 {
		ordered = append([]timeline.AxisTick{ticks[0], ticks[len(ticks)-1]}, ticks[1:len(ticks)-1]...)
	}

	for _, tick := range ordered {
		label := []rune(tick.Label)
		start := int(tick.Offset/100*float64(d.columns-1)) - len(label)/2
		if start < 0 {
			start = 0
		}
		if start+len(label) > len(line) {
			start = len(line) - len(label)
		}
		if overlaps(used, start-1, start+len(label)+1) {
			continue
		}
		copy(line[start:], label)
		for i := start; i < start+len(label); i++ {
			used[i] = true
		}
	}
	return strings.Repeat(" ", nameWidth+3) + strings.TrimRight(string(line), " ")
}

func overlaps(used []bool, from, to int) bool {
	for i := from; i < to; i++ {
		if i >= 0 && i < len(used) && used[i] {
			return true
		}
	}
	return false
}

// markerGlyph maps a violation class to a glyph and colour
func markerGlyph(class string) (string, *color.Color) {
	switch class {
	case "no-hardhat":
		return "H", red
	case "no-safety-vest", "no-safety":
		return "V", yellow
	case "no-mask":
		return "M", magenta
	default:
		return "!", red
	}
}

// ShowStats prints the aggregate counters
func (d *Dashboard) ShowStats(stats models.DashboardStats) {
	last := "never"
	if stats.LastDetection != nil {
		last = stats.LastDetection.Format("15:04:05")
	}
	d.printf("%s active sources %d, active violations %d, compliance %s, last detection %s\n",
		bold.Sprint("Stats:"),
		stats.ActiveSources,
		stats.ActiveViolations,
		complianceColor(stats.ComplianceRate).Sprintf("%.1f%%", stats.ComplianceRate),
		last,
	)
}

func complianceColor(rate float64) *color.Color {
	switch {
	case rate >= 90:
		return green
	case rate >= 70:
		return yellow
	default:
		return red
	}
}

// ShowSources prints the registry contents
func (d *Dashboard) ShowSources(sources []models.Source) {
	if len(sources) == 0 {
		d.printf("%s\n", faint.Sprint("No sources registered"))
		return
	}
	var b strings.Builder
	for _, src := range sources {
		fmt.Fprintf(&b, "  %-12s %-*s %-6s %-8s %s\n", src.ID, nameWidth, truncate(src.Name, nameWidth), src.Type, src.Status, src.Path)
	}
	d.write(b.String())
}

// ShowFiles prints the capture files the server can open
func (d *Dashboard) ShowFiles(videos []string, current string) {
	var b strings.Builder
	for _, video := range videos {
		marker := " "
		if video == current {
			marker = "*"
		}
		fmt.Fprintf(&b, " %s %s\n", marker, video)
	}
	if len(videos) == 0 {
		b.WriteString(faint.Sprint("No capture files") + "\n")
	}
	d.write(b.String())
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
