package terminal

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"

	"github.com/ry4ntr1/ppe-violation-detection/internal/notify"
)

// clearScreen homes the cursor and clears the display
const clearScreen = "\033[H\033[2J"

var (
	red     = color.New(color.FgRed)
	green   = color.New(color.FgGreen)
	yellow  = color.New(color.FgYellow)
	cyan    = color.New(color.FgCyan)
	magenta = color.New(color.FgMagenta)
	faint   = color.New(color.Faint)
	bold    = color.New(color.Bold)
)

// printer serialises writes to one output
type printer struct {
	mu  sync.Mutex
	out io.Writer
}

func (p *printer) printf(format string, args ...interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, format, args...)
}

func (p *printer) write(s string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := io.WriteString(p.out, s)
	return err
}

// Notify prints a notification line coloured by level
func (p *printer) Notify(n notify.Notification) {
	stamp := n.Time.Format("15:04:05")
	p.printf("%s %s\n", faint.Sprintf("[%s]", stamp), levelColor(n.Level).Sprint(n.Message))
}

func levelColor(level notify.Level) *color.Color {
	switch level {
	case notify.LevelSuccess:
		return green
	case notify.LevelWarning:
		return yellow
	case notify.LevelError:
		return red
	default:
		return cyan
	}
}
