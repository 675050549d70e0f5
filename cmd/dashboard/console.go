package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ry4ntr1/ppe-violation-detection/internal/api"
	"github.com/ry4ntr1/ppe-violation-detection/internal/models"
)

const usage = `commands:
  window <duration>                 set the timeline window, e.g. 15m
  sources                           list sources
  files                             list capture files on the server
  add <file|stream> <path> [name]   add a source
  remove <id>                       remove a source
  settings <email> <on|off> <pct>   save alert settings
  export [path]                     write the timeline as JSON
  history [duration]                archived violations per source
  quit
`

var errQuit = errors.New("quit")

// dashboardActions is what the console drives
type dashboardActions interface {
	LoadSources(ctx context.Context) error
	Sources() []models.Source
	AddSource(ctx context.Context, name, sourceType, path string) (*models.Source, error)
	RemoveSource(ctx context.Context, id string) error
	ListCaptureFiles(ctx context.Context) (*api.CaptureFiles, error)
	SetWindow(window time.Duration) error
	SaveSettings(ctx context.Context, settings models.Settings) error
	ExportTimeline(w io.Writer) (string, error)
}

type listing interface {
	ShowSources(sources []models.Source)
	ShowFiles(videos []string, current string)
}

type violationHistory interface {
	ViolationCounts(ctx context.Context, since time.Time) (map[string]uint64, error)
}

type console struct {
	dashboard dashboardActions
	display   listing
	history   violationHistory // may be nil
	out       io.Writer
	dir       string // where exports are written
	now       func() time.Time
}

func (c *console) run(ctx context.Context, scanner *bufio.Scanner) {
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		err := c.exec(ctx, scanner.Text())
		if errors.Is(err, errQuit) {
			return
		}
		if err != nil {
			fmt.Fprintf(c.out, "error: %v\n", err)
		}
	}
}

func (c *console) exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	cmd, args := fields[0], fields[1:]
	switch cmd {
	case "help", "?":
		fmt.Fprint(c.out, usage)
		return nil

	case "quit", "exit":
		return errQuit

	case "window":
		if len(args) != 1 {
			return errors.New("usage: window <duration>")
		}
		window, err := time.ParseDuration(args[0])
		if err != nil {
			return fmt.Errorf("invalid window: %w", err)
		}
		return c.dashboard.SetWindow(window)

	case "sources":
		if err := c.dashboard.LoadSources(ctx); err != nil {
			return err
		}
		c.display.ShowSources(c.dashboard.Sources())
		return nil

	case "files":
		files, err := c.dashboard.ListCaptureFiles(ctx)
		if err != nil {
			return err
		}
		c.display.ShowFiles(files.Videos, files.Current)
		return nil

	case "add":
		if len(args) < 1 {
			return errors.New("usage: add <file|stream> <path> [name]")
		}
		sourceType := args[0]
		if sourceType != models.SourceTypeFile && sourceType != models.SourceTypeStream {
			return fmt.Errorf("unknown source type %q", sourceType)
		}
		var path, name string
		if len(args) > 1 {
			path = args[1]
		}
		if len(args) > 2 {
			name = strings.Join(args[2:], " ")
		}
		_, err := c.dashboard.AddSource(ctx, name, sourceType, path)
		return err

	case "remove":
		if len(args) != 1 {
			return errors.New("usage: remove <id>")
		}
		return c.dashboard.RemoveSource(ctx, args[0])

	case "settings":
		settings, err := parseSettings(args)
		if err != nil {
			return err
		}
		return c.dashboard.SaveSettings(ctx, settings)

	case "export":
		return c.export(args)

	case "history":
		return c.showHistory(ctx, args)
	}

	return fmt.Errorf("unknown command %q, try 'help'", cmd)
}

func parseSettings(args []string) (models.Settings, error) {
	if len(args) != 3 {
		return models.Settings{}, errors.New("usage: settings <email> <on|off> <pct>")
	}

	var enabled bool
	switch args[1] {
	case "on":
		enabled = true
	case "off":
	default:
		return models.Settings{}, fmt.Errorf("alerts must be on or off, got %q", args[1])
	}

	pct, err := strconv.ParseFloat(args[2], 64)
	if err != nil || pct < 0 || pct > 100 {
		return models.Settings{}, fmt.Errorf("confidence must be a percentage, got %q", args[2])
	}

	return models.Settings{
		EmailRecipient:      args[0],
		EmailAlertEnabled:   enabled,
		ConfidenceThreshold: pct / 100,
	}, nil
}

func (c *console) export(args []string) error {
	path := ""
	if len(args) > 0 {
		path = args[0]
	}

	tmp, err := os.CreateTemp(c.dir, "timeline_export_*.json")
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer os.Remove(tmp.Name())

	name, err := c.dashboard.ExportTimeline(tmp)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}

	if path == "" {
		path = filepath.Join(c.dir, name)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	fmt.Fprintf(c.out, "exported to %s\n", path)
	return nil
}

func (c *console) showHistory(ctx context.Context, args []string) error {
	if c.history == nil {
		return errors.New("archive is not configured")
	}

	since := time.Hour
	if len(args) > 0 {
		d, err := time.ParseDuration(args[0])
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}
		since = d
	}

	counts, err := c.history.ViolationCounts(ctx, c.now().Add(-since))
	if err != nil {
		return err
	}

	if len(counts) == 0 {
		fmt.Fprintf(c.out, "no archived violations in the last %v\n", since)
		return nil
	}
	for _, src := range c.dashboard.Sources() {
		if n, ok := counts[src.ID]; ok {
			fmt.Fprintf(c.out, "  %-18s %d\n", src.Name, n)
			delete(counts, src.ID)
		}
	}
	for id, n := range counts {
		fmt.Fprintf(c.out, "  %-18s %d\n", id, n)
	}
	return nil
}
