package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/ry4ntr1/ppe-violation-detection/internal/models"
	"github.com/ry4ntr1/ppe-violation-detection/internal/screening"
)

const usage = `commands:
  sites                              list sites
  start <employee> <site>            start a live screening
  complete                           submit the current screening
  cancel                             abandon the current screening
  image <path> <employee> <site>     screen an image file
  quit
`

var (
	errQuit      = errors.New("quit")
	errNoSession = errors.New("no screening in progress")
)

type siteLister interface {
	ShowSites(sites []models.Site)
}

// siteCatalog is read on every command so that a failed fetch falls back
// to the last list the API returned
type siteCatalog interface {
	Sites(ctx context.Context) []models.Site
}

type console struct {
	screener *screening.Screener
	view     siteLister
	catalog  siteCatalog
	out      io.Writer

	mu      sync.Mutex
	session *screening.Session
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
	case "sites":
		c.view.ShowSites(c.catalog.Sites(ctx))
		return nil
	case "start":
		if len(args) < 2 {
			return errors.New("usage: start <employee> <site>")
		}
		return c.start(ctx, args[0], strings.Join(args[1:], " "))
	case "complete":
		sess := c.current()
		if sess == nil {
			return errNoSession
		}
		return sess.Complete(ctx)
	case "cancel":
		if !c.cancel() {
			return errNoSession
		}
		return nil
	case "image":
		if len(args) < 3 {
			return errors.New("usage: image <path> <employee> <site>")
		}
		return c.screenImage(ctx, args[0], args[1], strings.Join(args[2:], " "))
	}

	return fmt.Errorf("unknown command %q, try 'help'", cmd)
}

func (c *console) start(ctx context.Context, employee, site string) error {
	if sess := c.current(); sess != nil {
		return errors.New("a screening is already in progress")
	}

	sess, err := c.screener.Start(ctx, employee, resolveSite(c.catalog.Sites(ctx), site))
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.session = sess
	c.mu.Unlock()

	go c.await(sess)
	return nil
}

// await clears the current session once it ends
func (c *console) await(sess *screening.Session) {
	outcome := <-sess.Done()

	c.mu.Lock()
	if c.session == sess {
		c.session = nil
	}
	c.mu.Unlock()

	if outcome.Record != nil {
		log.Printf("Kiosk: screening %s saved (passed=%t)", sess.ID, outcome.Record.Passed)
	}
}

func (c *console) current() *screening.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// cancel abandons the current session. It reports whether one was running.
func (c *console) cancel() bool {
	sess := c.current()
	if sess == nil {
		return false
	}
	sess.Cancel()
	return true
}

func (c *console) screenImage(ctx context.Context, path, employee, site string) error {
	image, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	result, err := c.screener.ScreenImage(ctx, employee, resolveSite(c.catalog.Sites(ctx), site), image)
	if err != nil {
		return err
	}
	if result.Record == nil {
		fmt.Fprintln(c.out, "screening not passed, nothing saved")
	}
	return nil
}

// resolveSite maps an operator entry to a site id. Names match case-insensitively;
// unknown entries are passed through unchanged.
func resolveSite(sites []models.Site, entry string) string {
	entry = strings.TrimSpace(entry)
	for _, site := range sites {
		if site.ID == entry {
			return site.ID
		}
	}
	for _, site := range sites {
		if strings.EqualFold(site.Name, entry) {
			return site.ID
		}
	}
	return entry
}
