package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultReconnectDelay is the fixed wait between a dropped stream and the next attempt
const DefaultReconnectDelay = 5 * time.Second

// ListenerConfig configures a push-channel listener
type ListenerConfig struct {
	URL            string
	HTTPClient     *http.Client // must not carry a response timeout
	ReconnectDelay time.Duration
	Clock          clockwork.Clock
}

// Listener keeps exactly one server-sent-events connection open and
// dispatches decoded messages to its handler in arrival order.
type Listener struct {
	url     string
	client  *http.Client
	delay   time.Duration
	clock   clockwork.Clock
	handler Handler

	open func(ctx context.Context) (io.ReadCloser, error)
}

// NewListener creates a listener. Zero config fields take defaults.
func NewListener(cfg ListenerConfig, handler Handler) *Listener {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}

	l := &Listener{
		url:     cfg.URL,
		client:  cfg.HTTPClient,
		delay:   cfg.ReconnectDelay,
		clock:   cfg.Clock,
		handler: handler,
	}
	l.open = l.openStream
	return l
}

// Run connects and reconnects until ctx is cancelled. Every disconnect,
// including a clean end of stream, is followed by the same fixed delay.
func (l *Listener) Run(ctx context.Context) error {
	for {
		if err := l.listenOnce(ctx); err != nil && ctx.Err() == nil {
			log.Printf("Feed: connection lost: %v", err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		log.Printf("Feed: reconnecting in %v", l.delay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.clock.After(l.delay):
		}
	}
}

func (l *Listener) listenOnce(ctx context.Context) error {
	body, err := l.open(ctx)
	if err != nil {
		return err
	}
	defer body.Close()

	log.Printf("Feed: connected to %s", l.url)

	err = readEvents(body, l.dispatch)
	if err != nil {
		return fmt.Errorf("failed to read event stream: %w", err)
	}
	return io.EOF
}

func (l *Listener) dispatch(ev sseEvent) {
	msg, err := Decode(ev.Name, ev.Data, "")
	if err != nil {
		var unknown *ErrUnknownKind
		if errors.As(err, &unknown) {
			return
		}
		log.Printf("Feed: skipping malformed %s event: %v", ev.Name, err)
		return
	}

	if l.handler != nil {
		l.handler(msg)
	}
}

func (l *Listener) openStream(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return resp.Body, nil
}
