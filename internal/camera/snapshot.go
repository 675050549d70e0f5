package camera

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
)

const maxSnapshotSize = 16 << 20

// SnapshotCamera fetches a still image from an HTTP endpoint per capture
type SnapshotCamera struct {
	url    string
	client *http.Client
}

// NewSnapshotCamera creates a camera for url
func NewSnapshotCamera(url string, client *http.Client) *SnapshotCamera {
	if client == nil {
		client = http.DefaultClient
	}
	return &SnapshotCamera{url: url, client: client}
}

// Open probes the endpoint once so an unreachable camera fails the session up front
func (c *SnapshotCamera) Open(ctx context.Context) (Stream, error) {
	stream := &snapshotStream{camera: c}
	if _, err := c.fetch(ctx); err != nil {
		return nil, fmt.Errorf("failed to probe camera: %w", err)
	}
	return stream, nil
}

func (c *SnapshotCamera) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("snapshot returned %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSnapshotSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrNoFrames
	}
	return data, nil
}

type snapshotStream struct {
	camera *SnapshotCamera
	closed atomic.Bool
}

func (s *snapshotStream) Capture(ctx context.Context) ([]byte, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	return s.camera.fetch(ctx)
}

func (s *snapshotStream) Close() error {
	s.closed.Store(true)
	return nil
}
