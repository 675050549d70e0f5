package camera

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrDeviceBusy is returned when the device is already held by another session
	ErrDeviceBusy = errors.New("capture device is busy")
	// ErrNoFrames is returned when a device has nothing to capture
	ErrNoFrames = errors.New("capture device has no frames")
	// ErrClosed is returned by Capture after Close
	ErrClosed = errors.New("capture stream is closed")
)

// Camera is a capture device that can be opened for a session
type Camera interface {
	Open(ctx context.Context) (Stream, error)
}

// Stream is an open capture device.
//
// Close is idempotent and must be called on every exit path.
type Stream interface {
	Capture(ctx context.Context) ([]byte, error)
	Close() error
}

// Exclusive allows at most one open stream of the wrapped camera
type Exclusive struct {
	camera Camera

	mu   sync.Mutex
	held bool
}

// NewExclusive wraps camera with a device lock
func NewExclusive(camera Camera) *Exclusive {
	return &Exclusive{camera: camera}
}

// Open acquires the device lock and opens the wrapped camera
func (e *Exclusive) Open(ctx context.Context) (Stream, error) {
	e.mu.Lock()
	if e.held {
		e.mu.Unlock()
		return nil, ErrDeviceBusy
	}
	e.held = true
	e.mu.Unlock()

	stream, err := e.camera.Open(ctx)
	if err != nil {
		e.release()
		return nil, err
	}

	return &exclusiveStream{Stream: stream, owner: e}, nil
}

// Held reports whether a stream is currently open
func (e *Exclusive) Held() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.held
}

func (e *Exclusive) release() {
	e.mu.Lock()
	e.held = false
	e.mu.Unlock()
}

type exclusiveStream struct {
	Stream
	owner *Exclusive
	once  sync.Once
}

func (s *exclusiveStream) Close() error {
	var err error
	s.once.Do(func() {
		err = s.Stream.Close()
		s.owner.release()
	})
	return err
}
