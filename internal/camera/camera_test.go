package camera

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPNG(t *testing.T, shade uint8) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			img.Set(x, y, color.RGBA{R: shade, G: shade, B: shade, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDirectoryCamera_CyclesInNameOrder(t *testing.T) {
	dir := t.TempDir()
	first := testPNG(t, 10)
	second := testPNG(t, 200)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.png"), second, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.PNG"), first, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0o644))

	stream, err := NewDirectoryCamera(dir).Open(context.Background())
	require.NoError(t, err)
	defer stream.Close()

	var frames [][]byte
	for i := 0; i < 3; i++ {
		frame, err := stream.Capture(context.Background())
		require.NoError(t, err)
		frames = append(frames, frame)
	}

	assert.Equal(t, first, frames[0])
	assert.Equal(t, second, frames[1])
	assert.Equal(t, first, frames[2])
}

func TestDirectoryCamera_EmptyDirectory(t *testing.T) {
	_, err := NewDirectoryCamera(t.TempDir()).Open(context.Background())
	assert.ErrorIs(t, err, ErrNoFrames)

	_, err = NewDirectoryCamera(filepath.Join(t.TempDir(), "missing")).Open(context.Background())
	assert.Error(t, err)
}

func TestDirectoryCamera_CaptureAfterClose(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.png"), testPNG(t, 1), 0o644))

	stream, err := NewDirectoryCamera(dir).Open(context.Background())
	require.NoError(t, err)
	require.NoError(t, stream.Close())

	_, err = stream.Capture(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSnapshotCamera(t *testing.T) {
	frame := testPNG(t, 50)
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		_, _ = w.Write(frame)
	}))
	defer server.Close()

	stream, err := NewSnapshotCamera(server.URL, server.Client()).Open(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, requests, "open probes once")

	got, err := stream.Capture(context.Background())
	require.NoError(t, err)
	assert.Equal(t, frame, got)

	require.NoError(t, stream.Close())
	_, err = stream.Capture(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSnapshotCamera_Unavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "denied", http.StatusForbidden)
	}))
	defer server.Close()

	_, err := NewSnapshotCamera(server.URL, server.Client()).Open(context.Background())
	assert.Error(t, err)
}

type countingCamera struct {
	opened, closed int
	err            error
}

func (c *countingCamera) Open(context.Context) (Stream, error) {
	if c.err != nil {
		return nil, c.err
	}
	c.opened++
	return &countingStream{camera: c}, nil
}

type countingStream struct {
	camera *countingCamera
}

func (s *countingStream) Capture(context.Context) ([]byte, error) { return nil, nil }

func (s *countingStream) Close() error {
	s.camera.closed++
	return nil
}

func TestExclusive(t *testing.T) {
	inner := &countingCamera{}
	device := NewExclusive(inner)

	stream, err := device.Open(context.Background())
	require.NoError(t, err)
	assert.True(t, device.Held())

	_, err = device.Open(context.Background())
	assert.ErrorIs(t, err, ErrDeviceBusy)

	require.NoError(t, stream.Close())
	require.NoError(t, stream.Close())
	assert.Equal(t, 1, inner.closed, "close is idempotent")
	assert.False(t, device.Held())

	again, err := device.Open(context.Background())
	require.NoError(t, err)
	defer again.Close()
	assert.Equal(t, 2, inner.opened)
}

func TestExclusive_ReleasesOnOpenFailure(t *testing.T) {
	device := NewExclusive(&countingCamera{err: errors.New("permission denied")})

	_, err := device.Open(context.Background())
	require.Error(t, err)
	assert.False(t, device.Held())
}

func TestEncodeDataURL(t *testing.T) {
	url, err := EncodeDataURL(testPNG(t, 128), DetectionQuality)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, "data:image/jpeg;base64,"))

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(url, "data:image/jpeg;base64,"))
	require.NoError(t, err)
	_, err = jpeg.Decode(bytes.NewReader(raw))
	assert.NoError(t, err)
}

func TestEncodeDataURL_RejectsNonImage(t *testing.T) {
	_, err := EncodeDataURL([]byte("%PDF-1.4 not an image"), PositionQuality)
	assert.ErrorIs(t, err, ErrNotImage)

	assert.False(t, IsImage([]byte("hello")))
	assert.True(t, IsImage(testPNG(t, 0)))
}
