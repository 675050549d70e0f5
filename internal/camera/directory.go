package camera

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// DirectoryCamera replays the image files of a directory in name order
type DirectoryCamera struct {
	dir string
}

// NewDirectoryCamera creates a camera reading frames from dir
func NewDirectoryCamera(dir string) *DirectoryCamera {
	return &DirectoryCamera{dir: dir}
}

// Open lists the frames. It fails when the directory holds no images.
func (c *DirectoryCamera) Open(ctx context.Context) (Stream, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open frame directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if imageExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			files = append(files, filepath.Join(c.dir, entry.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%s: %w", c.dir, ErrNoFrames)
	}
	sort.Strings(files)

	return &directoryStream{files: files}, nil
}

type directoryStream struct {
	mu     sync.Mutex
	files  []string
	next   int
	closed bool
}

func (s *directoryStream) Capture(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	path := s.files[s.next]
	s.next = (s.next + 1) % len(s.files)
	s.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read frame: %w", err)
	}
	return data, nil
}

func (s *directoryStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
