package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/ry4ntr1/ppe-violation-detection/internal/models"
)

// CaptureFiles is the response of the capture-file listing
type CaptureFiles struct {
	Videos  []string `json:"videos"`
	Current string   `json:"current"`
}

// ListSources returns every configured source
func (c *Client) ListSources(ctx context.Context) ([]models.Source, error) {
	var sources []models.Source
	if err := c.do(ctx, http.MethodGet, "/api/sources", nil, &sources); err != nil {
		return nil, err
	}
	return sources, nil
}

// CreateSource adds a source. The server names it when req.Name is empty.
func (c *Client) CreateSource(ctx context.Context, req models.CreateSourceRequest) (*models.Source, error) {
	req.Name = strings.TrimSpace(req.Name)
	if strings.TrimSpace(req.Path) == "" {
		return nil, ErrEmptyPath
	}

	var source models.Source
	if err := c.do(ctx, http.MethodPost, "/api/sources", req, &source); err != nil {
		return nil, err
	}
	return &source, nil
}

// DeleteSource removes a source by id
func (c *Client) DeleteSource(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/sources/"+escape(id), nil, nil)
}

// ListCaptureFiles returns the video files the server can open as sources
func (c *Client) ListCaptureFiles(ctx context.Context) (*CaptureFiles, error) {
	var files CaptureFiles
	if err := c.do(ctx, http.MethodGet, "/video_list", nil, &files); err != nil {
		return nil, err
	}
	if files.Videos == nil {
		files.Videos = []string{}
	}
	return &files, nil
}

// UpdateSettings pushes the alerting settings
func (c *Client) UpdateSettings(ctx context.Context, settings models.Settings) error {
	return c.do(ctx, http.MethodPost, "/api/settings", settings, nil)
}
