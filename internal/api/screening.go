package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ry4ntr1/ppe-violation-detection/internal/models"
)

type detectRequest struct {
	Image      string `json:"image"` // JPEG data URL
	EmployeeID string `json:"employee_id,omitempty"`
}

type positionRequest struct {
	Image string `json:"image"`
}

// detections accepts both {"detections": [...]} and a bare array
type detections []models.Detection

func (d *detections) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var list []models.Detection
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*d = list
		return nil
	}

	var wrapped struct {
		Detections []models.Detection `json:"detections"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	*d = wrapped.Detections
	return nil
}

// Detect submits one frame for PPE detection
func (c *Client) Detect(ctx context.Context, image, employeeID string) ([]models.Detection, error) {
	var result detections
	req := detectRequest{Image: image, EmployeeID: employeeID}
	if err := c.do(ctx, http.MethodPost, "/api/screening/detect", req, &result); err != nil {
		return nil, err
	}
	if result == nil {
		return []models.Detection{}, nil
	}
	return result, nil
}

// CheckPosition submits one frame for the person-position check
func (c *Client) CheckPosition(ctx context.Context, image string) (*models.PositionCheck, error) {
	var check models.PositionCheck
	if err := c.do(ctx, http.MethodPost, "/api/screening/check-position", positionRequest{Image: image}, &check); err != nil {
		return nil, err
	}
	return &check, nil
}

// ListSites returns the screening locations
func (c *Client) ListSites(ctx context.Context) ([]models.Site, error) {
	var sites []models.Site
	if err := c.do(ctx, http.MethodGet, "/api/screening/sites", nil, &sites); err != nil {
		return nil, err
	}
	return sites, nil
}

// ListRequirements returns the PPE checklist
func (c *Client) ListRequirements(ctx context.Context) ([]models.PPERequirement, error) {
	var requirements []models.PPERequirement
	if err := c.do(ctx, http.MethodGet, "/api/screening/requirements", nil, &requirements); err != nil {
		return nil, err
	}
	return requirements, nil
}

// CompleteScreening submits a finished screening
func (c *Client) CompleteScreening(ctx context.Context, record models.ScreeningRecord) error {
	if record.EmployeeID == "" {
		return fmt.Errorf("screening record without employee_id")
	}
	return c.do(ctx, http.MethodPost, "/api/screening/complete", record, nil)
}
