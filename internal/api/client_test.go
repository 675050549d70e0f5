package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ry4ntr1/ppe-violation-detection/internal/models"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL+"/", server.Client())
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestClient_ListSources(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/sources", r.URL.Path)
		writeJSON(w, http.StatusOK, []map[string]any{
			{"id": "cam-1", "name": "Gate", "type": "stream", "path": "rtsp://gate", "status": "active", "fps": 15},
		})
	})

	sources, err := client.ListSources(context.Background())
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "Gate", sources[0].Name)
	assert.True(t, sources[0].Active())
}

func TestClient_CreateSource(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req models.CreateSourceRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "", req.Name)
		assert.Equal(t, "file", req.Type)
		writeJSON(w, http.StatusOK, map[string]any{
			"id": "src-2", "name": "Site Walk", "type": req.Type, "path": req.Path, "status": "inactive", "fps": 0,
		})
	})

	source, err := client.CreateSource(context.Background(), models.CreateSourceRequest{
		Name: "  ", Type: models.SourceTypeFile, Path: "site_walk.mp4",
	})
	require.NoError(t, err)
	assert.Equal(t, "src-2", source.ID)
	assert.Equal(t, "Site Walk", source.Name)
}

func TestClient_CreateSourceRequiresPath(t *testing.T) {
	client := NewClient("http://unused", nil)

	_, err := client.CreateSource(context.Background(), models.CreateSourceRequest{Type: "stream", Path: " "})
	assert.ErrorIs(t, err, ErrEmptyPath)
}

func TestClient_ErrorBody(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid video file type"})
	})

	_, err := client.CreateSource(context.Background(), models.CreateSourceRequest{Type: "file", Path: "notes.txt"})

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Invalid video file type", apiErr.Message)
	assert.Equal(t, "Invalid video file type", Message(err, "Failed to add source"))
}

func TestClient_ErrorWithoutBody(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	err := client.DeleteSource(context.Background(), "cam-1")

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Empty(t, apiErr.Message)
	assert.Equal(t, "Failed to remove source", Message(err, "Failed to remove source"))
}

func TestClient_DeleteSourceEscapesID(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/sources/a%2Fb", r.URL.EscapedPath())
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	})

	require.NoError(t, client.DeleteSource(context.Background(), "a/b"))
}

func TestClient_ListCaptureFiles(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/video_list", r.URL.Path)
		_, _ = w.Write([]byte(`{"videos": ["a.mp4", "b.mp4"], "current": "a.mp4"}`))
	})

	files, err := client.ListCaptureFiles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.mp4", "b.mp4"}, files.Videos)
	assert.Equal(t, "a.mp4", files.Current)
}

func TestClient_Detect(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"wrapped", `{"detections": [{"class": "Hardhat", "confidence": 0.9, "bbox": [1, 2, 3, 4]}]}`},
		{"bare array", `[{"class": "Hardhat", "confidence": 0.9, "bbox": [1, 2, 3, 4]}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				var req map[string]string
				require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.Equal(t, "data:image/jpeg;base64,AAAA", req["image"])
				assert.Equal(t, "E-100", req["employee_id"])
				_, _ = w.Write([]byte(tt.body))
			})

			detections, err := client.Detect(context.Background(), "data:image/jpeg;base64,AAAA", "E-100")
			require.NoError(t, err)
			require.Len(t, detections, 1)
			assert.Equal(t, "Hardhat", detections[0].Class)
			assert.Equal(t, [4]float64{1, 2, 3, 4}, detections[0].BBox)
		})
	}
}

func TestClient_DetectEmpty(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"detections": null}`))
	})

	detections, err := client.Detect(context.Background(), "x", "")
	require.NoError(t, err)
	assert.NotNil(t, detections)
	assert.Empty(t, detections)
}

func TestClient_CheckPosition(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/screening/check-position", r.URL.Path)
		_, _ = w.Write([]byte(`{"person_detected": true, "position_ok": false, "message": "Move closer"}`))
	})

	check, err := client.CheckPosition(context.Background(), "x")
	require.NoError(t, err)
	assert.True(t, check.PersonDetected)
	assert.False(t, check.PositionOK)
	assert.Equal(t, "Move closer", check.Message)
}

func TestClient_Catalog(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/screening/sites":
			_, _ = w.Write([]byte(`[{"id": "dock", "name": "Dock"}]`))
		case "/api/screening/requirements":
			_, _ = w.Write([]byte(`[{"id": "hardhat", "name": "Hard Hat", "icon": "ri-shield-line", "required": true}]`))
		default:
			http.NotFound(w, r)
		}
	})

	sites, err := client.ListSites(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.Site{{ID: "dock", Name: "Dock"}}, sites)

	requirements, err := client.ListRequirements(context.Background())
	require.NoError(t, err)
	require.Len(t, requirements, 1)
	assert.True(t, requirements[0].Required)
}

func TestClient_CompleteScreening(t *testing.T) {
	var got map[string]any
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/screening/complete", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	})

	err := client.CompleteScreening(context.Background(), models.ScreeningRecord{
		EmployeeID:    "E-1",
		Site:          "dock",
		Timestamp:     "2024-05-01T12:00:00Z",
		Passed:        true,
		DetectedPPE:   []string{"hardhat"},
		MissingPPE:    []string{},
		AllDetections: map[string]bool{"hardhat": true},
	})
	require.NoError(t, err)

	assert.Equal(t, "E-1", got["employee_id"])
	assert.Equal(t, []any{}, got["missing_ppe"])
	assert.NotContains(t, got, "method")
}

func TestClient_UpdateSettings(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		var settings models.Settings
		require.NoError(t, json.NewDecoder(r.Body).Decode(&settings))
		assert.Equal(t, "ops@example.com", settings.EmailRecipient)
		assert.InDelta(t, 0.6, settings.ConfidenceThreshold, 1e-9)
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	})

	err := client.UpdateSettings(context.Background(), models.Settings{
		EmailRecipient: "ops@example.com", EmailAlertEnabled: true, ConfidenceThreshold: 0.6,
	})
	require.NoError(t, err)
}
