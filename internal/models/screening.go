package models

// PPERequirement is one item on the screening checklist
type PPERequirement struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Icon     string `json:"icon" yaml:"icon"`
	Required bool   `json:"required" yaml:"required"`
}

// Site is a screening location
type Site struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// MethodImageUpload marks records produced from an uploaded image
const MethodImageUpload = "image_upload"

// ScreeningRecord is the body submitted when a screening completes
type ScreeningRecord struct {
	EmployeeID    string          `json:"employee_id"`
	Site          string          `json:"site"`
	Timestamp     string          `json:"timestamp"` // RFC3339, UTC
	Passed        bool            `json:"passed"`
	DetectedPPE   []string        `json:"detected_ppe"`
	MissingPPE    []string        `json:"missing_ppe"`
	AllDetections map[string]bool `json:"all_detections"`
	Method        string          `json:"method,omitempty"`
}
