package config

import (
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ry4ntr1/ppe-violation-detection/internal/models"
)

// KioskDefaults are the fallback sites and requirements used when the API
// and the cache are both unavailable
type KioskDefaults struct {
	Sites        []models.Site           `yaml:"sites"`
	Requirements []models.PPERequirement `yaml:"requirements"`
}

// BuiltinKioskDefaults returns the defaults compiled into the kiosk
func BuiltinKioskDefaults() KioskDefaults {
	return KioskDefaults{
		Sites: []models.Site{
			{ID: "main-entrance", Name: "Main Entrance"},
			{ID: "warehouse-a", Name: "Warehouse A"},
			{ID: "construction-site-1", Name: "Construction Site 1"},
		},
		Requirements: []models.PPERequirement{
			{ID: "hardhat", Name: "Hard Hat", Icon: "ri-shield-line", Required: true},
			{ID: "safety-vest", Name: "Safety Vest", Icon: "ri-shirt-line", Required: true},
		},
	}
}

// LoadKioskDefaults reads a YAML defaults file. An empty path returns the
// builtin defaults; sections missing from the file keep their builtin value.
func LoadKioskDefaults(path string) (KioskDefaults, error) {
	defaults := BuiltinKioskDefaults()
	if path == "" {
		return defaults, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return defaults, fmt.Errorf("failed to read kiosk defaults: %w", err)
	}

	var fromFile KioskDefaults
	if err := yaml.Unmarshal(data, &fromFile); err != nil {
		return defaults, fmt.Errorf("failed to unmarshal kiosk defaults: %w", err)
	}

	if len(fromFile.Sites) > 0 {
		defaults.Sites = fromFile.Sites
	}
	if len(fromFile.Requirements) > 0 {
		defaults.Requirements = fromFile.Requirements
	}

	log.Printf("Config: loaded kiosk defaults from %s (%d sites, %d requirements)",
		path, len(defaults.Sites), len(defaults.Requirements))

	return defaults, nil
}
