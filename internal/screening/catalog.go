package screening

import (
	"context"
	"errors"
	"log"

	"github.com/ry4ntr1/ppe-violation-detection/internal/cache"
	"github.com/ry4ntr1/ppe-violation-detection/internal/models"
	"github.com/ry4ntr1/ppe-violation-detection/pkg/config"
)

const (
	sitesKey        = "kiosk:sites"
	requirementsKey = "kiosk:requirements"
)

// CatalogSource lists the screening sites and requirements
type CatalogSource interface {
	ListSites(ctx context.Context) ([]models.Site, error)
	ListRequirements(ctx context.Context) ([]models.PPERequirement, error)
}

// Catalog resolves sites and requirements: the API first, then the last
// value the API returned, then the configured defaults.
type Catalog struct {
	source   CatalogSource
	store    cache.Store
	defaults config.KioskDefaults
}

// NewCatalog creates a catalog. store may be nil.
func NewCatalog(source CatalogSource, store cache.Store, defaults config.KioskDefaults) *Catalog {
	return &Catalog{source: source, store: store, defaults: defaults}
}

// Sites never fails; it degrades to the defaults
func (c *Catalog) Sites(ctx context.Context) []models.Site {
	sites, err := c.source.ListSites(ctx)
	if err == nil {
		c.remember(ctx, sitesKey, sites)
		return sites
	}
	log.Printf("Catalog: failed to load sites: %v", err)

	var cached []models.Site
	if c.recall(ctx, sitesKey, &cached) {
		return cached
	}
	return append([]models.Site(nil), c.defaults.Sites...)
}

// Requirements never fails; it degrades to the defaults
func (c *Catalog) Requirements(ctx context.Context) []models.PPERequirement {
	requirements, err := c.source.ListRequirements(ctx)
	if err == nil {
		c.remember(ctx, requirementsKey, requirements)
		return requirements
	}
	log.Printf("Catalog: failed to load requirements: %v", err)

	var cached []models.PPERequirement
	if c.recall(ctx, requirementsKey, &cached) {
		return cached
	}
	return append([]models.PPERequirement(nil), c.defaults.Requirements...)
}

func (c *Catalog) remember(ctx context.Context, key string, value any) {
	if c.store == nil {
		return
	}
	if err := c.store.Set(ctx, key, value, 0); err != nil {
		log.Printf("Catalog: failed to cache %s: %v", key, err)
	}
}

func (c *Catalog) recall(ctx context.Context, key string, out any) bool {
	if c.store == nil {
		return false
	}
	err := c.store.Get(ctx, key, out)
	if err == nil {
		log.Printf("Catalog: using cached %s", key)
		return true
	}
	if !errors.Is(err, cache.ErrMiss) {
		log.Printf("Catalog: failed to read cached %s: %v", key, err)
	}
	return false
}
