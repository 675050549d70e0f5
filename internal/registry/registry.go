package registry

import (
	"log"
	"sync"

	"github.com/ry4ntr1/ppe-violation-detection/internal/models"
)

// Registry holds the last-known display state of every source, keyed by id.
// Iteration follows insertion order so projections are stable.
type Registry struct {
	mu      sync.RWMutex
	sources map[string]*models.Source
	order   []string
}

// New creates an empty source registry
func New() *Registry {
	return &Registry{
		sources: make(map[string]*models.Source),
	}
}

// Load replaces the registry contents with the given sources
func (r *Registry) Load(sources []models.Source) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sources = make(map[string]*models.Source, len(sources))
	r.order = r.order[:0]
	for _, src := range sources {
		r.putLocked(src)
	}
}

// Put inserts a source or replaces the entry with the same id
func (r *Registry) Put(src models.Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.putLocked(src)
}

func (r *Registry) putLocked(src models.Source) {
	if src.ID == "" {
		log.Printf("Registry: ignoring source without id (name=%q)", src.Name)
		return
	}
	if _, exists := r.sources[src.ID]; !exists {
		r.order = append(r.order, src.ID)
	}
	copied := src
	r.sources[src.ID] = &copied
}

// Remove deletes a source. It reports whether the id was present.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sources[id]; !exists {
		return false
	}
	delete(r.sources, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// ApplyUpdate mutates status and fps in place. Updates for unknown ids are
// ignored and reported as false.
func (r *Registry) ApplyUpdate(update models.SourceUpdate) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	src, exists := r.sources[update.SourceID]
	if !exists {
		return false
	}
	src.Status = update.Status
	src.FPS = update.FPS
	return true
}

// Get returns a copy of the source with the given id
func (r *Registry) Get(id string) (models.Source, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	src, exists := r.sources[id]
	if !exists {
		return models.Source{}, false
	}
	return *src, true
}

// Name returns the display name of a source, or "Unknown"
func (r *Registry) Name(id string) string {
	if src, ok := r.Get(id); ok {
		return src.Name
	}
	return "Unknown"
}

// List returns copies of all sources in insertion order
func (r *Registry) List() []models.Source {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sources := make([]models.Source, 0, len(r.order))
	for _, id := range r.order {
		sources = append(sources, *r.sources[id])
	}
	return sources
}

// Len returns the number of registered sources
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
