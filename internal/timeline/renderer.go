package timeline

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/ry4ntr1/ppe-violation-detection/internal/models"
)

// DefaultTick is the re-render cadence of the timeline
const DefaultTick = time.Second

// Surface is where a layout gets drawn. Width returns 0 when the surface
// cannot measure itself.
type Surface interface {
	Width() float64
	Draw(layout Layout) error
}

// SourceLister supplies the registered sources in display order
type SourceLister interface {
	List() []models.Source
}

// Renderer re-projects the window onto a surface on a fixed tick and on demand
type Renderer struct {
	window  *Window
	sources SourceLister
	surface Surface
	clock   clockwork.Clock
	tick    time.Duration

	mu   sync.Mutex
	last Layout
}

// NewRenderer creates a renderer. A non-positive tick uses DefaultTick.
func NewRenderer(window *Window, sources SourceLister, surface Surface, clock clockwork.Clock, tick time.Duration) *Renderer {
	if tick <= 0 {
		tick = DefaultTick
	}
	return &Renderer{
		window:  window,
		sources: sources,
		surface: surface,
		clock:   clock,
		tick:    tick,
	}
}

// Render prunes the window, projects it at the current instant and draws
// the result. Renders are serialised.
func (r *Renderer) Render() Layout {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	r.window.Prune(now)

	layout := Project(r.window.Events(), r.sources.List(), r.window.Retention(), now, r.surface.Width())
	r.last = layout

	if err := r.surface.Draw(layout); err != nil {
		log.Printf("Timeline: draw failed: %v", err)
	}

	return layout
}

// Last returns the most recent layout
func (r *Renderer) Last() Layout {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// Run renders once and then on every tick until the context is cancelled
func (r *Renderer) Run(ctx context.Context) {
	log.Printf("Timeline: rendering every %v", r.tick)

	ticker := r.clock.NewTicker(r.tick)
	defer ticker.Stop()

	r.Render()

	for {
		select {
		case <-ctx.Done():
			log.Println("Timeline: renderer stopped")
			return
		case <-ticker.Chan():
			r.Render()
		}
	}
}
