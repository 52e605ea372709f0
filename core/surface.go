package core

import (
	"context"

	"pkt.systems/tabshell/schema"
)

// Surface is an isolated page-rendering context owned by exactly one tab.
// URL and Title return the last values observed and never block.
type Surface interface {
	ID() schema.TabID
	URL() string
	Title() string
	// Navigate loads url and returns the url the surface ended up on.
	// Load failures satisfy errors.Is(err, schema.ErrNavigation).
	Navigate(ctx context.Context, url string) (string, error)
	CanGoBack(ctx context.Context) (bool, error)
	CanGoForward(ctx context.Context) (bool, error)
	Back(ctx context.Context) error
	Forward(ctx context.Context) error
	Reload(ctx context.Context) error
	// Evaluate runs script in the page and decodes its result into out.
	Evaluate(ctx context.Context, script string, out any) error
	SetBounds(ctx context.Context, bounds schema.Bounds) error
	SetVisible(ctx context.Context, visible bool) error
	// Close destroys the surface. Listeners registered by the surface stop with it.
	Close() error
}

// SurfaceEventFunc receives raw surface events in emission order.
type SurfaceEventFunc func(event schema.SurfaceEvent)

// SurfaceOptions configures a new surface.
type SurfaceOptions struct {
	TabID schema.TabID
	// StartURL begins loading as soon as the surface exists; creation does not wait for it.
	StartURL string
	OnEvent  SurfaceEventFunc
}

// SurfaceFactory builds surfaces.
type SurfaceFactory interface {
	NewSurface(ctx context.Context, opts SurfaceOptions) (Surface, error)
}
