package core

import (
	"context"

	"pkt.systems/tabshell/internal/logx"
	"pkt.systems/tabshell/schema"
)

// compositor tracks which surfaces are attached to the window. It only ever
// holds ids of registered tabs; closing a tab detaches it first.
type compositor struct {
	attached map[schema.TabID]struct{}
	order    []schema.TabID
}

func newCompositor() *compositor {
	return &compositor{attached: make(map[schema.TabID]struct{})}
}

// replace attaches exactly ids and returns the ids that were attached before but not now.
func (c *compositor) replace(ids []schema.TabID) []schema.TabID {
	next := make(map[schema.TabID]struct{}, len(ids))
	order := make([]schema.TabID, 0, len(ids))
	for _, id := range ids {
		if _, dup := next[id]; dup {
			continue
		}
		next[id] = struct{}{}
		order = append(order, id)
	}
	var detached []schema.TabID
	for _, id := range c.order {
		if _, keep := next[id]; !keep {
			detached = append(detached, id)
		}
	}
	c.attached = next
	c.order = order
	return detached
}

// attach adds id to the attached set and reports whether it was newly attached.
func (c *compositor) attach(id schema.TabID) bool {
	if _, ok := c.attached[id]; ok {
		return false
	}
	c.attached[id] = struct{}{}
	c.order = append(c.order, id)
	return true
}

// detach removes id and reports whether it was attached.
func (c *compositor) detach(id schema.TabID) bool {
	if _, ok := c.attached[id]; !ok {
		return false
	}
	delete(c.attached, id)
	c.order = removeTabID(c.order, id)
	return true
}

func (c *compositor) detachAll() []schema.TabID {
	detached := append([]schema.TabID(nil), c.order...)
	c.attached = make(map[schema.TabID]struct{})
	c.order = nil
	return detached
}

func (c *compositor) isAttached(id schema.TabID) bool {
	_, ok := c.attached[id]
	return ok
}

func (c *compositor) attachedIDs() []schema.TabID {
	return append([]schema.TabID{}, c.order...)
}

// resolveBounds fills missing fields with chrome-relative defaults: the area
// below the toolbar spanning the full window width.
func resolveBounds(cfg schema.ShellConfig, patch schema.BoundsPatch) schema.Bounds {
	bounds := schema.Bounds{
		X:      0,
		Y:      cfg.ChromeHeight,
		Width:  cfg.WindowWidth,
		Height: cfg.WindowHeight - cfg.ChromeHeight,
	}
	if patch.X != nil {
		bounds.X = *patch.X
	}
	if patch.Y != nil {
		bounds.Y = *patch.Y
	}
	if patch.Width != nil {
		bounds.Width = *patch.Width
	}
	if patch.Height != nil {
		bounds.Height = *patch.Height
	}
	if bounds.Width < 1 {
		bounds.Width = 1
	}
	if bounds.Height < 1 {
		bounds.Height = 1
	}
	return bounds
}

func (s *service) SetVisibleTabs(ctx context.Context, req schema.SetViewsRequest) (schema.SetViewsResponse, error) {
	s.mu.Lock()
	resolved := s.surfacesLocked(req.TabIDs)
	ids := make([]schema.TabID, 0, len(resolved))
	for _, t := range resolved {
		ids = append(ids, t.ID)
	}
	detached := s.surfacesLocked(s.compositor.replace(ids))
	attached := s.surfacesLocked(s.compositor.attachedIDs())
	s.mu.Unlock()

	s.setVisible(ctx, detached, false)
	s.setVisible(ctx, attached, true)
	logx.Ctx(ctx).Debug("shell views set", "requested", len(req.TabIDs), "attached", len(attached), "detached", len(detached))
	return schema.SetViewsResponse{Attached: tabIDs(attached)}, nil
}

func (s *service) Hide(ctx context.Context, req schema.HideRequest) (schema.HideResponse, error) {
	s.mu.Lock()
	var detached []*tab
	if req.TabID != "" {
		if t := s.tabs[req.TabID]; t != nil && s.compositor.detach(t.ID) {
			detached = append(detached, t)
		}
	} else {
		detached = s.surfacesLocked(s.compositor.detachAll())
	}
	s.mu.Unlock()

	s.setVisible(ctx, detached, false)
	logx.WithTab(ctx, req.TabID).Debug("shell views hidden", "detached", len(detached))
	return schema.HideResponse{Detached: tabIDs(detached)}, nil
}

func (s *service) Show(ctx context.Context, req schema.ShowRequest) (schema.ShowResponse, error) {
	s.mu.Lock()
	t := s.activeLocked()
	if t != nil {
		s.compositor.attach(t.ID)
	}
	s.mu.Unlock()
	if t == nil {
		logx.Ctx(ctx).Debug("shell show ignored", "reason", "no active tab")
		return schema.ShowResponse{}, nil
	}
	s.setVisible(ctx, []*tab{t}, true)
	return schema.ShowResponse{Shown: true}, nil
}

func (s *service) UpdateBounds(ctx context.Context, req schema.UpdateBoundsRequest) (schema.UpdateBoundsResponse, error) {
	s.mu.Lock()
	var t *tab
	if req.TabID != "" {
		t = s.tabs[req.TabID]
	} else {
		t = s.activeLocked()
	}
	s.mu.Unlock()
	if t == nil {
		logx.WithTab(ctx, req.TabID).Debug("shell bounds ignored", "reason", "unknown tab")
		return schema.UpdateBoundsResponse{}, nil
	}
	bounds := resolveBounds(s.cfg, req.Bounds)
	log := logx.WithTab(ctx, t.ID)
	if err := t.surface.SetBounds(ctx, bounds); err != nil {
		log.Warn("shell bounds update failed", "err", err)
		return schema.UpdateBoundsResponse{Bounds: bounds}, nil
	}
	log.Trace("shell bounds updated", "x", bounds.X, "y", bounds.Y, "width", bounds.Width, "height", bounds.Height)
	return schema.UpdateBoundsResponse{Applied: true, Bounds: bounds}, nil
}

func tabIDs(tabs []*tab) []schema.TabID {
	ids := make([]schema.TabID, 0, len(tabs))
	for _, t := range tabs {
		ids = append(ids, t.ID)
	}
	return ids
}
