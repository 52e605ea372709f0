package core

import (
	"context"
	"errors"
	"sync"

	"pkt.systems/pslog"
	"pkt.systems/tabshell/internal/logx"
	"pkt.systems/tabshell/schema"
)

// service implements the core service behavior. The tab map, the active id
// and the compositor's attached set are only touched under mu; surface calls
// happen outside the lock.
type service struct {
	cfg      schema.ShellConfig
	surfaces SurfaceFactory
	history  HistoryRecorder
	sink     EventSink
	logger   pslog.Logger

	mu         sync.Mutex
	tabs       map[schema.TabID]*tab
	order      []schema.TabID
	active     schema.TabID
	compositor *compositor
	closed     bool
}

// NewService constructs the core service implementation.
func NewService(cfg schema.ShellConfig, deps ServiceDeps) (Service, error) {
	normalized, err := schema.NormalizeShellConfig(cfg)
	if err != nil {
		return nil, err
	}
	if deps.Surfaces == nil {
		return nil, errors.New("surface factory is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &service{
		cfg:        normalized,
		surfaces:   deps.Surfaces,
		history:    deps.History,
		sink:       deps.EventSink,
		logger:     logger,
		tabs:       make(map[schema.TabID]*tab),
		compositor: newCompositor(),
	}, nil
}

func (s *service) CreateTab(ctx context.Context, req schema.CreateTabRequest) (schema.CreateTabResponse, error) {
	if ctx == nil {
		return schema.CreateTabResponse{}, errors.New("missing context")
	}
	tabID, err := schema.NormalizeTabID(req.TabID)
	if err != nil {
		return schema.CreateTabResponse{}, err
	}
	log := logx.WithTab(ctx, tabID)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return schema.CreateTabResponse{}, schema.ErrServiceClosed
	}
	if existing := s.tabs[tabID]; existing != nil {
		snapshot := s.snapshotLocked(existing)
		s.mu.Unlock()
		log.Debug("shell tab exists")
		return schema.CreateTabResponse{Tab: snapshot, Existed: true}, nil
	}
	s.mu.Unlock()

	surface, err := s.surfaces.NewSurface(logx.ContextWithTabLogger(ctx, log, tabID), SurfaceOptions{
		TabID:    tabID,
		StartURL: s.cfg.StartPage,
		OnEvent:  s.forward,
	})
	if err != nil {
		log.Warn("shell tab create failed", "err", err)
		return schema.CreateTabResponse{}, err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = surface.Close()
		return schema.CreateTabResponse{}, schema.ErrServiceClosed
	}
	// A concurrent create for the same id won; keep its surface.
	if existing := s.tabs[tabID]; existing != nil {
		snapshot := s.snapshotLocked(existing)
		s.mu.Unlock()
		_ = surface.Close()
		log.Debug("shell tab exists")
		return schema.CreateTabResponse{Tab: snapshot, Existed: true}, nil
	}
	t := &tab{ID: tabID, surface: surface}
	s.tabs[tabID] = t
	s.order = append(s.order, tabID)
	snapshot := s.snapshotLocked(t)
	count := len(s.tabs)
	s.mu.Unlock()

	log.Info("shell tab created", "start_page", s.cfg.StartPage, "tabs", count)
	return schema.CreateTabResponse{Tab: snapshot}, nil
}

func (s *service) SelectTab(ctx context.Context, req schema.SelectTabRequest) (schema.SelectTabResponse, error) {
	log := logx.WithTab(ctx, req.TabID)
	s.mu.Lock()
	t := s.tabs[req.TabID]
	if t == nil {
		s.mu.Unlock()
		log.Debug("shell tab select ignored", "reason", "unknown tab")
		return schema.SelectTabResponse{}, nil
	}
	s.active = t.ID
	detached := s.surfacesLocked(s.compositor.replace([]schema.TabID{t.ID}))
	s.mu.Unlock()

	s.setVisible(ctx, detached, false)
	s.setVisible(ctx, []*tab{t}, true)
	s.emitNavigated(schema.NavigatedEvent{TabID: t.ID, URL: t.surface.URL()})
	s.emitTitleUpdated(schema.TitleUpdatedEvent{TabID: t.ID, Title: t.surface.Title()})
	log.Info("shell tab selected")
	return schema.SelectTabResponse{Selected: true}, nil
}

func (s *service) CloseTab(ctx context.Context, req schema.CloseTabRequest) (schema.CloseTabResponse, error) {
	log := logx.WithTab(ctx, req.TabID)
	s.mu.Lock()
	t := s.tabs[req.TabID]
	if t == nil {
		s.mu.Unlock()
		log.Debug("shell tab close ignored", "reason", "unknown tab")
		return schema.CloseTabResponse{}, nil
	}
	delete(s.tabs, t.ID)
	s.order = removeTabID(s.order, t.ID)
	wasActive := s.active == t.ID
	if wasActive {
		s.active = ""
	}
	wasAttached := s.compositor.detach(t.ID)
	s.mu.Unlock()

	if wasAttached {
		s.setVisible(ctx, []*tab{t}, false)
	}
	if err := t.surface.Close(); err != nil {
		log.Warn("shell tab close failed", "err", err)
	}
	log.Info("shell tab closed", "was_active", wasActive)
	return schema.CloseTabResponse{Closed: true}, nil
}

func (s *service) ListTabs(ctx context.Context, req schema.ListTabsRequest) (schema.ListTabsResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tabs := make([]schema.TabSnapshot, 0, len(s.order))
	for _, id := range s.order {
		if t := s.tabs[id]; t != nil {
			tabs = append(tabs, s.snapshotLocked(t))
		}
	}
	return schema.ListTabsResponse{Tabs: tabs, ActiveTab: s.active}, nil
}

// Teardown destroys every surface and refuses new tabs. Used on window close.
func (s *service) Teardown(ctx context.Context, req schema.TeardownRequest) (schema.TeardownResponse, error) {
	s.mu.Lock()
	s.closed = true
	tabs := make([]*tab, 0, len(s.order))
	attached := make(map[schema.TabID]bool)
	for _, id := range s.compositor.detachAll() {
		attached[id] = true
	}
	for _, id := range s.order {
		if t := s.tabs[id]; t != nil {
			tabs = append(tabs, t)
		}
	}
	s.tabs = make(map[schema.TabID]*tab)
	s.order = nil
	s.active = ""
	s.mu.Unlock()

	log := logx.Ctx(ctx)
	for _, t := range tabs {
		if attached[t.ID] {
			s.setVisible(ctx, []*tab{t}, false)
		}
		if err := t.surface.Close(); err != nil {
			log.Warn("shell tab close failed", "tab", t.ID, "err", err)
		}
	}
	log.Info("shell teardown", "closed", len(tabs))
	return schema.TeardownResponse{Closed: len(tabs)}, nil
}

// activeLocked returns the active tab or nil.
func (s *service) activeLocked() *tab {
	if s.active == "" {
		return nil
	}
	return s.tabs[s.active]
}

func (s *service) lookup(id schema.TabID) *tab {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tabs[id]
}

func (s *service) snapshotLocked(t *tab) schema.TabSnapshot {
	return t.Snapshot(s.active == t.ID, s.compositor.isAttached(t.ID))
}

// surfacesLocked resolves ids to live tabs, skipping unknown ids.
func (s *service) surfacesLocked(ids []schema.TabID) []*tab {
	out := make([]*tab, 0, len(ids))
	for _, id := range ids {
		if t := s.tabs[id]; t != nil {
			out = append(out, t)
		}
	}
	return out
}

func (s *service) setVisible(ctx context.Context, tabs []*tab, visible bool) {
	for _, t := range tabs {
		if err := t.surface.SetVisible(ctx, visible); err != nil {
			logx.WithTab(ctx, t.ID).Warn("shell surface visibility failed", "visible", visible, "err", err)
		}
	}
}

func (s *service) emitNavigated(event schema.NavigatedEvent) {
	if s.sink == nil {
		return
	}
	s.sink.OnNavigated(event)
}

func (s *service) emitTitleUpdated(event schema.TitleUpdatedEvent) {
	if s.sink == nil {
		return
	}
	s.sink.OnTitleUpdated(event)
}

func removeTabID(ids []schema.TabID, id schema.TabID) []schema.TabID {
	out := ids[:0]
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}
