package core

import (
	"context"
	"errors"
	"sync"
	"testing"

	"pkt.systems/tabshell/internal/logx"
	"pkt.systems/tabshell/schema"
)

type fakeSurface struct {
	mu        sync.Mutex
	id        schema.TabID
	url       string
	title     string
	visible   bool
	bounds    []schema.Bounds
	navigated []string
	backs     int
	forwards  int
	reloads   int
	canBack   bool
	canFwd    bool
	navErr    error
	evalErr   error
	evalValue bool
	scripts   []string
	closed    bool
	onEvent   SurfaceEventFunc
}

func (f *fakeSurface) ID() schema.TabID { return f.id }

func (f *fakeSurface) URL() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.url
}

func (f *fakeSurface) Title() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.title
}

func (f *fakeSurface) Navigate(ctx context.Context, url string) (string, error) {
	logx.Ctx(ctx).Debug("fake surface call", "surface", "navigate")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.navigated = append(f.navigated, url)
	if f.navErr != nil {
		return "", f.navErr
	}
	f.url = url
	return url, nil
}

func (f *fakeSurface) CanGoBack(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.canBack, nil
}

func (f *fakeSurface) CanGoForward(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.canFwd, nil
}

func (f *fakeSurface) Back(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.backs++
	return nil
}

func (f *fakeSurface) Forward(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forwards++
	return nil
}

func (f *fakeSurface) Reload(ctx context.Context) error {
	logx.Ctx(ctx).Debug("fake surface call", "surface", "reload")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reloads++
	return nil
}

func (f *fakeSurface) Evaluate(ctx context.Context, script string, out any) error {
	logx.Ctx(ctx).Debug("fake surface call", "surface", "evaluate")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scripts = append(f.scripts, script)
	if f.evalErr != nil {
		return f.evalErr
	}
	if ptr, ok := out.(*bool); ok {
		*ptr = f.evalValue
	}
	return nil
}

func (f *fakeSurface) SetBounds(ctx context.Context, bounds schema.Bounds) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return schema.ErrSurfaceClosed
	}
	f.bounds = append(f.bounds, bounds)
	return nil
}

func (f *fakeSurface) SetVisible(ctx context.Context, visible bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return schema.ErrSurfaceClosed
	}
	f.visible = visible
	return nil
}

func (f *fakeSurface) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.visible = false
	return nil
}

func (f *fakeSurface) isVisible() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.visible
}

func (f *fakeSurface) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// emit raises a raw surface event the way a real page would.
func (f *fakeSurface) emit(kind schema.SurfaceEventKind, url, title string) {
	f.mu.Lock()
	if url != "" {
		f.url = url
	}
	if title != "" {
		f.title = title
	}
	onEvent := f.onEvent
	f.mu.Unlock()
	onEvent(schema.SurfaceEvent{TabID: f.id, Kind: kind, URL: url, Title: title})
}

type fakeFactory struct {
	mu       sync.Mutex
	surfaces map[schema.TabID]*fakeSurface
	created  int
	err      error
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{surfaces: make(map[schema.TabID]*fakeSurface)}
}

func (f *fakeFactory) NewSurface(ctx context.Context, opts SurfaceOptions) (Surface, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.created++
	surface := &fakeSurface{id: opts.TabID, url: opts.StartURL, onEvent: opts.OnEvent}
	f.surfaces[opts.TabID] = surface
	return surface, nil
}

func (f *fakeFactory) surface(id schema.TabID) *fakeSurface {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.surfaces[id]
}

type fakeSink struct {
	mu        sync.Mutex
	navigated []schema.NavigatedEvent
	titles    []schema.TitleUpdatedEvent
}

func (s *fakeSink) OnNavigated(event schema.NavigatedEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.navigated = append(s.navigated, event)
}

func (s *fakeSink) OnTitleUpdated(event schema.TitleUpdatedEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.titles = append(s.titles, event)
}

func (s *fakeSink) navigatedEvents() []schema.NavigatedEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]schema.NavigatedEvent(nil), s.navigated...)
}

func (s *fakeSink) titleEvents() []schema.TitleUpdatedEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]schema.TitleUpdatedEvent(nil), s.titles...)
}

func (s *fakeSink) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.navigated = nil
	s.titles = nil
}

type fakeHistory struct {
	mu      sync.Mutex
	entries []schema.HistoryEntry
}

func (h *fakeHistory) AddHistory(entry schema.HistoryEntry) error {
	if entry.URL == "" {
		return errors.New("empty url")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, entry)
	return nil
}

func (h *fakeHistory) urls() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.entries))
	for _, entry := range h.entries {
		out = append(out, entry.URL)
	}
	return out
}

type testShell struct {
	svc     Service
	factory *fakeFactory
	sink    *fakeSink
	history *fakeHistory
}

func newTestShell(t *testing.T) testShell {
	t.Helper()
	factory := newFakeFactory()
	sink := &fakeSink{}
	history := &fakeHistory{}
	svc, err := NewService(schema.ShellConfig{DataDir: t.TempDir()}, ServiceDeps{
		Surfaces:  factory,
		History:   history,
		EventSink: sink,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return testShell{svc: svc, factory: factory, sink: sink, history: history}
}

func (ts testShell) create(t *testing.T, ids ...schema.TabID) {
	t.Helper()
	for _, id := range ids {
		if _, err := ts.svc.CreateTab(context.Background(), schema.CreateTabRequest{TabID: id}); err != nil {
			t.Fatalf("create tab %s: %v", id, err)
		}
	}
}
