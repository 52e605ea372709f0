package chromesurface

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	cdpbrowser "github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"pkt.systems/pslog"

	"pkt.systems/tabshell/core"
	"pkt.systems/tabshell/internal/logx"
	"pkt.systems/tabshell/schema"
)

const (
	blankURL          = "about:blank"
	titleProbeTimeout = 2 * time.Second
)

type rawKind int

const (
	rawNavigated rawKind = iota
	rawInPage
	rawTitle
	rawTitleProbe
	rawOpen
)

type rawEvent struct {
	kind  rawKind
	url   string
	title string
}

// surface is one tab's page target. DevTools listeners only enqueue; the pump
// goroutine applies events in arrival order and calls onEvent.
type surface struct {
	id       schema.TabID
	browser  *Browser
	targetID target.ID
	ctx      context.Context
	cancel   context.CancelFunc
	onEvent  core.SurfaceEventFunc
	log      pslog.Logger

	queueMu sync.Mutex
	queue   []rawEvent
	wake    chan struct{}
	done    chan struct{}

	mu        sync.Mutex
	url       string
	title     string
	mainFrame cdp.FrameID
	visible   bool
	bounds    schema.Bounds
	hasBounds bool
	closed    bool
}

var _ core.Surface = (*surface)(nil)

func newSurface(b *Browser, id schema.TabID, targetID target.ID, ctx context.Context, cancel context.CancelFunc, onEvent core.SurfaceEventFunc, log pslog.Logger) *surface {
	return &surface{
		id:       id,
		browser:  b,
		targetID: targetID,
		ctx:      ctx,
		cancel:   cancel,
		onEvent:  onEvent,
		log:      log,
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

func (s *surface) ID() schema.TabID { return s.id }

func (s *surface) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url
}

func (s *surface) Title() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.title
}

func (s *surface) Navigate(ctx context.Context, url string) (string, error) {
	runCtx, release, err := s.runContext(ctx)
	if err != nil {
		return "", err
	}
	defer release()
	log := logx.WithTab(ctx, s.id)
	var location string
	if err := chromedp.Run(runCtx, chromedp.Navigate(url), chromedp.Location(&location)); err != nil {
		if s.isClosed() {
			return "", schema.ErrSurfaceClosed
		}
		log.Debug("chromium navigate failed", "url", url, "err", err)
		return "", &schema.NavigationError{URL: url, Reason: err.Error()}
	}
	log.Trace("chromium navigate", "url", url, "location", location)
	return location, nil
}

func (s *surface) CanGoBack(ctx context.Context) (bool, error) {
	current, entries, err := s.navigationHistory(ctx)
	if err != nil {
		return false, err
	}
	return current > 0 && len(entries) > 0, nil
}

func (s *surface) CanGoForward(ctx context.Context) (bool, error) {
	current, entries, err := s.navigationHistory(ctx)
	if err != nil {
		return false, err
	}
	return current < int64(len(entries))-1, nil
}

func (s *surface) navigationHistory(ctx context.Context) (int64, []*page.NavigationEntry, error) {
	runCtx, release, err := s.runContext(ctx)
	if err != nil {
		return 0, nil, err
	}
	defer release()
	var current int64
	var entries []*page.NavigationEntry
	err = chromedp.Run(runCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		current, entries, err = page.GetNavigationHistory().Do(ctx)
		return err
	}))
	return current, entries, err
}

func (s *surface) Back(ctx context.Context) error {
	return s.run(ctx, chromedp.NavigateBack())
}

func (s *surface) Forward(ctx context.Context) error {
	return s.run(ctx, chromedp.NavigateForward())
}

func (s *surface) Reload(ctx context.Context) error {
	return s.run(ctx, chromedp.Reload())
}

func (s *surface) Evaluate(ctx context.Context, script string, out any) error {
	return s.run(ctx, chromedp.Evaluate(script, out))
}

// SetBounds records the rectangle and applies it when the window is shown.
func (s *surface) SetBounds(ctx context.Context, bounds schema.Bounds) error {
	s.mu.Lock()
	s.bounds = bounds
	s.hasBounds = true
	visible := s.visible
	s.mu.Unlock()
	if !visible {
		return nil
	}
	return s.applyGeometry(ctx, bounds)
}

func (s *surface) SetVisible(ctx context.Context, visible bool) error {
	if s.isClosed() {
		return schema.ErrSurfaceClosed
	}
	s.mu.Lock()
	s.visible = visible
	bounds, hasBounds := s.bounds, s.hasBounds
	s.mu.Unlock()

	state := cdpbrowser.WindowStateMinimized
	if visible {
		state = cdpbrowser.WindowStateNormal
	}
	if err := s.setWindowBounds(ctx, &cdpbrowser.Bounds{WindowState: state}); err != nil {
		return err
	}
	if !visible {
		return nil
	}
	if hasBounds {
		if err := s.applyGeometry(ctx, bounds); err != nil {
			return err
		}
	}
	return target.ActivateTarget(s.targetID).Do(s.browser.browserExecutor())
}

// applyGeometry moves the window; position and state cannot share a call.
func (s *surface) applyGeometry(ctx context.Context, bounds schema.Bounds) error {
	cfg := s.browser.cfg
	err := s.setWindowBounds(ctx, &cdpbrowser.Bounds{
		Left:   int64(cfg.WindowLeft + bounds.X),
		Top:    int64(cfg.WindowTop + bounds.Y),
		Width:  int64(bounds.Width),
		Height: int64(bounds.Height),
	})
	if err != nil {
		return err
	}
	if !cfg.Headless {
		return nil
	}
	// Headless windows have no native frame; the viewport follows the emulated metrics.
	return s.run(ctx, emulation.SetDeviceMetricsOverride(int64(bounds.Width), int64(bounds.Height), 1, false))
}

func (s *surface) setWindowBounds(ctx context.Context, bounds *cdpbrowser.Bounds) error {
	if s.isClosed() {
		return schema.ErrSurfaceClosed
	}
	exec := s.browser.browserExecutor()
	if err := ctx.Err(); err != nil {
		return err
	}
	windowID, _, err := cdpbrowser.GetWindowForTarget().WithTargetID(s.targetID).Do(exec)
	if err != nil {
		return err
	}
	return cdpbrowser.SetWindowBounds(windowID, bounds).Do(exec)
}

func (s *surface) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	close(s.done)
	s.browser.forget(s.targetID)
	s.browser.closeTarget(s.targetID)
	s.cancel()
	s.log.Debug("chromium surface closed", "target", s.targetID)
	return nil
}

func (s *surface) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *surface) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, release, err := s.runContext(ctx)
	if err != nil {
		return err
	}
	defer release()
	if err := chromedp.Run(runCtx, actions...); err != nil {
		if s.isClosed() {
			return schema.ErrSurfaceClosed
		}
		return err
	}
	return nil
}

// runContext derives a context that carries the target and stops with either ctx or the surface.
func (s *surface) runContext(ctx context.Context) (context.Context, func(), error) {
	if s.isClosed() {
		return nil, nil, schema.ErrSurfaceClosed
	}
	runCtx, cancel := context.WithCancel(s.ctx)
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}, nil
}

// onTargetEvent runs on the target's event loop and must not block.
func (s *surface) onTargetEvent(ev any) {
	switch e := ev.(type) {
	case *page.EventFrameNavigated:
		if e.Frame == nil || e.Frame.ParentID != "" {
			return
		}
		s.mu.Lock()
		s.mainFrame = e.Frame.ID
		s.mu.Unlock()
		s.enqueue(rawEvent{kind: rawNavigated, url: e.Frame.URL + e.Frame.URLFragment})
	case *page.EventNavigatedWithinDocument:
		s.mu.Lock()
		main := s.mainFrame
		s.mu.Unlock()
		if main != "" && e.FrameID != main {
			return
		}
		s.enqueue(rawEvent{kind: rawInPage, url: e.URL})
	case *page.EventWindowOpen:
		s.enqueue(rawEvent{kind: rawOpen, url: e.URL})
	case *page.EventDomContentEventFired, *page.EventLoadEventFired:
		s.enqueue(rawEvent{kind: rawTitleProbe})
	}
}

func (s *surface) enqueue(ev rawEvent) {
	s.queueMu.Lock()
	s.queue = append(s.queue, ev)
	s.queueMu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *surface) pump() {
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}
		s.queueMu.Lock()
		batch := s.queue
		s.queue = nil
		s.queueMu.Unlock()
		for _, ev := range batch {
			select {
			case <-s.done:
				return
			default:
			}
			s.apply(ev)
		}
	}
}

func (s *surface) apply(ev rawEvent) {
	switch ev.kind {
	case rawNavigated, rawInPage:
		if ev.url == "" || ev.url == blankURL {
			return
		}
		s.mu.Lock()
		s.url = ev.url
		title := s.title
		s.mu.Unlock()
		kind := schema.SurfaceNavigated
		if ev.kind == rawInPage {
			kind = schema.SurfaceNavigatedInPage
		}
		s.emit(schema.SurfaceEvent{TabID: s.id, Kind: kind, URL: ev.url, Title: title})
	case rawTitle:
		s.updateTitle(ev.title)
	case rawTitleProbe:
		var title string
		ctx, cancel := context.WithTimeout(context.Background(), titleProbeTimeout)
		err := s.run(ctx, chromedp.Evaluate(`document.title`, &title))
		cancel()
		if err != nil {
			if !errors.Is(err, schema.ErrSurfaceClosed) {
				s.log.Trace("chromium title probe failed", "err", err)
			}
			return
		}
		s.updateTitle(title)
	case rawOpen:
		if ev.url == "" || ev.url == blankURL {
			return
		}
		s.log.Debug("chromium popup loads in place", "url", ev.url)
		go func() {
			if _, err := s.Navigate(s.ctx, ev.url); err != nil && !errors.Is(err, schema.ErrSurfaceClosed) {
				s.log.Info("chromium popup navigation failed", "url", ev.url, "err", err)
			}
		}()
	}
}

func (s *surface) updateTitle(title string) {
	s.mu.Lock()
	if title == "" || title == s.title {
		s.mu.Unlock()
		return
	}
	s.title = title
	url := s.url
	s.mu.Unlock()
	s.emit(schema.SurfaceEvent{TabID: s.id, Kind: schema.SurfaceTitleUpdated, URL: url, Title: title})
}

func (s *surface) emit(event schema.SurfaceEvent) {
	if s.onEvent == nil {
		return
	}
	s.onEvent(event)
}
