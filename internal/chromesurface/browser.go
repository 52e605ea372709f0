// Package chromesurface renders tabs as Chromium page targets driven over the
// DevTools protocol. Every tab gets its own window so the compositor can place
// and hide it independently.
package chromesurface

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/chromedp/cdproto/cdp"
	cdpbrowser "github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"pkt.systems/pslog"

	"pkt.systems/tabshell/core"
	"pkt.systems/tabshell/internal/logx"
	"pkt.systems/tabshell/schema"
)

// Config configures the Chromium process and the host window geometry.
type Config struct {
	ExecPath string
	// RemoteURL attaches to a running browser's DevTools websocket instead of launching one.
	RemoteURL   string
	Headless    bool
	NoSandbox   bool
	UserDataDir string
	// Flags are extra command line switches, "name=value" or "name".
	Flags []string
	// WindowLeft and WindowTop place the host window on screen; surface bounds are relative to it.
	WindowLeft   int
	WindowTop    int
	WindowWidth  int
	WindowHeight int
}

// Browser owns the Chromium process and builds surfaces on it.
type Browser struct {
	cfg           Config
	log           pslog.Logger
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	mu       sync.Mutex
	surfaces map[target.ID]*surface
	closed   bool
}

var _ core.SurfaceFactory = (*Browser)(nil)

// Launch starts (or attaches to) Chromium. The browser outlives ctx; call Close to stop it.
func Launch(ctx context.Context, cfg Config) (*Browser, error) {
	if cfg.WindowWidth <= 0 {
		cfg.WindowWidth = schema.DefaultWindowWidth
	}
	if cfg.WindowHeight <= 0 {
		cfg.WindowHeight = schema.DefaultWindowHeight
	}
	log := logx.Ctx(ctx).With("component", "chromium")
	base := pslog.ContextWithLogger(context.Background(), log)

	var allocCtx context.Context
	var allocCancel context.CancelFunc
	if strings.TrimSpace(cfg.RemoteURL) != "" {
		log.Info("chromium attach", "url", cfg.RemoteURL)
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(base, cfg.RemoteURL)
	} else {
		if cfg.UserDataDir != "" {
			if err := os.MkdirAll(cfg.UserDataDir, 0o700); err != nil {
				return nil, fmt.Errorf("create profile dir: %w", err)
			}
		}
		log.Info("chromium launch", "headless", cfg.Headless, "profile", cfg.UserDataDir, "exec_path", cfg.ExecPath)
		allocCtx, allocCancel = chromedp.NewExecAllocator(base, buildAllocatorOptions(cfg)...)
	}

	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) { log.Debug("chromium " + fmt.Sprintf(format, args...)) }),
		chromedp.WithErrorf(func(format string, args ...any) { log.Warn("chromium " + fmt.Sprintf(format, args...)) }),
	)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("start chromium: %w", err)
	}
	b := &Browser{
		cfg:           cfg,
		log:           log,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		surfaces:      make(map[target.ID]*surface),
	}
	chromedp.ListenBrowser(browserCtx, b.onBrowserEvent)
	b.parkInitialWindow()
	return b, nil
}

// buildAllocatorOptions assembles the Chromium switches for a local launch.
func buildAllocatorOptions(cfg Config) []chromedp.ExecAllocatorOption {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-renderer-backgrounding", true),
		chromedp.Flag("disable-background-timer-throttling", true),
		chromedp.Flag("disable-backgrounding-occluded-windows", true),
		chromedp.Flag("disable-client-side-phishing-detection", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-hang-monitor", true),
		chromedp.Flag("disable-prompt-on-repost", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-session-crashed-bubble", true),
		chromedp.Flag("hide-crash-restore-bubble", true),
		chromedp.Flag("enable-automation", false),
		chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight),
	}
	if cfg.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(cfg.UserDataDir))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	if cfg.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	if cfg.Headless {
		opts = append(opts, chromedp.Headless, chromedp.DisableGPU)
	} else {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	for _, raw := range cfg.Flags {
		if name, value, ok := parseFlag(raw); ok {
			opts = append(opts, chromedp.Flag(name, value))
		}
	}
	return opts
}

// parseFlag splits "--name=value" into a switch; a bare name enables it.
func parseFlag(raw string) (string, any, bool) {
	flag := strings.TrimLeft(strings.TrimSpace(raw), "-")
	if flag == "" {
		return "", nil, false
	}
	if k, v, ok := strings.Cut(flag, "="); ok {
		if k == "" {
			return "", nil, false
		}
		return k, v, true
	}
	return flag, true, true
}

// NewSurface opens a window target for a tab and starts loading opts.StartURL.
func (b *Browser) NewSurface(ctx context.Context, opts core.SurfaceOptions) (core.Surface, error) {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return nil, schema.ErrServiceClosed
	}
	log := logx.WithTab(ctx, opts.TabID)

	targetID, err := target.CreateTarget("about:blank").
		WithNewWindow(true).
		WithBackground(true).
		Do(b.browserExecutor())
	if err != nil {
		return nil, fmt.Errorf("create target: %w", err)
	}
	tabCtx, cancel := chromedp.NewContext(b.browserCtx, chromedp.WithTargetID(targetID))
	s := newSurface(b, opts.TabID, targetID, tabCtx, cancel, opts.OnEvent, log)
	chromedp.ListenTarget(tabCtx, s.onTargetEvent)
	if err := chromedp.Run(tabCtx, installPopupPolicy()); err != nil {
		cancel()
		b.closeTarget(targetID)
		return nil, fmt.Errorf("prepare target: %w", err)
	}

	b.mu.Lock()
	b.surfaces[targetID] = s
	b.mu.Unlock()
	go s.pump()
	// Surfaces start detached from the compositor.
	if err := s.SetVisible(ctx, false); err != nil {
		log.Debug("chromium surface park failed", "err", err)
	}

	if opts.StartURL != "" {
		startCtx := logx.CopyContextFields(pslog.ContextWithLogger(tabCtx, log), ctx)
		go func() {
			if _, err := s.Navigate(startCtx, opts.StartURL); err != nil && !errors.Is(err, context.Canceled) {
				log.Warn("chromium start page failed", "url", opts.StartURL, "err", err)
			}
		}()
	}
	log.Debug("chromium surface created", "target", targetID)
	return s, nil
}

// Close destroys every surface and stops the browser.
func (b *Browser) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	surfaces := make([]*surface, 0, len(b.surfaces))
	for _, s := range b.surfaces {
		surfaces = append(surfaces, s)
	}
	b.mu.Unlock()
	for _, s := range surfaces {
		_ = s.Close()
	}
	b.browserCancel()
	b.allocCancel()
	b.log.Info("chromium stopped", "surfaces", len(surfaces))
	return nil
}

// onBrowserEvent runs on the browser's event loop and must not block.
func (b *Browser) onBrowserEvent(ev any) {
	switch e := ev.(type) {
	case *target.EventTargetCreated:
		info := e.TargetInfo
		if info == nil || info.OpenerID == "" {
			return
		}
		if owner := b.surfaceFor(info.OpenerID); owner != nil {
			// Popups are not surfaces; page.EventWindowOpen loads their url in the opener.
			go b.rejectPopup(owner, info.TargetID)
		}
	case *target.EventTargetInfoChanged:
		info := e.TargetInfo
		if info == nil {
			return
		}
		if s := b.surfaceFor(info.TargetID); s != nil {
			s.enqueue(rawEvent{kind: rawTitle, title: info.Title})
		}
	}
}

func (b *Browser) rejectPopup(owner *surface, popup target.ID) {
	b.closeTarget(popup)
	owner.log.Debug("chromium popup closed", "popup", popup)
}

func (b *Browser) surfaceFor(id target.ID) *surface {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.surfaces[id]
}

func (b *Browser) forget(id target.ID) {
	b.mu.Lock()
	delete(b.surfaces, id)
	b.mu.Unlock()
}

func (b *Browser) browserExecutor() context.Context {
	return cdp.WithExecutor(b.browserCtx, chromedp.FromContext(b.browserCtx).Browser)
}

func (b *Browser) closeTarget(id target.ID) {
	if err := target.CloseTarget(id).Do(b.browserExecutor()); err != nil {
		b.log.Debug("chromium target close failed", "target", id, "err", err)
	}
}

// parkInitialWindow minimizes the window chromedp opens on start; tabs get their own.
func (b *Browser) parkInitialWindow() {
	c := chromedp.FromContext(b.browserCtx)
	if c == nil || c.Target == nil {
		return
	}
	exec := b.browserExecutor()
	windowID, _, err := cdpbrowser.GetWindowForTarget().WithTargetID(c.Target.TargetID).Do(exec)
	if err != nil {
		b.log.Debug("chromium initial window lookup failed", "err", err)
		return
	}
	if err := cdpbrowser.SetWindowBounds(windowID, &cdpbrowser.Bounds{WindowState: cdpbrowser.WindowStateMinimized}).Do(exec); err != nil {
		b.log.Debug("chromium initial window park failed", "err", err)
	}
}
