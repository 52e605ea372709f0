package core

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"pkt.systems/tabshell/internal/logx"
	"pkt.systems/tabshell/schema"
)

// InputKind classifies address bar input.
type InputKind int

const (
	// InputURL is loaded directly, gaining https:// when it has no scheme.
	InputURL InputKind = iota
	// InputSearch is sent to the search page.
	InputSearch
)

func (k InputKind) String() string {
	if k == InputSearch {
		return "search"
	}
	return "url"
}

// ClassifyInput trims raw and decides whether it is a search query or a url.
// Input is a search when it contains whitespace, or when it has neither a dot
// nor an http(s) scheme. Single-label hosts such as "localhost" therefore
// become searches unless typed with a scheme.
func ClassifyInput(raw string) (InputKind, string) {
	input := strings.TrimSpace(raw)
	if strings.IndexFunc(input, unicode.IsSpace) >= 0 {
		return InputSearch, input
	}
	if !strings.Contains(input, ".") && !hasHTTPScheme(input) {
		return InputSearch, input
	}
	return InputURL, input
}

// NormalizeAddress turns address bar input into a loadable url. searchURL
// holds a single %s that receives the escaped query.
func NormalizeAddress(raw, searchURL string) string {
	kind, input := ClassifyInput(raw)
	if kind == InputSearch {
		return fmt.Sprintf(searchURL, url.QueryEscape(input))
	}
	if hasHTTPScheme(input) {
		return input
	}
	return "https://" + input
}

func hasHTTPScheme(input string) bool {
	lower := strings.ToLower(input)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func (s *service) Navigate(ctx context.Context, req schema.NavigateRequest) (schema.NavigateResponse, error) {
	log := logx.WithTab(ctx, req.TabID)
	t := s.lookup(req.TabID)
	if t == nil {
		log.Debug("shell navigate ignored", "reason", "unknown tab")
		return schema.NavigateResponse{}, nil
	}
	target := NormalizeAddress(req.Input, s.cfg.SearchURL)
	log.Debug("shell navigate", "url", target)
	loaded, err := t.surface.Navigate(logx.ContextWithTabLogger(ctx, log, t.ID), target)
	if err != nil {
		if !errors.Is(err, schema.ErrNavigation) {
			err = &schema.NavigationError{URL: target, Reason: err.Error()}
		}
		log.Info("shell navigate failed", "url", target, "err", err)
		return schema.NavigateResponse{}, err
	}
	return schema.NavigateResponse{URL: loaded}, nil
}

func (s *service) Back(ctx context.Context, req schema.StepRequest) (schema.StepResponse, error) {
	return s.step(ctx, req.TabID, "back", func(ctx context.Context, t *tab) (bool, error) {
		ok, err := t.surface.CanGoBack(ctx)
		if err != nil || !ok {
			return false, err
		}
		return true, t.surface.Back(ctx)
	})
}

func (s *service) Forward(ctx context.Context, req schema.StepRequest) (schema.StepResponse, error) {
	return s.step(ctx, req.TabID, "forward", func(ctx context.Context, t *tab) (bool, error) {
		ok, err := t.surface.CanGoForward(ctx)
		if err != nil || !ok {
			return false, err
		}
		return true, t.surface.Forward(ctx)
	})
}

func (s *service) Reload(ctx context.Context, req schema.StepRequest) (schema.StepResponse, error) {
	return s.step(ctx, req.TabID, "reload", func(ctx context.Context, t *tab) (bool, error) {
		return true, t.surface.Reload(ctx)
	})
}

// step runs a history move. Failures are logged, never returned: only
// Navigate reports load errors to the caller.
func (s *service) step(ctx context.Context, id schema.TabID, action string, fn func(context.Context, *tab) (bool, error)) (schema.StepResponse, error) {
	log := logx.WithTab(ctx, id)
	t := s.lookup(id)
	if t == nil {
		log.Debug("shell "+action+" ignored", "reason", "unknown tab")
		return schema.StepResponse{}, nil
	}
	moved, err := fn(logx.ContextWithTabLogger(ctx, log, t.ID), t)
	if err != nil {
		log.Warn("shell "+action+" failed", "err", err)
		return schema.StepResponse{}, nil
	}
	log.Trace("shell "+action, "moved", moved)
	return schema.StepResponse{Moved: moved}, nil
}

func (s *service) CurrentURL(ctx context.Context, req schema.CurrentURLRequest) (schema.CurrentURLResponse, error) {
	s.mu.Lock()
	t := s.activeLocked()
	s.mu.Unlock()
	if t == nil {
		return schema.CurrentURLResponse{}, nil
	}
	return schema.CurrentURLResponse{URL: t.surface.URL()}, nil
}
