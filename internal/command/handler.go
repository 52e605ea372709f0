package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"pkt.systems/tabshell/core"
	"pkt.systems/tabshell/internal/logx"
	"pkt.systems/tabshell/schema"
)

// Records is the bookmark and history store.
type Records interface {
	Bookmarks() []schema.BookmarkEntry
	AddBookmark(entry schema.BookmarkEntry) ([]schema.BookmarkEntry, error)
	RemoveBookmark(url string) []schema.BookmarkEntry
	History() []schema.HistoryEntry
	AddHistory(entry schema.HistoryEntry) error
	ClearHistory()
}

// HandlerConfig configures command handling.
type HandlerConfig struct {
	// DisableAuditLogging drops the per-command debug audit line.
	DisableAuditLogging bool
}

// Handler routes commands to the shell service and the record store.
type Handler struct {
	service core.Service
	records Records
	cfg     HandlerConfig
}

// NewHandler constructs a command handler.
func NewHandler(service core.Service, records Records, cfg HandlerConfig) *Handler {
	return &Handler{service: service, records: records, cfg: cfg}
}

// Dispatch decodes a wire command and handles it.
func (h *Handler) Dispatch(ctx context.Context, name string, payload json.RawMessage) (any, error) {
	cmd, err := Decode(name, payload)
	if err != nil {
		logx.WithCommand(ctx, name).Warn("command rejected", "err", err)
		return nil, err
	}
	return h.Handle(ctx, cmd)
}

// Handle executes cmd and returns its result: nil for commands without one,
// a string for navigation and url queries, a bool for paste, and lists for
// the record commands.
func (h *Handler) Handle(ctx context.Context, cmd Command) (any, error) {
	if ctx == nil {
		return nil, errors.New("missing context")
	}
	if cmd == nil {
		return nil, fmt.Errorf("%w: missing command", schema.ErrInvalidRequest)
	}
	name := string(cmd.Name())
	log := logx.WithCommand(ctx, name)
	ctx = logx.ContextWithCommandLogger(ctx, log, name)
	if !h.cfg.DisableAuditLogging {
		log.Debug("audit command", "payload", cmd)
	}

	result, err := h.handle(ctx, cmd)
	if err != nil {
		log.Warn("command failed", "err", err)
		return nil, err
	}
	log.Trace("command ok")
	return result, nil
}

func (h *Handler) handle(ctx context.Context, cmd Command) (any, error) {
	switch c := cmd.(type) {
	case CreateTab:
		_, err := h.service.CreateTab(ctx, schema.CreateTabRequest{TabID: c.TabID})
		return nil, err
	case SelectTab:
		_, err := h.service.SelectTab(ctx, schema.SelectTabRequest{TabID: c.TabID})
		return nil, err
	case CloseTab:
		_, err := h.service.CloseTab(ctx, schema.CloseTabRequest{TabID: c.TabID})
		return nil, err
	case ListTabs:
		return h.service.ListTabs(ctx, schema.ListTabsRequest{})
	case SetViews:
		_, err := h.service.SetVisibleTabs(ctx, schema.SetViewsRequest{TabIDs: c.TabIDs})
		return nil, err
	case Hide:
		_, err := h.service.Hide(ctx, schema.HideRequest{TabID: c.TabID})
		return nil, err
	case HideAll:
		_, err := h.service.Hide(ctx, schema.HideRequest{})
		return nil, err
	case Show:
		_, err := h.service.Show(ctx, schema.ShowRequest{})
		return nil, err
	case Navigate:
		resp, err := h.service.Navigate(ctx, schema.NavigateRequest{TabID: c.TabID, Input: c.URL})
		if err != nil {
			return nil, err
		}
		return resp.URL, nil
	case Back:
		_, err := h.service.Back(ctx, schema.StepRequest{TabID: c.TabID})
		return nil, err
	case Forward:
		_, err := h.service.Forward(ctx, schema.StepRequest{TabID: c.TabID})
		return nil, err
	case Reload:
		_, err := h.service.Reload(ctx, schema.StepRequest{TabID: c.TabID})
		return nil, err
	case GetURL:
		resp, err := h.service.CurrentURL(ctx, schema.CurrentURLRequest{})
		if err != nil {
			return nil, err
		}
		return resp.URL, nil
	case Paste:
		resp, err := h.service.Paste(ctx, schema.PasteRequest{Text: c.Text})
		if err != nil {
			return nil, err
		}
		return resp.Inserted, nil
	case UpdateBounds:
		_, err := h.service.UpdateBounds(ctx, schema.UpdateBoundsRequest{TabID: c.TabID, Bounds: c.Bounds})
		return nil, err
	case GetBookmarks:
		return h.records.Bookmarks(), nil
	case AddBookmark:
		return h.records.AddBookmark(schema.BookmarkEntry{URL: c.URL, Title: c.Title})
	case RemoveBookmark:
		return h.records.RemoveBookmark(c.URL), nil
	case GetHistory:
		return h.records.History(), nil
	case AddHistory:
		return nil, h.records.AddHistory(schema.HistoryEntry{URL: c.URL, Title: c.Title})
	case ClearHistory:
		h.records.ClearHistory()
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: %T", schema.ErrUnknownCommand, cmd)
	}
}
