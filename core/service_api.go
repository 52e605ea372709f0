package core

import (
	"context"

	"pkt.systems/tabshell/schema"
)

// Service is the transport-agnostic API of the browsing shell: tab registry,
// compositor, navigation and script injection.
type Service interface {
	CreateTab(ctx context.Context, req schema.CreateTabRequest) (schema.CreateTabResponse, error)
	SelectTab(ctx context.Context, req schema.SelectTabRequest) (schema.SelectTabResponse, error)
	CloseTab(ctx context.Context, req schema.CloseTabRequest) (schema.CloseTabResponse, error)
	ListTabs(ctx context.Context, req schema.ListTabsRequest) (schema.ListTabsResponse, error)
	SetVisibleTabs(ctx context.Context, req schema.SetViewsRequest) (schema.SetViewsResponse, error)
	Hide(ctx context.Context, req schema.HideRequest) (schema.HideResponse, error)
	Show(ctx context.Context, req schema.ShowRequest) (schema.ShowResponse, error)
	UpdateBounds(ctx context.Context, req schema.UpdateBoundsRequest) (schema.UpdateBoundsResponse, error)
	Navigate(ctx context.Context, req schema.NavigateRequest) (schema.NavigateResponse, error)
	Back(ctx context.Context, req schema.StepRequest) (schema.StepResponse, error)
	Forward(ctx context.Context, req schema.StepRequest) (schema.StepResponse, error)
	Reload(ctx context.Context, req schema.StepRequest) (schema.StepResponse, error)
	CurrentURL(ctx context.Context, req schema.CurrentURLRequest) (schema.CurrentURLResponse, error)
	Paste(ctx context.Context, req schema.PasteRequest) (schema.PasteResponse, error)
	Teardown(ctx context.Context, req schema.TeardownRequest) (schema.TeardownResponse, error)
}

// HistoryRecorder stores committed navigations.
type HistoryRecorder interface {
	AddHistory(entry schema.HistoryEntry) error
}
