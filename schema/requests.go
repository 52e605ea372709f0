package schema

// Tab lifecycle.

// CreateTabRequest describes a request to create a tab.
type CreateTabRequest struct {
	TabID TabID `json:"tabId"`
}

// CreateTabResponse reports the created (or already existing) tab.
type CreateTabResponse struct {
	Tab     TabSnapshot `json:"tab"`
	Existed bool        `json:"existed"`
}

// SelectTabRequest describes a request to foreground a tab.
type SelectTabRequest struct {
	TabID TabID `json:"tabId"`
}

// SelectTabResponse reports whether the tab was found.
type SelectTabResponse struct {
	Selected bool `json:"selected"`
}

// CloseTabRequest describes a request to close a tab.
type CloseTabRequest struct {
	TabID TabID `json:"tabId"`
}

// CloseTabResponse reports whether a live tab was closed.
type CloseTabResponse struct {
	Closed bool `json:"closed"`
}

// ListTabsRequest describes a request to list tabs.
type ListTabsRequest struct{}

// ListTabsResponse reports open tabs in creation order.
type ListTabsResponse struct {
	Tabs      []TabSnapshot `json:"tabs"`
	ActiveTab TabID         `json:"activeTab,omitempty"`
}

// Compositor.

// SetViewsRequest replaces the attached surface set.
type SetViewsRequest struct {
	TabIDs []TabID `json:"tabIds"`
}

// SetViewsResponse reports the ids that were attached.
type SetViewsResponse struct {
	Attached []TabID `json:"attached"`
}

// HideRequest detaches one surface, or every attached surface when TabID is empty.
type HideRequest struct {
	TabID TabID `json:"tabId,omitempty"`
}

// HideResponse reports the ids that were detached.
type HideResponse struct {
	Detached []TabID `json:"detached"`
}

// ShowRequest re-attaches the active surface.
type ShowRequest struct{}

// ShowResponse reports whether an active surface was attached.
type ShowResponse struct {
	Shown bool `json:"shown"`
}

// UpdateBoundsRequest positions a surface. An empty TabID targets the active tab.
type UpdateBoundsRequest struct {
	TabID  TabID       `json:"tabId,omitempty"`
	Bounds BoundsPatch `json:"bounds"`
}

// UpdateBoundsResponse reports the rectangle applied after defaults.
type UpdateBoundsResponse struct {
	Applied bool   `json:"applied"`
	Bounds  Bounds `json:"bounds"`
}

// Navigation.

// NavigateRequest loads address bar input into a tab.
type NavigateRequest struct {
	TabID TabID  `json:"tabId"`
	Input string `json:"url"`
}

// NavigateResponse reports the url the surface ended up on.
type NavigateResponse struct {
	URL string `json:"url"`
}

// StepRequest targets back, forward and reload at a tab.
type StepRequest struct {
	TabID TabID `json:"tabId"`
}

// StepResponse reports whether the surface moved.
type StepResponse struct {
	Moved bool `json:"moved"`
}

// CurrentURLRequest asks for the active tab's url.
type CurrentURLRequest struct{}

// CurrentURLResponse reports the url of the active tab, or "".
type CurrentURLResponse struct {
	URL string `json:"url"`
}

// PasteRequest inserts text at the focused editable element of the active tab.
type PasteRequest struct {
	Text string `json:"text"`
}

// PasteResponse reports whether an eligible element handled the text.
type PasteResponse struct {
	Inserted bool `json:"inserted"`
}

// Window.

// TeardownRequest destroys every surface on window close.
type TeardownRequest struct{}

// TeardownResponse reports how many surfaces were destroyed.
type TeardownResponse struct {
	Closed int `json:"closed"`
}
