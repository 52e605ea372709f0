package schema

// SurfaceEventKind identifies a raw event raised by a rendering surface.
type SurfaceEventKind string

const (
	// SurfaceNavigated is a committed top-level navigation.
	SurfaceNavigated SurfaceEventKind = "navigated"
	// SurfaceNavigatedInPage is a same-document navigation (fragment or history API).
	SurfaceNavigatedInPage SurfaceEventKind = "navigated-in-page"
	// SurfaceTitleUpdated is a document title change.
	SurfaceTitleUpdated SurfaceEventKind = "title-updated"
)

// SurfaceEvent is a raw event emitted by a surface, in emission order per surface.
type SurfaceEvent struct {
	TabID TabID
	Kind  SurfaceEventKind
	URL   string
	Title string
}

// UIEventType names the events pushed to the UI layer.
type UIEventType string

const (
	// UIEventNavigated carries the active tab's new url.
	UIEventNavigated UIEventType = "browser-navigated"
	// UIEventTitleUpdated carries the active tab's new title.
	UIEventTitleUpdated UIEventType = "browser-title-updated"
)

// NavigatedEvent is emitted when the active tab navigates.
type NavigatedEvent struct {
	TabID TabID
	URL   string
}

// TitleUpdatedEvent is emitted when the active tab's title changes.
type TitleUpdatedEvent struct {
	TabID TabID
	Title string
}
