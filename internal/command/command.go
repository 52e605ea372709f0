package command

import "pkt.systems/tabshell/schema"

// Name is a command tag in the catalogue the UI may invoke.
type Name string

const (
	TabCreate           Name = "tab-create"
	TabSelect           Name = "tab-select"
	TabClose            Name = "tab-close"
	TabList             Name = "tab-list"
	BrowserSetViews     Name = "browser-set-views"
	BrowserHide         Name = "browser-hide"
	BrowserHideAll      Name = "browser-hide-all"
	BrowserShow         Name = "browser-show"
	BrowserNavigate     Name = "browser-navigate"
	BrowserBack         Name = "browser-back"
	BrowserForward      Name = "browser-forward"
	BrowserReload       Name = "browser-reload"
	BrowserGetURL       Name = "browser-get-url"
	BrowserPaste        Name = "browser-paste"
	BrowserUpdateBounds Name = "browser-update-bounds"
	BookmarksGet        Name = "bookmarks-get"
	BookmarksAdd        Name = "bookmarks-add"
	BookmarksRemove     Name = "bookmarks-remove"
	HistoryGet          Name = "history-get"
	HistoryAdd          Name = "history-add"
	HistoryClear        Name = "history-clear"
)

var catalogue = []Name{
	TabCreate, TabSelect, TabClose, TabList,
	BrowserSetViews, BrowserHide, BrowserHideAll, BrowserShow,
	BrowserNavigate, BrowserBack, BrowserForward, BrowserReload,
	BrowserGetURL, BrowserPaste, BrowserUpdateBounds,
	BookmarksGet, BookmarksAdd, BookmarksRemove,
	HistoryGet, HistoryAdd, HistoryClear,
}

// Names lists every command in catalogue order.
func Names() []Name {
	return append([]Name(nil), catalogue...)
}

// Command is one of the payload types below. The set is closed.
type Command interface {
	Name() Name
	isCommand()
}

// CreateTab registers a surface for a UI-minted id.
type CreateTab struct {
	TabID schema.TabID `json:"tabId"`
}

// SelectTab foregrounds a tab.
type SelectTab struct {
	TabID schema.TabID `json:"tabId"`
}

// CloseTab destroys a tab's surface.
type CloseTab struct {
	TabID schema.TabID `json:"tabId"`
}

// ListTabs reports live tabs.
type ListTabs struct{}

// SetViews attaches exactly the listed tabs.
type SetViews struct {
	TabIDs []schema.TabID `json:"tabIds"`
}

// Hide detaches one tab, or every attached tab when TabID is empty.
type Hide struct {
	TabID schema.TabID `json:"tabId,omitempty"`
}

// HideAll detaches every attached tab.
type HideAll struct{}

// Show re-attaches the active tab.
type Show struct{}

// Navigate loads address bar input into a tab.
type Navigate struct {
	TabID schema.TabID `json:"tabId"`
	URL   string       `json:"url"`
}

// Back moves a tab one step back in its history.
type Back struct {
	TabID schema.TabID `json:"tabId"`
}

// Forward moves a tab one step forward in its history.
type Forward struct {
	TabID schema.TabID `json:"tabId"`
}

// Reload reloads a tab's document.
type Reload struct {
	TabID schema.TabID `json:"tabId"`
}

// GetURL reports the active tab's url.
type GetURL struct{}

// Paste inserts text into the focused element of the active tab.
type Paste struct {
	Text string `json:"text"`
}

// UpdateBounds positions a tab, or the active tab when TabID is empty.
type UpdateBounds struct {
	TabID  schema.TabID       `json:"tabId,omitempty"`
	Bounds schema.BoundsPatch `json:"bounds"`
}

// GetBookmarks lists bookmarks.
type GetBookmarks struct{}

// AddBookmark stores a bookmark. Timestamp is accepted but replaced on store.
type AddBookmark struct {
	URL       string `json:"url"`
	Title     string `json:"title"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// RemoveBookmark deletes bookmarks by url.
type RemoveBookmark struct {
	URL string `json:"url"`
}

// GetHistory lists recent history.
type GetHistory struct{}

// AddHistory records a visit. Timestamp is accepted but replaced on store.
type AddHistory struct {
	URL       string `json:"url"`
	Title     string `json:"title"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// ClearHistory empties history.
type ClearHistory struct{}

func (CreateTab) Name() Name      { return TabCreate }
func (SelectTab) Name() Name      { return TabSelect }
func (CloseTab) Name() Name       { return TabClose }
func (ListTabs) Name() Name       { return TabList }
func (SetViews) Name() Name       { return BrowserSetViews }
func (Hide) Name() Name           { return BrowserHide }
func (HideAll) Name() Name        { return BrowserHideAll }
func (Show) Name() Name           { return BrowserShow }
func (Navigate) Name() Name       { return BrowserNavigate }
func (Back) Name() Name           { return BrowserBack }
func (Forward) Name() Name        { return BrowserForward }
func (Reload) Name() Name         { return BrowserReload }
func (GetURL) Name() Name         { return BrowserGetURL }
func (Paste) Name() Name          { return BrowserPaste }
func (UpdateBounds) Name() Name   { return BrowserUpdateBounds }
func (GetBookmarks) Name() Name   { return BookmarksGet }
func (AddBookmark) Name() Name    { return BookmarksAdd }
func (RemoveBookmark) Name() Name { return BookmarksRemove }
func (GetHistory) Name() Name     { return HistoryGet }
func (AddHistory) Name() Name     { return HistoryAdd }
func (ClearHistory) Name() Name   { return HistoryClear }

func (CreateTab) isCommand()      {}
func (SelectTab) isCommand()      {}
func (CloseTab) isCommand()       {}
func (ListTabs) isCommand()       {}
func (SetViews) isCommand()       {}
func (Hide) isCommand()           {}
func (HideAll) isCommand()        {}
func (Show) isCommand()           {}
func (Navigate) isCommand()       {}
func (Back) isCommand()           {}
func (Forward) isCommand()        {}
func (Reload) isCommand()         {}
func (GetURL) isCommand()         {}
func (Paste) isCommand()          {}
func (UpdateBounds) isCommand()   {}
func (GetBookmarks) isCommand()   {}
func (AddBookmark) isCommand()    {}
func (RemoveBookmark) isCommand() {}
func (GetHistory) isCommand()     {}
func (AddHistory) isCommand()     {}
func (ClearHistory) isCommand()   {}
