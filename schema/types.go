package schema

import (
	"bytes"
	"encoding/json"
	"strings"
)

// TabID identifies a tab. Ids are minted by the UI layer and are opaque to the host.
type TabID string

// UnmarshalJSON accepts both string and numeric ids.
func (id *TabID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		*id = TabID(raw)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return ErrInvalidTabID
	}
	*id = TabID(num.String())
	return nil
}

// Bounds is a rectangle in window-local coordinates.
type Bounds struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// BoundsPatch is a possibly partial rectangle supplied by the UI. Nil fields take defaults.
type BoundsPatch struct {
	X      *int `json:"x,omitempty"`
	Y      *int `json:"y,omitempty"`
	Width  *int `json:"width,omitempty"`
	Height *int `json:"height,omitempty"`
}

// BookmarkEntry is a persisted bookmark. Urls are unique within the bookmark list.
type BookmarkEntry struct {
	URL       string `json:"url"`
	Title     string `json:"title"`
	Timestamp int64  `json:"timestamp"`
}

// HistoryEntry is a persisted visit. Repeated visits are recorded individually.
type HistoryEntry struct {
	URL       string `json:"url"`
	Title     string `json:"title"`
	Timestamp int64  `json:"timestamp"`
}

// TabSnapshot is a read-only view of a live tab for transports.
type TabSnapshot struct {
	ID      TabID  `json:"id"`
	URL     string `json:"url"`
	Title   string `json:"title"`
	Active  bool   `json:"active"`
	Visible bool   `json:"visible"`
}

// NormalizeTabID rejects blank ids. Ids are otherwise returned unchanged so
// later lookups with the same value find the tab.
func NormalizeTabID(id TabID) (TabID, error) {
	if strings.TrimSpace(string(id)) == "" {
		return "", ErrInvalidTabID
	}
	return id, nil
}
