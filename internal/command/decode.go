package command

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"pkt.systems/tabshell/schema"
)

// Decode turns a wire name and JSON payload into a Command. Commands with a
// single parameter also accept that parameter bare, e.g. "tab1" for
// tab-create or ["a","b"] for browser-set-views.
func Decode(name string, payload json.RawMessage) (Command, error) {
	switch Name(strings.TrimSpace(name)) {
	case TabCreate:
		return decodeAs(payload, func(c *CreateTab) any { return &c.TabID })
	case TabSelect:
		return decodeAs(payload, func(c *SelectTab) any { return &c.TabID })
	case TabClose:
		return decodeAs(payload, func(c *CloseTab) any { return &c.TabID })
	case TabList:
		return decodeAs[ListTabs](payload, nil)
	case BrowserSetViews:
		return decodeAs(payload, func(c *SetViews) any { return &c.TabIDs })
	case BrowserHide:
		return decodeAs(payload, func(c *Hide) any { return &c.TabID })
	case BrowserHideAll:
		return decodeAs[HideAll](payload, nil)
	case BrowserShow:
		return decodeAs[Show](payload, nil)
	case BrowserNavigate:
		return decodeAs[Navigate](payload, nil)
	case BrowserBack:
		return decodeAs(payload, func(c *Back) any { return &c.TabID })
	case BrowserForward:
		return decodeAs(payload, func(c *Forward) any { return &c.TabID })
	case BrowserReload:
		return decodeAs(payload, func(c *Reload) any { return &c.TabID })
	case BrowserGetURL:
		return decodeAs[GetURL](payload, nil)
	case BrowserPaste:
		return decodeAs(payload, func(c *Paste) any { return &c.Text })
	case BrowserUpdateBounds:
		return decodeAs[UpdateBounds](payload, nil)
	case BookmarksGet:
		return decodeAs[GetBookmarks](payload, nil)
	case BookmarksAdd:
		return decodeAs[AddBookmark](payload, nil)
	case BookmarksRemove:
		return decodeAs(payload, func(c *RemoveBookmark) any { return &c.URL })
	case HistoryGet:
		return decodeAs[GetHistory](payload, nil)
	case HistoryAdd:
		return decodeAs[AddHistory](payload, nil)
	case HistoryClear:
		return decodeAs[ClearHistory](payload, nil)
	default:
		return nil, fmt.Errorf("%w: %q", schema.ErrUnknownCommand, name)
	}
}

func decodeAs[T Command](payload json.RawMessage, bare func(*T) any) (Command, error) {
	var cmd T
	var target any
	if bare != nil {
		target = bare(&cmd)
	}
	if err := decodePayload(payload, &cmd, target); err != nil {
		return nil, err
	}
	return cmd, nil
}

// decodePayload fills dst from a JSON object, or fills bare from a non-object
// payload when the command has a single parameter. Empty payloads leave dst zero.
func decodePayload(payload json.RawMessage, dst any, bare any) error {
	data := bytes.TrimSpace(payload)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] != '{' {
		if bare == nil {
			return fmt.Errorf("%w: expected an object payload", schema.ErrInvalidRequest)
		}
		if err := json.Unmarshal(data, bare); err != nil {
			return fmt.Errorf("%w: %v", schema.ErrInvalidRequest, err)
		}
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", schema.ErrInvalidRequest, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data", schema.ErrInvalidRequest)
	}
	return nil
}
