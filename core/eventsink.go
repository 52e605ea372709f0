package core

import "pkt.systems/tabshell/schema"

// EventSink receives the UI events of the active tab.
type EventSink interface {
	OnNavigated(event schema.NavigatedEvent)
	OnTitleUpdated(event schema.TitleUpdatedEvent)
}
