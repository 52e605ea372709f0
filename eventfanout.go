package tabshell

import (
	"pkt.systems/tabshell/core"
	"pkt.systems/tabshell/schema"
)

type eventFanout struct {
	sinks []core.EventSink
}

func (f eventFanout) OnNavigated(event schema.NavigatedEvent) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnNavigated(event)
	}
}

func (f eventFanout) OnTitleUpdated(event schema.TitleUpdatedEvent) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnTitleUpdated(event)
	}
}
