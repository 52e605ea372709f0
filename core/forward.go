package core

import "pkt.systems/tabshell/schema"

// forward receives raw events from every surface. Committed navigations are
// recorded for every tab; UI events only leave for the tab that is active
// when the event arrives.
func (s *service) forward(event schema.SurfaceEvent) {
	log := s.logger.With("tab", event.TabID)
	if event.Kind == schema.SurfaceNavigated && s.history != nil && event.URL != "" {
		if err := s.history.AddHistory(schema.HistoryEntry{URL: event.URL, Title: event.Title}); err != nil {
			log.Warn("shell history append failed", "url", event.URL, "err", err)
		}
	}

	s.mu.Lock()
	active := s.active == event.TabID && s.tabs[event.TabID] != nil
	s.mu.Unlock()
	if !active {
		log.Trace("shell event suppressed", "kind", event.Kind)
		return
	}
	switch event.Kind {
	case schema.SurfaceNavigated, schema.SurfaceNavigatedInPage:
		s.emitNavigated(schema.NavigatedEvent{TabID: event.TabID, URL: event.URL})
	case schema.SurfaceTitleUpdated:
		s.emitTitleUpdated(schema.TitleUpdatedEvent{TabID: event.TabID, Title: event.Title})
	default:
		log.Debug("shell event unknown", "kind", event.Kind)
	}
}
