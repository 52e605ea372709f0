package core

import "pkt.systems/tabshell/schema"

// tab pairs a UI-minted id with the surface it owns.
type tab struct {
	ID      schema.TabID
	surface Surface
}

// Snapshot returns a transport-friendly view of the tab.
func (t *tab) Snapshot(active, visible bool) schema.TabSnapshot {
	return schema.TabSnapshot{
		ID:      t.ID,
		URL:     t.surface.URL(),
		Title:   t.surface.Title(),
		Active:  active,
		Visible: visible,
	}
}
