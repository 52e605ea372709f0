package persist

import "pkt.systems/tabshell/schema"

// historyRing keeps visits in append order and drops the oldest past max.
type historyRing struct {
	entries []schema.HistoryEntry
	max     int
}

func newHistoryRing(max int) *historyRing {
	if max <= 0 {
		max = schema.DefaultHistoryMaxEntries
	}
	return &historyRing{max: max}
}

func newHistoryRingFromPersisted(max int, entries []schema.HistoryEntry) *historyRing {
	h := newHistoryRing(max)
	if len(entries) > h.max {
		entries = entries[len(entries)-h.max:]
	}
	h.entries = append([]schema.HistoryEntry(nil), entries...)
	return h
}

// Append records a visit and reports how many entries were evicted.
func (h *historyRing) Append(entry schema.HistoryEntry) int {
	h.entries = append(h.entries, entry)
	evicted := 0
	if over := len(h.entries) - h.max; over > 0 {
		h.entries = append([]schema.HistoryEntry(nil), h.entries[over:]...)
		evicted = over
	}
	return evicted
}

// Recent returns up to limit entries, most recent first.
func (h *historyRing) Recent(limit int) []schema.HistoryEntry {
	n := len(h.entries)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]schema.HistoryEntry, 0, n)
	for i := len(h.entries) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, h.entries[i])
	}
	return out
}

// Entries returns a copy in append order.
func (h *historyRing) Entries() []schema.HistoryEntry {
	return append([]schema.HistoryEntry{}, h.entries...)
}

func (h *historyRing) Clear() {
	h.entries = nil
}

func (h *historyRing) Len() int {
	return len(h.entries)
}
