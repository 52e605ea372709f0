package eventbus

import (
	"context"
	"sync"
	"time"

	"pkt.systems/pslog"
	"pkt.systems/tabshell/schema"
)

const (
	defaultDepth       = 256
	defaultHistorySize = 256
)

// Event is a UI-facing event carrying a bus-assigned sequence number.
type Event struct {
	Seq       uint64             `json:"seq"`
	Type      schema.UIEventType `json:"type"`
	TabID     schema.TabID       `json:"tabId"`
	URL       string             `json:"url,omitempty"`
	Title     string             `json:"title,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

// Bus fans UI events out to subscribers and keeps a bounded replay history.
type Bus struct {
	mu          sync.Mutex
	subs        map[chan Event]struct{}
	seq         uint64
	history     []Event
	historySize int
	depth       int
	log         pslog.Logger
	now         func() time.Time
}

// New constructs a Bus.
func New(logger pslog.Logger) *Bus {
	return NewWithHistory(logger, defaultHistorySize)
}

// NewWithHistory constructs a Bus that keeps historySize events for replay.
func NewWithHistory(logger pslog.Logger, historySize int) *Bus {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	if historySize <= 0 {
		historySize = defaultHistorySize
	}
	return &Bus{
		subs:        make(map[chan Event]struct{}),
		historySize: historySize,
		depth:       defaultDepth,
		log:         logger,
		now:         time.Now,
	}
}

// Subscribe registers a subscriber and returns its channel, a cancel func and the current sequence.
func (b *Bus) Subscribe() (<-chan Event, func(), uint64) {
	if b == nil {
		return nil, func() {}, 0
	}
	ch := make(chan Event, b.depth)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	count := len(b.subs)
	seq := b.seq
	b.mu.Unlock()
	b.log.Debug("eventbus subscribe", "subs", count, "seq", seq)
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			remaining := len(b.subs)
			b.mu.Unlock()
			close(ch)
			b.log.Debug("eventbus unsubscribe", "subs", remaining)
		})
	}, seq
}

// Replay returns buffered events with a sequence above after.
func (b *Bus) Replay(after uint64) []Event {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	events := make([]Event, 0, len(b.history))
	for _, event := range b.history {
		if event.Seq > after {
			events = append(events, event)
		}
	}
	b.log.Debug("eventbus replay", "after", after, "count", len(events))
	return events
}

// OnNavigated publishes a browser-navigated event.
func (b *Bus) OnNavigated(event schema.NavigatedEvent) {
	b.publish(Event{Type: schema.UIEventNavigated, TabID: event.TabID, URL: event.URL})
}

// OnTitleUpdated publishes a browser-title-updated event.
func (b *Bus) OnTitleUpdated(event schema.TitleUpdatedEvent) {
	b.publish(Event{Type: schema.UIEventTitleUpdated, TabID: event.TabID, Title: event.Title})
}

func (b *Bus) publish(event Event) {
	if b == nil {
		return
	}
	b.mu.Lock()
	b.seq++
	event.Seq = b.seq
	event.Timestamp = b.now()
	b.history = append(b.history, event)
	if len(b.history) > b.historySize {
		b.history = append([]Event(nil), b.history[len(b.history)-b.historySize:]...)
	}
	dropped := 0
	for sub := range b.subs {
		select {
		case sub <- event:
		default:
			dropped++
		}
	}
	b.mu.Unlock()
	b.log.Trace("eventbus publish", "type", event.Type, "tab", event.TabID, "seq", event.Seq)
	if dropped > 0 {
		b.log.Warn("eventbus event dropped", "type", event.Type, "dropped", dropped)
	}
}
