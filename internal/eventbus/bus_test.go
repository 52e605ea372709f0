package eventbus

import (
	"testing"
	"time"

	"pkt.systems/tabshell/schema"
)

func TestSubscribeAndPublish(t *testing.T) {
	bus := New(nil)
	ch, cancel, _ := bus.Subscribe()
	defer cancel()

	bus.OnNavigated(schema.NavigatedEvent{TabID: "tab1", URL: "https://example.com/"})

	select {
	case got := <-ch:
		if got.Type != schema.UIEventNavigated {
			t.Fatalf("expected navigated event, got %v", got.Type)
		}
		if got.TabID != "tab1" || got.URL != "https://example.com/" || got.Seq != 1 {
			t.Fatalf("unexpected payload: %+v", got)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timed out waiting for event")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := New(nil)
	ch, cancel, _ := bus.Subscribe()
	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Fatalf("expected channel to be closed")
	}
}

func TestPublishDoesNotBlockWhenFull(t *testing.T) {
	bus := New(nil)
	bus.depth = 1
	_, cancel, _ := bus.Subscribe()
	defer cancel()

	bus.OnTitleUpdated(schema.TitleUpdatedEvent{TabID: "tab1", Title: "one"})
	done := make(chan struct{})
	go func() {
		bus.OnTitleUpdated(schema.TitleUpdatedEvent{TabID: "tab1", Title: "two"})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("publish blocked on full channel")
	}
}

func TestReplayReturnsEventsAfterSeq(t *testing.T) {
	bus := NewWithHistory(nil, 2)
	bus.OnNavigated(schema.NavigatedEvent{TabID: "a", URL: "https://one.example"})
	bus.OnNavigated(schema.NavigatedEvent{TabID: "a", URL: "https://two.example"})
	bus.OnTitleUpdated(schema.TitleUpdatedEvent{TabID: "a", Title: "Two"})

	events := bus.Replay(0)
	if len(events) != 2 {
		t.Fatalf("expected history bounded to 2, got %d", len(events))
	}
	if events[0].Seq != 2 || events[1].Seq != 3 {
		t.Fatalf("unexpected replay seqs: %d %d", events[0].Seq, events[1].Seq)
	}
	if after := bus.Replay(2); len(after) != 1 || after[0].Title != "Two" {
		t.Fatalf("unexpected replay after 2: %+v", after)
	}
}
