package core

import (
	"context"
	"testing"

	"pkt.systems/tabshell/schema"
)

func TestEventsAreGatedToActiveTab(t *testing.T) {
	ts := newTestShell(t)
	ctx := context.Background()
	ts.create(t, "a", "b")
	if _, err := ts.svc.SelectTab(ctx, schema.SelectTabRequest{TabID: "a"}); err != nil {
		t.Fatalf("select: %v", err)
	}
	ts.sink.reset()

	ts.factory.surface("b").emit(schema.SurfaceNavigated, "https://b.example/", "")
	if got := ts.sink.navigatedEvents(); len(got) != 0 {
		t.Fatalf("expected background navigation to be suppressed, got %+v", got)
	}
	ts.factory.surface("a").emit(schema.SurfaceNavigated, "https://a.example/", "")
	got := ts.sink.navigatedEvents()
	if len(got) != 1 || got[0].TabID != "a" || got[0].URL != "https://a.example/" {
		t.Fatalf("expected one navigation for a, got %+v", got)
	}
}

func TestTitleAndInPageEventsAreGated(t *testing.T) {
	ts := newTestShell(t)
	ctx := context.Background()
	ts.create(t, "a", "b")
	if _, err := ts.svc.SelectTab(ctx, schema.SelectTabRequest{TabID: "b"}); err != nil {
		t.Fatalf("select: %v", err)
	}
	ts.sink.reset()

	ts.factory.surface("a").emit(schema.SurfaceTitleUpdated, "", "A")
	ts.factory.surface("a").emit(schema.SurfaceNavigatedInPage, "https://a.example/#x", "")
	ts.factory.surface("b").emit(schema.SurfaceTitleUpdated, "", "B")
	ts.factory.surface("b").emit(schema.SurfaceNavigatedInPage, "https://b.example/#y", "")

	titles := ts.sink.titleEvents()
	if len(titles) != 1 || titles[0].Title != "B" {
		t.Fatalf("unexpected titles: %+v", titles)
	}
	nav := ts.sink.navigatedEvents()
	if len(nav) != 1 || nav[0].URL != "https://b.example/#y" {
		t.Fatalf("unexpected navigations: %+v", nav)
	}
}

func TestHistoryRecordsEveryCommittedNavigation(t *testing.T) {
	ts := newTestShell(t)
	ctx := context.Background()
	ts.create(t, "a", "b")
	if _, err := ts.svc.SelectTab(ctx, schema.SelectTabRequest{TabID: "a"}); err != nil {
		t.Fatalf("select: %v", err)
	}
	ts.factory.surface("a").emit(schema.SurfaceNavigated, "https://a.example/", "")
	ts.factory.surface("b").emit(schema.SurfaceNavigated, "https://b.example/", "")
	ts.factory.surface("b").emit(schema.SurfaceNavigatedInPage, "https://b.example/#frag", "")
	ts.factory.surface("b").emit(schema.SurfaceTitleUpdated, "", "B")

	urls := ts.history.urls()
	if len(urls) != 2 || urls[0] != "https://a.example/" || urls[1] != "https://b.example/" {
		t.Fatalf("unexpected history: %+v", urls)
	}
}

func TestEventsAfterCloseAreDropped(t *testing.T) {
	ts := newTestShell(t)
	ctx := context.Background()
	ts.create(t, "a")
	if _, err := ts.svc.SelectTab(ctx, schema.SelectTabRequest{TabID: "a"}); err != nil {
		t.Fatalf("select: %v", err)
	}
	surface := ts.factory.surface("a")
	if _, err := ts.svc.CloseTab(ctx, schema.CloseTabRequest{TabID: "a"}); err != nil {
		t.Fatalf("close: %v", err)
	}
	ts.sink.reset()
	surface.emit(schema.SurfaceTitleUpdated, "", "late")
	if len(ts.sink.titleEvents()) != 0 {
		t.Fatalf("expected late events to be dropped")
	}
}
