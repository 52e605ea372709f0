package persist

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pkt.systems/tabshell/schema"
)

func openTestStore(t *testing.T, dir string, opts Options) *Store {
	t.Helper()
	store, err := Open(dir, opts)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

type stepClock struct {
	next int64
}

func (c *stepClock) Now() time.Time {
	c.next++
	return time.UnixMilli(c.next)
}

func TestStoreColdStartIsEmpty(t *testing.T) {
	store := openTestStore(t, t.TempDir(), Options{})
	if got := store.Bookmarks(); len(got) != 0 {
		t.Fatalf("expected no bookmarks, got %d", len(got))
	}
	if got := store.History(); len(got) != 0 {
		t.Fatalf("expected no history, got %d", len(got))
	}
}

func TestStoreCorruptRecordsLoadEmpty(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, bookmarksFile), []byte("{not-json"), 0o600); err != nil {
		t.Fatalf("write bookmarks: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, historyFile), []byte(`{"url":"x"}`), 0o600); err != nil {
		t.Fatalf("write history: %v", err)
	}
	store := openTestStore(t, dir, Options{})
	if got := store.Bookmarks(); len(got) != 0 {
		t.Fatalf("expected corrupt bookmarks to load empty, got %d", len(got))
	}
	if got := store.AllHistory(); len(got) != 0 {
		t.Fatalf("expected corrupt history to load empty, got %d", len(got))
	}
}

func TestStoreBookmarkAddIsIdempotent(t *testing.T) {
	clock := &stepClock{}
	store := openTestStore(t, t.TempDir(), Options{Now: clock.Now})
	if _, err := store.AddBookmark(schema.BookmarkEntry{URL: "https://a.example", Title: "first"}); err != nil {
		t.Fatalf("add bookmark: %v", err)
	}
	got, err := store.AddBookmark(schema.BookmarkEntry{URL: "https://a.example", Title: "second"})
	if err != nil {
		t.Fatalf("add bookmark again: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected one bookmark, got %d", len(got))
	}
	if got[0].Timestamp != 1 || got[0].Title != "first" {
		t.Fatalf("expected first entry preserved, got %+v", got[0])
	}
}

func TestStoreBookmarkRejectsEmptyURL(t *testing.T) {
	store := openTestStore(t, t.TempDir(), Options{})
	if _, err := store.AddBookmark(schema.BookmarkEntry{URL: "  "}); !errors.Is(err, schema.ErrInvalidBookmark) {
		t.Fatalf("expected ErrInvalidBookmark, got %v", err)
	}
}

func TestStoreHistoryRejectsEmptyURL(t *testing.T) {
	store := openTestStore(t, t.TempDir(), Options{})
	err := store.AddHistory(schema.HistoryEntry{URL: " "})
	if !errors.Is(err, schema.ErrInvalidRequest) || errors.Is(err, schema.ErrInvalidBookmark) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	if got := store.AllHistory(); len(got) != 0 {
		t.Fatalf("expected no history, got %+v", got)
	}
}

func TestStoreRemoveBookmarkDropsEveryMatch(t *testing.T) {
	dir := t.TempDir()
	seeded := []schema.BookmarkEntry{
		{URL: "https://dup.example", Title: "one", Timestamp: 1},
		{URL: "https://keep.example", Title: "keep", Timestamp: 2},
		{URL: "https://dup.example", Title: "two", Timestamp: 3},
	}
	data, err := json.Marshal(seeded)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, bookmarksFile), data, 0o600); err != nil {
		t.Fatalf("write bookmarks: %v", err)
	}
	store := openTestStore(t, dir, Options{})
	got := store.RemoveBookmark("https://dup.example")
	if len(got) != 1 || got[0].URL != "https://keep.example" {
		t.Fatalf("unexpected bookmarks after remove: %+v", got)
	}

	var onDisk []schema.BookmarkEntry
	raw, err := os.ReadFile(filepath.Join(dir, bookmarksFile))
	if err != nil {
		t.Fatalf("read bookmarks: %v", err)
	}
	if err := json.Unmarshal(raw, &onDisk); err != nil {
		t.Fatalf("decode bookmarks: %v", err)
	}
	for _, entry := range onDisk {
		if entry.URL == "https://dup.example" {
			t.Fatalf("removed url still persisted: %+v", onDisk)
		}
	}
}

func TestStoreRemoveMissingBookmarkStillPersists(t *testing.T) {
	dir := t.TempDir()
	store := openTestStore(t, dir, Options{})
	store.RemoveBookmark("https://missing.example")
	raw, err := os.ReadFile(filepath.Join(dir, bookmarksFile))
	if err != nil {
		t.Fatalf("expected bookmarks record to be written: %v", err)
	}
	var onDisk []schema.BookmarkEntry
	if err := json.Unmarshal(raw, &onDisk); err != nil {
		t.Fatalf("decode bookmarks: %v", err)
	}
	if onDisk == nil || len(onDisk) != 0 {
		t.Fatalf("expected empty json array, got %s", raw)
	}
}

func TestStoreHistoryCapEvictsOldestFirst(t *testing.T) {
	dir := t.TempDir()
	clock := &stepClock{}
	store := openTestStore(t, dir, Options{Now: clock.Now})
	for i := 0; i < 1005; i++ {
		if err := store.AddHistory(schema.HistoryEntry{URL: fmt.Sprintf("https://site.example/%d", i)}); err != nil {
			t.Fatalf("add history %d: %v", i, err)
		}
	}
	all := store.AllHistory()
	if len(all) != 1000 {
		t.Fatalf("expected 1000 entries, got %d", len(all))
	}
	for i, entry := range all {
		want := fmt.Sprintf("https://site.example/%d", i+5)
		if entry.URL != want {
			t.Fatalf("entry %d: expected %s, got %s", i, want, entry.URL)
		}
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened := openTestStore(t, dir, Options{})
	if got := reopened.AllHistory(); len(got) != 1000 || got[0].URL != "https://site.example/5" {
		t.Fatalf("unexpected persisted history: len=%d", len(got))
	}
}

func TestStoreHistoryDisplayIsRecentFirst(t *testing.T) {
	clock := &stepClock{}
	store := openTestStore(t, t.TempDir(), Options{Now: clock.Now, DisplayLimit: 3})
	for i := 0; i < 5; i++ {
		if err := store.AddHistory(schema.HistoryEntry{URL: fmt.Sprintf("https://h.example/%d", i)}); err != nil {
			t.Fatalf("add history: %v", err)
		}
	}
	got := store.History()
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(got))
	}
	want := []string{"https://h.example/4", "https://h.example/3", "https://h.example/2"}
	for i := range want {
		if got[i].URL != want[i] {
			t.Fatalf("entry %d: expected %s, got %s", i, want[i], got[i].URL)
		}
	}
	if got[0].Timestamp <= got[1].Timestamp {
		t.Fatalf("expected server timestamps to increase, got %d then %d", got[1].Timestamp, got[0].Timestamp)
	}
}

func TestStoreHistoryKeepsRepeatVisits(t *testing.T) {
	store := openTestStore(t, t.TempDir(), Options{})
	for i := 0; i < 3; i++ {
		if err := store.AddHistory(schema.HistoryEntry{URL: "https://same.example"}); err != nil {
			t.Fatalf("add history: %v", err)
		}
	}
	if got := store.AllHistory(); len(got) != 3 {
		t.Fatalf("expected repeated visits to be kept, got %d", len(got))
	}
}

func TestStoreClearHistory(t *testing.T) {
	dir := t.TempDir()
	store := openTestStore(t, dir, Options{})
	if err := store.AddHistory(schema.HistoryEntry{URL: "https://x.example"}); err != nil {
		t.Fatalf("add history: %v", err)
	}
	store.ClearHistory()
	if got := store.History(); len(got) != 0 {
		t.Fatalf("expected cleared history, got %d", len(got))
	}
	raw, err := os.ReadFile(filepath.Join(dir, historyFile))
	if err != nil {
		t.Fatalf("read history: %v", err)
	}
	var onDisk []schema.HistoryEntry
	if err := json.Unmarshal(raw, &onDisk); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(onDisk) != 0 {
		t.Fatalf("expected empty persisted history, got %d", len(onDisk))
	}
}

func TestStoreWriteFailureKeepsMemoryState(t *testing.T) {
	dir := t.TempDir()
	store := openTestStore(t, dir, Options{})
	// A directory in place of the record makes the rename fail.
	if err := os.Mkdir(filepath.Join(dir, bookmarksFile), 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	got, err := store.AddBookmark(schema.BookmarkEntry{URL: "https://kept.example"})
	if err != nil {
		t.Fatalf("add bookmark: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected in-memory bookmark to survive write failure, got %d", len(got))
	}
}

func TestStoreLockIsExclusive(t *testing.T) {
	dir := t.TempDir()
	first := openTestStore(t, dir, Options{})
	if _, err := Open(dir, Options{}); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	second, err := Open(dir, Options{})
	if err != nil {
		t.Fatalf("reopen after close: %v", err)
	}
	_ = second.Close()
}
