package persist

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"pkt.systems/pslog"
	"pkt.systems/tabshell/schema"
)

const (
	bookmarksFile = "bookmarks.json"
	historyFile   = "history.json"
	lockFile      = ".lock"
)

// ErrLocked reports that another process owns the data directory.
var ErrLocked = errors.New("data directory is locked by another process")

// Options tunes a Store.
type Options struct {
	Logger       pslog.Logger
	MaxHistory   int
	DisplayLimit int
	// Now supplies entry timestamps; defaults to time.Now.
	Now func() time.Time
}

// Store owns the bookmark and history records. The in-memory lists are the
// source of truth; writes are best effort.
type Store struct {
	dir          string
	log          pslog.Logger
	now          func() time.Time
	displayLimit int
	lock         *dirLock

	mu        sync.Mutex
	bookmarks []schema.BookmarkEntry
	history   *historyRing
}

// Open loads the records under dir, creating it when missing.
// Unreadable or corrupt records load as empty lists.
func Open(dir string, opts Options) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("data directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	lock, err := acquireDirLock(filepath.Join(dir, lockFile))
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	logger = logger.With("data_dir", dir)
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	limit := opts.DisplayLimit
	if limit <= 0 {
		limit = schema.DefaultHistoryDisplayLimit
	}
	s := &Store{
		dir:          dir,
		log:          logger,
		now:          now,
		displayLimit: limit,
		lock:         lock,
	}

	var bookmarks []schema.BookmarkEntry
	if _, err := readRecord(s.path(bookmarksFile), &bookmarks); err != nil {
		logger.Warn("store bookmarks load failed", "err", err)
		bookmarks = nil
	}
	var history []schema.HistoryEntry
	if _, err := readRecord(s.path(historyFile), &history); err != nil {
		logger.Warn("store history load failed", "err", err)
		history = nil
	}
	s.bookmarks = bookmarks
	s.history = newHistoryRingFromPersisted(opts.MaxHistory, history)
	logger.Debug("store loaded", "bookmarks", len(s.bookmarks), "history", s.history.Len())
	return s, nil
}

// Close releases the data directory lock.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lock.release()
}

// Dir returns the data directory.
func (s *Store) Dir() string {
	return s.dir
}

// Bookmarks returns the bookmark list in storage order.
func (s *Store) Bookmarks() []schema.BookmarkEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bookmarksLocked()
}

// AddBookmark appends a bookmark unless one with the same url exists.
// The stored timestamp is assigned here.
func (s *Store) AddBookmark(entry schema.BookmarkEntry) ([]schema.BookmarkEntry, error) {
	url := strings.TrimSpace(entry.URL)
	if url == "" {
		return nil, schema.ErrInvalidBookmark
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.bookmarks {
		if existing.URL == url {
			s.log.Debug("store bookmark exists", "url", url)
			return s.bookmarksLocked(), nil
		}
	}
	s.bookmarks = append(s.bookmarks, schema.BookmarkEntry{
		URL:       url,
		Title:     entry.Title,
		Timestamp: s.now().UnixMilli(),
	})
	s.saveLocked(bookmarksFile, s.bookmarksLocked())
	s.log.Debug("store bookmark added", "url", url)
	return s.bookmarksLocked(), nil
}

// RemoveBookmark drops every bookmark with url and persists the list even when nothing matched.
func (s *Store) RemoveBookmark(url string) []schema.BookmarkEntry {
	url = strings.TrimSpace(url)
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.bookmarks[:0]
	removed := 0
	for _, entry := range s.bookmarks {
		if entry.URL == url {
			removed++
			continue
		}
		kept = append(kept, entry)
	}
	s.bookmarks = kept
	s.saveLocked(bookmarksFile, s.bookmarksLocked())
	s.log.Debug("store bookmark removed", "url", url, "removed", removed)
	return s.bookmarksLocked()
}

// History returns the display view: most recent first, capped at the display limit.
func (s *Store) History() []schema.HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Recent(s.displayLimit)
}

// AllHistory returns every stored entry in append order.
func (s *Store) AllHistory() []schema.HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Entries()
}

// AddHistory records a visit with a fresh timestamp, evicting the oldest entries past the cap.
func (s *Store) AddHistory(entry schema.HistoryEntry) error {
	url := strings.TrimSpace(entry.URL)
	if url == "" {
		return fmt.Errorf("%w: url is required", schema.ErrInvalidRequest)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	evicted := s.history.Append(schema.HistoryEntry{
		URL:       url,
		Title:     entry.Title,
		Timestamp: s.now().UnixMilli(),
	})
	s.saveLocked(historyFile, s.history.Entries())
	s.log.Trace("store history appended", "url", url, "evicted", evicted)
	return nil
}

// ClearHistory empties the history record.
func (s *Store) ClearHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history.Clear()
	s.saveLocked(historyFile, []schema.HistoryEntry{})
	s.log.Info("store history cleared")
}

func (s *Store) bookmarksLocked() []schema.BookmarkEntry {
	return append([]schema.BookmarkEntry{}, s.bookmarks...)
}

func (s *Store) saveLocked(name string, value any) {
	if err := writeRecord(s.path(name), value); err != nil {
		s.log.Warn("store save failed", "record", name, "err", err)
		return
	}
	s.log.Trace("store save ok", "record", name)
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name)
}
