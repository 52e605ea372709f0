package httpapi

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"pkt.systems/tabshell/internal/eventbus"
	"pkt.systems/tabshell/schema"
)

type stubDispatcher struct {
	mu      sync.Mutex
	name    string
	payload json.RawMessage
	result  any
	err     error
}

func (d *stubDispatcher) Dispatch(ctx context.Context, name string, payload json.RawMessage) (any, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.name = name
	d.payload = payload
	return d.result, d.err
}

func newTestServer(t *testing.T, cfg Config, dispatcher Dispatcher, bus *eventbus.Bus) *httptest.Server {
	t.Helper()
	var events EventSource
	if bus != nil {
		events = bus
	}
	srv := NewServer(cfg, dispatcher, []string{"tab-create", "browser-navigate"}, events)
	server := httptest.NewServer(srv.Handler())
	t.Cleanup(server.Close)
	return server
}

func post(t *testing.T, url, body string, header http.Header) (int, map[string]json.RawMessage) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	var out map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp.StatusCode, out
}

func TestCommandReturnsResult(t *testing.T) {
	dispatcher := &stubDispatcher{result: "https://example.com/"}
	server := newTestServer(t, Config{}, dispatcher, nil)

	status, out := post(t, server.URL+"/api/commands/browser-navigate", `{"tabId":"1","url":"example.com"}`, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", status, out["error"])
	}
	if string(out["result"]) != `"https://example.com/"` {
		t.Fatalf("unexpected result %s", out["result"])
	}
	if dispatcher.name != "browser-navigate" || string(dispatcher.payload) != `{"tabId":"1","url":"example.com"}` {
		t.Fatalf("unexpected dispatch %q %s", dispatcher.name, dispatcher.payload)
	}
}

func TestCommandEmptyBodyIsNilPayload(t *testing.T) {
	dispatcher := &stubDispatcher{}
	server := newTestServer(t, Config{}, dispatcher, nil)
	status, out := post(t, server.URL+"/api/commands/browser-show", "  ", nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if dispatcher.payload != nil {
		t.Fatalf("expected nil payload, got %s", dispatcher.payload)
	}
	if string(out["result"]) != "null" {
		t.Fatalf("expected null result, got %s", out["result"])
	}
}

func TestCommandErrorStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{err: fmt.Errorf("%w: %q", schema.ErrUnknownCommand, "nope"), want: http.StatusNotFound},
		{err: fmt.Errorf("%w: bad", schema.ErrInvalidRequest), want: http.StatusBadRequest},
		{err: schema.ErrInvalidBookmark, want: http.StatusBadRequest},
		{err: schema.ErrInvalidTabID, want: http.StatusBadRequest},
		{err: &schema.NavigationError{URL: "https://bad.invalid", Reason: "net::ERR_NAME_NOT_RESOLVED"}, want: http.StatusBadGateway},
		{err: schema.ErrServiceClosed, want: http.StatusServiceUnavailable},
		{err: errors.New("boom"), want: http.StatusInternalServerError},
	}
	for _, tc := range cases {
		server := newTestServer(t, Config{}, &stubDispatcher{err: tc.err}, nil)
		status, out := post(t, server.URL+"/api/commands/x", "{}", nil)
		if status != tc.want {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.want, status)
		}
		var msg string
		if err := json.Unmarshal(out["error"], &msg); err != nil || msg != tc.err.Error() {
			t.Fatalf("expected error message %q, got %s", tc.err.Error(), out["error"])
		}
	}
}

func TestCommandRejectsLargeBody(t *testing.T) {
	server := newTestServer(t, Config{MaxBodyBytes: 16}, &stubDispatcher{}, nil)
	status, _ := post(t, server.URL+"/api/commands/paste", `{"text":"`+strings.Repeat("a", 64)+`"}`, nil)
	if status != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", status)
	}
}

func TestTokenRequired(t *testing.T) {
	server := newTestServer(t, Config{Token: "s3cret"}, &stubDispatcher{}, nil)

	status, _ := post(t, server.URL+"/api/commands/tab-list", "", nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", status)
	}
	status, _ = post(t, server.URL+"/api/commands/tab-list", "", http.Header{"Authorization": {"Bearer wrong"}})
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong token, got %d", status)
	}
	status, _ = post(t, server.URL+"/api/commands/tab-list", "", http.Header{"Authorization": {"Bearer s3cret"}})
	if status != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", status)
	}

	resp, err := http.Get(server.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected healthz to skip auth, got %d", resp.StatusCode)
	}
}

func TestCatalog(t *testing.T) {
	server := newTestServer(t, Config{}, &stubDispatcher{}, nil)
	resp, err := http.Get(server.URL + "/api/commands")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	var out struct {
		Commands []string `json:"commands"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Commands) != 2 || out.Commands[0] != "tab-create" {
		t.Fatalf("unexpected catalog %v", out.Commands)
	}
}

func TestCommandRequiresPost(t *testing.T) {
	server := newTestServer(t, Config{}, &stubDispatcher{}, nil)
	resp, err := http.Get(server.URL + "/api/commands/tab-list")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.StatusCode)
	}
}

type sseFrame struct {
	id    string
	event string
	data  string
}

func readFrame(t *testing.T, reader *bufio.Reader) sseFrame {
	t.Helper()
	var frame sseFrame
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				t.Fatalf("stream ended")
			}
			t.Fatalf("read: %v", err)
		}
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			if frame.data != "" {
				return frame
			}
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "id: "):
			frame.id = strings.TrimPrefix(line, "id: ")
		case strings.HasPrefix(line, "event: "):
			frame.event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			frame.data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func TestEventsReplayAndLive(t *testing.T) {
	bus := eventbus.New(nil)
	server := newTestServer(t, Config{}, &stubDispatcher{}, bus)
	bus.OnNavigated(schema.NavigatedEvent{TabID: "1", URL: "https://one.example/"})
	bus.OnTitleUpdated(schema.TitleUpdatedEvent{TabID: "1", Title: "One"})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/api/events", nil)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	req.Header.Set("Last-Event-ID", "1")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}
	reader := bufio.NewReader(resp.Body)

	frame := readFrame(t, reader)
	if frame.id != "2" || frame.event != string(schema.UIEventTitleUpdated) {
		t.Fatalf("unexpected replay frame %+v", frame)
	}
	var replayed eventbus.Event
	if err := json.Unmarshal([]byte(frame.data), &replayed); err != nil || replayed.Title != "One" {
		t.Fatalf("unexpected replay payload %s (%v)", frame.data, err)
	}

	bus.OnNavigated(schema.NavigatedEvent{TabID: "2", URL: "https://two.example/"})
	frame = readFrame(t, reader)
	if frame.id != "3" || frame.event != string(schema.UIEventNavigated) {
		t.Fatalf("unexpected live frame %+v", frame)
	}
	var live eventbus.Event
	if err := json.Unmarshal([]byte(frame.data), &live); err != nil {
		t.Fatalf("decode live: %v", err)
	}
	if live.TabID != "2" || live.URL != "https://two.example/" {
		t.Fatalf("unexpected live payload %+v", live)
	}
}

func TestEventsUnavailableWithoutSource(t *testing.T) {
	server := newTestServer(t, Config{}, &stubDispatcher{}, nil)
	resp, err := http.Get(server.URL + "/api/events")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
}
