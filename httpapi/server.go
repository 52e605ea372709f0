// Package httpapi serves the command interface and the UI event stream over
// HTTP for a local UI process.
package httpapi

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pkt.systems/tabshell/internal/eventbus"
	"pkt.systems/tabshell/internal/logx"
	"pkt.systems/tabshell/internal/version"
	"pkt.systems/tabshell/schema"
)

const (
	defaultMaxBodyBytes = 1 << 20
	heartbeatInterval   = 25 * time.Second
)

// Dispatcher runs wire commands.
type Dispatcher interface {
	Dispatch(ctx context.Context, name string, payload json.RawMessage) (any, error)
}

// EventSource feeds the SSE stream.
type EventSource interface {
	Subscribe() (<-chan eventbus.Event, func(), uint64)
	Replay(after uint64) []eventbus.Event
}

// Server serves the HTTP API.
type Server struct {
	cfg      Config
	commands Dispatcher
	catalog  []string
	events   EventSource
}

// NewServer constructs an HTTP server. catalog lists the command names served.
func NewServer(cfg Config, commands Dispatcher, catalog []string, events EventSource) *Server {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	return &Server{
		cfg:      cfg,
		commands: commands,
		catalog:  append([]string(nil), catalog...),
		events:   events,
	}
}

// Handler returns an http.Handler for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/commands", s.requireToken(s.handleCatalog))
	mux.HandleFunc("POST /api/commands/{name}", s.requireToken(s.handleCommand))
	mux.HandleFunc("GET /api/events", s.requireToken(s.handleEvents))
	return withRequestLogging(mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "version": version.Current()})
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"commands": s.catalog})
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	log := logx.WithCommand(r.Context(), name).With("remote", clientIP(r))
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Errorf("payload exceeds %d bytes", tooLarge.Limit))
			return
		}
		log.Warn("http command read failed", "err", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var payload json.RawMessage
	if trimmed := strings.TrimSpace(string(body)); trimmed != "" {
		payload = json.RawMessage(trimmed)
	}
	ctx := logx.ContextWithCommandLogger(r.Context(), log, name)
	result, err := s.commands.Dispatch(ctx, name, payload)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"result": result})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errors.New("stream unsupported"))
		return
	}
	if s.events == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("event stream unavailable"))
		return
	}
	log := logx.Ctx(r.Context()).With("remote", clientIP(r))

	lastID := parseUint(r.Header.Get("Last-Event-ID"))
	if lastID == 0 {
		lastID = parseUint(r.URL.Query().Get("after"))
	}
	ch, unsubscribe, seq := s.events.Subscribe()
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, ": stream open\n\n")

	replayCount := 0
	if lastID > 0 {
		for _, event := range s.events.Replay(lastID) {
			if event.Seq > seq {
				break
			}
			if err := writeSSEvent(w, event); err != nil {
				return
			}
			lastID = event.Seq
			replayCount++
		}
	}
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()
	log.Info("http stream opened", "last_id", lastID, "replay", replayCount)
	for {
		select {
		case <-r.Context().Done():
			log.Info("http stream closed")
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case event, ok := <-ch:
			if !ok {
				return
			}
			if event.Seq <= lastID {
				continue
			}
			if err := writeSSEvent(w, event); err != nil {
				log.Debug("http stream write failed", "err", err)
				return
			}
			lastID = event.Seq
			flusher.Flush()
		}
	}
}

// requireToken enforces the bearer token when one is configured. EventSource
// clients cannot set headers, so a token query parameter is accepted too.
func (s *Server) requireToken(next http.HandlerFunc) http.HandlerFunc {
	if s.cfg.Token == "" {
		return next
	}
	want := []byte(s.cfg.Token)
	return func(w http.ResponseWriter, r *http.Request) {
		var got string
		if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
			got = strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
		} else {
			got = r.URL.Query().Get("token")
		}
		if subtle.ConstantTimeCompare([]byte(got), want) != 1 {
			logx.Ctx(r.Context()).Warn("http token rejected", "remote", clientIP(r), "path", r.URL.Path)
			writeError(w, http.StatusUnauthorized, errors.New("invalid token"))
			return
		}
		next(w, r)
	}
}

// statusFor maps shell errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, schema.ErrUnknownCommand):
		return http.StatusNotFound
	case errors.Is(err, schema.ErrInvalidRequest),
		errors.Is(err, schema.ErrInvalidBookmark),
		errors.Is(err, schema.ErrInvalidTabID):
		return http.StatusBadRequest
	case errors.Is(err, schema.ErrNavigation):
		return http.StatusBadGateway
	case errors.Is(err, schema.ErrServiceClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	data, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

func writeSSEvent(w http.ResponseWriter, event eventbus.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", event.Seq, event.Type, data); err != nil {
		return err
	}
	return nil
}

func parseUint(value string) uint64 {
	if value == "" {
		return 0
	}
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0
	}
	return parsed
}
