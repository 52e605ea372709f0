package main

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"pkt.systems/pslog"
)

type slowStopServer struct {
	mu      sync.Mutex
	ctx     context.Context
	waitErr error
	stops   int
	stopped bool
}

func (s *slowStopServer) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctx = ctx
	return nil
}

func (s *slowStopServer) Wait() error {
	s.mu.Lock()
	ctx := s.ctx
	err := s.waitErr
	s.mu.Unlock()
	if err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

func (s *slowStopServer) Stop(ctx context.Context) error {
	time.Sleep(50 * time.Millisecond)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops++
	s.stopped = true
	return nil
}

func (s *slowStopServer) finished() (bool, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped, s.stops
}

func TestRunServerWaitsForStopOnCancel(t *testing.T) {
	server := &slowStopServer{}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	if err := runServer(ctx, cancel, server, pslog.Ctx(context.Background())); err != nil {
		t.Fatalf("runServer: %v", err)
	}
	if stopped, stops := server.finished(); !stopped || stops != 1 {
		t.Fatalf("expected stop to finish before return, stopped=%v stops=%d", stopped, stops)
	}
}

func TestRunServerStopsAfterServerFailure(t *testing.T) {
	failure := errors.New("listener died")
	server := &slowStopServer{waitErr: failure}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := runServer(ctx, cancel, server, pslog.Ctx(context.Background())); !errors.Is(err, failure) {
		t.Fatalf("expected server failure, got %v", err)
	}
	if stopped, _ := server.finished(); !stopped {
		t.Fatalf("expected stop to finish before return")
	}
}
