package tabshell

import (
	"context"
	"errors"
	"sync"

	"pkt.systems/pslog"
	"pkt.systems/tabshell/core"
	"pkt.systems/tabshell/httpapi"
	"pkt.systems/tabshell/internal/command"
	"pkt.systems/tabshell/internal/eventbus"
	"pkt.systems/tabshell/internal/persist"
	"pkt.systems/tabshell/internal/shellrpc"
	"pkt.systems/tabshell/schema"
)

// Server composes the shell service with its HTTP and gRPC transports.
type Server interface {
	Start(ctx context.Context) error
	Wait() error
	Stop(ctx context.Context) error
}

// ServerConfig configures the compositor.
type ServerConfig struct {
	Shell               schema.ShellConfig
	HTTP                httpapi.Config
	RPC                 shellrpc.Config
	EventHistory        int
	DisableAuditLogging bool
}

// ServerDeps captures dependencies required to build the server.
type ServerDeps struct {
	// Surfaces renders the tabs. The caller owns it and closes it after Stop.
	Surfaces core.SurfaceFactory
	// EventSink receives UI events in addition to the stream subscribers.
	EventSink core.EventSink
	Logger    pslog.Logger
}

// ServerOption toggles compositor components.
type ServerOption func(*serverOptions)

type serverOptions struct {
	enableHTTP bool
	enableRPC  bool
}

// WithHTTP enables the HTTP command server.
func WithHTTP() ServerOption {
	return func(o *serverOptions) { o.enableHTTP = true }
}

// WithRPC enables the gRPC unix socket server.
func WithRPC() ServerOption {
	return func(o *serverOptions) { o.enableRPC = true }
}

// New constructs a composable tabshell server. It opens the record store
// under the data directory, which stays locked until Stop.
func New(cfg ServerConfig, deps ServerDeps, opts ...ServerOption) (Server, error) {
	options := serverOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	if !options.enableHTTP && !options.enableRPC {
		return nil, errors.New("no services enabled")
	}
	if deps.Surfaces == nil {
		return nil, errors.New("surface factory is required")
	}
	normalized, err := schema.NormalizeShellConfig(cfg.Shell)
	if err != nil {
		return nil, err
	}
	cfg.Shell = normalized

	logger := deps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	store, err := persist.Open(cfg.Shell.DataDir, persist.Options{
		Logger:       logger,
		MaxHistory:   cfg.Shell.HistoryMaxEntries,
		DisplayLimit: cfg.Shell.HistoryDisplayLimit,
	})
	if err != nil {
		return nil, err
	}

	bus := eventbus.NewWithHistory(logger, cfg.EventHistory)
	var sink core.EventSink = bus
	if deps.EventSink != nil {
		sink = eventFanout{sinks: []core.EventSink{deps.EventSink, bus}}
	}
	service, err := core.NewService(cfg.Shell, core.ServiceDeps{
		Surfaces:  deps.Surfaces,
		History:   store,
		EventSink: sink,
		Logger:    logger,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	handler := command.NewHandler(service, store, command.HandlerConfig{
		DisableAuditLogging: cfg.DisableAuditLogging,
	})

	srv := &compositeServer{
		cfg:     cfg,
		options: options,
		service: service,
		store:   store,
		bus:     bus,
	}
	if options.enableHTTP {
		srv.httpSrv = httpapi.NewServer(cfg.HTTP, handler, commandCatalog(), bus)
	}
	if options.enableRPC {
		srv.rpcSrv = shellrpc.NewServer(cfg.RPC, handler, bus)
	}
	return srv, nil
}

func commandCatalog() []string {
	names := command.Names()
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, string(name))
	}
	return out
}

type compositeServer struct {
	cfg     ServerConfig
	options serverOptions
	service core.Service
	store   *persist.Store
	bus     *eventbus.Bus
	httpSrv *httpapi.Server
	rpcSrv  *shellrpc.Server
	logger  pslog.Logger

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	errCh   chan error
	wg      sync.WaitGroup
	started bool
	stopped bool
}

func (s *compositeServer) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		pslog.Ctx(ctx).Warn("server start rejected", "reason", "already started")
		return errors.New("server already started")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.errCh = make(chan error, 2)
	s.started = true
	s.logger = pslog.Ctx(s.ctx)
	s.mu.Unlock()

	log := s.logger
	log.Info(
		"server start",
		"http", s.options.enableHTTP,
		"rpc", s.options.enableRPC,
		"http_addr", s.cfg.HTTP.Addr,
		"rpc_socket", s.cfg.RPC.SocketPath,
		"data_dir", s.cfg.Shell.DataDir,
	)
	if s.httpSrv != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := httpapi.ListenAndServe(s.ctx, s.cfg.HTTP.Addr, s.httpSrv.Handler()); err != nil {
				log.Error("http server failed", "err", err)
				s.errCh <- err
			}
		}()
	}
	if s.rpcSrv != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.rpcSrv.ListenAndServe(s.ctx); err != nil {
				log.Error("rpc server failed", "err", err)
				s.errCh <- err
			}
		}()
	}
	return nil
}

func (s *compositeServer) Wait() error {
	s.mu.Lock()
	ctx := s.ctx
	errCh := s.errCh
	started := s.started
	s.mu.Unlock()
	if !started {
		return errors.New("server not started")
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		if err != nil {
			pslog.Ctx(ctx).Error("server stopped", "err", err)
			_ = s.Stop(context.Background())
			return err
		}
		return nil
	}
}

// Stop tears down every tab, stops the transports and releases the data
// directory. It is safe to call more than once.
func (s *compositeServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	started := s.started
	stopped := s.stopped
	s.stopped = true
	log := s.logger
	s.mu.Unlock()
	if stopped {
		return nil
	}
	if log == nil {
		log = pslog.Ctx(context.Background())
	}
	if ctx == nil {
		ctx = context.Background()
	}
	log.Info("server stop requested")
	if _, err := s.service.Teardown(pslog.ContextWithLogger(ctx, log), schema.TeardownRequest{}); err != nil {
		log.Warn("server teardown failed", "err", err)
	}
	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		if started {
			s.wg.Wait()
		}
		close(done)
	}()
	var err error
	select {
	case <-ctx.Done():
		log.Warn("server stop timed out", "err", ctx.Err())
		err = ctx.Err()
	case <-done:
	}
	if closeErr := s.store.Close(); closeErr != nil {
		log.Warn("server store close failed", "err", closeErr)
		if err == nil {
			err = closeErr
		}
	}
	if err == nil {
		log.Info("server stopped")
	}
	return err
}
