// Package shellrpc exposes the command interface and the UI event stream
// over gRPC on a unix socket.
package shellrpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"pkt.systems/pslog"
	"pkt.systems/tabshell/internal/eventbus"
	"pkt.systems/tabshell/internal/logx"
	"pkt.systems/tabshell/schema"
)

// Config controls the gRPC server setup.
type Config struct {
	SocketPath string
}

// Dispatcher runs wire commands.
type Dispatcher interface {
	Dispatch(ctx context.Context, name string, payload json.RawMessage) (any, error)
}

// EventSource feeds the event stream.
type EventSource interface {
	Subscribe() (<-chan eventbus.Event, func(), uint64)
	Replay(after uint64) []eventbus.Event
}

// Server implements ShellServer and provides a ListenAndServe entrypoint.
type Server struct {
	cfg      Config
	commands Dispatcher
	events   EventSource
	logger   pslog.Logger
}

var _ ShellServer = (*Server)(nil)

// NewServer constructs a shell gRPC server.
func NewServer(cfg Config, commands Dispatcher, events EventSource) *Server {
	return &Server{cfg: cfg, commands: commands, events: events}
}

// ListenAndServe serves on the unix socket until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s.cfg.SocketPath == "" {
		return errors.New("rpc socket path is required")
	}
	if s.commands == nil {
		return errors.New("rpc dispatcher is required")
	}
	if s.logger == nil {
		s.logger = pslog.Ctx(ctx)
	}
	if err := os.MkdirAll(filepath.Dir(s.cfg.SocketPath), 0o700); err != nil {
		return err
	}
	_ = os.Remove(s.cfg.SocketPath)

	listener, err := net.Listen("unix", s.cfg.SocketPath)
	if err != nil {
		return err
	}
	// The socket is the trust boundary: only the owning user may connect.
	if err := os.Chmod(s.cfg.SocketPath, 0o600); err != nil {
		_ = listener.Close()
		return err
	}
	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(s.logUnary))
	RegisterShellServer(grpcServer, s)
	s.logger.Info("shell grpc listening", "socket", s.cfg.SocketPath)

	errCh := make(chan error, 1)
	go func() {
		errCh <- grpcServer.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		grpcServer.GracefulStop()
		_ = os.Remove(s.cfg.SocketPath)
		s.logger.Info("shell grpc stopped")
		return nil
	case err := <-errCh:
		return err
	}
}

// Invoke runs one command: {command, payload} -> {result}.
func (s *Server) Invoke(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	name := fields["command"].GetStringValue()
	if name == "" {
		return nil, status.Error(codes.InvalidArgument, "command is required")
	}
	var payload json.RawMessage
	if raw, ok := fields["payload"]; ok {
		data, err := fromValue(raw)
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "payload: %v", err)
		}
		payload = data
	}
	result, err := s.commands.Dispatch(ctx, name, payload)
	if err != nil {
		return nil, toStatus(err)
	}
	value, err := toValue(result)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode result: %v", err)
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{"result": value}}, nil
}

// Events streams UI events. An "after" sequence replays buffered events first.
func (s *Server) Events(req *structpb.Struct, stream grpc.ServerStream) error {
	if s.events == nil {
		return status.Error(codes.Unimplemented, "event stream unavailable")
	}
	ctx := stream.Context()
	log := s.log(ctx)
	ch, cancel, seq := s.events.Subscribe()
	defer cancel()

	var last uint64
	if after, ok := req.GetFields()["after"]; ok {
		last = uint64(after.GetNumberValue())
		for _, event := range s.events.Replay(last) {
			if event.Seq > seq {
				break
			}
			if err := sendEvent(stream, event); err != nil {
				return err
			}
			last = event.Seq
		}
	}
	log.Debug("shell grpc events open", "after", last)
	for {
		select {
		case <-ctx.Done():
			log.Debug("shell grpc events closed")
			return nil
		case event, ok := <-ch:
			if !ok {
				return nil
			}
			if event.Seq <= last {
				continue
			}
			if err := sendEvent(stream, event); err != nil {
				log.Debug("shell grpc events send failed", "err", err)
				return err
			}
			last = event.Seq
		}
	}
}

func sendEvent(stream grpc.ServerStream, event eventbus.Event) error {
	msg, err := toStruct(event)
	if err != nil {
		return status.Errorf(codes.Internal, "encode event: %v", err)
	}
	return stream.SendMsg(msg)
}

func (s *Server) logUnary(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	started := time.Now()
	resp, err := handler(ctx, req)
	log := s.log(ctx)
	if err != nil {
		st, _ := status.FromError(err)
		log.Debug("shell grpc call", "method", info.FullMethod, "code", st.Code().String(), "duration_ms", time.Since(started).Milliseconds())
		return resp, err
	}
	log.Trace("shell grpc call", "method", info.FullMethod, "code", codes.OK.String(), "duration_ms", time.Since(started).Milliseconds())
	return resp, nil
}

func (s *Server) log(ctx context.Context) pslog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return logx.Ctx(ctx)
}

// toStatus maps shell errors onto gRPC codes.
func toStatus(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, schema.ErrUnknownCommand):
		return status.Error(codes.Unimplemented, err.Error())
	case errors.Is(err, schema.ErrInvalidRequest),
		errors.Is(err, schema.ErrInvalidBookmark),
		errors.Is(err, schema.ErrInvalidTabID):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, schema.ErrNavigation):
		msg := err.Error()
		if !strings.HasPrefix(msg, navigationPrefix) {
			msg = navigationPrefix + msg
		}
		return status.Error(codes.Unavailable, msg)
	case errors.Is(err, schema.ErrServiceClosed):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, fmt.Sprintf("command failed: %v", err))
	}
}
