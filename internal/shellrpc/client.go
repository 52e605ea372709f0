package shellrpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"pkt.systems/pslog"
	"pkt.systems/tabshell/internal/eventbus"
	"pkt.systems/tabshell/schema"
)

// Client talks to a running shell over its unix socket.
type Client struct {
	conn *grpc.ClientConn
}

// Dial creates a new client over a Unix domain socket.
func Dial(ctx context.Context, socketPath string) (*Client, error) {
	if socketPath == "" {
		return nil, errors.New("rpc socket path is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dialer := func(ctx context.Context, addr string) (net.Conn, error) {
		var d net.Dialer
		return d.DialContext(ctx, "unix", addr)
	}
	conn, err := grpc.NewClient(
		"passthrough:///"+socketPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithContextDialer(dialer),
	)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn}, nil
}

// Close closes the underlying gRPC connection.
func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Invoke runs a command and returns its JSON result.
func (c *Client) Invoke(ctx context.Context, name string, payload json.RawMessage) (json.RawMessage, error) {
	if c.conn == nil {
		return nil, errors.New("rpc client not initialized")
	}
	fields := map[string]*structpb.Value{"command": structpb.NewStringValue(name)}
	if len(payload) > 0 {
		var generic any
		if err := json.Unmarshal(payload, &generic); err != nil {
			return nil, fmt.Errorf("%w: payload is not json: %v", schema.ErrInvalidRequest, err)
		}
		value, err := structpb.NewValue(generic)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", schema.ErrInvalidRequest, err)
		}
		fields["payload"] = value
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, invokeMethod, &structpb.Struct{Fields: fields}, out); err != nil {
		logGRPCError(pslog.Ctx(ctx), "shell grpc invoke failed", err)
		return nil, fromStatus(err)
	}
	return fromValue(out.GetFields()["result"])
}

// EventStream is an open UI event subscription.
type EventStream struct {
	stream grpc.ClientStream
}

// Events opens the UI event stream. A non-zero after replays buffered events
// with a higher sequence first.
func (c *Client) Events(ctx context.Context, after uint64) (*EventStream, error) {
	if c.conn == nil {
		return nil, errors.New("rpc client not initialized")
	}
	stream, err := c.conn.NewStream(ctx, &serviceDesc.Streams[0], eventsMethod)
	if err != nil {
		return nil, fromStatus(err)
	}
	req := &structpb.Struct{Fields: map[string]*structpb.Value{}}
	if after > 0 {
		req.Fields["after"] = structpb.NewNumberValue(float64(after))
	}
	if err := stream.SendMsg(req); err != nil {
		return nil, fromStatus(err)
	}
	if err := stream.CloseSend(); err != nil {
		return nil, fromStatus(err)
	}
	return &EventStream{stream: stream}, nil
}

// Recv blocks for the next event. It returns io.EOF when the server ends the stream.
func (s *EventStream) Recv() (eventbus.Event, error) {
	msg := new(structpb.Struct)
	if err := s.stream.RecvMsg(msg); err != nil {
		return eventbus.Event{}, err
	}
	data, err := msg.MarshalJSON()
	if err != nil {
		return eventbus.Event{}, err
	}
	var event eventbus.Event
	if err := json.Unmarshal(data, &event); err != nil {
		return eventbus.Event{}, fmt.Errorf("decode event: %w", err)
	}
	return event, nil
}

func logGRPCError(log pslog.Logger, msg string, err error) {
	if log == nil || err == nil {
		return
	}
	if st, ok := status.FromError(err); ok {
		log.Debug(msg, "err", err, "code", st.Code().String(), "message", st.Message())
		return
	}
	log.Debug(msg, "err", err)
}

// remoteError carries the server's message and the matching shell sentinel.
type remoteError struct {
	msg  string
	kind error
}

func (e *remoteError) Error() string { return e.msg }

func (e *remoteError) Unwrap() error { return e.kind }

// fromStatus maps gRPC codes back onto shell errors.
func fromStatus(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.Unimplemented:
		return &remoteError{msg: st.Message(), kind: schema.ErrUnknownCommand}
	case codes.InvalidArgument:
		return &remoteError{msg: st.Message(), kind: schema.ErrInvalidRequest}
	case codes.Unavailable:
		// Transport failures share the code; navigation failures carry their own message.
		if strings.HasPrefix(st.Message(), navigationPrefix) {
			return &remoteError{msg: st.Message(), kind: schema.ErrNavigation}
		}
		return err
	case codes.FailedPrecondition:
		return &remoteError{msg: st.Message(), kind: schema.ErrServiceClosed}
	case codes.Canceled:
		return context.Canceled
	case codes.DeadlineExceeded:
		return context.DeadlineExceeded
	default:
		return err
	}
}
