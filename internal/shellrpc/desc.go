package shellrpc

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "tabshell.v1.Shell"

// navigationPrefix starts every navigation failure message, see schema.NavigationError.
const navigationPrefix = "navigation to "

const (
	invokeMethod = "/" + ServiceName + "/Invoke"
	eventsMethod = "/" + ServiceName + "/Events"
)

// ShellServer is the server side of tabshell.v1.Shell. Messages are
// google.protobuf.Struct so no generated stubs are needed.
//
//	Invoke: {command, payload} -> {result}
//	Events: {after?} -> stream {seq, type, tabId, url, title, timestamp}
type ShellServer interface {
	Invoke(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Events(req *structpb.Struct, stream grpc.ServerStream) error
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ShellServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Invoke", Handler: invokeHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Events", Handler: eventsHandler, ServerStreams: true},
	},
	Metadata: "tabshell/v1/shell.proto",
}

// RegisterShellServer registers srv on s.
func RegisterShellServer(s grpc.ServiceRegistrar, srv ShellServer) {
	s.RegisterService(&serviceDesc, srv)
}

func invokeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ShellServer).Invoke(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: invokeMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ShellServer).Invoke(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func eventsHandler(srv any, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(ShellServer).Events(in, stream)
}

// toValue converts any JSON-encodable value into a protobuf value.
func toValue(v any) (*structpb.Value, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, err
	}
	return structpb.NewValue(generic)
}

// toStruct converts a JSON object value into a protobuf struct.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := &structpb.Struct{}
	if err := out.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return out, nil
}

// fromValue re-encodes a protobuf value as JSON.
func fromValue(v *structpb.Value) (json.RawMessage, error) {
	if v == nil {
		return json.RawMessage("null"), nil
	}
	return v.MarshalJSON()
}
