// Package proto holds the ParserService contract. Messages are protobuf
// well-known types, so the service descriptor is written by hand instead of
// generated from a .proto file:
//
//	service ParserService {
//	  rpc Parse(google.protobuf.Struct) returns (google.protobuf.Struct);
//	}
//
// Request fields: source (string), format (string, optional).
// Response fields: format (string), tree (object, see tree.Tree.AsMap).
package proto

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ParserService_ServiceName          = "treenav.ParserService"
	ParserService_Parse_FullMethodName = "/treenav.ParserService/Parse"
)

type ParserServiceClient interface {
	Parse(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type parserServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewParserServiceClient(cc grpc.ClientConnInterface) ParserServiceClient {
	return &parserServiceClient{cc}
}

func (c *parserServiceClient) Parse(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	err := c.cc.Invoke(ctx, ParserService_Parse_FullMethodName, in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

type ParserServiceServer interface {
	Parse(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// UnimplementedParserServiceServer can be embedded for forward compatibility.
type UnimplementedParserServiceServer struct{}

func (UnimplementedParserServiceServer) Parse(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Parse not implemented")
}

func RegisterParserServiceServer(s grpc.ServiceRegistrar, srv ParserServiceServer) {
	s.RegisterService(&ParserService_ServiceDesc, srv)
}

func _ParserService_Parse_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ParserServiceServer).Parse(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: ParserService_Parse_FullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ParserServiceServer).Parse(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

var ParserService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ParserService_ServiceName,
	HandlerType: (*ParserServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Parse",
			Handler:    _ParserService_Parse_Handler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "parser.proto",
}

// ParseRequest builds the request message.
func ParseRequest(source, format string) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"source": source,
		"format": format,
	})
}

// ServerOptions raises the server's message limits to maxBytes.
func ServerOptions(maxBytes int) []grpc.ServerOption {
	return []grpc.ServerOption{
		grpc.MaxRecvMsgSize(maxBytes),
		grpc.MaxSendMsgSize(maxBytes),
	}
}

// CallOptions raises the client's message limits to maxBytes.
func CallOptions(maxBytes int) grpc.DialOption {
	return grpc.WithDefaultCallOptions(
		grpc.MaxCallRecvMsgSize(maxBytes),
		grpc.MaxCallSendMsgSize(maxBytes),
	)
}
