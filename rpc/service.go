package rpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/yasminebenbraiek/multimedia-library-api/catalog"
)

// Handler serves the five operations of one catalog service.
type Handler interface {
	Handle(ctx context.Context, op catalog.Operation, req *Request) (*Reply, error)
}

// ServiceDesc builds the gRPC service description for a kind, e.g.
// book.BookService with GetBook, GetAllBooks, CreateBook, UpdateBook and
// DeleteBook.
func ServiceDesc(schema catalog.Schema) *grpc.ServiceDesc {
	ops := catalog.Operations()
	methods := make([]grpc.MethodDesc, 0, len(ops))
	for _, op := range ops {
		methods = append(methods, grpc.MethodDesc{
			MethodName: schema.MethodName(op),
			Handler:    unaryHandler(op, schema.FullMethod(op)),
		})
	}

	return &grpc.ServiceDesc{
		ServiceName: schema.Service,
		HandlerType: (*Handler)(nil),
		Methods:     methods,
		Streams:     []grpc.StreamDesc{},
		Metadata:    string(schema.Kind) + ".proto",
	}
}

// Register registers h as the kind's service on s.
func Register(s grpc.ServiceRegistrar, schema catalog.Schema, h Handler) {
	s.RegisterService(ServiceDesc(schema), h)
}

func unaryHandler(op catalog.Operation, fullMethod string) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Request)
		if err := dec(in); err != nil {
			return nil, err
		}
		h := srv.(Handler)
		if interceptor == nil {
			return h.Handle(ctx, op, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return h.Handle(ctx, op, req.(*Request))
		})
	}
}
