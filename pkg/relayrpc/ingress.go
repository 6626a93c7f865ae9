package relayrpc

import (
	"context"

	"google.golang.org/grpc"
)

// SubmitMethod is the full gRPC method name of Ingress.Submit.
const SubmitMethod = "/heartrelay.v1.Ingress/Submit"

// SubmitRequest carries one heart-rate sample from a producer.
type SubmitRequest struct {
	HeartRate int32 `json:"heart_rate"`
}

// SubmitResponse acknowledges a submitted sample.
type SubmitResponse struct {
	Ok      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

// IngressServer is implemented by the relay's producer ingress.
type IngressServer interface {
	Submit(context.Context, *SubmitRequest) (*SubmitResponse, error)
}

// IngressClient submits samples to a relay.
type IngressClient interface {
	Submit(ctx context.Context, in *SubmitRequest, opts ...grpc.CallOption) (*SubmitResponse, error)
}

type ingressClient struct {
	cc grpc.ClientConnInterface
}

// NewIngressClient returns an IngressClient bound to cc.
func NewIngressClient(cc grpc.ClientConnInterface) IngressClient {
	return &ingressClient{cc: cc}
}

func (c *ingressClient) Submit(ctx context.Context, in *SubmitRequest, opts ...grpc.CallOption) (*SubmitResponse, error) {
	out := new(SubmitResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(ContentSubtype)}, opts...)
	if err := c.cc.Invoke(ctx, SubmitMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// RegisterIngressServer registers srv on s.
func RegisterIngressServer(s grpc.ServiceRegistrar, srv IngressServer) {
	s.RegisterService(&ingressServiceDesc, srv)
}

func submitHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(SubmitRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(IngressServer).Submit(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: SubmitMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(IngressServer).Submit(ctx, req.(*SubmitRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var ingressServiceDesc = grpc.ServiceDesc{
	ServiceName: "heartrelay.v1.Ingress",
	HandlerType: (*IngressServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Submit", Handler: submitHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "heartrelay/v1/ingress",
}
