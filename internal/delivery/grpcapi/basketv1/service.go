package basketv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	ServiceName = "lottery.v1.BasketService"

	AddTicketsMethod   = "/lottery.v1.BasketService/AddTickets"
	RemoveTicketMethod = "/lottery.v1.BasketService/RemoveTicket"
	ClearBasketMethod  = "/lottery.v1.BasketService/ClearBasket"
	PayMethod          = "/lottery.v1.BasketService/Pay"
	GetBasketMethod    = "/lottery.v1.BasketService/GetBasket"
)

// UserIDHeader carries the caller's user id in request metadata.
const UserIDHeader = "x-user-id"

type BasketServiceServer interface {
	AddTickets(context.Context, *AddTicketsRequest) (*AddTicketsResponse, error)
	RemoveTicket(context.Context, *RemoveTicketRequest) (*BasketResponse, error)
	ClearBasket(context.Context, *ClearBasketRequest) (*ClearBasketResponse, error)
	Pay(context.Context, *PayRequest) (*PayResponse, error)
	GetBasket(context.Context, *GetBasketRequest) (*BasketResponse, error)
}

// UnimplementedBasketServiceServer can be embedded to stay forward compatible.
type UnimplementedBasketServiceServer struct{}

func (UnimplementedBasketServiceServer) AddTickets(context.Context, *AddTicketsRequest) (*AddTicketsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method AddTickets not implemented")
}
func (UnimplementedBasketServiceServer) RemoveTicket(context.Context, *RemoveTicketRequest) (*BasketResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method RemoveTicket not implemented")
}
func (UnimplementedBasketServiceServer) ClearBasket(context.Context, *ClearBasketRequest) (*ClearBasketResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ClearBasket not implemented")
}
func (UnimplementedBasketServiceServer) Pay(context.Context, *PayRequest) (*PayResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Pay not implemented")
}
func (UnimplementedBasketServiceServer) GetBasket(context.Context, *GetBasketRequest) (*BasketResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetBasket not implemented")
}

func RegisterBasketServiceServer(s grpc.ServiceRegistrar, srv BasketServiceServer) {
	s.RegisterService(&BasketServiceDesc, srv)
}

var BasketServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BasketServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "AddTickets", Handler: addTicketsHandler},
		{MethodName: "RemoveTicket", Handler: removeTicketHandler},
		{MethodName: "ClearBasket", Handler: clearBasketHandler},
		{MethodName: "Pay", Handler: payHandler},
		{MethodName: "GetBasket", Handler: getBasketHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "lottery/v1/basket.json",
}

func addTicketsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(AddTicketsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BasketServiceServer).AddTickets(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: AddTicketsMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(BasketServiceServer).AddTickets(ctx, req.(*AddTicketsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func removeTicketHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(RemoveTicketRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BasketServiceServer).RemoveTicket(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: RemoveTicketMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(BasketServiceServer).RemoveTicket(ctx, req.(*RemoveTicketRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func clearBasketHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ClearBasketRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BasketServiceServer).ClearBasket(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ClearBasketMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(BasketServiceServer).ClearBasket(ctx, req.(*ClearBasketRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func payHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(PayRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BasketServiceServer).Pay(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: PayMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(BasketServiceServer).Pay(ctx, req.(*PayRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getBasketHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetBasketRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BasketServiceServer).GetBasket(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GetBasketMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(BasketServiceServer).GetBasket(ctx, req.(*GetBasketRequest))
	}
	return interceptor(ctx, in, info, handler)
}

type BasketServiceClient interface {
	AddTickets(ctx context.Context, in *AddTicketsRequest, opts ...grpc.CallOption) (*AddTicketsResponse, error)
	RemoveTicket(ctx context.Context, in *RemoveTicketRequest, opts ...grpc.CallOption) (*BasketResponse, error)
	ClearBasket(ctx context.Context, in *ClearBasketRequest, opts ...grpc.CallOption) (*ClearBasketResponse, error)
	Pay(ctx context.Context, in *PayRequest, opts ...grpc.CallOption) (*PayResponse, error)
	GetBasket(ctx context.Context, in *GetBasketRequest, opts ...grpc.CallOption) (*BasketResponse, error)
}

type basketServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewBasketServiceClient returns a client that always speaks the JSON codec.
func NewBasketServiceClient(cc grpc.ClientConnInterface) BasketServiceClient {
	return &basketServiceClient{cc: cc}
}

func (c *basketServiceClient) invoke(ctx context.Context, method string, in, out any, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	return c.cc.Invoke(ctx, method, in, out, opts...)
}

func (c *basketServiceClient) AddTickets(ctx context.Context, in *AddTicketsRequest, opts ...grpc.CallOption) (*AddTicketsResponse, error) {
	out := new(AddTicketsResponse)
	if err := c.invoke(ctx, AddTicketsMethod, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *basketServiceClient) RemoveTicket(ctx context.Context, in *RemoveTicketRequest, opts ...grpc.CallOption) (*BasketResponse, error) {
	out := new(BasketResponse)
	if err := c.invoke(ctx, RemoveTicketMethod, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *basketServiceClient) ClearBasket(ctx context.Context, in *ClearBasketRequest, opts ...grpc.CallOption) (*ClearBasketResponse, error) {
	out := new(ClearBasketResponse)
	if err := c.invoke(ctx, ClearBasketMethod, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *basketServiceClient) Pay(ctx context.Context, in *PayRequest, opts ...grpc.CallOption) (*PayResponse, error) {
	out := new(PayResponse)
	if err := c.invoke(ctx, PayMethod, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *basketServiceClient) GetBasket(ctx context.Context, in *GetBasketRequest, opts ...grpc.CallOption) (*BasketResponse, error) {
	out := new(BasketResponse)
	if err := c.invoke(ctx, GetBasketMethod, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}
