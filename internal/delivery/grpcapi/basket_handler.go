package grpcapi

import (
	"context"
	"strings"

	"github.com/LavaJover/shvark-lottery-service/internal/delivery/grpcapi/basketv1"
	"github.com/LavaJover/shvark-lottery-service/internal/delivery/grpcapi/mappers"
	basketuc "github.com/LavaJover/shvark-lottery-service/internal/usecase/basket"
	basketdto "github.com/LavaJover/shvark-lottery-service/internal/usecase/dto/basket"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type BasketHandler struct {
	uc basketuc.BasketUsecase
	basketv1.UnimplementedBasketServiceServer
}

func NewBasketHandler(uc basketuc.BasketUsecase) *BasketHandler {
	return &BasketHandler{uc: uc}
}

func userID(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if ok {
		if values := md.Get(basketv1.UserIDHeader); len(values) > 0 && strings.TrimSpace(values[0]) != "" {
			return strings.TrimSpace(values[0]), nil
		}
	}
	return "", status.Errorf(codes.InvalidArgument, "metadata %s is required", basketv1.UserIDHeader)
}

func (h *BasketHandler) AddTickets(ctx context.Context, r *basketv1.AddTicketsRequest) (*basketv1.AddTicketsResponse, error) {
	user, err := userID(ctx)
	if err != nil {
		return nil, err
	}
	out, err := h.uc.AddTickets(ctx, &basketdto.AddTicketsInput{
		UserID:    user,
		LotteryID: r.LotteryID,
		TicketIDs: r.TicketIDs,
		Quantity:  r.Quantity,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return &basketv1.AddTicketsResponse{
		Basket:   mappers.ToWireBasket(out.Basket),
		Added:    mappers.ToWireReservations(out.Added),
		Rejected: out.Rejected,
	}, nil
}

func (h *BasketHandler) RemoveTicket(ctx context.Context, r *basketv1.RemoveTicketRequest) (*basketv1.BasketResponse, error) {
	user, err := userID(ctx)
	if err != nil {
		return nil, err
	}
	b, err := h.uc.RemoveTicket(ctx, &basketdto.RemoveTicketInput{UserID: user, LotteryID: r.LotteryID, TicketID: r.TicketID})
	if err != nil {
		return nil, toStatus(err)
	}
	return &basketv1.BasketResponse{Basket: mappers.ToWireBasket(b)}, nil
}

func (h *BasketHandler) ClearBasket(ctx context.Context, _ *basketv1.ClearBasketRequest) (*basketv1.ClearBasketResponse, error) {
	user, err := userID(ctx)
	if err != nil {
		return nil, err
	}
	if err := h.uc.Clear(ctx, user); err != nil {
		return nil, toStatus(err)
	}
	return &basketv1.ClearBasketResponse{Message: "basket cleared"}, nil
}

func (h *BasketHandler) Pay(ctx context.Context, _ *basketv1.PayRequest) (*basketv1.PayResponse, error) {
	user, err := userID(ctx)
	if err != nil {
		return nil, err
	}
	out, err := h.uc.Pay(ctx, user)
	if err != nil {
		return nil, toStatus(err)
	}
	return &basketv1.PayResponse{
		OrderID:     out.OrderID,
		GatewayTxID: out.GatewayTxID,
		Basket:      mappers.ToWireBasket(out.Basket),
		Purchases:   mappers.ToWirePurchases(out.Purchases),
	}, nil
}

func (h *BasketHandler) GetBasket(ctx context.Context, _ *basketv1.GetBasketRequest) (*basketv1.BasketResponse, error) {
	user, err := userID(ctx)
	if err != nil {
		return nil, err
	}
	b, err := h.uc.GetBasket(ctx, user)
	if err != nil {
		return nil, toStatus(err)
	}
	return &basketv1.BasketResponse{Basket: mappers.ToWireBasket(b)}, nil
}
