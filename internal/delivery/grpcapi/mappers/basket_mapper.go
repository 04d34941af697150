package mappers

import (
	"github.com/LavaJover/shvark-lottery-service/internal/delivery/grpcapi/basketv1"
	"github.com/LavaJover/shvark-lottery-service/internal/domain"
)

func ToWireBasket(b *domain.Basket) *basketv1.Basket {
	if b == nil {
		return nil
	}
	out := &basketv1.Basket{
		ID:            b.ID,
		UserID:        b.UserID,
		StartDate:     b.StartDate,
		EndDate:       b.EndDate,
		PaymentStatus: string(b.PaymentStatus),
		Tickets:       ToWireReservations(b.Reservations),
	}
	if b.CancelReason != nil {
		out.CancelReason = string(*b.CancelReason)
	}
	return out
}

func ToWireReservations(list []*domain.Reservation) []basketv1.Reservation {
	out := make([]basketv1.Reservation, 0, len(list))
	for _, r := range list {
		out = append(out, basketv1.Reservation{
			LotteryID:    r.LotteryID,
			TicketID:     r.TicketID,
			TicketNumber: r.TicketNumber,
		})
	}
	return out
}

func ToWirePurchases(list []*domain.PurchaseRecord) []basketv1.Purchase {
	out := make([]basketv1.Purchase, 0, len(list))
	for _, p := range list {
		out = append(out, basketv1.Purchase{
			ID:           p.ID,
			LotteryID:    p.LotteryID,
			TicketNumber: p.TicketNumber,
			Price:        p.Price.StringFixed(2),
			Currency:     p.Currency,
		})
	}
	return out
}
