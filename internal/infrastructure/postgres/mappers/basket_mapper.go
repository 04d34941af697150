package mappers

import (
	"github.com/LavaJover/shvark-lottery-service/internal/domain"
	"github.com/LavaJover/shvark-lottery-service/internal/infrastructure/postgres/models"
)

func ToDomainBasket(model *models.BasketModel) *domain.Basket {
	b := &domain.Basket{
		ID:            model.ID,
		UserID:        model.UserID,
		StartDate:     model.StartDate,
		EndDate:       model.EndDate,
		PaymentStatus: domain.PaymentStatus(model.PaymentStatus),
		GatewayTxID:   model.GatewayTxID,
		OrderID:       model.OrderID,
	}
	if model.CancelReason != nil {
		reason := domain.CancelReason(*model.CancelReason)
		b.CancelReason = &reason
	}
	for i := range model.Reservations {
		b.Reservations = append(b.Reservations, ToDomainReservation(&model.Reservations[i]))
	}
	return b
}

func ToGORMBasket(b *domain.Basket) *models.BasketModel {
	model := &models.BasketModel{
		ID:            b.ID,
		UserID:        b.UserID,
		StartDate:     b.StartDate,
		EndDate:       b.EndDate,
		PaymentStatus: string(b.PaymentStatus),
		GatewayTxID:   b.GatewayTxID,
		OrderID:       b.OrderID,
	}
	if b.CancelReason != nil {
		reason := string(*b.CancelReason)
		model.CancelReason = &reason
	}
	return model
}

func ToDomainReservation(model *models.ReservationModel) *domain.Reservation {
	return &domain.Reservation{
		ID:           model.ID,
		BasketID:     model.BasketID,
		LotteryID:    model.LotteryID,
		TicketID:     model.TicketID,
		TicketNumber: model.TicketNumber,
		CreatedAt:    model.CreatedAt,
	}
}

func ToGORMReservation(r *domain.Reservation) *models.ReservationModel {
	return &models.ReservationModel{
		ID:           r.ID,
		BasketID:     r.BasketID,
		LotteryID:    r.LotteryID,
		TicketID:     r.TicketID,
		TicketNumber: r.TicketNumber,
		CreatedAt:    r.CreatedAt,
	}
}
