package domain

import (
	"context"
	"time"
)

type CancelReason string

const (
	CancelReasonExpired        CancelReason = "EXPIRED"
	CancelReasonCanceledByUser CancelReason = "CANCELED_BY_USER"
	// CancelReasonPaymentFailed is reserved for operator closes; the engine keeps
	// baskets open after a failed charge so the reservation can be paid again.
	CancelReasonPaymentFailed  CancelReason = "PAYMENT_FAILED"
	CancelReasonPaymentSuccess CancelReason = "PAYMENT_SUCCESS"
)

type PaymentStatus string

const (
	PaymentStatusNone     PaymentStatus = "NONE"
	PaymentStatusPending  PaymentStatus = "PENDING"
	PaymentStatusFailed   PaymentStatus = "FAILED"
	PaymentStatusDeclined PaymentStatus = "DECLINED"
	PaymentStatusSuccess  PaymentStatus = "SUCCESS"
)

type Basket struct {
	ID            string
	UserID        string
	StartDate     time.Time
	EndDate       time.Time
	CancelReason  *CancelReason
	PaymentStatus PaymentStatus
	GatewayTxID   string
	OrderID       string
	Reservations  []*Reservation
}

func (b *Basket) IsOpen() bool {
	return b.CancelReason == nil
}

func (b *Basket) IsActive(now time.Time) bool {
	return b.IsOpen() && b.EndDate.After(now)
}

// AwaitingCharge reports a charge accepted by the gateway but not settled
// yet. Such a basket is only closed by payment settlement, never by expiry.
func (b *Basket) AwaitingCharge() bool {
	return b.PaymentStatus == PaymentStatusPending && b.GatewayTxID != ""
}

type Reservation struct {
	ID           int64
	BasketID     string
	LotteryID    int64
	TicketID     int64
	TicketNumber string
	CreatedAt    time.Time
}

type BasketRepository interface {
	// FindActiveBasket returns the user's OPEN basket with end_date > now or ErrBasketNotFound.
	FindActiveBasket(ctx context.Context, userID string, now time.Time) (*Basket, error)
	// ListStaleBaskets returns OPEN baskets of the user past end_date, except
	// those awaiting a charge.
	ListStaleBaskets(ctx context.Context, userID string, now time.Time) ([]*Basket, error)
	CreateBasket(ctx context.Context, b *Basket) error
	GetBasket(ctx context.Context, id string) (*Basket, error)
	// LockOpenBasket row-locks an OPEN basket for the rest of the transaction.
	LockOpenBasket(ctx context.Context, id string) (*Basket, error)
	ListReservations(ctx context.Context, basketID string) ([]*Reservation, error)
	AddReservations(ctx context.Context, reservations []*Reservation) error
	DeleteReservation(ctx context.Context, basketID string, lotteryID, ticketID int64) (bool, error)
	DeleteReservations(ctx context.Context, basketID string) error
	// ExtendBasket moves end_date of an OPEN basket.
	ExtendBasket(ctx context.Context, id string, endDate time.Time) (bool, error)
	// CloseBasket sets the cancel reason of an OPEN basket.
	CloseBasket(ctx context.Context, id string, reason CancelReason, status PaymentStatus) (bool, error)
	// ExpireBasket closes an OPEN basket whose end_date is before now and
	// which is not awaiting a charge.
	ExpireBasket(ctx context.Context, id string, now time.Time) (bool, error)
	ListExpiredBaskets(ctx context.Context, now time.Time, limit int) ([]*Basket, error)
	// BeginPayment moves an OPEN basket into PENDING with a new order id and
	// no gateway transaction. It reports false when the basket is closed or
	// already PENDING.
	BeginPayment(ctx context.Context, id, orderID string) (bool, error)
	UpdatePaymentState(ctx context.Context, id string, status PaymentStatus, gatewayTxID, orderID string) (bool, error)
	ListPendingPayments(ctx context.Context, limit int) ([]*Basket, error)
}
