package repository

import (
	"context"
	"errors"
	"time"

	"github.com/LavaJover/shvark-lottery-service/internal/domain"
	"github.com/LavaJover/shvark-lottery-service/internal/infrastructure/postgres"
	"github.com/LavaJover/shvark-lottery-service/internal/infrastructure/postgres/mappers"
	"github.com/LavaJover/shvark-lottery-service/internal/infrastructure/postgres/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// notAwaitingCharge keeps baskets with an unsettled gateway charge out of
// expiry; reconciliation closes them.
const notAwaitingCharge = "NOT (payment_status = ? AND gateway_tx_id <> '')"

type DefaultBasketRepository struct {
	DB *gorm.DB
}

func NewDefaultBasketRepository(db *gorm.DB) *DefaultBasketRepository {
	return &DefaultBasketRepository{DB: db}
}

func (r *DefaultBasketRepository) FindActiveBasket(ctx context.Context, userID string, now time.Time) (*domain.Basket, error) {
	var model models.BasketModel
	err := postgres.Conn(ctx, r.DB).
		Preload("Reservations").
		Where("user_id = ? AND cancel_reason IS NULL AND end_date > ?", userID, now).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrBasketNotFound
		}
		return nil, postgres.Classify("find active basket", err)
	}
	return mappers.ToDomainBasket(&model), nil
}

// ListStaleBaskets returns OPEN baskets of the user whose TTL already passed.
func (r *DefaultBasketRepository) ListStaleBaskets(ctx context.Context, userID string, now time.Time) ([]*domain.Basket, error) {
	var list []models.BasketModel
	err := postgres.Conn(ctx, r.DB).
		Preload("Reservations").
		Where("user_id = ? AND cancel_reason IS NULL AND end_date <= ?", userID, now).
		Where(notAwaitingCharge, string(domain.PaymentStatusPending)).
		Find(&list).Error
	if err != nil {
		return nil, postgres.Classify("list stale baskets", err)
	}
	return toDomainBaskets(list), nil
}

func (r *DefaultBasketRepository) CreateBasket(ctx context.Context, b *domain.Basket) error {
	if err := postgres.Conn(ctx, r.DB).Create(mappers.ToGORMBasket(b)).Error; err != nil {
		return postgres.Classify("create basket", err)
	}
	return nil
}

func (r *DefaultBasketRepository) GetBasket(ctx context.Context, id string) (*domain.Basket, error) {
	var model models.BasketModel
	if err := postgres.Conn(ctx, r.DB).Preload("Reservations").First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrBasketNotFound
		}
		return nil, postgres.Classify("get basket", err)
	}
	return mappers.ToDomainBasket(&model), nil
}

func (r *DefaultBasketRepository) LockOpenBasket(ctx context.Context, id string) (*domain.Basket, error) {
	var model models.BasketModel
	err := postgres.Conn(ctx, r.DB).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND cancel_reason IS NULL", id).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrBasketNotFound
		}
		return nil, postgres.Classify("lock basket", err)
	}
	return mappers.ToDomainBasket(&model), nil
}

func (r *DefaultBasketRepository) ListReservations(ctx context.Context, basketID string) ([]*domain.Reservation, error) {
	var list []models.ReservationModel
	if err := postgres.Conn(ctx, r.DB).Where("basket_id = ?", basketID).Order("id").Find(&list).Error; err != nil {
		return nil, postgres.Classify("list reservations", err)
	}
	out := make([]*domain.Reservation, 0, len(list))
	for i := range list {
		out = append(out, mappers.ToDomainReservation(&list[i]))
	}
	return out, nil
}

func (r *DefaultBasketRepository) AddReservations(ctx context.Context, reservations []*domain.Reservation) error {
	if len(reservations) == 0 {
		return nil
	}
	rows := make([]*models.ReservationModel, 0, len(reservations))
	for _, res := range reservations {
		rows = append(rows, mappers.ToGORMReservation(res))
	}
	if err := postgres.Conn(ctx, r.DB).Create(&rows).Error; err != nil {
		return postgres.Classify("add reservations", err)
	}
	for i, row := range rows {
		reservations[i].ID = row.ID
		reservations[i].CreatedAt = row.CreatedAt
	}
	return nil
}

func (r *DefaultBasketRepository) DeleteReservation(ctx context.Context, basketID string, lotteryID, ticketID int64) (bool, error) {
	res := postgres.Conn(ctx, r.DB).
		Where("basket_id = ? AND lottery_id = ? AND ticket_id = ?", basketID, lotteryID, ticketID).
		Delete(&models.ReservationModel{})
	if res.Error != nil {
		return false, postgres.Classify("delete reservation", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *DefaultBasketRepository) DeleteReservations(ctx context.Context, basketID string) error {
	err := postgres.Conn(ctx, r.DB).Where("basket_id = ?", basketID).Delete(&models.ReservationModel{}).Error
	return postgres.Classify("delete reservations", err)
}

func (r *DefaultBasketRepository) ExtendBasket(ctx context.Context, id string, endDate time.Time) (bool, error) {
	return r.updateOpen("extend basket", r.openBasket(ctx, id), map[string]interface{}{"end_date": endDate})
}

func (r *DefaultBasketRepository) CloseBasket(ctx context.Context, id string, reason domain.CancelReason, status domain.PaymentStatus) (bool, error) {
	values := map[string]interface{}{"cancel_reason": string(reason)}
	if status != "" {
		values["payment_status"] = string(status)
	}
	return r.updateOpen("close basket", r.openBasket(ctx, id), values)
}

func (r *DefaultBasketRepository) ExpireBasket(ctx context.Context, id string, now time.Time) (bool, error) {
	q := r.openBasket(ctx, id).Where("end_date < ?", now).Where(notAwaitingCharge, string(domain.PaymentStatusPending))
	return r.updateOpen("expire basket", q, map[string]interface{}{"cancel_reason": string(domain.CancelReasonExpired)})
}

func (r *DefaultBasketRepository) ListExpiredBaskets(ctx context.Context, now time.Time, limit int) ([]*domain.Basket, error) {
	var list []models.BasketModel
	err := postgres.Conn(ctx, r.DB).
		Preload("Reservations").
		Where("cancel_reason IS NULL AND end_date < ?", now).
		Where(notAwaitingCharge, string(domain.PaymentStatusPending)).
		Order("end_date").
		Limit(limit).
		Find(&list).Error
	if err != nil {
		return nil, postgres.Classify("list expired baskets", err)
	}
	return toDomainBaskets(list), nil
}

func (r *DefaultBasketRepository) BeginPayment(ctx context.Context, id, orderID string) (bool, error) {
	q := r.openBasket(ctx, id).Where("payment_status <> ?", string(domain.PaymentStatusPending))
	return r.updateOpen("begin payment", q, map[string]interface{}{
		"payment_status": string(domain.PaymentStatusPending),
		"order_id":       orderID,
		"gateway_tx_id":  "",
	})
}

func (r *DefaultBasketRepository) UpdatePaymentState(ctx context.Context, id string, status domain.PaymentStatus, gatewayTxID, orderID string) (bool, error) {
	values := map[string]interface{}{"payment_status": string(status)}
	if gatewayTxID != "" {
		values["gateway_tx_id"] = gatewayTxID
	}
	if orderID != "" {
		values["order_id"] = orderID
	}
	return r.updateOpen("update payment state", r.openBasket(ctx, id), values)
}

func (r *DefaultBasketRepository) ListPendingPayments(ctx context.Context, limit int) ([]*domain.Basket, error) {
	var list []models.BasketModel
	err := postgres.Conn(ctx, r.DB).
		Preload("Reservations").
		Where("cancel_reason IS NULL AND payment_status = ? AND gateway_tx_id <> ''", string(domain.PaymentStatusPending)).
		Order("updated_at").
		Limit(limit).
		Find(&list).Error
	if err != nil {
		return nil, postgres.Classify("list pending payments", err)
	}
	return toDomainBaskets(list), nil
}

func (r *DefaultBasketRepository) openBasket(ctx context.Context, id string) *gorm.DB {
	return postgres.Conn(ctx, r.DB).Model(&models.BasketModel{}).Where("id = ? AND cancel_reason IS NULL", id)
}

func (r *DefaultBasketRepository) updateOpen(op string, q *gorm.DB, values map[string]interface{}) (bool, error) {
	res := q.Updates(values)
	if res.Error != nil {
		return false, postgres.Classify(op, res.Error)
	}
	return res.RowsAffected == 1, nil
}

func toDomainBaskets(list []models.BasketModel) []*domain.Basket {
	out := make([]*domain.Basket, 0, len(list))
	for i := range list {
		out = append(out, mappers.ToDomainBasket(&list[i]))
	}
	return out
}
