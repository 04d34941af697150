package basket

import (
	"context"
	"fmt"

	"github.com/LavaJover/shvark-lottery-service/internal/domain"
	basketdto "github.com/LavaJover/shvark-lottery-service/internal/usecase/dto/basket"
	"go.uber.org/zap"
)

func (uc *DefaultBasketUsecase) RemoveTicket(ctx context.Context, input *basketdto.RemoveTicketInput) (*domain.Basket, error) {
	b, err := uc.FindActiveBasket(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	if b.PaymentStatus == domain.PaymentStatusPending {
		return nil, domain.NewConflictError(domain.ErrPaymentProcessing)
	}

	err = uc.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		deleted, err := uc.BasketRepo.DeleteReservation(ctx, b.ID, input.LotteryID, input.TicketID)
		if err != nil {
			return err
		}
		if !deleted {
			return domain.NewValidationError(fmt.Errorf("%w: %d/%d", domain.ErrTicketNotInBasket, input.LotteryID, input.TicketID))
		}
		_, err = uc.TicketRepo.Release(ctx, input.LotteryID, input.TicketID)
		return err
	})
	if err != nil {
		return nil, err
	}
	uc.Logger.Info("ticket removed from basket",
		zap.String("basket_id", b.ID), zap.Int64("lottery_id", input.LotteryID), zap.Int64("ticket_id", input.TicketID))
	return uc.BasketRepo.GetBasket(ctx, b.ID)
}

// Clear releases every reservation and closes the basket as canceled by the user.
func (uc *DefaultBasketUsecase) Clear(ctx context.Context, userID string) error {
	b, err := uc.FindActiveBasket(ctx, userID)
	if err != nil {
		return err
	}
	if b.PaymentStatus == domain.PaymentStatusPending {
		return domain.NewConflictError(domain.ErrPaymentProcessing)
	}

	err = uc.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		closed, err := uc.BasketRepo.CloseBasket(ctx, b.ID, domain.CancelReasonCanceledByUser, b.PaymentStatus)
		if err != nil {
			return err
		}
		if !closed {
			return domain.NewConflictError(fmt.Errorf("basket %s already closed", b.ID))
		}
		return uc.releaseAll(ctx, b.ID)
	})
	if err != nil {
		return err
	}
	uc.Metrics.RecordBasketClosed(string(domain.CancelReasonCanceledByUser))
	uc.Logger.Info("basket cleared", zap.String("basket_id", b.ID))
	return nil
}

// releaseAll frees unpaid tickets of the basket and drops its links.
func (uc *DefaultBasketUsecase) releaseAll(ctx context.Context, basketID string) error {
	reservations, err := uc.BasketRepo.ListReservations(ctx, basketID)
	if err != nil {
		return err
	}
	for _, r := range reservations {
		if _, err := uc.TicketRepo.Release(ctx, r.LotteryID, r.TicketID); err != nil {
			return err
		}
	}
	return uc.BasketRepo.DeleteReservations(ctx, basketID)
}
