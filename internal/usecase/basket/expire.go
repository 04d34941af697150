package basket

import (
	"context"
	"errors"
	"time"

	"github.com/LavaJover/shvark-lottery-service/internal/domain"
	"go.uber.org/zap"
)

// ExpireBaskets closes every OPEN basket past its end date and releases its
// tickets, whatever state the lotteries are in.
func (uc *DefaultBasketUsecase) ExpireBaskets(ctx context.Context) (int, error) {
	now := uc.now()
	expired := 0
	var errs []error
	for {
		baskets, err := uc.BasketRepo.ListExpiredBaskets(ctx, now, uc.Options.SweepBatch)
		if err != nil {
			return expired, err
		}
		progress := false
		for _, b := range baskets {
			ok, err := uc.expire(ctx, b, now)
			if err != nil {
				uc.Logger.Error("basket expiry failed", zap.String("basket_id", b.ID), zap.Error(err))
				errs = append(errs, err)
				continue
			}
			if ok {
				expired++
				progress = true
			}
		}
		if len(baskets) < uc.Options.SweepBatch || !progress {
			break
		}
	}
	if expired > 0 {
		uc.Logger.Info("baskets expired", zap.Int("count", expired))
	}
	return expired, errors.Join(errs...)
}

func (uc *DefaultBasketUsecase) expire(ctx context.Context, b *domain.Basket, now time.Time) (bool, error) {
	var closed bool
	err := uc.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		ok, err := uc.BasketRepo.ExpireBasket(ctx, b.ID, now)
		if err != nil || !ok {
			return err
		}
		closed = true
		return uc.releaseAll(ctx, b.ID)
	})
	if err != nil {
		return false, err
	}
	if closed {
		uc.Metrics.RecordBasketClosed(string(domain.CancelReasonExpired))
	}
	return closed, nil
}
