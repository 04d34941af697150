package basket

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/LavaJover/shvark-lottery-service/internal/domain"
	basketdto "github.com/LavaJover/shvark-lottery-service/internal/usecase/dto/basket"
	"github.com/jaevor/go-nanoid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const orderSuffixLen = 6

func newOrderIDGenerator() (func() string, error) {
	return nanoid.Standard(21)
}

type checkout struct {
	reservations []*domain.Reservation
	lotteries    map[int64]*domain.Lottery
	amount       decimal.Decimal
	currency     string
}

// loadCheckout prices the basket from current lottery prices. onSale makes
// a closed sale an error; settling an already taken charge skips that check.
func (uc *DefaultBasketUsecase) loadCheckout(ctx context.Context, b *domain.Basket, onSale bool) (*checkout, error) {
	reservations, err := uc.BasketRepo.ListReservations(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	if len(reservations) == 0 {
		return nil, domain.NewValidationError(domain.ErrBasketEmpty)
	}
	co := &checkout{reservations: reservations, lotteries: make(map[int64]*domain.Lottery), amount: decimal.Zero}
	now := uc.now()
	for _, r := range reservations {
		lottery, ok := co.lotteries[r.LotteryID]
		if !ok {
			if lottery, err = uc.lotteryFor(ctx, r.LotteryID); err != nil {
				return nil, err
			}
			if onSale && !lottery.OnSale(now) {
				return nil, domain.NewValidationError(fmt.Errorf("%w: lottery %d", domain.ErrLotteryNotOnSale, lottery.ID))
			}
			co.lotteries[r.LotteryID] = lottery
		}
		if co.currency == "" {
			co.currency = lottery.Currency
		} else if co.currency != lottery.Currency {
			return nil, domain.NewValidationError(domain.ErrMixedCurrencies)
		}
		co.amount = co.amount.Add(lottery.TicketPrice)
	}
	return co, nil
}

func (uc *DefaultBasketUsecase) Pay(ctx context.Context, userID string) (*basketdto.PayOutput, error) {
	started := uc.now()
	b, err := uc.FindActiveBasket(ctx, userID)
	if err != nil {
		return nil, err
	}
	log := uc.Logger.With(zap.String("basket_id", b.ID), zap.String("user_id", userID))

	// A previous attempt may have been charged without being settled here.
	if b.AwaitingCharge() {
		status, err := uc.chargeStatus(ctx, b.GatewayTxID)
		if err != nil {
			return nil, err
		}
		switch status {
		case domain.ChargeStatusSuccess:
			co, err := uc.loadCheckout(ctx, b, false)
			if err != nil {
				return nil, err
			}
			log.Info("settling previously confirmed charge", zap.String("order_id", b.OrderID))
			return uc.finalize(ctx, b, co, b.OrderID, b.GatewayTxID, started)
		case domain.ChargeStatusError, domain.ChargeStatusCancelled:
			if err := uc.markPayment(ctx, b.ID, domain.PaymentStatusFailed, "", ""); err != nil {
				return nil, err
			}
			log.Info("previous charge failed at gateway, charging again", zap.String("order_id", b.OrderID))
		default:
			return nil, domain.NewConflictError(domain.ErrPaymentProcessing)
		}
	}

	co, err := uc.loadCheckout(ctx, b, true)
	if err != nil {
		return nil, err
	}

	baseOrderID := uc.orderID()
	orderID := baseOrderID
	begun, err := uc.BasketRepo.BeginPayment(ctx, b.ID, orderID)
	if err != nil {
		return nil, err
	}
	if !begun {
		return nil, domain.NewConflictError(domain.ErrPaymentProcessing)
	}

	// keep the basket out of the expiry sweep while the charge is in flight
	if _, err := uc.BasketRepo.ExtendBasket(ctx, b.ID, uc.now().Add(uc.Options.TTL)); err != nil {
		return nil, err
	}

	var result *domain.ChargeResult
	for attempt := 1; ; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, uc.Options.PaymentTimeout)
		result, err = uc.Gateway.CreateCharge(callCtx, domain.ChargeRequest{
			IdempotencyKey: uc.newID(),
			OrderID:        orderID,
			Amount:         co.amount,
			Currency:       co.currency,
			Method:         uc.Options.PaymentMethod,
			Metadata:       map[string]string{"basket_id": b.ID, "user_id": userID},
		})
		cancel()
		if err != nil {
			uc.Metrics.RecordPayment("error", uc.now().Sub(started).Seconds())
			log.Error("charge failed, basket stays open", zap.String("order_id", orderID), zap.Error(err))
			if markErr := uc.markPayment(ctx, b.ID, domain.PaymentStatusFailed, "", orderID); markErr != nil {
				log.Error("recording failed payment", zap.Error(markErr))
			}
			if !domain.IsRetryable(err) && errors.Is(err, context.DeadlineExceeded) {
				err = domain.NewTransientError("create charge", err)
			}
			return nil, fmt.Errorf("charge basket %s: %w", b.ID, err)
		}
		if result.Success {
			break
		}
		if result.ErrorCode == domain.ChargeErrorDuplicateOrder {
			if attempt < uc.Options.MaxOrderRetries {
				orderID = baseOrderID + "-" + uc.orderID()[:orderSuffixLen]
				log.Warn("duplicate order id, retrying with suffix", zap.String("order_id", orderID), zap.Int("attempt", attempt))
				continue
			}
			uc.Metrics.RecordPayment("duplicate", uc.now().Sub(started).Seconds())
			if markErr := uc.markPayment(ctx, b.ID, domain.PaymentStatusFailed, "", orderID); markErr != nil {
				log.Error("recording failed payment", zap.Error(markErr))
			}
			return nil, domain.NewConflictError(fmt.Errorf("%w after %d attempts", domain.ErrDuplicateOrder, attempt))
		}

		uc.Metrics.RecordPayment("declined", uc.now().Sub(started).Seconds())
		log.Warn("charge declined", zap.String("order_id", orderID), zap.String("error_code", result.ErrorCode))
		if markErr := uc.markPayment(ctx, b.ID, domain.PaymentStatusDeclined, "", orderID); markErr != nil {
			log.Error("recording declined payment", zap.Error(markErr))
		}
		return nil, domain.NewValidationError(fmt.Errorf("%w: %s", domain.ErrPaymentDeclined, result.ErrorCode))
	}

	if err := uc.markPayment(ctx, b.ID, domain.PaymentStatusPending, result.GatewayTxID, orderID); err != nil {
		// settlement below still runs; reconciliation finds the charge otherwise
		log.Error("recording gateway transaction", zap.String("gateway_tx_id", result.GatewayTxID), zap.Error(err))
	}
	return uc.finalize(ctx, b, co, orderID, result.GatewayTxID, started)
}

// finalize turns the reservations into purchases and closes the basket, all
// in one transaction.
func (uc *DefaultBasketUsecase) finalize(ctx context.Context, b *domain.Basket, co *checkout, orderID, gatewayTxID string, started time.Time) (*basketdto.PayOutput, error) {
	now := uc.now()
	purchases := make([]*domain.PurchaseRecord, 0, len(co.reservations))
	for _, r := range co.reservations {
		lottery := co.lotteries[r.LotteryID]
		purchases = append(purchases, &domain.PurchaseRecord{
			LotteryID:    r.LotteryID,
			LotteryType:  lottery.Type,
			TicketID:     r.TicketID,
			TicketNumber: r.TicketNumber,
			UserID:       b.UserID,
			BasketID:     b.ID,
			Price:        lottery.TicketPrice,
			Currency:     lottery.Currency,
			PurchasedAt:  now,
		})
	}

	err := uc.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		closed, err := uc.BasketRepo.CloseBasket(ctx, b.ID, domain.CancelReasonPaymentSuccess, domain.PaymentStatusSuccess)
		if err != nil {
			return err
		}
		if !closed {
			return domain.NewConflictError(fmt.Errorf("basket %s closed before settlement", b.ID))
		}
		for _, r := range co.reservations {
			paid, err := uc.TicketRepo.MarkPaid(ctx, r.LotteryID, r.TicketID)
			if err != nil {
				return err
			}
			if !paid {
				return domain.NewConflictError(fmt.Errorf("%w: %s", domain.ErrTicketUnavailable, r.TicketNumber))
			}
		}
		return uc.PurchaseRepo.CreatePurchases(ctx, purchases)
	})
	if err != nil {
		uc.Logger.Error("charged basket not settled",
			zap.String("basket_id", b.ID), zap.String("order_id", orderID),
			zap.String("gateway_tx_id", gatewayTxID), zap.Error(err))
		return nil, err
	}

	if uc.Leaderboard != nil {
		ids := make([]int64, 0, len(co.lotteries))
		for id := range co.lotteries {
			ids = append(ids, id)
		}
		uc.Leaderboard.Invalidate(ctx, ids...)
	}

	amount, _ := co.amount.Float64()
	uc.Metrics.RecordPayment("success", uc.now().Sub(started).Seconds())
	uc.Metrics.RecordSale(co.currency, len(purchases), amount)
	uc.Metrics.RecordBasketClosed(string(domain.CancelReasonPaymentSuccess))
	uc.Logger.Info("basket paid",
		zap.String("basket_id", b.ID), zap.String("order_id", orderID),
		zap.String("gateway_tx_id", gatewayTxID), zap.Int("tickets", len(purchases)))

	updated, err := uc.BasketRepo.GetBasket(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	return &basketdto.PayOutput{Basket: updated, Purchases: purchases, OrderID: orderID, GatewayTxID: gatewayTxID}, nil
}

// ReconcilePayments settles baskets whose pending charge has since resolved.
func (uc *DefaultBasketUsecase) ReconcilePayments(ctx context.Context) (int, error) {
	baskets, err := uc.BasketRepo.ListPendingPayments(ctx, uc.Options.SweepBatch)
	if err != nil {
		return 0, err
	}
	settled := 0
	var errs []error
	for _, b := range baskets {
		log := uc.Logger.With(zap.String("basket_id", b.ID), zap.String("order_id", b.OrderID))
		status, err := uc.chargeStatus(ctx, b.GatewayTxID)
		if err != nil {
			log.Warn("charge status unavailable", zap.Error(err))
			errs = append(errs, err)
			continue
		}
		switch status {
		case domain.ChargeStatusSuccess:
			co, err := uc.loadCheckout(ctx, b, false)
			if err == nil {
				_, err = uc.finalize(ctx, b, co, b.OrderID, b.GatewayTxID, uc.now())
			}
			if err != nil {
				errs = append(errs, err)
				continue
			}
			settled++
		case domain.ChargeStatusError, domain.ChargeStatusCancelled:
			if err := uc.markPayment(ctx, b.ID, domain.PaymentStatusFailed, "", ""); err != nil {
				errs = append(errs, err)
				continue
			}
			log.Info("pending charge failed at gateway", zap.String("status", string(status)))
		}
	}
	return settled, errors.Join(errs...)
}

func (uc *DefaultBasketUsecase) chargeStatus(ctx context.Context, gatewayTxID string) (domain.ChargeStatus, error) {
	callCtx, cancel := context.WithTimeout(ctx, uc.Options.PaymentTimeout)
	defer cancel()
	return uc.Gateway.GetStatus(callCtx, gatewayTxID)
}

func (uc *DefaultBasketUsecase) markPayment(ctx context.Context, basketID string, status domain.PaymentStatus, gatewayTxID, orderID string) error {
	ok, err := uc.BasketRepo.UpdatePaymentState(ctx, basketID, status, gatewayTxID, orderID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.NewConflictError(fmt.Errorf("basket %s is no longer open", basketID))
	}
	return nil
}
