package basket

import (
	"context"
	"errors"
	"fmt"

	"github.com/LavaJover/shvark-lottery-service/internal/domain"
	basketdto "github.com/LavaJover/shvark-lottery-service/internal/usecase/dto/basket"
	"go.uber.org/zap"
)

func (uc *DefaultBasketUsecase) AddTickets(ctx context.Context, input *basketdto.AddTicketsInput) (*basketdto.AddTicketsOutput, error) {
	if input.UserID == "" {
		return nil, domain.NewValidationError(errors.New("user id is required"))
	}
	if len(input.TicketIDs) == 0 && input.Quantity <= 0 {
		return nil, domain.NewValidationError(domain.ErrInvalidQuantity)
	}

	lottery, err := uc.lotteryFor(ctx, input.LotteryID)
	if err != nil {
		return nil, err
	}
	if !lottery.OnSale(uc.now()) {
		return nil, domain.NewValidationError(fmt.Errorf("%w: lottery %d", domain.ErrLotteryNotOnSale, lottery.ID))
	}

	b, err := uc.openBasket(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	log := uc.Logger.With(zap.String("basket_id", b.ID), zap.Int64("lottery_id", lottery.ID))

	out := &basketdto.AddTicketsOutput{}
	err = uc.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		locked, err := uc.BasketRepo.LockOpenBasket(ctx, b.ID)
		if err != nil {
			if errors.Is(err, domain.ErrBasketNotFound) {
				return domain.NewConflictError(fmt.Errorf("basket %s closed meanwhile", b.ID))
			}
			return err
		}
		if locked.PaymentStatus == domain.PaymentStatusPending {
			return domain.NewConflictError(domain.ErrPaymentProcessing)
		}
		current, err := uc.BasketRepo.ListReservations(ctx, b.ID)
		if err != nil {
			return err
		}
		capacity := uc.Options.MaxTickets - len(current)
		if capacity <= 0 {
			return domain.NewValidationError(domain.ErrBasketFull)
		}
		if err := uc.checkCurrency(ctx, lottery, current); err != nil {
			return err
		}

		candidates, rejected, err := uc.resolveCandidates(ctx, lottery.ID, input, capacity)
		if err != nil {
			return err
		}
		if len(candidates) > capacity {
			for _, t := range candidates[capacity:] {
				rejected = append(rejected, t.SequenceID)
			}
			candidates = candidates[:capacity]
		}

		now := uc.now()
		var added []*domain.Reservation
		for _, t := range candidates {
			ok, err := uc.TicketRepo.Reserve(ctx, lottery.ID, t.SequenceID)
			if err != nil {
				return err
			}
			if !ok {
				rejected = append(rejected, t.SequenceID)
				continue
			}
			added = append(added, &domain.Reservation{
				BasketID:     b.ID,
				LotteryID:    lottery.ID,
				TicketID:     t.SequenceID,
				TicketNumber: t.TicketNumber,
				CreatedAt:    now,
			})
		}
		out.Rejected = rejected
		if len(added) == 0 {
			return domain.NewConflictError(fmt.Errorf("%w: %d requested tickets rejected", domain.ErrTicketUnavailable, len(rejected)))
		}

		if err := uc.BasketRepo.AddReservations(ctx, added); err != nil {
			return err
		}
		extended, err := uc.BasketRepo.ExtendBasket(ctx, b.ID, now.Add(uc.Options.TTL))
		if err != nil {
			return err
		}
		if !extended {
			return domain.NewConflictError(fmt.Errorf("basket %s closed meanwhile", b.ID))
		}
		out.Added = added
		return nil
	})
	uc.Metrics.RecordReservations(len(out.Added), len(out.Rejected))
	if err != nil {
		log.Warn("add tickets failed", zap.Int("rejected", len(out.Rejected)), zap.Error(err))
		return nil, err
	}

	if out.Basket, err = uc.BasketRepo.GetBasket(ctx, b.ID); err != nil {
		return nil, err
	}
	log.Info("tickets reserved", zap.Int("added", len(out.Added)), zap.Int("rejected", len(out.Rejected)))
	return out, nil
}

// resolveCandidates turns the request into tickets that looked free when read.
// Explicit ids that do not exist or are taken are rejected right away.
func (uc *DefaultBasketUsecase) resolveCandidates(ctx context.Context, lotteryID int64, input *basketdto.AddTicketsInput, capacity int) ([]*domain.Ticket, []int64, error) {
	if len(input.TicketIDs) == 0 {
		limit := input.Quantity
		if limit > capacity {
			limit = capacity
		}
		tickets, err := uc.TicketRepo.RandomAvailable(ctx, lotteryID, limit)
		if err != nil {
			return nil, nil, err
		}
		if len(tickets) == 0 {
			return nil, nil, domain.NewConflictError(domain.ErrNoTicketsAvailable)
		}
		return tickets, nil, nil
	}

	seen := make(map[int64]bool, len(input.TicketIDs))
	ids := make([]int64, 0, len(input.TicketIDs))
	for _, id := range input.TicketIDs {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	found, err := uc.TicketRepo.GetTickets(ctx, lotteryID, ids)
	if err != nil {
		return nil, nil, err
	}
	byID := make(map[int64]*domain.Ticket, len(found))
	for _, t := range found {
		byID[t.SequenceID] = t
	}

	var candidates []*domain.Ticket
	var rejected []int64
	for _, id := range ids {
		t, ok := byID[id]
		if !ok || t.IsReserved || t.IsPaid {
			rejected = append(rejected, id)
			continue
		}
		candidates = append(candidates, t)
	}
	return candidates, rejected, nil
}

// checkCurrency keeps one basket payable with a single charge.
func (uc *DefaultBasketUsecase) checkCurrency(ctx context.Context, lottery *domain.Lottery, current []*domain.Reservation) error {
	checked := map[int64]bool{lottery.ID: true}
	for _, r := range current {
		if checked[r.LotteryID] {
			continue
		}
		checked[r.LotteryID] = true
		other, err := uc.LotteryRepo.GetLotteryByID(ctx, r.LotteryID)
		if err != nil {
			return err
		}
		if other.Currency != lottery.Currency {
			return domain.NewValidationError(domain.ErrMixedCurrencies)
		}
	}
	return nil
}
