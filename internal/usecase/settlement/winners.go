package settlement

import (
	"context"
	"errors"
	"fmt"

	"github.com/LavaJover/shvark-lottery-service/internal/domain"
	"go.uber.org/zap"
)

func (uc *DefaultSettlementUsecase) ComputeWinnersCount(ctx context.Context, lottery *domain.Lottery) (int, error) {
	if lottery.CalculatedWinnersCount != nil {
		return *lottery.CalculatedWinnersCount, nil
	}
	if !lottery.SaleClosedFor(uc.now(), uc.Options.GracePeriod) {
		return 0, domain.NewConflictError(fmt.Errorf("sale of lottery %d not closed for %s", lottery.ID, uc.Options.GracePeriod))
	}

	board, err := uc.Leaderboard.Calculate(ctx, lottery)
	if err != nil {
		return 0, err
	}
	count := len(board.Prizes)

	set, err := uc.LotteryRepo.SetWinnersCount(ctx, lottery.ID, count)
	if err != nil {
		return 0, err
	}
	if !set {
		// another worker got there first; its value stands
		stored, err := uc.LotteryRepo.GetLotteryByID(ctx, lottery.ID)
		if err != nil {
			return 0, err
		}
		if stored.CalculatedWinnersCount == nil {
			return 0, domain.NewConflictError(fmt.Errorf("winners count of lottery %d not stored", lottery.ID))
		}
		return *stored.CalculatedWinnersCount, nil
	}

	uc.Metrics.RecordWinnersCounted(string(lottery.Type))
	uc.Logger.Info("winners count fixed",
		zap.Int64("lottery_id", lottery.ID),
		zap.Int("winners_count", count),
		zap.Int64("sold_tickets", board.SoldTickets),
		zap.String("prize_pool", board.PrizePool.String()))
	return count, nil
}

func (uc *DefaultSettlementUsecase) CalculatePendingWinnersCounts(ctx context.Context) (int, error) {
	lotteries, err := uc.LotteryRepo.ListWinnersCountPending(ctx, uc.now().Add(-uc.Options.GracePeriod), uc.Options.Batch)
	if err != nil {
		return 0, err
	}
	counted := 0
	var errs []error
	for _, l := range lotteries {
		if _, err := uc.ComputeWinnersCount(ctx, l); err != nil {
			uc.Logger.Error("winners count failed", zap.Int64("lottery_id", l.ID), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		counted++
	}
	return counted, errors.Join(errs...)
}

func (uc *DefaultSettlementUsecase) ImportResults(ctx context.Context, result *domain.DrawResult) (int64, error) {
	log := uc.Logger.With(zap.Int64("lottery_id", result.LotteryID))
	lottery, err := uc.LotteryRepo.GetLotteryByID(ctx, result.LotteryID)
	if err != nil {
		if errors.Is(err, domain.ErrLotteryNotFound) {
			return 0, domain.NewValidationError(err)
		}
		return 0, err
	}
	if lottery.IsDrawn {
		log.Info("results already imported")
		return 0, nil
	}

	board, err := uc.Leaderboard.Calculate(ctx, lottery)
	if err != nil {
		return 0, err
	}

	numbers := make([]string, 0, len(result.Winners))
	for _, w := range result.Winners {
		numbers = append(numbers, w.TicketNumber)
	}
	purchases, err := uc.PurchaseRepo.FindByTicketNumbers(ctx, lottery.ID, numbers)
	if err != nil {
		return 0, err
	}

	now := uc.now()
	winners := make([]*domain.WinnerRecord, 0, len(result.Winners))
	for _, w := range result.Winners {
		p, ok := purchases[w.TicketNumber]
		if !ok {
			log.Warn("drawn ticket has no purchase", zap.String("ticket_number", w.TicketNumber), zap.Int("position", w.Position))
			continue
		}
		amount, paid := board.AmountFor(w.Position)
		if !paid {
			log.Warn("drawn position has no payout", zap.Int("position", w.Position))
		}
		winners = append(winners, &domain.WinnerRecord{
			PurchaseID: p.ID,
			LotteryID:  lottery.ID,
			Position:   w.Position,
			Amount:     amount,
			Currency:   board.Currency,
			CreatedAt:  now,
		})
	}

	var created int64
	err = uc.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		n, err := uc.WinnerRepo.CreateWinners(ctx, winners)
		if err != nil {
			return err
		}
		drawn, err := uc.LotteryRepo.MarkDrawn(ctx, lottery.ID)
		if err != nil {
			return err
		}
		if !drawn {
			return domain.NewConflictError(domain.ErrAlreadyDrawn)
		}
		created = n
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyDrawn) {
			log.Info("results imported concurrently")
			return 0, nil
		}
		return 0, err
	}

	uc.Leaderboard.Invalidate(ctx, lottery.ID)
	uc.Metrics.RecordWinnersImported(board.Currency, created)
	log.Info("results imported", zap.Int64("winners", created), zap.Int("drawn", len(result.Winners)))
	return created, nil
}
