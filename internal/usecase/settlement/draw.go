package settlement

import (
	"context"
	"errors"
	"fmt"

	"github.com/LavaJover/shvark-lottery-service/internal/domain"
	"go.uber.org/zap"
)

func (uc *DefaultSettlementUsecase) Draw(ctx context.Context, lotteryID int64) (*domain.DrawResult, error) {
	log := uc.Logger.With(zap.Int64("lottery_id", lotteryID))
	dl, err := uc.DrawRepo.GetDrawLottery(ctx, lotteryID)
	if err != nil {
		if errors.Is(err, domain.ErrLotteryNotFound) {
			return nil, domain.NewValidationError(err)
		}
		return nil, err
	}
	if dl.IsDrawn {
		return uc.storedResult(ctx, dl)
	}
	if dl.WinnersCount == nil {
		return nil, domain.NewConflictError(domain.ErrWinnersCountNotSet)
	}
	existing, err := uc.DrawRepo.CountWinners(ctx, lotteryID)
	if err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, domain.NewConflictError(fmt.Errorf("%w: %d winners stored", domain.ErrAlreadyDrawn, existing))
	}

	imported, err := uc.DrawRepo.CountTickets(ctx, lotteryID, dl.Type)
	if err != nil {
		return nil, err
	}
	if dl.ExpectedTickets != nil && imported < *dl.ExpectedTickets {
		return nil, domain.NewTransientError("draw", fmt.Errorf("%d of %d tickets imported", imported, *dl.ExpectedTickets))
	}

	numbers, err := uc.DrawRepo.ListTicketNumbers(ctx, lotteryID, dl.Type)
	if err != nil {
		return nil, err
	}
	k := *dl.WinnersCount
	if k > len(numbers) {
		log.Warn("winners count clamped to ticket total", zap.Int("winners_count", k), zap.Int("tickets", len(numbers)))
		k = len(numbers)
	}

	var sample []string
	if k > 0 {
		if sample, err = uc.Randomizer.Draw(ctx, numbers, k); err != nil {
			return nil, err
		}
		if err := checkSample(numbers, sample, k); err != nil {
			uc.Metrics.RecordDraw("error")
			return nil, err
		}
	}

	now := uc.now()
	winners := make([]*domain.DrawWinner, 0, len(sample))
	for i, number := range sample {
		winners = append(winners, &domain.DrawWinner{LotteryID: lotteryID, Position: i + 1, TicketNumber: number, CreatedAt: now})
	}

	err = uc.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := uc.DrawRepo.InsertWinners(ctx, winners); err != nil {
			return err
		}
		drawn, err := uc.DrawRepo.MarkDrawn(ctx, lotteryID, now)
		if err != nil {
			return err
		}
		if !drawn {
			return domain.NewConflictError(domain.ErrAlreadyDrawn)
		}
		return nil
	})
	if err != nil {
		if domain.IsConflict(err) {
			// a parallel draw committed first
			if dl, rerr := uc.DrawRepo.GetDrawLottery(ctx, lotteryID); rerr == nil && dl.IsDrawn {
				return uc.storedResult(ctx, dl)
			}
		}
		return nil, err
	}

	if len(winners) == 0 {
		uc.Metrics.RecordDraw("empty")
		log.Info("lottery drawn without tickets")
	} else {
		uc.Metrics.RecordDraw("drawn")
		log.Info("lottery drawn", zap.Int("winners", len(winners)), zap.Int("tickets", len(numbers)))
	}
	dl.IsDrawn = true
	dl.DrawnAt = &now
	return toResult(dl, winners), nil
}

func (uc *DefaultSettlementUsecase) RunDueDraws(ctx context.Context) (int, error) {
	due, err := uc.DrawRepo.ListDueDraws(ctx, uc.now(), uc.Options.Batch)
	if err != nil {
		return 0, err
	}
	drawn := 0
	var errs []error
	for _, dl := range due {
		if _, err := uc.Draw(ctx, dl.LotteryID); err != nil {
			uc.Logger.Warn("draw not completed", zap.Int64("lottery_id", dl.LotteryID), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		drawn++
	}
	return drawn, errors.Join(errs...)
}

// Result returns the stored outcome of a drawn lottery.
func (uc *DefaultSettlementUsecase) Result(ctx context.Context, lotteryID int64) (*domain.DrawResult, error) {
	dl, err := uc.DrawRepo.GetDrawLottery(ctx, lotteryID)
	if err != nil {
		return nil, err
	}
	if !dl.IsDrawn {
		return nil, domain.NewConflictError(fmt.Errorf("lottery %d not drawn", lotteryID))
	}
	return uc.storedResult(ctx, dl)
}

func (uc *DefaultSettlementUsecase) storedResult(ctx context.Context, dl *domain.DrawLottery) (*domain.DrawResult, error) {
	winners, err := uc.DrawRepo.ListWinners(ctx, dl.LotteryID)
	if err != nil {
		return nil, err
	}
	return toResult(dl, winners), nil
}

func toResult(dl *domain.DrawLottery, winners []*domain.DrawWinner) *domain.DrawResult {
	res := &domain.DrawResult{LotteryID: dl.LotteryID, Type: dl.Type, Winners: make([]domain.DrawnTicket, 0, len(winners))}
	if dl.DrawnAt != nil {
		res.DrawnAt = *dl.DrawnAt
	}
	for _, w := range winners {
		res.Winners = append(res.Winners, domain.DrawnTicket{Position: w.Position, TicketNumber: w.TicketNumber})
	}
	return res
}

// checkSample rejects a sample of the wrong size, with repeats or with
// numbers that were never candidates.
func checkSample(candidates, sample []string, k int) error {
	if len(sample) != k {
		return fmt.Errorf("%w: got %d numbers, want %d", domain.ErrRandomnessMisbehaved, len(sample), k)
	}
	known := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		known[c] = true
	}
	seen := make(map[string]bool, len(sample))
	for _, s := range sample {
		if !known[s] || seen[s] {
			return fmt.Errorf("%w: unexpected number %q", domain.ErrRandomnessMisbehaved, s)
		}
		seen[s] = true
	}
	return nil
}
