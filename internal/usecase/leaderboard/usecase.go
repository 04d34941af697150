package leaderboard

import (
	"context"
	"errors"
	"time"

	"github.com/LavaJover/shvark-lottery-service/internal/domain"
	"go.uber.org/zap"
)

type LeaderboardUsecase interface {
	// GetLeaderboard serves the possible-winnings table, from cache when fresh.
	GetLeaderboard(ctx context.Context, lotteryID int64) (*domain.Leaderboard, error)
	// Calculate always reads current sales.
	Calculate(ctx context.Context, lottery *domain.Lottery) (*domain.Leaderboard, error)
	// Invalidate drops cached boards after their sales changed.
	Invalidate(ctx context.Context, lotteryIDs ...int64)
}

type DefaultLeaderboardUsecase struct {
	LotteryRepo     domain.LotteryRepository
	PrizeConfigRepo domain.PrizeConfigRepository
	PurchaseRepo    domain.PurchaseRepository
	Cache           domain.LeaderboardCache
	Logger          *zap.Logger
	now             func() time.Time
}

func NewDefaultLeaderboardUsecase(
	lotteryRepo domain.LotteryRepository,
	prizeConfigRepo domain.PrizeConfigRepository,
	purchaseRepo domain.PurchaseRepository,
	cache domain.LeaderboardCache,
	logger *zap.Logger,
) *DefaultLeaderboardUsecase {
	return &DefaultLeaderboardUsecase{
		LotteryRepo:     lotteryRepo,
		PrizeConfigRepo: prizeConfigRepo,
		PurchaseRepo:    purchaseRepo,
		Cache:           cache,
		Logger:          logger,
		now:             time.Now,
	}
}

func (uc *DefaultLeaderboardUsecase) GetLeaderboard(ctx context.Context, lotteryID int64) (*domain.Leaderboard, error) {
	if uc.Cache != nil {
		board, err := uc.Cache.Get(ctx, lotteryID)
		if err != nil {
			uc.Logger.Warn("leaderboard cache read failed", zap.Int64("lottery_id", lotteryID), zap.Error(err))
		} else if board != nil {
			return board, nil
		}
	}

	lottery, err := uc.LotteryRepo.GetLotteryByID(ctx, lotteryID)
	if err != nil {
		if errors.Is(err, domain.ErrLotteryNotFound) {
			return nil, domain.NewValidationError(err)
		}
		return nil, err
	}
	board, err := uc.Calculate(ctx, lottery)
	if err != nil {
		return nil, err
	}

	if uc.Cache != nil {
		if err := uc.Cache.Set(ctx, board); err != nil {
			uc.Logger.Warn("leaderboard cache write failed", zap.Int64("lottery_id", lotteryID), zap.Error(err))
		}
	}
	return board, nil
}

func (uc *DefaultLeaderboardUsecase) Invalidate(ctx context.Context, lotteryIDs ...int64) {
	if uc.Cache == nil {
		return
	}
	for _, id := range lotteryIDs {
		if err := uc.Cache.Invalidate(ctx, id); err != nil {
			uc.Logger.Warn("leaderboard cache invalidation failed", zap.Int64("lottery_id", id), zap.Error(err))
		}
	}
}

func (uc *DefaultLeaderboardUsecase) Calculate(ctx context.Context, lottery *domain.Lottery) (*domain.Leaderboard, error) {
	cfg, err := uc.PrizeConfigRepo.GetPrizeConfiguration(ctx, lottery.PrizeConfigurationID)
	if err != nil {
		if errors.Is(err, domain.ErrPrizeConfigNotFound) {
			return nil, domain.NewValidationError(err)
		}
		return nil, err
	}
	sold, participants, err := uc.PurchaseRepo.CountSold(ctx, lottery.ID)
	if err != nil {
		return nil, err
	}

	res := Compute(Input{
		TicketPrice:  lottery.TicketPrice,
		SoldTickets:  sold,
		Participants: participants,
		Config:       cfg,
	})
	currency := lottery.Currency
	if currency == "" {
		currency = cfg.Currency
	}
	return &domain.Leaderboard{
		LotteryID:    lottery.ID,
		Currency:     currency,
		SoldTickets:  res.SoldTickets,
		Participants: res.Participants,
		Revenue:      res.Revenue,
		PrizePool:    res.PrizePool,
		Prizes:       res.Prizes,
		ComputedAt:   uc.now(),
	}, nil
}
