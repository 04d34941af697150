package settlement

import (
	"context"
	"time"

	"github.com/LavaJover/shvark-lottery-service/internal/domain"
	"github.com/LavaJover/shvark-lottery-service/internal/infrastructure/metrics"
	"github.com/LavaJover/shvark-lottery-service/internal/usecase/leaderboard"
	"go.uber.org/zap"
)

// MinGracePeriod is the shortest time a sale stays closed before its winners
// count is fixed, so late payments land first.
const MinGracePeriod = 2 * time.Minute

type SettlementUsecase interface {
	// ComputeWinnersCount fixes the number of paid places of a closed lottery.
	// The count is written once; later calls return the stored value.
	ComputeWinnersCount(ctx context.Context, lottery *domain.Lottery) (int, error)
	CalculatePendingWinnersCounts(ctx context.Context) (int, error)
	// Draw samples the winners of an imported lottery. Redelivery returns the
	// stored result without sampling again.
	Draw(ctx context.Context, lotteryID int64) (*domain.DrawResult, error)
	RunDueDraws(ctx context.Context) (int, error)
	Result(ctx context.Context, lotteryID int64) (*domain.DrawResult, error)
	// ImportResults attaches payouts to drawn tickets on the sales side and
	// returns how many winner records were created.
	ImportResults(ctx context.Context, result *domain.DrawResult) (int64, error)
}

type Options struct {
	GracePeriod time.Duration
	Batch       int
}

type DefaultSettlementUsecase struct {
	LotteryRepo  domain.LotteryRepository
	PurchaseRepo domain.PurchaseRepository
	WinnerRepo   domain.WinnerRepository
	DrawRepo     domain.DrawRepository
	Leaderboard  leaderboard.LeaderboardUsecase
	Randomizer   domain.Randomizer
	Tx           domain.Transactor
	Options      Options
	Metrics      *metrics.LotteryMetrics
	Logger       *zap.Logger
	now          func() time.Time
}

func NewDefaultSettlementUsecase(
	lotteryRepo domain.LotteryRepository,
	purchaseRepo domain.PurchaseRepository,
	winnerRepo domain.WinnerRepository,
	drawRepo domain.DrawRepository,
	board leaderboard.LeaderboardUsecase,
	randomizer domain.Randomizer,
	tx domain.Transactor,
	opts Options,
	m *metrics.LotteryMetrics,
	logger *zap.Logger,
) *DefaultSettlementUsecase {
	if opts.GracePeriod < MinGracePeriod {
		opts.GracePeriod = MinGracePeriod
	}
	if opts.Batch <= 0 {
		opts.Batch = 100
	}
	return &DefaultSettlementUsecase{
		LotteryRepo:  lotteryRepo,
		PurchaseRepo: purchaseRepo,
		WinnerRepo:   winnerRepo,
		DrawRepo:     drawRepo,
		Leaderboard:  board,
		Randomizer:   randomizer,
		Tx:           tx,
		Options:      opts,
		Metrics:      m,
		Logger:       logger,
		now:          time.Now,
	}
}
