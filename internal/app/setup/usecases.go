package setup

import (
	"context"
	"fmt"

	"github.com/LavaJover/shvark-lottery-service/internal/domain"
	"github.com/LavaJover/shvark-lottery-service/internal/infrastructure/payment"
	"github.com/LavaJover/shvark-lottery-service/internal/infrastructure/randomness"
	lotteryredis "github.com/LavaJover/shvark-lottery-service/internal/infrastructure/redis"
	"github.com/LavaJover/shvark-lottery-service/internal/usecase/basket"
	"github.com/LavaJover/shvark-lottery-service/internal/usecase/inventory"
	"github.com/LavaJover/shvark-lottery-service/internal/usecase/leaderboard"
	"github.com/LavaJover/shvark-lottery-service/internal/usecase/settlement"
	"github.com/LavaJover/shvark-lottery-service/internal/usecase/syncer"
	"go.uber.org/zap"
)

type UseCases struct {
	InventoryUsecase   inventory.InventoryUsecase
	BasketUsecase      basket.BasketUsecase
	LeaderboardUsecase leaderboard.LeaderboardUsecase
	SettlementUsecase  settlement.SettlementUsecase
	ExportUsecase      syncer.ExportUsecase
	ImportUsecase      syncer.ImportUsecase
	DeadLetterMonitor  *syncer.DeadLetterMonitor
}

// InitializeUseCases wires every usecase. Roles decide later which of them
// get a transport or a job; the usecases themselves are cheap to build.
func InitializeUseCases(ctx context.Context, deps *Dependencies) (*UseCases, error) {
	cfg := deps.Config
	repos := deps.Repositories

	templates, err := LotteryTemplates(cfg.LotteryTypes)
	if err != nil {
		return nil, err
	}
	prizeConfigs, err := PrizeConfigurations(cfg.PrizeConfigs)
	if err != nil {
		return nil, err
	}
	if err := seedPrizeConfigurations(ctx, repos.PrizeConfigRepo, prizeConfigs, deps.Logger); err != nil {
		return nil, err
	}

	var cache domain.LeaderboardCache
	if deps.Redis != nil {
		cache = lotteryredis.NewLeaderboardCache(deps.Redis, cfg.Redis.LeaderboardTTL)
	}
	board := leaderboard.NewDefaultLeaderboardUsecase(
		repos.LotteryRepo,
		repos.PrizeConfigRepo,
		repos.PurchaseRepo,
		cache,
		deps.Logger.Named("leaderboard"),
	)

	inventoryUc := inventory.NewDefaultInventoryUsecase(
		repos.LotteryRepo,
		repos.TicketRepo,
		repos.Partitions,
		repos.Tx,
		templates,
		inventory.Options{
			BaseBatch:    cfg.Inventory.BaseBatch,
			LowWaterMark: cfg.Inventory.LowWaterMark,
			ChunkSize:    cfg.Inventory.ChunkSize,
		},
		deps.Metrics,
		deps.Logger.Named("inventory"),
	)

	basketUc, err := basket.NewDefaultBasketUsecase(
		repos.BasketRepo,
		repos.LotteryRepo,
		repos.TicketRepo,
		repos.PurchaseRepo,
		payment.NewHTTPPaymentGateway(cfg.PaymentGateway.URL, cfg.PaymentGateway.Timeout),
		repos.Tx,
		basket.Options{
			MaxTickets:      cfg.Basket.MaxTickets,
			TTL:             cfg.Basket.TTL,
			PaymentTimeout:  cfg.PaymentGateway.Timeout,
			MaxOrderRetries: cfg.PaymentGateway.MaxOrderRetries,
			PaymentMethod:   cfg.PaymentGateway.Method,
		},
		deps.Metrics,
		deps.Logger.Named("basket"),
	)
	if err != nil {
		return nil, fmt.Errorf("basket usecase: %w", err)
	}
	basketUc.Leaderboard = board

	settlementUc := settlement.NewDefaultSettlementUsecase(
		repos.LotteryRepo,
		repos.PurchaseRepo,
		repos.WinnerRepo,
		repos.DrawRepo,
		board,
		randomness.NewCryptoSampler(),
		repos.Tx,
		settlement.Options{GracePeriod: cfg.Settlement.GracePeriod},
		deps.Metrics,
		deps.Logger.Named("settlement"),
	)

	topics := cfg.KafkaService.Topics
	exportUc := syncer.NewDefaultExportUsecase(
		repos.LotteryRepo,
		repos.PurchaseRepo,
		repos.DrawRepo,
		settlementUc,
		deps.Publisher,
		syncer.Topics{
			Schedules:     topics.Schedules,
			DrawConfigs:   topics.DrawConfigs,
			TicketsPrefix: topics.Tickets,
			Results:       topics.Results,
		},
		cfg.Scheduler.ExportBatch,
		deps.Metrics,
		deps.Logger.Named("export"),
	)

	importUc := syncer.NewDefaultImportUsecase(repos.DrawRepo, repos.Partitions, settlementUc, deps.Logger.Named("import"))

	return &UseCases{
		InventoryUsecase:   inventoryUc,
		BasketUsecase:      basketUc,
		LeaderboardUsecase: board,
		SettlementUsecase:  settlementUc,
		ExportUsecase:      exportUc,
		ImportUsecase:      importUc,
		DeadLetterMonitor:  syncer.NewDeadLetterMonitor(repos.DeadLetters, deps.Logger.Named("dead_letters")),
	}, nil
}

func seedPrizeConfigurations(ctx context.Context, repo domain.PrizeConfigRepository, list []*domain.PrizeConfiguration, log *zap.Logger) error {
	for _, pc := range list {
		if err := repo.SavePrizeConfiguration(ctx, pc); err != nil {
			return fmt.Errorf("seed prize configuration %d: %w", pc.ID, err)
		}
		log.Info("prize configuration loaded", zap.Int64("id", pc.ID), zap.String("lottery_type", string(pc.LotteryType)), zap.Int("rules", len(pc.Rules)))
	}
	return nil
}
