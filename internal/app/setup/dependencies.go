package setup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/LavaJover/shvark-lottery-service/internal/config"
	"github.com/LavaJover/shvark-lottery-service/internal/domain"
	"github.com/LavaJover/shvark-lottery-service/internal/infrastructure/kafka"
	"github.com/LavaJover/shvark-lottery-service/internal/infrastructure/logger"
	"github.com/LavaJover/shvark-lottery-service/internal/infrastructure/metrics"
	"github.com/LavaJover/shvark-lottery-service/internal/infrastructure/migrate"
	"github.com/LavaJover/shvark-lottery-service/internal/infrastructure/postgres"
	"github.com/LavaJover/shvark-lottery-service/internal/infrastructure/postgres/repository"
	lotteryredis "github.com/LavaJover/shvark-lottery-service/internal/infrastructure/redis"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Dependencies struct {
	Config       *config.LotteryConfig
	DB           *gorm.DB
	Logger       *zap.Logger
	Registry     *prometheus.Registry
	Metrics      *metrics.LotteryMetrics
	Publisher    *kafka.Publisher
	Redis        *goredis.Client
	Repositories *Repositories
}

type Repositories struct {
	LotteryRepo     domain.LotteryRepository
	TicketRepo      domain.TicketRepository
	BasketRepo      domain.BasketRepository
	PurchaseRepo    domain.PurchaseRepository
	WinnerRepo      domain.WinnerRepository
	PrizeConfigRepo domain.PrizeConfigRepository
	DrawRepo        domain.DrawRepository
	Partitions      domain.PartitionManager
	Tx              domain.Transactor
	DeadLetters     logger.DeadLetterLogger
}

// InitializeDependencies loads config, opens the database, applies migrations
// and builds the shared infrastructure.
func InitializeDependencies(ctx context.Context) (*Dependencies, error) {
	cfg := config.MustLoad()

	log, err := logger.New(cfg.LogConfig)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	log = log.With(zap.String("env", cfg.Env))

	db := postgres.MustInitDB(cfg)
	if err := migrate.RunMigrations(db, cfg.Migrations.Path, log); err != nil {
		return nil, fmt.Errorf("migrations: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	deps := &Dependencies{
		Config:       cfg,
		DB:           db,
		Logger:       log,
		Registry:     reg,
		Metrics:      metrics.NewLotteryMetrics(reg),
		Publisher:    kafka.NewPublisher(cfg.KafkaService.Brokers),
		Repositories: NewRepositories(db),
	}

	if cfg.HasRole(config.RoleLeaderboard) && cfg.Redis.Addr != "" {
		client := lotteryredis.NewClient(cfg.Redis)
		if err := lotteryredis.Ping(ctx, client, 3*time.Second); err != nil {
			// the leaderboard still works uncached
			log.Warn("redis unavailable, leaderboard cache disabled", zap.Error(err))
			_ = client.Close()
		} else {
			deps.Redis = client
		}
	}

	return deps, nil
}

func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		LotteryRepo:     repository.NewDefaultLotteryRepository(db),
		TicketRepo:      repository.NewDefaultTicketRepository(db),
		BasketRepo:      repository.NewDefaultBasketRepository(db),
		PurchaseRepo:    repository.NewDefaultPurchaseRepository(db),
		WinnerRepo:      repository.NewDefaultWinnerRepository(db),
		PrizeConfigRepo: repository.NewDefaultPrizeConfigRepository(db),
		DrawRepo:        repository.NewDefaultDrawRepository(db),
		Partitions:      postgres.NewPartitionManager(db),
		Tx:              postgres.NewTxManager(db),
		DeadLetters:     logger.NewPGDeadLetterLogger(db),
	}
}

// Close releases connections in reverse order of creation.
func (d *Dependencies) Close() error {
	var errs []error
	if d.Redis != nil {
		errs = append(errs, d.Redis.Close())
	}
	if d.Publisher != nil {
		errs = append(errs, d.Publisher.Close())
	}
	if sqlDB, err := d.DB.DB(); err == nil {
		errs = append(errs, sqlDB.Close())
	}
	_ = d.Logger.Sync()
	return errors.Join(errs...)
}
