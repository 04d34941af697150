package background

import (
	"context"
	"time"

	"github.com/LavaJover/shvark-lottery-service/internal/config"
	"github.com/LavaJover/shvark-lottery-service/internal/domain"
	"github.com/LavaJover/shvark-lottery-service/internal/infrastructure/metrics"
	"github.com/LavaJover/shvark-lottery-service/internal/usecase/basket"
	"github.com/LavaJover/shvark-lottery-service/internal/usecase/inventory"
	"github.com/LavaJover/shvark-lottery-service/internal/usecase/settlement"
	"github.com/LavaJover/shvark-lottery-service/internal/usecase/syncer"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	JobGenerateLotteries   = "generate-lotteries"
	JobGenerateTickets     = "generate-tickets"
	JobExpireBaskets       = "expire-baskets"
	JobReconcilePayments   = "reconcile-payments"
	JobCalculateWinners    = "calculate-winners"
	JobDraw                = "draw"
	JobExportSchedules     = "export-schedules"
	JobExportWinnersConfig = "export-winners-config"
	JobExportTickets       = "export-tickets"
	JobExportResults       = "export-results"
)

// Job is one periodic task. Run returns how many items it handled.
type Job struct {
	Name  string
	Every time.Duration
	Run   func(ctx context.Context) (int, error)
}

type BackgroundTasks struct {
	InventoryUsecase  inventory.InventoryUsecase
	BasketUsecase     basket.BasketUsecase
	SettlementUsecase settlement.SettlementUsecase
	ExportUsecase     syncer.ExportUsecase
	Config            *config.LotteryConfig
	Metrics           *metrics.LotteryMetrics
	Logger            *zap.Logger
	now               func() time.Time
}

func NewBackgroundTasks(
	inventoryUc inventory.InventoryUsecase,
	basketUc basket.BasketUsecase,
	settlementUc settlement.SettlementUsecase,
	exportUc syncer.ExportUsecase,
	cfg *config.LotteryConfig,
	m *metrics.LotteryMetrics,
	logger *zap.Logger,
) *BackgroundTasks {
	return &BackgroundTasks{
		InventoryUsecase:  inventoryUc,
		BasketUsecase:     basketUc,
		SettlementUsecase: settlementUc,
		ExportUsecase:     exportUc,
		Config:            cfg,
		Metrics:           m,
		Logger:            logger,
		now:               time.Now,
	}
}

// GenerationPeriod is today plus the configured number of days ahead.
func (bt *BackgroundTasks) GenerationPeriod() domain.Period {
	days := bt.Config.Scheduler.GenerateDays
	if days <= 0 {
		days = 1
	}
	today := bt.now()
	return domain.Period{From: today, To: today.AddDate(0, 0, days-1)}
}

// Jobs lists the periodic tasks of the roles this process runs.
func (bt *BackgroundTasks) Jobs() []Job {
	every := bt.Config.Scheduler.Interval
	if every <= 0 {
		every = time.Minute
	}
	expiry := bt.Config.Scheduler.ExpiryEvery
	if expiry <= 0 {
		expiry = 30 * time.Second
	}

	var jobs []Job
	if bt.Config.HasRole(config.RoleSales) {
		jobs = append(jobs,
			Job{Name: JobGenerateLotteries, Every: every, Run: func(ctx context.Context) (int, error) {
				return bt.InventoryUsecase.GenerateForPeriod(ctx, bt.GenerationPeriod(), bt.Config.Countries)
			}},
			Job{Name: JobGenerateTickets, Every: every, Run: func(ctx context.Context) (int, error) {
				return 0, bt.InventoryUsecase.RunTicketGeneration(ctx)
			}},
			Job{Name: JobExpireBaskets, Every: expiry, Run: func(ctx context.Context) (int, error) {
				return bt.BasketUsecase.ExpireBaskets(ctx)
			}},
			Job{Name: JobReconcilePayments, Every: expiry, Run: func(ctx context.Context) (int, error) {
				return bt.BasketUsecase.ReconcilePayments(ctx)
			}},
			Job{Name: JobCalculateWinners, Every: every, Run: func(ctx context.Context) (int, error) {
				return bt.SettlementUsecase.CalculatePendingWinnersCounts(ctx)
			}},
			Job{Name: JobExportSchedules, Every: every, Run: func(ctx context.Context) (int, error) {
				return bt.ExportUsecase.ExportSchedules(ctx)
			}},
			Job{Name: JobExportWinnersConfig, Every: every, Run: func(ctx context.Context) (int, error) {
				return bt.ExportUsecase.ExportWinnersConfigs(ctx)
			}},
			Job{Name: JobExportTickets, Every: every, Run: func(ctx context.Context) (int, error) {
				return bt.ExportUsecase.ExportTickets(ctx)
			}},
		)
	}
	if bt.Config.HasRole(config.RoleDraw) {
		jobs = append(jobs,
			Job{Name: JobDraw, Every: every, Run: func(ctx context.Context) (int, error) {
				return bt.SettlementUsecase.RunDueDraws(ctx)
			}},
			Job{Name: JobExportResults, Every: every, Run: func(ctx context.Context) (int, error) {
				return bt.ExportUsecase.ExportResults(ctx)
			}},
		)
	}
	return jobs
}

// Run starts every job on its own ticker and blocks until ctx is done.
func (bt *BackgroundTasks) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, job := range bt.Jobs() {
		job := job
		g.Go(func() error {
			bt.loop(ctx, job)
			return nil
		})
	}
	return g.Wait()
}

func (bt *BackgroundTasks) loop(ctx context.Context, job Job) {
	ticker := time.NewTicker(job.Every)
	defer ticker.Stop()

	bt.RunOnce(ctx, job)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			bt.RunOnce(ctx, job)
		}
	}
}

// RunOnce runs job and logs the outcome; failures wait for the next tick.
func (bt *BackgroundTasks) RunOnce(ctx context.Context, job Job) error {
	started := bt.now()
	n, err := job.Run(ctx)
	log := bt.Logger.With(zap.String("job", job.Name), zap.Duration("duration", time.Since(started)))
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		bt.Metrics.RecordJobError(job.Name)
		log.Error("job failed", zap.Int("handled", n), zap.Error(err), zap.String("error_type", domain.ErrorType(err)))
		return err
	}
	if n > 0 {
		log.Info("job finished", zap.Int("handled", n))
	}
	return nil
}
