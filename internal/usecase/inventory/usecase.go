package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/LavaJover/shvark-lottery-service/internal/domain"
	"github.com/LavaJover/shvark-lottery-service/internal/infrastructure/metrics"
	"go.uber.org/zap"
)

type InventoryUsecase interface {
	// GenerateForPeriod creates the lottery instances every template schedules
	// in period and returns how many were new.
	GenerateForPeriod(ctx context.Context, period domain.Period, countries []string) (int, error)
	// SetupLottery creates partitions and fills the ticket pool. Safe to re-run.
	SetupLottery(ctx context.Context, lottery *domain.Lottery) error
	SetupLotteryByID(ctx context.Context, lotteryID int64) error
	// RunTicketGeneration sets up every open lottery; one failure does not stop the rest.
	RunTicketGeneration(ctx context.Context) error
}

type Options struct {
	BaseBatch    int
	LowWaterMark int
	ChunkSize    int
}

type DefaultInventoryUsecase struct {
	LotteryRepo domain.LotteryRepository
	TicketRepo  domain.TicketRepository
	Partitions  domain.PartitionManager
	Tx          domain.Transactor
	Templates   map[domain.LotteryType]domain.LotteryTemplate
	Options     Options
	Metrics     *metrics.LotteryMetrics
	Logger      *zap.Logger
	now         func() time.Time
}

func NewDefaultInventoryUsecase(
	lotteryRepo domain.LotteryRepository,
	ticketRepo domain.TicketRepository,
	partitions domain.PartitionManager,
	tx domain.Transactor,
	templates []domain.LotteryTemplate,
	opts Options,
	m *metrics.LotteryMetrics,
	logger *zap.Logger,
) *DefaultInventoryUsecase {
	if opts.BaseBatch <= 0 {
		opts.BaseBatch = 1000
	}
	if opts.LowWaterMark < 0 {
		opts.LowWaterMark = 0
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 500
	}
	byType := make(map[domain.LotteryType]domain.LotteryTemplate, len(templates))
	for _, t := range templates {
		byType[t.Type] = t
	}
	return &DefaultInventoryUsecase{
		LotteryRepo: lotteryRepo,
		TicketRepo:  ticketRepo,
		Partitions:  partitions,
		Tx:          tx,
		Templates:   byType,
		Options:     opts,
		Metrics:     m,
		Logger:      logger,
		now:         time.Now,
	}
}

func (uc *DefaultInventoryUsecase) GenerateForPeriod(ctx context.Context, period domain.Period, countries []string) (int, error) {
	if period.To.Before(period.From) {
		return 0, domain.NewValidationError(fmt.Errorf("period ends before it starts"))
	}
	created := 0
	var errs []error
	for _, day := range period.Days() {
		for _, country := range countries {
			for _, lotteryType := range domain.LotteryTypes {
				tmpl, ok := uc.Templates[lotteryType]
				if !ok {
					continue
				}
				n, err := uc.generateInstances(ctx, tmpl, country, day)
				created += n
				if err != nil {
					errs = append(errs, err)
				}
			}
		}
	}
	return created, errors.Join(errs...)
}

func (uc *DefaultInventoryUsecase) generateInstances(ctx context.Context, tmpl domain.LotteryTemplate, country string, day time.Time) (int, error) {
	log := uc.Logger.With(zap.String("country", country), zap.String("type", string(tmpl.Type)))
	if tmpl.Type.LongRunning() {
		unfinished, err := uc.LotteryRepo.HasUnfinishedLottery(ctx, country, tmpl.Type)
		if err != nil {
			return 0, err
		}
		if unfinished {
			return 0, nil
		}
	}

	created := 0
	for _, lottery := range tmpl.InstancesForDay(country, day) {
		ok, err := uc.LotteryRepo.CreateLottery(ctx, lottery)
		if err != nil {
			log.Error("create lottery failed", zap.Time("sale_start", lottery.SaleStartDate), zap.Error(err))
			return created, err
		}
		if !ok {
			continue
		}
		created++
		uc.Metrics.RecordLotteryCreated(string(lottery.Type), country)
		log.Info("lottery created", zap.Int64("lottery_id", lottery.ID), zap.Time("sale_start", lottery.SaleStartDate))

		if err := uc.SetupLottery(ctx, lottery); err != nil {
			// the next generation tick retries
			log.Warn("lottery setup deferred", zap.Int64("lottery_id", lottery.ID), zap.Error(err))
		}
	}
	return created, nil
}

func (uc *DefaultInventoryUsecase) SetupLotteryByID(ctx context.Context, lotteryID int64) error {
	lottery, err := uc.LotteryRepo.GetLotteryByID(ctx, lotteryID)
	if err != nil {
		if errors.Is(err, domain.ErrLotteryNotFound) {
			return domain.NewValidationError(err)
		}
		return err
	}
	return uc.SetupLottery(ctx, lottery)
}

func (uc *DefaultInventoryUsecase) SetupLottery(ctx context.Context, lottery *domain.Lottery) error {
	if err := uc.Partitions.EnsureLotteryPartitions(ctx, lottery.ID); err != nil {
		return fmt.Errorf("partitions of lottery %d: %w", lottery.ID, err)
	}
	if lottery.Type.Capped() {
		return uc.generateCapped(ctx, lottery)
	}
	return uc.topUp(ctx, lottery)
}

// generateCapped fills the whole pool once, resuming after the highest
// existing sequence when a previous run stopped midway.
func (uc *DefaultInventoryUsecase) generateCapped(ctx context.Context, lottery *domain.Lottery) error {
	if lottery.TicketsGenerated {
		return nil
	}
	if lottery.TicketCap <= 0 {
		return domain.NewValidationError(fmt.Errorf("capped lottery %d has no ticket cap", lottery.ID))
	}
	last, err := uc.TicketRepo.MaxSequence(ctx, lottery.ID)
	if err != nil {
		return err
	}
	if last < int64(lottery.TicketCap) {
		if err := uc.insertRange(ctx, lottery, last+1, int64(lottery.TicketCap)); err != nil {
			return err
		}
	}
	if _, err := uc.LotteryRepo.MarkTicketsGenerated(ctx, lottery.ID); err != nil {
		return err
	}
	lottery.TicketsGenerated = true
	return nil
}

func (uc *DefaultInventoryUsecase) topUp(ctx context.Context, lottery *domain.Lottery) error {
	generated, sold, err := uc.TicketRepo.CountTickets(ctx, lottery.ID)
	if err != nil {
		return err
	}
	if generated > 0 && generated-sold > int64(uc.Options.LowWaterMark) {
		return nil
	}
	last, err := uc.TicketRepo.MaxSequence(ctx, lottery.ID)
	if err != nil {
		return err
	}
	return uc.insertRange(ctx, lottery, last+1, last+int64(uc.Options.BaseBatch))
}

// insertRange inserts sequences from..to in chunks, one short transaction each.
func (uc *DefaultInventoryUsecase) insertRange(ctx context.Context, lottery *domain.Lottery, from, to int64) error {
	chunk := int64(uc.Options.ChunkSize)
	for start := from; start <= to; start += chunk {
		end := start + chunk - 1
		if end > to {
			end = to
		}
		tickets := make([]*domain.Ticket, 0, end-start+1)
		for seq := start; seq <= end; seq++ {
			tickets = append(tickets, &domain.Ticket{
				LotteryID:    lottery.ID,
				SequenceID:   seq,
				TicketNumber: domain.FormatTicketNumber(lottery.Country, seq, lottery.ID),
			})
		}
		err := uc.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
			return uc.TicketRepo.InsertTickets(ctx, tickets)
		})
		if err != nil {
			return fmt.Errorf("insert tickets %d-%d of lottery %d: %w", start, end, lottery.ID, err)
		}
		uc.Metrics.RecordTicketsGenerated(string(lottery.Type), len(tickets))
	}
	uc.Logger.Info("tickets generated",
		zap.Int64("lottery_id", lottery.ID), zap.Int64("from", from), zap.Int64("to", to))
	return nil
}

func (uc *DefaultInventoryUsecase) RunTicketGeneration(ctx context.Context) error {
	lotteries, err := uc.LotteryRepo.ListOpenLotteries(ctx, uc.now())
	if err != nil {
		return err
	}
	var errs []error
	for _, lottery := range lotteries {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := uc.SetupLottery(ctx, lottery); err != nil {
			uc.Logger.Error("ticket generation failed", zap.Int64("lottery_id", lottery.ID), zap.Error(err))
			uc.Metrics.RecordJobError("generate-tickets")
			errs = append(errs, err)
			continue
		}
		if lottery.Type.Capped() {
			if err := uc.closeSoldOut(ctx, lottery); err != nil {
				uc.Logger.Error("closing sold out lottery failed", zap.Int64("lottery_id", lottery.ID), zap.Error(err))
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// closeSoldOut ends the sale of a capped lottery once its whole pool is paid.
// The schedule is exported again with the final dates.
func (uc *DefaultInventoryUsecase) closeSoldOut(ctx context.Context, lottery *domain.Lottery) error {
	if lottery.SaleEndDate != nil || !lottery.TicketsGenerated {
		return nil
	}
	generated, sold, err := uc.TicketRepo.CountTickets(ctx, lottery.ID)
	if err != nil {
		return err
	}
	if generated == 0 || sold < generated || sold < int64(lottery.TicketCap) {
		return nil
	}
	now := uc.now()
	drawDate := now.Add(uc.Templates[lottery.Type].DrawDelay)
	closed, err := uc.LotteryRepo.CloseSale(ctx, lottery.ID, now, drawDate)
	if err != nil {
		return err
	}
	if closed {
		uc.Logger.Info("capped lottery sold out", zap.Int64("lottery_id", lottery.ID), zap.Int64("sold", sold))
	}
	return nil
}
