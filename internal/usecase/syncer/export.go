package syncer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/LavaJover/shvark-lottery-service/internal/domain"
	"github.com/LavaJover/shvark-lottery-service/internal/infrastructure/metrics"
	"go.uber.org/zap"
)

type Topics struct {
	Schedules   string
	DrawConfigs string
	// TicketsPrefix is expanded per lottery type with domain.TicketTopic.
	TicketsPrefix string
	Results       string
}

// ExportUsecase publishes pending state to the other services. Every export
// marks its rows only after the publish succeeded, so a crash in between
// republishes and the consumer side deduplicates.
type ExportUsecase interface {
	ExportSchedules(ctx context.Context) (int, error)
	ExportWinnersConfigs(ctx context.Context) (int, error)
	ExportTickets(ctx context.Context) (int, error)
	ExportResults(ctx context.Context) (int, error)
}

// ResultSource returns the stored outcome of a drawn lottery.
type ResultSource interface {
	Result(ctx context.Context, lotteryID int64) (*domain.DrawResult, error)
}

type DefaultExportUsecase struct {
	LotteryRepo  domain.LotteryRepository
	PurchaseRepo domain.PurchaseRepository
	DrawRepo     domain.DrawRepository
	Results      ResultSource
	Publisher    domain.PublisherPort
	Topics       Topics
	Batch        int
	Metrics      *metrics.LotteryMetrics
	Logger       *zap.Logger
	now          func() time.Time
}

func NewDefaultExportUsecase(
	lotteryRepo domain.LotteryRepository,
	purchaseRepo domain.PurchaseRepository,
	drawRepo domain.DrawRepository,
	results ResultSource,
	publisher domain.PublisherPort,
	topics Topics,
	batch int,
	m *metrics.LotteryMetrics,
	logger *zap.Logger,
) *DefaultExportUsecase {
	if batch <= 0 {
		batch = 1000
	}
	return &DefaultExportUsecase{
		LotteryRepo:  lotteryRepo,
		PurchaseRepo: purchaseRepo,
		DrawRepo:     drawRepo,
		Results:      results,
		Publisher:    publisher,
		Topics:       topics,
		Batch:        batch,
		Metrics:      m,
		Logger:       logger,
		now:          time.Now,
	}
}

func (uc *DefaultExportUsecase) publish(ctx context.Context, topic string, msgType domain.MessageType, lotteryID int64, body any) error {
	env, err := domain.NewEnvelope(msgType, lotteryID, body)
	if err != nil {
		return err
	}
	msg := domain.Message{Key: []byte(strconv.FormatInt(lotteryID, 10)), Envelope: env}
	if err := uc.Publisher.Publish(ctx, topic, msg); err != nil {
		return domain.NewTransientError("publish "+string(msgType), err)
	}
	uc.Metrics.RecordExported(topic, 1)
	return nil
}

func (uc *DefaultExportUsecase) ExportSchedules(ctx context.Context) (int, error) {
	lotteries, err := uc.LotteryRepo.ListScheduleExportPending(ctx, uc.Batch)
	if err != nil {
		return 0, err
	}
	exported := 0
	for _, l := range lotteries {
		schedule := domain.LotterySchedule{
			LotteryID:     l.ID,
			Type:          l.Type,
			Country:       l.Country,
			SaleStartDate: l.SaleStartDate,
			SaleEndDate:   l.SaleEndDate,
			DrawDate:      l.DrawDate,
		}
		if err := uc.publish(ctx, uc.Topics.Schedules, domain.MessageLotterySchedule, l.ID, schedule); err != nil {
			return exported, err
		}
		if _, err := uc.LotteryRepo.MarkScheduleExported(ctx, l.ID, uc.now()); err != nil {
			return exported, err
		}
		exported++
	}
	if exported > 0 {
		uc.Logger.Info("schedules exported", zap.Int("count", exported))
	}
	return exported, nil
}

func (uc *DefaultExportUsecase) ExportWinnersConfigs(ctx context.Context) (int, error) {
	lotteries, err := uc.LotteryRepo.ListWinnersConfigExportPending(ctx, uc.Batch)
	if err != nil {
		return 0, err
	}
	exported := 0
	for _, l := range lotteries {
		if l.CalculatedWinnersCount == nil {
			continue
		}
		sold, _, err := uc.PurchaseRepo.CountSold(ctx, l.ID)
		if err != nil {
			return exported, err
		}
		cfg := domain.DrawConfiguration{
			LotteryID:    l.ID,
			Type:         l.Type,
			Country:      l.Country,
			DrawDate:     l.DrawDate,
			WinnersCount: *l.CalculatedWinnersCount,
			SoldTickets:  sold,
		}
		if err := uc.publish(ctx, uc.Topics.DrawConfigs, domain.MessageDrawConfiguration, l.ID, cfg); err != nil {
			return exported, err
		}
		if _, err := uc.LotteryRepo.MarkWinnersConfigExported(ctx, l.ID, uc.now()); err != nil {
			return exported, err
		}
		exported++
		uc.Logger.Info("draw configuration exported",
			zap.Int64("lottery_id", l.ID), zap.Int("winners_count", cfg.WinnersCount), zap.Int64("sold_tickets", sold))
	}
	return exported, nil
}

// ExportTickets publishes sold tickets per lottery to the topic of its type,
// one batch at a time until nothing is pending. Lotteries with an unknown
// type are skipped and reported; their purchases stay pending.
func (uc *DefaultExportUsecase) ExportTickets(ctx context.Context) (int, error) {
	exported := 0
	var errs []error
	for {
		purchases, err := uc.PurchaseRepo.ListExportPending(ctx, uc.Batch)
		if err != nil {
			return exported, errors.Join(append(errs, err)...)
		}
		if len(purchases) == 0 {
			return exported, errors.Join(errs...)
		}

		var order []int64
		batches := make(map[int64]*domain.TicketBatch)
		ids := make(map[int64][]int64)
		for _, p := range purchases {
			b, ok := batches[p.LotteryID]
			if !ok {
				b = &domain.TicketBatch{LotteryID: p.LotteryID, Type: p.LotteryType}
				batches[p.LotteryID] = b
				order = append(order, p.LotteryID)
			}
			b.Tickets = append(b.Tickets, domain.ExportedTicket{PurchaseID: p.ID, TicketNumber: p.TicketNumber})
			ids[p.LotteryID] = append(ids[p.LotteryID], p.ID)
		}

		progress := false
		for _, lotteryID := range order {
			b := batches[lotteryID]
			if !b.Type.Valid() {
				err := domain.NewValidationError(fmt.Errorf("purchase of lottery %d has type %q", lotteryID, b.Type))
				uc.Logger.Error("tickets not exported", zap.Int64("lottery_id", lotteryID), zap.Error(err))
				errs = append(errs, err)
				continue
			}
			topic := domain.TicketTopic(uc.Topics.TicketsPrefix, b.Type)
			if err := uc.publish(ctx, topic, domain.MessageTicketBatch, lotteryID, b); err != nil {
				return exported, errors.Join(append(errs, err)...)
			}
			if err := uc.PurchaseRepo.MarkExported(ctx, lotteryID, ids[lotteryID], uc.now()); err != nil {
				return exported, errors.Join(append(errs, err)...)
			}
			exported += len(b.Tickets)
			progress = true
			uc.Logger.Info("tickets exported", zap.Int64("lottery_id", lotteryID), zap.String("topic", topic), zap.Int("count", len(b.Tickets)))
		}
		if len(purchases) < uc.Batch || !progress {
			return exported, errors.Join(errs...)
		}
	}
}

func (uc *DefaultExportUsecase) ExportResults(ctx context.Context) (int, error) {
	pending, err := uc.DrawRepo.ListResultsExportPending(ctx, uc.Batch)
	if err != nil {
		return 0, err
	}
	exported := 0
	var errs []error
	for _, dl := range pending {
		result, err := uc.Results.Result(ctx, dl.LotteryID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := uc.publish(ctx, uc.Topics.Results, domain.MessageDrawResult, dl.LotteryID, result); err != nil {
			return exported, errors.Join(append(errs, err)...)
		}
		if _, err := uc.DrawRepo.MarkResultsExported(ctx, dl.LotteryID, uc.now()); err != nil {
			return exported, errors.Join(append(errs, err)...)
		}
		exported++
		uc.Logger.Info("draw result exported", zap.Int64("lottery_id", dl.LotteryID), zap.Int("winners", len(result.Winners)))
	}
	return exported, errors.Join(errs...)
}
