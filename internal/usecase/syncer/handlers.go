package syncer

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/LavaJover/shvark-lottery-service/internal/domain"
	"go.uber.org/zap"
)

// ResultImporter stores the winners of a drawn lottery on the sales side.
type ResultImporter interface {
	ImportResults(ctx context.Context, result *domain.DrawResult) (int64, error)
}

// ImportUsecase applies messages from the other services. Every handler is
// safe under redelivery.
type ImportUsecase interface {
	Handle(ctx context.Context, topic string, env *domain.Envelope) error
}

type DefaultImportUsecase struct {
	DrawRepo   domain.DrawRepository
	Partitions domain.PartitionManager
	Importer   ResultImporter
	Logger     *zap.Logger
	now        func() time.Time
}

func NewDefaultImportUsecase(drawRepo domain.DrawRepository, partitions domain.PartitionManager, importer ResultImporter, logger *zap.Logger) *DefaultImportUsecase {
	return &DefaultImportUsecase{
		DrawRepo:   drawRepo,
		Partitions: partitions,
		Importer:   importer,
		Logger:     logger,
		now:        time.Now,
	}
}

// Handle routes env by its message type header.
func (uc *DefaultImportUsecase) Handle(ctx context.Context, topic string, env *domain.Envelope) error {
	switch env.Type() {
	case domain.MessageLotterySchedule:
		return uc.handleSchedule(ctx, env)
	case domain.MessageDrawConfiguration:
		return uc.handleDrawConfig(ctx, env)
	case domain.MessageTicketBatch:
		return uc.handleTicketBatch(ctx, env)
	case domain.MessageDrawResult:
		return uc.handleResult(ctx, env)
	default:
		return domain.NewPoisonError(fmt.Errorf("%w %q on %s", domain.ErrUnknownMessageType, env.Type(), topic))
	}
}

func (uc *DefaultImportUsecase) handleSchedule(ctx context.Context, env *domain.Envelope) error {
	var s domain.LotterySchedule
	if err := env.Decode(&s); err != nil {
		return err
	}
	if err := checkLottery(s.LotteryID, s.Type); err != nil {
		return err
	}
	err := uc.DrawRepo.UpsertSchedule(ctx, &domain.DrawLottery{
		LotteryID:     s.LotteryID,
		Type:          s.Type,
		Country:       s.Country,
		SaleStartDate: s.SaleStartDate,
		SaleEndDate:   s.SaleEndDate,
		DrawDate:      s.DrawDate,
	})
	if err != nil {
		return err
	}
	uc.Logger.Debug("schedule imported", zap.Int64("lottery_id", s.LotteryID))
	return nil
}

func (uc *DefaultImportUsecase) handleDrawConfig(ctx context.Context, env *domain.Envelope) error {
	var c domain.DrawConfiguration
	if err := env.Decode(&c); err != nil {
		return err
	}
	if err := checkLottery(c.LotteryID, c.Type); err != nil {
		return err
	}
	if c.WinnersCount < 0 || c.SoldTickets < 0 {
		return domain.NewValidationError(fmt.Errorf("negative counts in draw configuration of lottery %d", c.LotteryID))
	}
	winners, expected := c.WinnersCount, c.SoldTickets
	set, err := uc.DrawRepo.SetDrawConfig(ctx, &domain.DrawLottery{
		LotteryID:       c.LotteryID,
		Type:            c.Type,
		Country:         c.Country,
		DrawDate:        c.DrawDate,
		WinnersCount:    &winners,
		ExpectedTickets: &expected,
	})
	if err != nil {
		return err
	}
	log := uc.Logger.With(zap.Int64("lottery_id", c.LotteryID))
	if !set {
		log.Info("draw configuration already stored")
		return nil
	}
	log.Info("draw configuration imported", zap.Int("winners_count", winners), zap.Int64("expected_tickets", expected))
	return nil
}

func (uc *DefaultImportUsecase) handleTicketBatch(ctx context.Context, env *domain.Envelope) error {
	var b domain.TicketBatch
	if err := env.Decode(&b); err != nil {
		return err
	}
	if err := checkLottery(b.LotteryID, b.Type); err != nil {
		return err
	}
	if err := uc.Partitions.EnsureDrawTicketPartition(ctx, b.Type); err != nil {
		return err
	}
	now := uc.now()
	tickets := make([]*domain.DrawTicket, 0, len(b.Tickets))
	for _, t := range b.Tickets {
		if t.TicketNumber == "" {
			return domain.NewValidationError(fmt.Errorf("empty ticket number in batch of lottery %d", b.LotteryID))
		}
		tickets = append(tickets, &domain.DrawTicket{
			LotteryID:    b.LotteryID,
			LotteryType:  b.Type,
			TicketNumber: t.TicketNumber,
			PurchaseID:   t.PurchaseID,
			ImportedAt:   now,
		})
	}
	inserted, err := uc.DrawRepo.InsertTickets(ctx, tickets)
	if err != nil {
		return err
	}
	uc.Logger.Info("tickets imported",
		zap.Int64("lottery_id", b.LotteryID), zap.Int("received", len(tickets)), zap.Int64("inserted", inserted))
	return nil
}

func (uc *DefaultImportUsecase) handleResult(ctx context.Context, env *domain.Envelope) error {
	var r domain.DrawResult
	if err := env.Decode(&r); err != nil {
		return err
	}
	if r.LotteryID <= 0 {
		return domain.NewValidationError(fmt.Errorf("invalid lottery id %d", r.LotteryID))
	}
	if header := env.Header(domain.HeaderLotteryID); header != "" && header != strconv.FormatInt(r.LotteryID, 10) {
		return domain.NewValidationError(fmt.Errorf("header lottery %s does not match body lottery %d", header, r.LotteryID))
	}
	_, err := uc.Importer.ImportResults(ctx, &r)
	return err
}

func checkLottery(id int64, t domain.LotteryType) error {
	if id <= 0 {
		return domain.NewValidationError(fmt.Errorf("invalid lottery id %d", id))
	}
	if !t.Valid() {
		return domain.NewValidationError(fmt.Errorf("unknown lottery type %q", t))
	}
	return nil
}
