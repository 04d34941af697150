package repository

import (
	"context"

	"github.com/LavaJover/shvark-lottery-service/internal/domain"
	"github.com/LavaJover/shvark-lottery-service/internal/infrastructure/postgres"
	"github.com/LavaJover/shvark-lottery-service/internal/infrastructure/postgres/mappers"
	"github.com/LavaJover/shvark-lottery-service/internal/infrastructure/postgres/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DefaultTicketRepository struct {
	DB *gorm.DB
}

func NewDefaultTicketRepository(db *gorm.DB) *DefaultTicketRepository {
	return &DefaultTicketRepository{DB: db}
}

func (r *DefaultTicketRepository) CountTickets(ctx context.Context, lotteryID int64) (int64, int64, error) {
	var counts struct {
		Generated int64
		Sold      int64
	}
	err := postgres.Conn(ctx, r.DB).Raw(
		"SELECT count(*) AS generated, count(*) FILTER (WHERE is_paid) AS sold FROM tickets WHERE lottery_id = ?",
		lotteryID,
	).Scan(&counts).Error
	if err != nil {
		return 0, 0, postgres.Classify("count tickets", err)
	}
	return counts.Generated, counts.Sold, nil
}

func (r *DefaultTicketRepository) MaxSequence(ctx context.Context, lotteryID int64) (int64, error) {
	var maxSeq int64
	err := postgres.Conn(ctx, r.DB).Model(&models.TicketModel{}).
		Where("lottery_id = ?", lotteryID).
		Select("COALESCE(MAX(sequence_id), 0)").
		Scan(&maxSeq).Error
	if err != nil {
		return 0, postgres.Classify("max ticket sequence", err)
	}
	return maxSeq, nil
}

func (r *DefaultTicketRepository) InsertTickets(ctx context.Context, tickets []*domain.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}
	rows := mappers.ToGORMTickets(tickets)
	err := postgres.Conn(ctx, r.DB).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error
	return postgres.Classify("insert tickets", err)
}

func (r *DefaultTicketRepository) GetTickets(ctx context.Context, lotteryID int64, sequenceIDs []int64) ([]*domain.Ticket, error) {
	if len(sequenceIDs) == 0 {
		return nil, nil
	}
	var list []models.TicketModel
	err := postgres.Conn(ctx, r.DB).
		Where("lottery_id = ? AND sequence_id IN ?", lotteryID, sequenceIDs).
		Order("sequence_id").
		Find(&list).Error
	if err != nil {
		return nil, postgres.Classify("get tickets", err)
	}
	return mappers.ToDomainTickets(list), nil
}

func (r *DefaultTicketRepository) RandomAvailable(ctx context.Context, lotteryID int64, limit int) ([]*domain.Ticket, error) {
	var list []models.TicketModel
	err := postgres.Conn(ctx, r.DB).
		Where("lottery_id = ? AND is_reserved = false AND is_paid = false", lotteryID).
		Order("random()").
		Limit(limit).
		Find(&list).Error
	if err != nil {
		return nil, postgres.Classify("random available tickets", err)
	}
	return mappers.ToDomainTickets(list), nil
}

func (r *DefaultTicketRepository) Reserve(ctx context.Context, lotteryID, sequenceID int64) (bool, error) {
	return r.flip(ctx, "reserve ticket", lotteryID, sequenceID,
		"is_reserved = false AND is_paid = false", "is_reserved", true)
}

func (r *DefaultTicketRepository) Release(ctx context.Context, lotteryID, sequenceID int64) (bool, error) {
	return r.flip(ctx, "release ticket", lotteryID, sequenceID,
		"is_reserved = true AND is_paid = false", "is_reserved", false)
}

func (r *DefaultTicketRepository) MarkPaid(ctx context.Context, lotteryID, sequenceID int64) (bool, error) {
	return r.flip(ctx, "mark ticket paid", lotteryID, sequenceID,
		"is_reserved = true AND is_paid = false", "is_paid", true)
}

// flip sets column to value only when the ticket is in the expected state.
func (r *DefaultTicketRepository) flip(ctx context.Context, op string, lotteryID, sequenceID int64, expected, column string, value bool) (bool, error) {
	res := postgres.Conn(ctx, r.DB).Model(&models.TicketModel{}).
		Where("lottery_id = ? AND sequence_id = ? AND "+expected, lotteryID, sequenceID).
		Update(column, value)
	if res.Error != nil {
		return false, postgres.Classify(op, res.Error)
	}
	return res.RowsAffected == 1, nil
}
