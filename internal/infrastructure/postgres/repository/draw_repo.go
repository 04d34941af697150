package repository

import (
	"context"
	"errors"
	"time"

	"github.com/LavaJover/shvark-lottery-service/internal/domain"
	"github.com/LavaJover/shvark-lottery-service/internal/infrastructure/postgres"
	"github.com/LavaJover/shvark-lottery-service/internal/infrastructure/postgres/mappers"
	"github.com/LavaJover/shvark-lottery-service/internal/infrastructure/postgres/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultDrawRepository owns the draw service tables.
type DefaultDrawRepository struct {
	DB *gorm.DB
}

func NewDefaultDrawRepository(db *gorm.DB) *DefaultDrawRepository {
	return &DefaultDrawRepository{DB: db}
}

func (r *DefaultDrawRepository) UpsertSchedule(ctx context.Context, l *domain.DrawLottery) error {
	model := mappers.ToGORMDrawLottery(l)
	err := postgres.Conn(ctx, r.DB).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "lottery_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"type", "country", "sale_start_date", "sale_end_date", "draw_date", "updated_at"}),
			Where: clause.Where{Exprs: []clause.Expression{
				clause.Expr{SQL: "draw_lotteries.is_drawn = false"},
			}},
		}).
		Create(model).Error
	return postgres.Classify("upsert draw schedule", err)
}

func (r *DefaultDrawRepository) SetDrawConfig(ctx context.Context, l *domain.DrawLottery) (bool, error) {
	model := mappers.ToGORMDrawLottery(l)
	res := postgres.Conn(ctx, r.DB).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "lottery_id"}},
			DoUpdates: clause.Set{
				{Column: clause.Column{Name: "winners_count"}, Value: gorm.Expr("excluded.winners_count")},
				{Column: clause.Column{Name: "expected_tickets"}, Value: gorm.Expr("excluded.expected_tickets")},
				{Column: clause.Column{Name: "draw_date"}, Value: gorm.Expr("COALESCE(excluded.draw_date, draw_lotteries.draw_date)")},
				{Column: clause.Column{Name: "updated_at"}, Value: gorm.Expr("excluded.updated_at")},
			},
			Where: clause.Where{Exprs: []clause.Expression{
				clause.Expr{SQL: "draw_lotteries.winners_count IS NULL"},
			}},
		}).
		Create(model)
	if res.Error != nil {
		return false, postgres.Classify("set draw config", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *DefaultDrawRepository) GetDrawLottery(ctx context.Context, lotteryID int64) (*domain.DrawLottery, error) {
	var model models.DrawLotteryModel
	if err := postgres.Conn(ctx, r.DB).First(&model, "lottery_id = ?", lotteryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrLotteryNotFound
		}
		return nil, postgres.Classify("get draw lottery", err)
	}
	return mappers.ToDomainDrawLottery(&model), nil
}

func (r *DefaultDrawRepository) ListDueDraws(ctx context.Context, now time.Time, limit int) ([]*domain.DrawLottery, error) {
	var list []models.DrawLotteryModel
	err := postgres.Conn(ctx, r.DB).
		Where("is_drawn = false AND winners_count IS NOT NULL AND draw_date IS NOT NULL AND draw_date <= ?", now).
		Order("draw_date").
		Limit(limit).
		Find(&list).Error
	if err != nil {
		return nil, postgres.Classify("list due draws", err)
	}
	return toDomainDrawLotteries(list), nil
}

func (r *DefaultDrawRepository) InsertTickets(ctx context.Context, tickets []*domain.DrawTicket) (int64, error) {
	if len(tickets) == 0 {
		return 0, nil
	}
	rows := make([]models.DrawTicketModel, 0, len(tickets))
	for _, t := range tickets {
		rows = append(rows, mappers.ToGORMDrawTicket(t))
	}
	res := postgres.Conn(ctx, r.DB).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows)
	if res.Error != nil {
		return 0, postgres.Classify("insert draw tickets", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *DefaultDrawRepository) CountTickets(ctx context.Context, lotteryID int64, t domain.LotteryType) (int64, error) {
	var count int64
	err := postgres.Conn(ctx, r.DB).Model(&models.DrawTicketModel{}).
		Where("lottery_type = ? AND lottery_id = ?", string(t), lotteryID).
		Count(&count).Error
	if err != nil {
		return 0, postgres.Classify("count draw tickets", err)
	}
	return count, nil
}

func (r *DefaultDrawRepository) ListTicketNumbers(ctx context.Context, lotteryID int64, t domain.LotteryType) ([]string, error) {
	var numbers []string
	err := postgres.Conn(ctx, r.DB).Model(&models.DrawTicketModel{}).
		Where("lottery_type = ? AND lottery_id = ?", string(t), lotteryID).
		Order("ticket_number").
		Pluck("ticket_number", &numbers).Error
	if err != nil {
		return nil, postgres.Classify("list draw ticket numbers", err)
	}
	return numbers, nil
}

func (r *DefaultDrawRepository) CountWinners(ctx context.Context, lotteryID int64) (int64, error) {
	var count int64
	if err := postgres.Conn(ctx, r.DB).Model(&models.DrawWinnerModel{}).Where("lottery_id = ?", lotteryID).Count(&count).Error; err != nil {
		return 0, postgres.Classify("count draw winners", err)
	}
	return count, nil
}

func (r *DefaultDrawRepository) ListWinners(ctx context.Context, lotteryID int64) ([]*domain.DrawWinner, error) {
	var list []models.DrawWinnerModel
	if err := postgres.Conn(ctx, r.DB).Where("lottery_id = ?", lotteryID).Order("position").Find(&list).Error; err != nil {
		return nil, postgres.Classify("list draw winners", err)
	}
	out := make([]*domain.DrawWinner, 0, len(list))
	for i := range list {
		out = append(out, mappers.ToDomainDrawWinner(&list[i]))
	}
	return out, nil
}

func (r *DefaultDrawRepository) InsertWinners(ctx context.Context, winners []*domain.DrawWinner) error {
	if len(winners) == 0 {
		return nil
	}
	rows := make([]models.DrawWinnerModel, 0, len(winners))
	for _, w := range winners {
		rows = append(rows, mappers.ToGORMDrawWinner(w))
	}
	err := postgres.Conn(ctx, r.DB).Create(&rows).Error
	return postgres.Classify("insert draw winners", err)
}

func (r *DefaultDrawRepository) MarkDrawn(ctx context.Context, lotteryID int64, at time.Time) (bool, error) {
	res := postgres.Conn(ctx, r.DB).Model(&models.DrawLotteryModel{}).
		Where("lottery_id = ? AND is_drawn = false", lotteryID).
		Updates(map[string]interface{}{"is_drawn": true, "drawn_at": at})
	if res.Error != nil {
		return false, postgres.Classify("mark draw lottery drawn", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *DefaultDrawRepository) ListResultsExportPending(ctx context.Context, limit int) ([]*domain.DrawLottery, error) {
	var list []models.DrawLotteryModel
	err := postgres.Conn(ctx, r.DB).
		Where("is_drawn = true AND results_exported_at IS NULL").
		Order("drawn_at").
		Limit(limit).
		Find(&list).Error
	if err != nil {
		return nil, postgres.Classify("list results export pending", err)
	}
	return toDomainDrawLotteries(list), nil
}

func (r *DefaultDrawRepository) MarkResultsExported(ctx context.Context, lotteryID int64, at time.Time) (bool, error) {
	res := postgres.Conn(ctx, r.DB).Model(&models.DrawLotteryModel{}).
		Where("lottery_id = ? AND results_exported_at IS NULL", lotteryID).
		Update("results_exported_at", at)
	if res.Error != nil {
		return false, postgres.Classify("mark results exported", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func toDomainDrawLotteries(list []models.DrawLotteryModel) []*domain.DrawLottery {
	out := make([]*domain.DrawLottery, 0, len(list))
	for i := range list {
		out = append(out, mappers.ToDomainDrawLottery(&list[i]))
	}
	return out
}
