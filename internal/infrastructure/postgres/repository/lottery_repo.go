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

type DefaultLotteryRepository struct {
	DB *gorm.DB
}

func NewDefaultLotteryRepository(db *gorm.DB) *DefaultLotteryRepository {
	return &DefaultLotteryRepository{DB: db}
}

func (r *DefaultLotteryRepository) CreateLottery(ctx context.Context, l *domain.Lottery) (bool, error) {
	model := mappers.ToGORMLottery(l)
	res := postgres.Conn(ctx, r.DB).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "country"}, {Name: "type"}, {Name: "sale_start_date"}},
			DoNothing: true,
		}).
		Create(model)
	if res.Error != nil {
		return false, postgres.Classify("create lottery", res.Error)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	l.ID = model.ID
	l.CreatedAt = model.CreatedAt
	l.UpdatedAt = model.UpdatedAt
	return true, nil
}

func (r *DefaultLotteryRepository) GetLotteryByID(ctx context.Context, id int64) (*domain.Lottery, error) {
	var model models.LotteryModel
	if err := postgres.Conn(ctx, r.DB).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrLotteryNotFound
		}
		return nil, postgres.Classify("get lottery", err)
	}
	return mappers.ToDomainLottery(&model), nil
}

func (r *DefaultLotteryRepository) HasUnfinishedLottery(ctx context.Context, country string, t domain.LotteryType) (bool, error) {
	var count int64
	err := postgres.Conn(ctx, r.DB).Model(&models.LotteryModel{}).
		Where("country = ? AND type = ? AND is_drawn = false", country, string(t)).
		Count(&count).Error
	if err != nil {
		return false, postgres.Classify("check unfinished lottery", err)
	}
	return count > 0, nil
}

// ListOpenLotteries returns active lotteries whose sale has not ended yet,
// including those whose sale starts later.
func (r *DefaultLotteryRepository) ListOpenLotteries(ctx context.Context, now time.Time) ([]*domain.Lottery, error) {
	var list []models.LotteryModel
	err := postgres.Conn(ctx, r.DB).
		Where("is_active = true AND is_drawn = false AND (sale_end_date IS NULL OR sale_end_date > ?)", now).
		Order("id").
		Find(&list).Error
	if err != nil {
		return nil, postgres.Classify("list open lotteries", err)
	}
	return mappers.ToDomainLotteries(list), nil
}

func (r *DefaultLotteryRepository) ListWinnersCountPending(ctx context.Context, closedBefore time.Time, limit int) ([]*domain.Lottery, error) {
	var list []models.LotteryModel
	err := postgres.Conn(ctx, r.DB).
		Where("calculated_winners_count IS NULL AND is_drawn = false AND sale_end_date IS NOT NULL AND sale_end_date <= ?", closedBefore).
		Order("sale_end_date").
		Limit(limit).
		Find(&list).Error
	if err != nil {
		return nil, postgres.Classify("list winners count pending", err)
	}
	return mappers.ToDomainLotteries(list), nil
}

func (r *DefaultLotteryRepository) SetWinnersCount(ctx context.Context, id int64, count int) (bool, error) {
	res := postgres.Conn(ctx, r.DB).Model(&models.LotteryModel{}).
		Where("id = ? AND calculated_winners_count IS NULL", id).
		Update("calculated_winners_count", count)
	if res.Error != nil {
		return false, postgres.Classify("set winners count", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *DefaultLotteryRepository) ListScheduleExportPending(ctx context.Context, limit int) ([]*domain.Lottery, error) {
	var list []models.LotteryModel
	err := postgres.Conn(ctx, r.DB).
		Where("schedule_exported_at IS NULL").
		Order("id").
		Limit(limit).
		Find(&list).Error
	if err != nil {
		return nil, postgres.Classify("list schedule export pending", err)
	}
	return mappers.ToDomainLotteries(list), nil
}

func (r *DefaultLotteryRepository) MarkScheduleExported(ctx context.Context, id int64, at time.Time) (bool, error) {
	res := postgres.Conn(ctx, r.DB).Model(&models.LotteryModel{}).
		Where("id = ? AND schedule_exported_at IS NULL", id).
		Update("schedule_exported_at", at)
	if res.Error != nil {
		return false, postgres.Classify("mark schedule exported", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *DefaultLotteryRepository) ListWinnersConfigExportPending(ctx context.Context, limit int) ([]*domain.Lottery, error) {
	var list []models.LotteryModel
	err := postgres.Conn(ctx, r.DB).
		Where("calculated_winners_count IS NOT NULL AND winners_config_exported_at IS NULL").
		Order("id").
		Limit(limit).
		Find(&list).Error
	if err != nil {
		return nil, postgres.Classify("list winners config export pending", err)
	}
	return mappers.ToDomainLotteries(list), nil
}

func (r *DefaultLotteryRepository) MarkWinnersConfigExported(ctx context.Context, id int64, at time.Time) (bool, error) {
	res := postgres.Conn(ctx, r.DB).Model(&models.LotteryModel{}).
		Where("id = ? AND winners_config_exported_at IS NULL", id).
		Update("winners_config_exported_at", at)
	if res.Error != nil {
		return false, postgres.Classify("mark winners config exported", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *DefaultLotteryRepository) MarkTicketsGenerated(ctx context.Context, id int64) (bool, error) {
	res := postgres.Conn(ctx, r.DB).Model(&models.LotteryModel{}).
		Where("id = ? AND tickets_generated = false", id).
		Update("tickets_generated", true)
	if res.Error != nil {
		return false, postgres.Classify("mark tickets generated", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *DefaultLotteryRepository) CloseSale(ctx context.Context, id int64, at, drawDate time.Time) (bool, error) {
	res := postgres.Conn(ctx, r.DB).Model(&models.LotteryModel{}).
		Where("id = ? AND sale_end_date IS NULL", id).
		Updates(map[string]interface{}{
			"sale_end_date":        at,
			"draw_date":            drawDate,
			"schedule_exported_at": nil,
		})
	if res.Error != nil {
		return false, postgres.Classify("close sale", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *DefaultLotteryRepository) MarkDrawn(ctx context.Context, id int64) (bool, error) {
	res := postgres.Conn(ctx, r.DB).Model(&models.LotteryModel{}).
		Where("id = ? AND is_drawn = false", id).
		Update("is_drawn", true)
	if res.Error != nil {
		return false, postgres.Classify("mark drawn", res.Error)
	}
	return res.RowsAffected == 1, nil
}
