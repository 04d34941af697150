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

type DefaultPurchaseRepository struct {
	DB *gorm.DB
}

func NewDefaultPurchaseRepository(db *gorm.DB) *DefaultPurchaseRepository {
	return &DefaultPurchaseRepository{DB: db}
}

func (r *DefaultPurchaseRepository) CreatePurchases(ctx context.Context, purchases []*domain.PurchaseRecord) error {
	if len(purchases) == 0 {
		return nil
	}
	rows := make([]*models.PurchaseModel, 0, len(purchases))
	for _, p := range purchases {
		rows = append(rows, mappers.ToGORMPurchase(p))
	}
	if err := postgres.Conn(ctx, r.DB).Create(&rows).Error; err != nil {
		return postgres.Classify("create purchases", err)
	}
	for i, row := range rows {
		purchases[i].ID = row.ID
	}
	return nil
}

func (r *DefaultPurchaseRepository) CountSold(ctx context.Context, lotteryID int64) (int64, int64, error) {
	var counts struct {
		Sold         int64
		Participants int64
	}
	err := postgres.Conn(ctx, r.DB).Raw(
		"SELECT count(*) AS sold, count(DISTINCT user_id) AS participants FROM purchases WHERE lottery_id = ?",
		lotteryID,
	).Scan(&counts).Error
	if err != nil {
		return 0, 0, postgres.Classify("count sold", err)
	}
	return counts.Sold, counts.Participants, nil
}

func (r *DefaultPurchaseRepository) ListExportPending(ctx context.Context, limit int) ([]*domain.PurchaseRecord, error) {
	var list []models.PurchaseModel
	err := postgres.Conn(ctx, r.DB).
		Where("exported_at IS NULL").
		Order("lottery_id, id").
		Limit(limit).
		Find(&list).Error
	if err != nil {
		return nil, postgres.Classify("list purchases export pending", err)
	}
	out := make([]*domain.PurchaseRecord, 0, len(list))
	for i := range list {
		out = append(out, mappers.ToDomainPurchase(&list[i]))
	}
	return out, nil
}

func (r *DefaultPurchaseRepository) MarkExported(ctx context.Context, lotteryID int64, ids []int64, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	err := postgres.Conn(ctx, r.DB).Model(&models.PurchaseModel{}).
		Where("lottery_id = ? AND id IN ? AND exported_at IS NULL", lotteryID, ids).
		Update("exported_at", at).Error
	return postgres.Classify("mark purchases exported", err)
}

func (r *DefaultPurchaseRepository) FindByTicketNumbers(ctx context.Context, lotteryID int64, numbers []string) (map[string]*domain.PurchaseRecord, error) {
	out := make(map[string]*domain.PurchaseRecord, len(numbers))
	if len(numbers) == 0 {
		return out, nil
	}
	var list []models.PurchaseModel
	err := postgres.Conn(ctx, r.DB).
		Where("lottery_id = ? AND ticket_number IN ?", lotteryID, numbers).
		Find(&list).Error
	if err != nil {
		return nil, postgres.Classify("find purchases by ticket numbers", err)
	}
	for i := range list {
		out[list[i].TicketNumber] = mappers.ToDomainPurchase(&list[i])
	}
	return out, nil
}

type DefaultWinnerRepository struct {
	DB *gorm.DB
}

func NewDefaultWinnerRepository(db *gorm.DB) *DefaultWinnerRepository {
	return &DefaultWinnerRepository{DB: db}
}

func (r *DefaultWinnerRepository) CreateWinners(ctx context.Context, winners []*domain.WinnerRecord) (int64, error) {
	if len(winners) == 0 {
		return 0, nil
	}
	rows := make([]*models.WinnerModel, 0, len(winners))
	for _, w := range winners {
		rows = append(rows, mappers.ToGORMWinner(w))
	}
	res := postgres.Conn(ctx, r.DB).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "purchase_id"}, {Name: "lottery_id"}},
			DoNothing: true,
		}).
		Create(&rows)
	if res.Error != nil {
		return 0, postgres.Classify("create winners", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *DefaultWinnerRepository) CountWinners(ctx context.Context, lotteryID int64) (int64, error) {
	var count int64
	if err := postgres.Conn(ctx, r.DB).Model(&models.WinnerModel{}).Where("lottery_id = ?", lotteryID).Count(&count).Error; err != nil {
		return 0, postgres.Classify("count winners", err)
	}
	return count, nil
}

func (r *DefaultWinnerRepository) ListWinners(ctx context.Context, lotteryID int64) ([]*domain.WinnerRecord, error) {
	var list []models.WinnerModel
	if err := postgres.Conn(ctx, r.DB).Where("lottery_id = ?", lotteryID).Order("position").Find(&list).Error; err != nil {
		return nil, postgres.Classify("list winners", err)
	}
	out := make([]*domain.WinnerRecord, 0, len(list))
	for i := range list {
		out = append(out, mappers.ToDomainWinner(&list[i]))
	}
	return out, nil
}

type DefaultPrizeConfigRepository struct {
	DB *gorm.DB
}

func NewDefaultPrizeConfigRepository(db *gorm.DB) *DefaultPrizeConfigRepository {
	return &DefaultPrizeConfigRepository{DB: db}
}

func (r *DefaultPrizeConfigRepository) GetPrizeConfiguration(ctx context.Context, id int64) (*domain.PrizeConfiguration, error) {
	var model models.PrizeConfigurationModel
	if err := postgres.Conn(ctx, r.DB).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrPrizeConfigNotFound
		}
		return nil, postgres.Classify("get prize configuration", err)
	}
	cfg, err := mappers.ToDomainPrizeConfiguration(&model)
	if err != nil {
		return nil, domain.NewValidationError(err)
	}
	return cfg, nil
}

func (r *DefaultPrizeConfigRepository) SavePrizeConfiguration(ctx context.Context, c *domain.PrizeConfiguration) error {
	model, err := mappers.ToGORMPrizeConfiguration(c)
	if err != nil {
		return err
	}
	err = postgres.Conn(ctx, r.DB).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"lottery_type", "fund_percent", "currency", "rules", "updated_at"}),
		}).
		Create(model).Error
	return postgres.Classify("save prize configuration", err)
}
