package mappers

import (
	"github.com/LavaJover/shvark-lottery-service/internal/domain"
	"github.com/LavaJover/shvark-lottery-service/internal/infrastructure/postgres/models"
)

func ToDomainPurchase(model *models.PurchaseModel) *domain.PurchaseRecord {
	return &domain.PurchaseRecord{
		ID:           model.ID,
		LotteryID:    model.LotteryID,
		LotteryType:  domain.LotteryType(model.LotteryType),
		TicketID:     model.TicketID,
		TicketNumber: model.TicketNumber,
		UserID:       model.UserID,
		BasketID:     model.BasketID,
		Price:        model.Price,
		Currency:     model.Currency,
		PurchasedAt:  model.PurchasedAt,
		ExportedAt:   model.ExportedAt,
	}
}

func ToGORMPurchase(p *domain.PurchaseRecord) *models.PurchaseModel {
	return &models.PurchaseModel{
		ID:           p.ID,
		LotteryID:    p.LotteryID,
		LotteryType:  string(p.LotteryType),
		TicketID:     p.TicketID,
		TicketNumber: p.TicketNumber,
		UserID:       p.UserID,
		BasketID:     p.BasketID,
		Price:        p.Price,
		Currency:     p.Currency,
		PurchasedAt:  p.PurchasedAt,
		ExportedAt:   p.ExportedAt,
	}
}

func ToDomainWinner(model *models.WinnerModel) *domain.WinnerRecord {
	return &domain.WinnerRecord{
		ID:         model.ID,
		PurchaseID: model.PurchaseID,
		LotteryID:  model.LotteryID,
		Position:   model.Position,
		Amount:     model.Amount,
		Currency:   model.Currency,
		CreatedAt:  model.CreatedAt,
	}
}

func ToGORMWinner(w *domain.WinnerRecord) *models.WinnerModel {
	return &models.WinnerModel{
		ID:         w.ID,
		PurchaseID: w.PurchaseID,
		LotteryID:  w.LotteryID,
		Position:   w.Position,
		Amount:     w.Amount,
		Currency:   w.Currency,
		CreatedAt:  w.CreatedAt,
	}
}
