package mappers

import (
	"github.com/LavaJover/shvark-lottery-service/internal/domain"
	"github.com/LavaJover/shvark-lottery-service/internal/infrastructure/postgres/models"
)

func ToDomainDrawLottery(model *models.DrawLotteryModel) *domain.DrawLottery {
	return &domain.DrawLottery{
		LotteryID:         model.LotteryID,
		Type:              domain.LotteryType(model.Type),
		Country:           model.Country,
		SaleStartDate:     model.SaleStartDate,
		SaleEndDate:       model.SaleEndDate,
		DrawDate:          model.DrawDate,
		WinnersCount:      model.WinnersCount,
		ExpectedTickets:   model.ExpectedTickets,
		IsDrawn:           model.IsDrawn,
		DrawnAt:           model.DrawnAt,
		ResultsExportedAt: model.ResultsExportedAt,
	}
}

func ToGORMDrawLottery(l *domain.DrawLottery) *models.DrawLotteryModel {
	return &models.DrawLotteryModel{
		LotteryID:         l.LotteryID,
		Type:              string(l.Type),
		Country:           l.Country,
		SaleStartDate:     l.SaleStartDate,
		SaleEndDate:       l.SaleEndDate,
		DrawDate:          l.DrawDate,
		WinnersCount:      l.WinnersCount,
		ExpectedTickets:   l.ExpectedTickets,
		IsDrawn:           l.IsDrawn,
		DrawnAt:           l.DrawnAt,
		ResultsExportedAt: l.ResultsExportedAt,
	}
}

func ToGORMDrawTicket(t *domain.DrawTicket) models.DrawTicketModel {
	return models.DrawTicketModel{
		LotteryType:  string(t.LotteryType),
		LotteryID:    t.LotteryID,
		TicketNumber: t.TicketNumber,
		PurchaseID:   t.PurchaseID,
		ImportedAt:   t.ImportedAt,
	}
}

func ToDomainDrawWinner(model *models.DrawWinnerModel) *domain.DrawWinner {
	return &domain.DrawWinner{
		LotteryID:    model.LotteryID,
		Position:     model.Position,
		TicketNumber: model.TicketNumber,
		CreatedAt:    model.CreatedAt,
	}
}

func ToGORMDrawWinner(w *domain.DrawWinner) models.DrawWinnerModel {
	return models.DrawWinnerModel{
		LotteryID:    w.LotteryID,
		Position:     w.Position,
		TicketNumber: w.TicketNumber,
		CreatedAt:    w.CreatedAt,
	}
}
