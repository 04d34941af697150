package mappers

import (
	"github.com/LavaJover/shvark-lottery-service/internal/domain"
	"github.com/LavaJover/shvark-lottery-service/internal/infrastructure/postgres/models"
)

func ToDomainLottery(model *models.LotteryModel) *domain.Lottery {
	return &domain.Lottery{
		ID:                      model.ID,
		Type:                    domain.LotteryType(model.Type),
		Country:                 model.Country,
		SaleStartDate:           model.SaleStartDate,
		SaleEndDate:             model.SaleEndDate,
		DrawDate:                model.DrawDate,
		IsActive:                model.IsActive,
		IsDrawn:                 model.IsDrawn,
		PrizeConfigurationID:    model.PrizeConfigurationID,
		CalculatedWinnersCount:  model.CalculatedWinnersCount,
		ScheduleExportedAt:      model.ScheduleExportedAt,
		WinnersConfigExportedAt: model.WinnersConfigExportedAt,
		TicketsGenerated:        model.TicketsGenerated,
		TicketCap:               model.TicketCap,
		TicketPrice:             model.TicketPrice,
		Currency:                model.Currency,
		CreatedAt:               model.CreatedAt,
		UpdatedAt:               model.UpdatedAt,
	}
}

func ToGORMLottery(l *domain.Lottery) *models.LotteryModel {
	return &models.LotteryModel{
		ID:                      l.ID,
		Type:                    string(l.Type),
		Country:                 l.Country,
		SaleStartDate:           l.SaleStartDate,
		SaleEndDate:             l.SaleEndDate,
		DrawDate:                l.DrawDate,
		IsActive:                l.IsActive,
		IsDrawn:                 l.IsDrawn,
		PrizeConfigurationID:    l.PrizeConfigurationID,
		CalculatedWinnersCount:  l.CalculatedWinnersCount,
		ScheduleExportedAt:      l.ScheduleExportedAt,
		WinnersConfigExportedAt: l.WinnersConfigExportedAt,
		TicketsGenerated:        l.TicketsGenerated,
		TicketCap:               l.TicketCap,
		TicketPrice:             l.TicketPrice,
		Currency:                l.Currency,
	}
}

func ToDomainLotteries(list []models.LotteryModel) []*domain.Lottery {
	out := make([]*domain.Lottery, 0, len(list))
	for i := range list {
		out = append(out, ToDomainLottery(&list[i]))
	}
	return out
}

func ToDomainPrizeConfiguration(model *models.PrizeConfigurationModel) (*domain.PrizeConfiguration, error) {
	rules, err := domain.UnmarshalPrizeRules(model.Rules)
	if err != nil {
		return nil, err
	}
	return &domain.PrizeConfiguration{
		ID:          model.ID,
		LotteryType: domain.LotteryType(model.LotteryType),
		FundPercent: model.FundPercent,
		Currency:    model.Currency,
		Rules:       rules,
	}, nil
}

func ToGORMPrizeConfiguration(c *domain.PrizeConfiguration) (*models.PrizeConfigurationModel, error) {
	rules, err := domain.MarshalPrizeRules(c.Rules)
	if err != nil {
		return nil, err
	}
	return &models.PrizeConfigurationModel{
		ID:          c.ID,
		LotteryType: string(c.LotteryType),
		FundPercent: c.FundPercent,
		Currency:    c.Currency,
		Rules:       rules,
	}, nil
}
