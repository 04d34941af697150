package mappers

import (
	"github.com/LavaJover/shvark-lottery-service/internal/domain"
	"github.com/LavaJover/shvark-lottery-service/internal/infrastructure/postgres/models"
)

func ToDomainTicket(model *models.TicketModel) *domain.Ticket {
	return &domain.Ticket{
		LotteryID:    model.LotteryID,
		SequenceID:   model.SequenceID,
		TicketNumber: model.TicketNumber,
		IsReserved:   model.IsReserved,
		IsPaid:       model.IsPaid,
	}
}

func ToGORMTickets(tickets []*domain.Ticket) []models.TicketModel {
	out := make([]models.TicketModel, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, models.TicketModel{
			LotteryID:    t.LotteryID,
			SequenceID:   t.SequenceID,
			TicketNumber: t.TicketNumber,
			IsReserved:   t.IsReserved,
			IsPaid:       t.IsPaid,
		})
	}
	return out
}

func ToDomainTickets(list []models.TicketModel) []*domain.Ticket {
	out := make([]*domain.Ticket, 0, len(list))
	for i := range list {
		out = append(out, ToDomainTicket(&list[i]))
	}
	return out
}
