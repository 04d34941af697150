package response

import (
	"time"

	"github.com/LavaJover/shvark-lottery-service/internal/domain"
)

type PrizeResponse struct {
	Position int    `json:"position"`
	Amount   string `json:"amount"`
}

type LeaderboardResponse struct {
	Success      bool            `json:"success"`
	LotteryID    int64           `json:"lottery_id"`
	Currency     string          `json:"currency"`
	SoldTickets  int64           `json:"sold_tickets"`
	Participants int64           `json:"participants"`
	Revenue      string          `json:"revenue"`
	PrizePool    string          `json:"prize_pool"`
	Prizes       []PrizeResponse `json:"prizes"`
	ComputedAt   time.Time       `json:"computed_at"`
}

func FromLeaderboard(b *domain.Leaderboard) LeaderboardResponse {
	prizes := make([]PrizeResponse, 0, len(b.Prizes))
	for _, p := range b.Prizes {
		prizes = append(prizes, PrizeResponse{Position: p.Position, Amount: p.Amount.StringFixed(2)})
	}
	return LeaderboardResponse{
		Success:      true,
		LotteryID:    b.LotteryID,
		Currency:     b.Currency,
		SoldTickets:  b.SoldTickets,
		Participants: b.Participants,
		Revenue:      b.Revenue.StringFixed(2),
		PrizePool:    b.PrizePool.StringFixed(2),
		Prizes:       prizes,
		ComputedAt:   b.ComputedAt,
	}
}
