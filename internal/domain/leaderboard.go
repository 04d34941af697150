package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type PrizeDetail struct {
	Position int             `json:"position"`
	Amount   decimal.Decimal `json:"amount"`
}

type Leaderboard struct {
	LotteryID    int64           `json:"lottery_id"`
	Currency     string          `json:"currency"`
	SoldTickets  int64           `json:"sold_tickets"`
	Participants int64           `json:"participants"`
	Revenue      decimal.Decimal `json:"revenue"`
	PrizePool    decimal.Decimal `json:"prize_pool"`
	Prizes       []PrizeDetail   `json:"prizes"`
	ComputedAt   time.Time       `json:"computed_at"`
}

// AmountFor returns the payout of position, or false when the position is not paid.
func (l *Leaderboard) AmountFor(position int) (decimal.Decimal, bool) {
	for _, p := range l.Prizes {
		if p.Position == position {
			return p.Amount, true
		}
	}
	return decimal.Zero, false
}

type LeaderboardCache interface {
	// Get returns nil, nil on a miss.
	Get(ctx context.Context, lotteryID int64) (*Leaderboard, error)
	Set(ctx context.Context, board *Leaderboard) error
	Invalidate(ctx context.Context, lotteryID int64) error
}
