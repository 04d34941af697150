package leaderboard

import (
	"github.com/LavaJover/shvark-lottery-service/internal/domain"
	"github.com/shopspring/decimal"
)

// MaxTailPositions bounds the dynamic tail whatever its configuration.
const MaxTailPositions = 100

var hundred = decimal.NewFromInt(100)

type Input struct {
	TicketPrice  decimal.Decimal
	SoldTickets  int64
	Participants int64
	Config       *domain.PrizeConfiguration
}

type Result struct {
	SoldTickets  int64
	Participants int64
	Revenue      decimal.Decimal
	PrizePool    decimal.Decimal
	Prizes       []domain.PrizeDetail
}

func round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

func percentOf(base, percent decimal.Decimal) decimal.Decimal {
	return round(base.Mul(percent).Div(hundred))
}

// Compute builds the payout table for a lottery from its sales.
func Compute(in Input) Result {
	revenue := in.TicketPrice.Mul(decimal.NewFromInt(in.SoldTickets))
	res := Result{SoldTickets: in.SoldTickets, Participants: in.Participants, Revenue: revenue}
	if in.Config == nil {
		res.PrizePool = decimal.Zero
		return res
	}
	pool := percentOf(revenue, in.Config.FundPercent)
	res.PrizePool = pool

	remaining := pool
	for _, rule := range in.Config.FixedRules() {
		var amount decimal.Decimal
		switch r := rule.(type) {
		case domain.FixedAmount:
			amount = r.Amount
		case domain.FixedPercent:
			amount = percentOf(pool, r.Percent)
		}
		if amount.GreaterThan(remaining) {
			amount = remaining
		}
		if !amount.IsPositive() {
			continue
		}
		remaining = remaining.Sub(amount)
		res.Prizes = append(res.Prizes, domain.PrizeDetail{Position: rule.Place(), Amount: amount})
	}

	if tail := in.Config.Tail(); tail != nil {
		res.Prizes = append(res.Prizes, tailPrizes(pool, tail)...)
	}
	return res
}

func tailPrizes(pool decimal.Decimal, rule *domain.DynamicTailRule) []domain.PrizeDetail {
	fund := percentOf(pool, rule.BaseFundPercent)
	percent := rule.StartPercent
	position := rule.AfterPosition + 1

	var prizes []domain.PrizeDetail
	for len(prizes) < MaxTailPositions && percent.IsPositive() {
		amount := percentOf(fund, percent)
		if amount.LessThan(rule.MinAmount) || !amount.IsPositive() {
			break
		}
		prizes = append(prizes, domain.PrizeDetail{Position: position, Amount: amount})
		percent = percent.Sub(rule.DecreaseStep)
		position++
	}
	return prizes
}
