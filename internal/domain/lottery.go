package domain

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

type LotteryType string

const (
	LotteryTypeFixedDaily          LotteryType = "FIXED_DAILY"
	LotteryTypeDynamicDaily        LotteryType = "DYNAMIC_DAILY"
	LotteryTypeAccumulatingJackpot LotteryType = "ACCUMULATING_JACKPOT"
	LotteryTypeCappedSupertour     LotteryType = "CAPPED_SUPERTOUR"
)

var LotteryTypes = []LotteryType{
	LotteryTypeFixedDaily,
	LotteryTypeDynamicDaily,
	LotteryTypeAccumulatingJackpot,
	LotteryTypeCappedSupertour,
}

func (t LotteryType) Valid() bool {
	for _, known := range LotteryTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Capped types have a fixed ticket pool generated once.
func (t LotteryType) Capped() bool {
	return t == LotteryTypeCappedSupertour
}

// LongRunning types span several days; a country holds at most one unfinished instance.
func (t LotteryType) LongRunning() bool {
	return t == LotteryTypeAccumulatingJackpot || t == LotteryTypeCappedSupertour
}

type Lottery struct {
	ID                      int64
	Type                    LotteryType
	Country                 string
	SaleStartDate           time.Time
	SaleEndDate             *time.Time
	DrawDate                *time.Time
	IsActive                bool
	IsDrawn                 bool
	PrizeConfigurationID    int64
	CalculatedWinnersCount  *int
	ScheduleExportedAt      *time.Time
	WinnersConfigExportedAt *time.Time
	TicketsGenerated        bool
	TicketCap               int
	TicketPrice             decimal.Decimal
	Currency                string
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

func (l *Lottery) OnSale(now time.Time) bool {
	if !l.IsActive || l.IsDrawn {
		return false
	}
	if now.Before(l.SaleStartDate) {
		return false
	}
	return l.SaleEndDate == nil || now.Before(*l.SaleEndDate)
}

// SaleClosedFor reports whether the sale window ended at least grace ago.
func (l *Lottery) SaleClosedFor(now time.Time, grace time.Duration) bool {
	if l.SaleEndDate == nil {
		return false
	}
	return !now.Before(l.SaleEndDate.Add(grace))
}

// LotteryTemplate describes how instances of one lottery type are laid out in time.
type LotteryTemplate struct {
	Type                 LotteryType
	Slots                []time.Duration // offsets from midnight
	WindowDays           int
	TicketCap            int
	DrawDelay            time.Duration
	TicketPrice          decimal.Decimal
	Currency             string
	PrizeConfigurationID int64
}

// InstancesForDay builds the lotteries this template schedules on day for country.
func (t LotteryTemplate) InstancesForDay(country string, day time.Time) []*Lottery {
	midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	slots := append([]time.Duration(nil), t.Slots...)
	sort.Slice(slots, func(i, j int) bool { return slots[i] < slots[j] })

	switch t.Type {
	case LotteryTypeFixedDaily:
		if len(slots) == 0 {
			return nil
		}
		return []*Lottery{t.newLottery(country, midnight, midnight.Add(slots[0]))}
	case LotteryTypeDynamicDaily:
		lotteries := make([]*Lottery, 0, len(slots))
		start := midnight
		for _, slot := range slots {
			end := midnight.Add(slot)
			lotteries = append(lotteries, t.newLottery(country, start, end))
			start = end
		}
		return lotteries
	case LotteryTypeAccumulatingJackpot:
		var closeAt time.Duration
		if len(slots) > 0 {
			closeAt = slots[0]
		}
		days := t.WindowDays
		if days <= 0 {
			days = 1
		}
		end := midnight.AddDate(0, 0, days).Add(closeAt)
		return []*Lottery{t.newLottery(country, midnight, end)}
	case LotteryTypeCappedSupertour:
		l := t.newLottery(country, midnight, time.Time{})
		l.SaleEndDate = nil
		l.DrawDate = nil
		return []*Lottery{l}
	}
	return nil
}

func (t LotteryTemplate) newLottery(country string, start, end time.Time) *Lottery {
	draw := end.Add(t.DrawDelay)
	return &Lottery{
		Type:                 t.Type,
		Country:              country,
		SaleStartDate:        start,
		SaleEndDate:          &end,
		DrawDate:             &draw,
		IsActive:             true,
		PrizeConfigurationID: t.PrizeConfigurationID,
		TicketCap:            t.TicketCap,
		TicketPrice:          t.TicketPrice,
		Currency:             t.Currency,
	}
}

type LotteryRepository interface {
	// CreateLottery inserts l unless an instance with the same country, type and
	// sale start exists; created is false in that case.
	CreateLottery(ctx context.Context, l *Lottery) (created bool, err error)
	GetLotteryByID(ctx context.Context, id int64) (*Lottery, error)
	HasUnfinishedLottery(ctx context.Context, country string, t LotteryType) (bool, error)
	ListOpenLotteries(ctx context.Context, now time.Time) ([]*Lottery, error)
	ListWinnersCountPending(ctx context.Context, closedBefore time.Time, limit int) ([]*Lottery, error)
	SetWinnersCount(ctx context.Context, id int64, count int) (bool, error)
	ListScheduleExportPending(ctx context.Context, limit int) ([]*Lottery, error)
	MarkScheduleExported(ctx context.Context, id int64, at time.Time) (bool, error)
	ListWinnersConfigExportPending(ctx context.Context, limit int) ([]*Lottery, error)
	MarkWinnersConfigExported(ctx context.Context, id int64, at time.Time) (bool, error)
	MarkTicketsGenerated(ctx context.Context, id int64) (bool, error)
	// CloseSale ends an open-ended sale and resets the schedule export marker.
	CloseSale(ctx context.Context, id int64, at, drawDate time.Time) (bool, error)
	MarkDrawn(ctx context.Context, id int64) (bool, error)
}

// Period is an inclusive range of calendar days.
type Period struct {
	From time.Time
	To   time.Time
}

func (p Period) Days() []time.Time {
	var days []time.Time
	from := time.Date(p.From.Year(), p.From.Month(), p.From.Day(), 0, 0, 0, 0, p.From.Location())
	to := time.Date(p.To.Year(), p.To.Month(), p.To.Day(), 0, 0, 0, 0, p.From.Location())
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}
