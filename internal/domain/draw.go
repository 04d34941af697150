package domain

import (
	"context"
	"time"
)

// DrawLottery is the draw service's copy of a lottery, built from imported
// schedules and draw configurations.
type DrawLottery struct {
	LotteryID         int64
	Type              LotteryType
	Country           string
	SaleStartDate     time.Time
	SaleEndDate       *time.Time
	DrawDate          *time.Time
	WinnersCount      *int
	ExpectedTickets   *int64
	IsDrawn           bool
	DrawnAt           *time.Time
	ResultsExportedAt *time.Time
}

type DrawTicket struct {
	LotteryID    int64
	LotteryType  LotteryType
	TicketNumber string
	PurchaseID   int64
	ImportedAt   time.Time
}

type DrawWinner struct {
	LotteryID    int64
	Position     int
	TicketNumber string
	CreatedAt    time.Time
}

type DrawRepository interface {
	// UpsertSchedule stores dates of a lottery that is not drawn yet.
	UpsertSchedule(ctx context.Context, l *DrawLottery) error
	// SetDrawConfig records winners count and expected ticket total once,
	// creating the lottery row when its schedule has not arrived yet.
	SetDrawConfig(ctx context.Context, l *DrawLottery) (bool, error)
	GetDrawLottery(ctx context.Context, lotteryID int64) (*DrawLottery, error)
	ListDueDraws(ctx context.Context, now time.Time, limit int) ([]*DrawLottery, error)
	InsertTickets(ctx context.Context, tickets []*DrawTicket) (int64, error)
	CountTickets(ctx context.Context, lotteryID int64, t LotteryType) (int64, error)
	ListTicketNumbers(ctx context.Context, lotteryID int64, t LotteryType) ([]string, error)
	CountWinners(ctx context.Context, lotteryID int64) (int64, error)
	ListWinners(ctx context.Context, lotteryID int64) ([]*DrawWinner, error)
	InsertWinners(ctx context.Context, winners []*DrawWinner) error
	MarkDrawn(ctx context.Context, lotteryID int64, at time.Time) (bool, error)
	ListResultsExportPending(ctx context.Context, limit int) ([]*DrawLottery, error)
	MarkResultsExported(ctx context.Context, lotteryID int64, at time.Time) (bool, error)
}
