package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type PurchaseRecord struct {
	ID           int64
	LotteryID    int64
	LotteryType  LotteryType
	TicketID     int64
	TicketNumber string
	UserID       string
	BasketID     string
	Price        decimal.Decimal
	Currency     string
	PurchasedAt  time.Time
	ExportedAt   *time.Time
}

type WinnerRecord struct {
	ID         int64
	PurchaseID int64
	LotteryID  int64
	Position   int
	Amount     decimal.Decimal
	Currency   string
	CreatedAt  time.Time
}

type PurchaseRepository interface {
	CreatePurchases(ctx context.Context, purchases []*PurchaseRecord) error
	// CountSold returns sold tickets and distinct buyers of a lottery.
	CountSold(ctx context.Context, lotteryID int64) (sold, participants int64, err error)
	ListExportPending(ctx context.Context, limit int) ([]*PurchaseRecord, error)
	MarkExported(ctx context.Context, lotteryID int64, ids []int64, at time.Time) error
	FindByTicketNumbers(ctx context.Context, lotteryID int64, numbers []string) (map[string]*PurchaseRecord, error)
}

type WinnerRepository interface {
	// CreateWinners skips rows that already exist for (purchase, lottery) and
	// returns how many were inserted.
	CreateWinners(ctx context.Context, winners []*WinnerRecord) (int64, error)
	CountWinners(ctx context.Context, lotteryID int64) (int64, error)
	ListWinners(ctx context.Context, lotteryID int64) ([]*WinnerRecord, error)
}
