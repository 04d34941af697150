package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PurchaseModel struct {
	ID           int64           `gorm:"primaryKey;autoIncrement"`
	LotteryID    int64           `gorm:"primaryKey;autoIncrement:false"`
	LotteryType  string          `gorm:"type:varchar(32)"`
	TicketID     int64           `gorm:"not null"`
	TicketNumber string          `gorm:"type:varchar(64);not null"`
	UserID       string          `gorm:"type:varchar(64);not null"`
	BasketID     string          `gorm:"type:uuid"`
	Price        decimal.Decimal `gorm:"type:numeric(18,2)"`
	Currency     string          `gorm:"type:varchar(8)"`
	PurchasedAt  time.Time
	ExportedAt   *time.Time
}

func (PurchaseModel) TableName() string { return "purchases" }

type WinnerModel struct {
	ID         int64           `gorm:"primaryKey;autoIncrement"`
	LotteryID  int64           `gorm:"primaryKey;autoIncrement:false"`
	PurchaseID int64           `gorm:"not null"`
	Position   int             `gorm:"not null"`
	Amount     decimal.Decimal `gorm:"type:numeric(18,2)"`
	Currency   string          `gorm:"type:varchar(8)"`
	CreatedAt  time.Time
}

func (WinnerModel) TableName() string { return "winners" }
