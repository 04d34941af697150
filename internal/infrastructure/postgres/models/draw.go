package models

import (
	"time"
)

type DrawLotteryModel struct {
	LotteryID         int64  `gorm:"primaryKey;autoIncrement:false"`
	Type              string `gorm:"type:varchar(32);not null"`
	Country           string `gorm:"type:varchar(8)"`
	SaleStartDate     time.Time
	SaleEndDate       *time.Time
	DrawDate          *time.Time
	WinnersCount      *int
	ExpectedTickets   *int64
	IsDrawn           bool
	DrawnAt           *time.Time
	ResultsExportedAt *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (DrawLotteryModel) TableName() string { return "draw_lotteries" }

type DrawTicketModel struct {
	LotteryType  string `gorm:"primaryKey;type:varchar(32)"`
	LotteryID    int64  `gorm:"primaryKey;autoIncrement:false"`
	TicketNumber string `gorm:"primaryKey;type:varchar(64)"`
	PurchaseID   int64
	ImportedAt   time.Time
}

func (DrawTicketModel) TableName() string { return "draw_tickets" }

type DrawWinnerModel struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	LotteryID    int64  `gorm:"not null"`
	Position     int    `gorm:"not null"`
	TicketNumber string `gorm:"type:varchar(64);not null"`
	CreatedAt    time.Time
}

func (DrawWinnerModel) TableName() string { return "draw_winners" }
