package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type LotteryModel struct {
	ID                      int64     `gorm:"primaryKey;autoIncrement"`
	Type                    string    `gorm:"type:varchar(32);not null;uniqueIndex:uq_lotteries_country_type_start"`
	Country                 string    `gorm:"type:varchar(8);not null;uniqueIndex:uq_lotteries_country_type_start"`
	SaleStartDate           time.Time `gorm:"not null;uniqueIndex:uq_lotteries_country_type_start"`
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
	TicketPrice             decimal.Decimal `gorm:"type:numeric(18,2)"`
	Currency                string          `gorm:"type:varchar(8)"`
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

func (LotteryModel) TableName() string { return "lotteries" }

type PrizeConfigurationModel struct {
	ID          int64           `gorm:"primaryKey;autoIncrement:false"`
	LotteryType string          `gorm:"type:varchar(32);not null"`
	FundPercent decimal.Decimal `gorm:"type:numeric(5,2)"`
	Currency    string          `gorm:"type:varchar(8)"`
	Rules       datatypes.JSON  `gorm:"type:jsonb"`
	UpdatedAt   time.Time
}

func (PrizeConfigurationModel) TableName() string { return "prize_configurations" }
