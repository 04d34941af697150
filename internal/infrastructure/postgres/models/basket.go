package models

import (
	"time"
)

type BasketModel struct {
	ID            string `gorm:"primaryKey;type:uuid"`
	UserID        string `gorm:"type:varchar(64);not null"`
	StartDate     time.Time
	EndDate       time.Time          `gorm:"index"`
	CancelReason  *string            `gorm:"type:varchar(32)"`
	PaymentStatus string             `gorm:"type:varchar(16);not null;default:NONE"`
	GatewayTxID   string             `gorm:"type:varchar(128)"`
	OrderID       string             `gorm:"type:varchar(128)"`
	Reservations  []ReservationModel `gorm:"foreignKey:BasketID;references:ID"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (BasketModel) TableName() string { return "baskets" }

type ReservationModel struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	BasketID     string `gorm:"type:uuid;not null;index"`
	LotteryID    int64  `gorm:"not null;uniqueIndex:uq_reservation_ticket"`
	TicketID     int64  `gorm:"not null;uniqueIndex:uq_reservation_ticket"`
	TicketNumber string `gorm:"type:varchar(64)"`
	CreatedAt    time.Time
}

func (ReservationModel) TableName() string { return "basket_reservations" }
