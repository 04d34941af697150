package models

type TicketModel struct {
	LotteryID    int64  `gorm:"primaryKey;autoIncrement:false"`
	SequenceID   int64  `gorm:"primaryKey;autoIncrement:false"`
	TicketNumber string `gorm:"type:varchar(64);not null"`
	IsReserved   bool
	IsPaid       bool
}

func (TicketModel) TableName() string { return "tickets" }
