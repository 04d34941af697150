package logger

import (
	"context"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DeadLetterEvent is one message that reached a dead-letter topic.
type DeadLetterEvent struct {
	ID            uint `gorm:"primaryKey"`
	Topic         string
	OriginalTopic string
	LotteryID     string
	MessageType   string
	ErrorType     string
	ErrorMessage  string
	RetryCount    int
	Payload       datatypes.JSON
	FailedAt      time.Time
	LoggedAt      time.Time
}

func (DeadLetterEvent) TableName() string { return "dead_letter_events" }

type DeadLetterLogger interface {
	LogDeadLetter(ctx context.Context, event DeadLetterEvent) error
}

type PGDeadLetterLogger struct {
	db *gorm.DB
}

func NewPGDeadLetterLogger(db *gorm.DB) *PGDeadLetterLogger {
	return &PGDeadLetterLogger{db: db}
}

func (l *PGDeadLetterLogger) LogDeadLetter(ctx context.Context, event DeadLetterEvent) error {
	if event.LoggedAt.IsZero() {
		event.LoggedAt = time.Now()
	}
	return l.db.WithContext(ctx).Create(&event).Error
}
