package syncer

import (
	"context"
	"time"

	"github.com/LavaJover/shvark-lottery-service/internal/domain"
	"github.com/LavaJover/shvark-lottery-service/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// DeadLetterMonitor records every message that reached a dead-letter topic.
// Counting happens where the message is dead-lettered.
type DeadLetterMonitor struct {
	Store  logger.DeadLetterLogger
	Logger *zap.Logger
}

func NewDeadLetterMonitor(store logger.DeadLetterLogger, log *zap.Logger) *DeadLetterMonitor {
	return &DeadLetterMonitor{Store: store, Logger: log}
}

func (m *DeadLetterMonitor) Handle(ctx context.Context, topic string, env *domain.Envelope) error {
	failedAt, err := time.Parse(time.RFC3339, env.Header(domain.HeaderFailedAt))
	if err != nil {
		failedAt = time.Now().UTC()
	}
	event := logger.DeadLetterEvent{
		Topic:         topic,
		OriginalTopic: env.Header(domain.HeaderOriginalTopic),
		LotteryID:     env.Header(domain.HeaderLotteryID),
		MessageType:   string(env.Type()),
		ErrorType:     env.Header(domain.HeaderErrorType),
		ErrorMessage:  env.Header(domain.HeaderErrorMessage),
		RetryCount:    env.RetryCount(),
		Payload:       []byte(env.Body),
		FailedAt:      failedAt,
	}

	m.Logger.Error("dead letter received",
		zap.String("topic", topic),
		zap.String("original_topic", event.OriginalTopic),
		zap.String("lottery_id", event.LotteryID),
		zap.String("message_type", event.MessageType),
		zap.String("error_type", event.ErrorType),
		zap.String("error_message", event.ErrorMessage),
		zap.Int("retry_count", event.RetryCount),
		zap.Time("failed_at", failedAt))

	if m.Store == nil {
		return nil
	}
	if err := m.Store.LogDeadLetter(ctx, event); err != nil {
		return domain.NewTransientError("store dead letter", err)
	}
	return nil
}
