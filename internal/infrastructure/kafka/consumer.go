package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/LavaJover/shvark-lottery-service/internal/domain"
	"github.com/LavaJover/shvark-lottery-service/internal/infrastructure/metrics"
	"github.com/pkg/errors"
	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

// HandlerFunc processes one envelope read from topic.
type HandlerFunc func(ctx context.Context, topic string, env *domain.Envelope) error

type ConsumerConfig struct {
	Brokers        []string
	GroupID        string
	Topic          string
	BatchSize      int
	PollTimeout    time.Duration
	ReconnectDelay time.Duration
	MaxRetries     int
	// DeadLetter off means non-retryable failures are only logged and acked.
	DeadLetter bool
	// StopWhenIdle makes Run return after a poll that found nothing.
	StopWhenIdle bool
}

var errIdle = errors.New("topic drained")

type messageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Consumer reads one topic with manual commits. A retryable handler failure
// leaves the offset uncommitted and reopens the reader after ReconnectDelay
// so the group redelivers the message.
type Consumer struct {
	cfg       ConsumerConfig
	handler   HandlerFunc
	publisher domain.PublisherPort
	logger    *zap.Logger
	metrics   *metrics.LotteryMetrics
	newReader func() messageReader
	attempts  map[string]int
	now       func() time.Time
}

func NewConsumer(cfg ConsumerConfig, handler HandlerFunc, publisher domain.PublisherPort, logger *zap.Logger, m *metrics.LotteryMetrics) *Consumer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1000
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 15 * time.Second
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 5 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	c := &Consumer{
		cfg:       cfg,
		handler:   handler,
		publisher: publisher,
		logger:    logger.With(zap.String("topic", cfg.Topic), zap.String("group_id", cfg.GroupID)),
		metrics:   m,
		attempts:  make(map[string]int),
		now:       time.Now,
	}
	c.newReader = func() messageReader {
		return kafkago.NewReader(kafkago.ReaderConfig{
			Brokers:        cfg.Brokers,
			GroupID:        cfg.GroupID,
			Topic:          cfg.Topic,
			MinBytes:       1,
			MaxBytes:       10e6,
			CommitInterval: 0,
			StartOffset:    kafkago.FirstOffset,
		})
	}
	return c
}

func (c *Consumer) Topic() string {
	return c.cfg.Topic
}

// Run consumes until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("consumer started")
	for {
		err := c.consume(ctx)
		if ctx.Err() != nil || errors.Is(err, errIdle) {
			c.logger.Info("consumer stopped")
			return nil
		}
		c.logger.Warn("consumer paused, resubscribing",
			zap.Error(err), zap.Duration("delay", c.cfg.ReconnectDelay))
		select {
		case <-ctx.Done():
			c.logger.Info("consumer stopped")
			return nil
		case <-time.After(c.cfg.ReconnectDelay):
		}
	}
}

func (c *Consumer) consume(ctx context.Context) error {
	reader := c.newReader()
	defer reader.Close()

	for {
		batch, err := c.poll(ctx, reader)
		if err != nil {
			return err
		}
		if len(batch) == 0 && c.cfg.StopWhenIdle {
			return errIdle
		}
		for _, msg := range batch {
			if err := c.process(ctx, reader, msg); err != nil {
				return err
			}
		}
	}
}

// poll collects up to BatchSize messages, waiting at most PollTimeout.
func (c *Consumer) poll(ctx context.Context, reader messageReader) ([]kafkago.Message, error) {
	pollCtx, cancel := context.WithTimeout(ctx, c.cfg.PollTimeout)
	defer cancel()

	var batch []kafkago.Message
	for len(batch) < c.cfg.BatchSize {
		msg, err := reader.FetchMessage(pollCtx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if pollCtx.Err() != nil {
				return batch, nil
			}
			return nil, errors.Wrap(err, "fetch message")
		}
		batch = append(batch, msg)
	}
	return batch, nil
}

// process handles one message and commits it unless the failure is worth
// a redelivery. A non-nil result means the reader must be reopened.
func (c *Consumer) process(ctx context.Context, reader messageReader, msg kafkago.Message) error {
	key := offsetKey(msg)
	log := c.logger.With(zap.Int("partition", msg.Partition), zap.Int64("offset", msg.Offset))

	env, err := decodeEnvelope(msg)
	if err != nil {
		err = domain.NewPoisonError(err)
		env = rawEnvelope(msg)
	} else {
		err = c.handle(ctx, msg, env)
	}
	log = log.With(zap.String("lottery_id", env.Header(domain.HeaderLotteryID)),
		zap.String("message_type", env.Header(domain.HeaderMessageType)))

	switch {
	case err == nil:
		c.metrics.RecordConsumed(c.cfg.Topic, "ok")
	case domain.IsConflict(err):
		log.Warn("message conflicts with current state, skipping", zap.Error(err))
		c.metrics.RecordConsumed(c.cfg.Topic, "conflict")
	case domain.IsRetryable(err) && c.attempts[key]+1 < c.cfg.MaxRetries:
		c.attempts[key]++
		log.Warn("retryable failure, message left for redelivery",
			zap.Error(err), zap.Int("attempt", c.attempts[key]))
		c.metrics.RecordConsumed(c.cfg.Topic, "retry")
		return err
	default:
		retries := c.attempts[key]
		if domain.IsRetryable(err) {
			retries++
		}
		if !c.cfg.DeadLetter {
			log.Error("message dropped after retries", zap.Error(err),
				zap.String("error_type", domain.ErrorType(err)), zap.Int("retry_count", retries))
			c.metrics.RecordConsumed(c.cfg.Topic, "dropped")
			break
		}
		if dlqErr := c.deadLetter(ctx, msg, env, err, retries); dlqErr != nil {
			log.Error("dead-letter publish failed", zap.Error(dlqErr), zap.NamedError("cause", err))
			return dlqErr
		}
		log.Error("message dead-lettered", zap.Error(err), zap.String("error_type", domain.ErrorType(err)))
		c.metrics.RecordConsumed(c.cfg.Topic, "dead_letter")
	}

	delete(c.attempts, key)
	if err := reader.CommitMessages(ctx, msg); err != nil {
		return domain.NewTransientError("commit offset", err)
	}
	return nil
}

func (c *Consumer) handle(ctx context.Context, msg kafkago.Message, env *domain.Envelope) error {
	msgCtx := otel.GetTextMapPropagator().Extract(ctx, propagation.MapCarrier(env.Headers))
	msgCtx, span := otel.Tracer("lottery/kafka").Start(msgCtx, "consume "+msg.Topic)
	defer span.End()
	span.SetAttributes(
		attribute.String("messaging.destination", msg.Topic),
		attribute.Int("messaging.kafka.partition", msg.Partition),
		attribute.Int64("messaging.kafka.offset", msg.Offset),
		attribute.String("lottery.id", env.Header(domain.HeaderLotteryID)),
	)

	err := c.handler(msgCtx, msg.Topic, env)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, domain.ErrorType(err))
	}
	return err
}

func (c *Consumer) deadLetter(ctx context.Context, msg kafkago.Message, env *domain.Envelope, cause error, retries int) error {
	out := EnrichDeadLetter(env, msg.Topic, cause, retries, c.now())
	dlq := domain.DeadLetterTopic(msg.Topic)
	if err := c.publisher.Publish(ctx, dlq, domain.Message{Key: msg.Key, Envelope: out}); err != nil {
		return err
	}
	c.metrics.RecordDeadLettered(dlq, domain.ErrorType(cause))
	return nil
}

// EnrichDeadLetter copies env and adds the failure context headers.
func EnrichDeadLetter(env *domain.Envelope, topic string, cause error, retries int, failedAt time.Time) *domain.Envelope {
	out := env.Clone()
	out.SetHeader(domain.HeaderOriginalTopic, topic)
	out.SetHeader(domain.HeaderErrorMessage, cause.Error())
	out.SetHeader(domain.HeaderErrorType, domain.ErrorType(cause))
	out.SetHeader(domain.HeaderFailedAt, failedAt.UTC().Format(time.RFC3339))
	out.SetHeader(domain.HeaderRetryCount, strconv.Itoa(retries))
	return out
}

// rawEnvelope wraps a value that is not an envelope. The bytes travel
// base64-encoded so the dead letter stays valid JSON.
func rawEnvelope(msg kafkago.Message) *domain.Envelope {
	body, _ := json.Marshal(msg.Value)
	env := &domain.Envelope{Body: body, Headers: map[string]string{}}
	for _, h := range msg.Headers {
		env.SetHeader(h.Key, string(h.Value))
	}
	env.SetHeader(domain.HeaderPayloadEncoding, domain.PayloadEncodingBase64)
	return env
}

func offsetKey(msg kafkago.Message) string {
	return fmt.Sprintf("%s/%d/%d", msg.Topic, msg.Partition, msg.Offset)
}
