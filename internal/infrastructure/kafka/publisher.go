package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/LavaJover/shvark-lottery-service/internal/domain"
	"github.com/pkg/errors"
	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher writes envelopes to any topic; the topic is set per message.
type Publisher struct {
	writer messageWriter
}

func NewPublisher(brokers []string) *Publisher {
	return &Publisher{
		writer: &kafkago.Writer{
			Addr:                   kafkago.TCP(brokers...),
			Balancer:               &kafkago.Hash{},
			RequiredAcks:           kafkago.RequireAll,
			AllowAutoTopicCreation: true,
			BatchTimeout:           50 * time.Millisecond,
		},
	}
}

func (p *Publisher) Publish(ctx context.Context, topic string, msgs ...domain.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	km := make([]kafkago.Message, 0, len(msgs))
	now := time.Now()
	for _, m := range msgs {
		env := m.Envelope.Clone()
		otel.GetTextMapPropagator().Inject(ctx, propagation.MapCarrier(env.Headers))

		value, err := json.Marshal(env)
		if err != nil {
			return errors.Wrapf(err, "marshal envelope for %s", topic)
		}
		km = append(km, kafkago.Message{
			Topic:   topic,
			Key:     m.Key,
			Value:   value,
			Headers: toKafkaHeaders(env.Headers),
			Time:    now,
		})
	}

	if err := p.writer.WriteMessages(ctx, km...); err != nil {
		return domain.NewTransientError("publish", errors.Wrapf(err, "write %d messages to %s", len(km), topic))
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

func toKafkaHeaders(headers map[string]string) []kafkago.Header {
	out := make([]kafkago.Header, 0, len(headers))
	for k, v := range headers {
		out = append(out, kafkago.Header{Key: k, Value: []byte(v)})
	}
	return out
}

// decodeEnvelope reads a message value; headers on the Kafka record fill in
// anything the body envelope lacks.
func decodeEnvelope(msg kafkago.Message) (*domain.Envelope, error) {
	var env domain.Envelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		return nil, errors.Wrap(err, "decode envelope")
	}
	if len(env.Body) == 0 {
		return nil, errors.New("envelope has no body")
	}
	for _, h := range msg.Headers {
		if env.Header(h.Key) == "" {
			env.SetHeader(h.Key, string(h.Value))
		}
	}
	return &env, nil
}
