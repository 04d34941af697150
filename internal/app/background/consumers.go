package background

import (
	"context"

	"github.com/LavaJover/shvark-lottery-service/internal/config"
	"github.com/LavaJover/shvark-lottery-service/internal/domain"
	"github.com/LavaJover/shvark-lottery-service/internal/infrastructure/kafka"
	"github.com/LavaJover/shvark-lottery-service/internal/infrastructure/metrics"
	"github.com/LavaJover/shvark-lottery-service/internal/usecase/syncer"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ConsumerSet groups the readers one process runs.
type ConsumerSet struct {
	Consumers []*kafka.Consumer
}

// ImportTopics returns the topics the enabled roles import from.
func ImportTopics(cfg *config.LotteryConfig) []string {
	topics := cfg.KafkaService.Topics
	var out []string
	if cfg.HasRole(config.RoleDraw) {
		out = append(out, topics.Schedules, topics.DrawConfigs)
		out = append(out, TicketTopics(topics.Tickets, domain.LotteryTypes)...)
	}
	if cfg.HasRole(config.RoleSales) {
		out = append(out, topics.Results)
	}
	return out
}

func TicketTopics(prefix string, types []domain.LotteryType) []string {
	out := make([]string, 0, len(types))
	for _, t := range types {
		out = append(out, domain.TicketTopic(prefix, t))
	}
	return out
}

// NewConsumers builds one importing consumer per topic plus one dead-letter
// monitor per paired DLQ topic.
func NewConsumers(
	cfg *config.LotteryConfig,
	topics []string,
	importer syncer.ImportUsecase,
	monitor *syncer.DeadLetterMonitor,
	publisher domain.PublisherPort,
	m *metrics.LotteryMetrics,
	logger *zap.Logger,
	stopWhenIdle bool,
) *ConsumerSet {
	set := &ConsumerSet{}
	for _, topic := range topics {
		set.Consumers = append(set.Consumers, kafka.NewConsumer(
			consumerConfig(cfg, topic, true, stopWhenIdle), importer.Handle, publisher, logger, m))
		if monitor != nil {
			dlq := domain.DeadLetterTopic(topic)
			set.Consumers = append(set.Consumers, kafka.NewConsumer(
				consumerConfig(cfg, dlq, false, stopWhenIdle), monitor.Handle, publisher, logger, m))
		}
	}
	return set
}

func consumerConfig(cfg *config.LotteryConfig, topic string, deadLetter, stopWhenIdle bool) kafka.ConsumerConfig {
	k := cfg.KafkaService
	return kafka.ConsumerConfig{
		Brokers:        k.Brokers,
		GroupID:        k.GroupID + "." + topic,
		Topic:          topic,
		BatchSize:      k.BatchSize,
		PollTimeout:    k.PollTimeout,
		ReconnectDelay: k.ReconnectDelay,
		MaxRetries:     k.MaxRetries,
		DeadLetter:     deadLetter,
		StopWhenIdle:   stopWhenIdle,
	}
}

// Run blocks until every consumer returned.
func (s *ConsumerSet) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, c := range s.Consumers {
		c := c
		g.Go(func() error { return c.Run(ctx) })
	}
	return g.Wait()
}
