package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// LotteryMetrics holds every counter of the ticket lifecycle.
type LotteryMetrics struct {
	// Inventory
	LotteriesCreatedTotal *prometheus.CounterVec
	TicketsGeneratedTotal *prometheus.CounterVec

	// Baskets
	ReservationsTotal  *prometheus.CounterVec
	BasketsClosedTotal *prometheus.CounterVec
	PaymentsTotal      *prometheus.CounterVec
	PaymentDuration    *prometheus.HistogramVec
	TicketsSoldTotal   *prometheus.CounterVec
	RevenueTotal       *prometheus.CounterVec

	// Settlement
	WinnersCountedTotal *prometheus.CounterVec
	DrawsTotal          *prometheus.CounterVec
	WinnersImported     *prometheus.CounterVec

	// Messaging
	MessagesExportedTotal     *prometheus.CounterVec
	MessagesConsumedTotal     *prometheus.CounterVec
	MessagesDeadLetteredTotal *prometheus.CounterVec

	// Errors
	JobErrorsTotal *prometheus.CounterVec
}

func NewLotteryMetrics(reg prometheus.Registerer) *LotteryMetrics {
	f := promauto.With(reg)
	return &LotteryMetrics{
		LotteriesCreatedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lottery_lotteries_created_total",
				Help: "Lottery instances created by the generator",
			},
			[]string{"type", "country"},
		),
		TicketsGeneratedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lottery_tickets_generated_total",
				Help: "Tickets inserted into lottery partitions",
			},
			[]string{"type"},
		),
		ReservationsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lottery_reservations_total",
				Help: "Ticket reservation attempts by outcome",
			},
			[]string{"result"},
		),
		BasketsClosedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lottery_baskets_closed_total",
				Help: "Baskets moved to a terminal state",
			},
			[]string{"reason"},
		),
		PaymentsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lottery_payments_total",
				Help: "Basket payment attempts by result",
			},
			[]string{"result"},
		),
		PaymentDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lottery_payment_duration_seconds",
				Help:    "Payment gateway call duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		),
		TicketsSoldTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lottery_tickets_sold_total",
				Help: "Tickets paid",
			},
			[]string{"currency"},
		),
		RevenueTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lottery_revenue_total",
				Help: "Paid amount",
			},
			[]string{"currency"},
		),
		WinnersCountedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lottery_winners_counted_total",
				Help: "Lotteries whose winners count was fixed",
			},
			[]string{"type"},
		),
		DrawsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lottery_draws_total",
				Help: "Draw attempts by outcome",
			},
			[]string{"result"},
		),
		WinnersImported: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lottery_winners_imported_total",
				Help: "Winner records created from draw results",
			},
			[]string{"currency"},
		),
		MessagesExportedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lottery_messages_exported_total",
				Help: "Messages published by exporters",
			},
			[]string{"topic"},
		),
		MessagesConsumedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lottery_messages_consumed_total",
				Help: "Messages handled by consumers",
			},
			[]string{"topic", "result"},
		),
		MessagesDeadLetteredTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lottery_messages_dead_lettered_total",
				Help: "Messages routed to a dead-letter topic",
			},
			[]string{"topic", "error_type"},
		),
		JobErrorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lottery_job_errors_total",
				Help: "Failed scheduled job runs",
			},
			[]string{"job"},
		),
	}
}

func (m *LotteryMetrics) RecordLotteryCreated(lotteryType, country string) {
	if m == nil {
		return
	}
	m.LotteriesCreatedTotal.WithLabelValues(lotteryType, country).Inc()
}

func (m *LotteryMetrics) RecordTicketsGenerated(lotteryType string, n int) {
	if m == nil {
		return
	}
	m.TicketsGeneratedTotal.WithLabelValues(lotteryType).Add(float64(n))
}

// RecordReservations counts added and rejected tickets of one add call.
func (m *LotteryMetrics) RecordReservations(added, rejected int) {
	if m == nil {
		return
	}
	m.ReservationsTotal.WithLabelValues("reserved").Add(float64(added))
	m.ReservationsTotal.WithLabelValues("rejected").Add(float64(rejected))
}

func (m *LotteryMetrics) RecordBasketClosed(reason string) {
	if m == nil {
		return
	}
	m.BasketsClosedTotal.WithLabelValues(reason).Inc()
}

func (m *LotteryMetrics) RecordPayment(result string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.PaymentsTotal.WithLabelValues(result).Inc()
	m.PaymentDuration.WithLabelValues(result).Observe(durationSeconds)
}

func (m *LotteryMetrics) RecordSale(currency string, tickets int, amount float64) {
	if m == nil {
		return
	}
	m.TicketsSoldTotal.WithLabelValues(currency).Add(float64(tickets))
	m.RevenueTotal.WithLabelValues(currency).Add(amount)
}

func (m *LotteryMetrics) RecordWinnersCounted(lotteryType string) {
	if m == nil {
		return
	}
	m.WinnersCountedTotal.WithLabelValues(lotteryType).Inc()
}

func (m *LotteryMetrics) RecordDraw(result string) {
	if m == nil {
		return
	}
	m.DrawsTotal.WithLabelValues(result).Inc()
}

func (m *LotteryMetrics) RecordWinnersImported(currency string, n int64) {
	if m == nil {
		return
	}
	m.WinnersImported.WithLabelValues(currency).Add(float64(n))
}

func (m *LotteryMetrics) RecordExported(topic string, n int) {
	if m == nil {
		return
	}
	m.MessagesExportedTotal.WithLabelValues(topic).Add(float64(n))
}

func (m *LotteryMetrics) RecordConsumed(topic, result string) {
	if m == nil {
		return
	}
	m.MessagesConsumedTotal.WithLabelValues(topic, result).Inc()
}

func (m *LotteryMetrics) RecordDeadLettered(topic, errorType string) {
	if m == nil {
		return
	}
	m.MessagesDeadLetteredTotal.WithLabelValues(topic, errorType).Inc()
}

func (m *LotteryMetrics) RecordJobError(job string) {
	if m == nil {
		return
	}
	m.JobErrorsTotal.WithLabelValues(job).Inc()
}
