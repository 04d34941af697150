package inventory

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/LavaJover/shvark-lottery-service/internal/domain"
	"github.com/LavaJover/shvark-lottery-service/internal/infrastructure/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type memLotteries struct {
	domain.LotteryRepository
	nextID    int64
	lotteries map[int64]*domain.Lottery
}

func (m *memLotteries) CreateLottery(_ context.Context, l *domain.Lottery) (bool, error) {
	for _, existing := range m.lotteries {
		if existing.Country == l.Country && existing.Type == l.Type && existing.SaleStartDate.Equal(l.SaleStartDate) {
			return false, nil
		}
	}
	m.nextID++
	l.ID = m.nextID
	copied := *l
	m.lotteries[l.ID] = &copied
	return true, nil
}

func (m *memLotteries) HasUnfinishedLottery(_ context.Context, country string, t domain.LotteryType) (bool, error) {
	for _, l := range m.lotteries {
		if l.Country == country && l.Type == t && !l.IsDrawn {
			return true, nil
		}
	}
	return false, nil
}

func (m *memLotteries) ListOpenLotteries(_ context.Context, now time.Time) ([]*domain.Lottery, error) {
	var out []*domain.Lottery
	for _, l := range m.lotteries {
		if l.IsActive && !l.IsDrawn && (l.SaleEndDate == nil || l.SaleEndDate.After(now)) {
			copied := *l
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memLotteries) MarkTicketsGenerated(_ context.Context, id int64) (bool, error) {
	l := m.lotteries[id]
	if l.TicketsGenerated {
		return false, nil
	}
	l.TicketsGenerated = true
	return true, nil
}

func (m *memLotteries) CloseSale(_ context.Context, id int64, at, drawDate time.Time) (bool, error) {
	l := m.lotteries[id]
	if l.SaleEndDate != nil {
		return false, nil
	}
	l.SaleEndDate, l.DrawDate, l.ScheduleExportedAt = &at, &drawDate, nil
	return true, nil
}

type memTickets struct {
	domain.TicketRepository
	tickets   map[int64]map[int64]*domain.Ticket
	failAfter int
	inserts   int
}

func (m *memTickets) pool(id int64) map[int64]*domain.Ticket {
	if m.tickets[id] == nil {
		m.tickets[id] = make(map[int64]*domain.Ticket)
	}
	return m.tickets[id]
}

func (m *memTickets) CountTickets(_ context.Context, id int64) (int64, int64, error) {
	var sold int64
	for _, t := range m.pool(id) {
		if t.IsPaid {
			sold++
		}
	}
	return int64(len(m.pool(id))), sold, nil
}

func (m *memTickets) MaxSequence(_ context.Context, id int64) (int64, error) {
	var maxSeq int64
	for seq := range m.pool(id) {
		if seq > maxSeq {
			maxSeq = seq
		}
	}
	return maxSeq, nil
}

func (m *memTickets) InsertTickets(_ context.Context, tickets []*domain.Ticket) error {
	if m.failAfter > 0 && m.inserts >= m.failAfter {
		return domain.NewTransientError("insert tickets", errors.New("connection reset"))
	}
	m.inserts++
	for _, t := range tickets {
		p := m.pool(t.LotteryID)
		if _, ok := p[t.SequenceID]; !ok {
			p[t.SequenceID] = t
		}
	}
	return nil
}

type memPartitions struct {
	lotteries map[int64]int
}

func (m *memPartitions) EnsureLotteryPartitions(_ context.Context, id int64) error {
	m.lotteries[id]++
	return nil
}

func (m *memPartitions) EnsureDrawTicketPartition(context.Context, domain.LotteryType) error {
	return nil
}

type directTx struct{}

func (directTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newInventory(templates ...domain.LotteryTemplate) (*DefaultInventoryUsecase, *memLotteries, *memTickets, *memPartitions) {
	lotteries := &memLotteries{lotteries: map[int64]*domain.Lottery{}}
	tickets := &memTickets{tickets: map[int64]map[int64]*domain.Ticket{}}
	partitions := &memPartitions{lotteries: map[int64]int{}}
	uc := NewDefaultInventoryUsecase(lotteries, tickets, partitions, directTx{}, templates,
		Options{BaseBatch: 1000, LowWaterMark: 100, ChunkSize: 300},
		metrics.NewLotteryMetrics(prometheus.NewRegistry()), zap.NewNop())
	return uc, lotteries, tickets, partitions
}

var (
	day1 = time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	day2 = time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)
)

func TestGenerateForPeriod(t *testing.T) {
	daily := domain.LotteryTemplate{
		Type:        domain.LotteryTypeFixedDaily,
		Slots:       []time.Duration{20 * time.Hour},
		DrawDelay:   10 * time.Minute,
		TicketPrice: decimal.NewFromInt(2),
		Currency:    "EUR",
	}
	jackpot := domain.LotteryTemplate{
		Type:       domain.LotteryTypeAccumulatingJackpot,
		Slots:      []time.Duration{21 * time.Hour},
		WindowDays: 7,
		DrawDelay:  time.Hour,
	}
	uc, lotteries, tickets, partitions := newInventory(daily, jackpot)

	n, err := uc.GenerateForPeriod(context.Background(), domain.Period{From: day1, To: day2}, []string{"de", "fr"})
	if err != nil {
		t.Fatalf("GenerateForPeriod: %v", err)
	}
	// two daily per country plus one jackpot per country
	if n != 6 {
		t.Fatalf("created %d lotteries, want 6", n)
	}

	again, err := uc.GenerateForPeriod(context.Background(), domain.Period{From: day1, To: day2}, []string{"de", "fr"})
	if err != nil {
		t.Fatalf("second GenerateForPeriod: %v", err)
	}
	if again != 0 {
		t.Fatalf("overlapping run created %d lotteries", again)
	}

	for id, l := range lotteries.lotteries {
		if partitions.lotteries[id] == 0 {
			t.Fatalf("lottery %d has no partitions", id)
		}
		if got := len(tickets.pool(id)); got != 1000 {
			t.Fatalf("lottery %d (%s) has %d tickets, want base batch", id, l.Type, got)
		}
	}
}

func TestSetupLotteryTopUp(t *testing.T) {
	uc, lotteries, tickets, _ := newInventory()
	l := &domain.Lottery{Type: domain.LotteryTypeFixedDaily, Country: "de", SaleStartDate: day1, IsActive: true}
	if _, err := lotteries.CreateLottery(context.Background(), l); err != nil {
		t.Fatalf("CreateLottery: %v", err)
	}

	if err := uc.SetupLottery(context.Background(), l); err != nil {
		t.Fatalf("SetupLottery: %v", err)
	}
	if got := len(tickets.pool(l.ID)); got != 1000 {
		t.Fatalf("base batch = %d", got)
	}
	if tk := tickets.pool(l.ID)[7]; tk.TicketNumber != domain.FormatTicketNumber("de", 7, l.ID) {
		t.Fatalf("ticket number = %s", tk.TicketNumber)
	}

	// plenty left: no top-up
	for seq := int64(1); seq <= 800; seq++ {
		tickets.pool(l.ID)[seq].IsPaid = true
	}
	if err := uc.SetupLottery(context.Background(), l); err != nil {
		t.Fatalf("SetupLottery: %v", err)
	}
	if got := len(tickets.pool(l.ID)); got != 1000 {
		t.Fatalf("unexpected top-up to %d", got)
	}

	// at the low-water mark
	for seq := int64(801); seq <= 900; seq++ {
		tickets.pool(l.ID)[seq].IsPaid = true
	}
	if err := uc.SetupLottery(context.Background(), l); err != nil {
		t.Fatalf("SetupLottery: %v", err)
	}
	if got := len(tickets.pool(l.ID)); got != 2000 {
		t.Fatalf("after top-up = %d, want 2000", got)
	}
}

func TestSetupCappedLottery(t *testing.T) {
	uc, lotteries, tickets, _ := newInventory(domain.LotteryTemplate{Type: domain.LotteryTypeCappedSupertour, DrawDelay: time.Hour})
	l := &domain.Lottery{Type: domain.LotteryTypeCappedSupertour, Country: "de", SaleStartDate: day1, IsActive: true, TicketCap: 700}
	if _, err := lotteries.CreateLottery(context.Background(), l); err != nil {
		t.Fatalf("CreateLottery: %v", err)
	}

	t.Run("resumes after a failed chunk", func(t *testing.T) {
		tickets.failAfter = 1
		if err := uc.SetupLottery(context.Background(), l); err == nil {
			t.Fatalf("expected failure from second chunk")
		}
		if lotteries.lotteries[l.ID].TicketsGenerated {
			t.Fatalf("flag set before the pool was complete")
		}
		tickets.failAfter = 0
		if err := uc.SetupLottery(context.Background(), l); err != nil {
			t.Fatalf("SetupLottery: %v", err)
		}
		if got := len(tickets.pool(l.ID)); got != 700 {
			t.Fatalf("pool = %d, want 700", got)
		}
		if !lotteries.lotteries[l.ID].TicketsGenerated {
			t.Fatalf("generation flag not set")
		}
	})

	t.Run("never regenerated", func(t *testing.T) {
		delete(tickets.pool(l.ID), 700)
		if err := uc.SetupLottery(context.Background(), lotteries.lotteries[l.ID]); err != nil {
			t.Fatalf("SetupLottery: %v", err)
		}
		if got := len(tickets.pool(l.ID)); got != 699 {
			t.Fatalf("capped pool regenerated to %d", got)
		}
		tickets.pool(l.ID)[700] = &domain.Ticket{LotteryID: l.ID, SequenceID: 700}
	})

	t.Run("sold out closes sale", func(t *testing.T) {
		for _, tk := range tickets.pool(l.ID) {
			tk.IsPaid = true
		}
		if err := uc.RunTicketGeneration(context.Background()); err != nil {
			t.Fatalf("RunTicketGeneration: %v", err)
		}
		stored := lotteries.lotteries[l.ID]
		if stored.SaleEndDate == nil || stored.DrawDate == nil {
			t.Fatalf("sale not closed")
		}
		if got := stored.DrawDate.Sub(*stored.SaleEndDate); got != time.Hour {
			t.Fatalf("draw delay = %s", got)
		}
	})
}

func TestRunTicketGenerationIsolatesFailures(t *testing.T) {
	uc, lotteries, tickets, _ := newInventory()
	for _, c := range []string{"de", "fr"} {
		if _, err := lotteries.CreateLottery(context.Background(), &domain.Lottery{Type: domain.LotteryTypeFixedDaily, Country: c, SaleStartDate: day1, IsActive: true}); err != nil {
			t.Fatalf("CreateLottery: %v", err)
		}
	}
	// capped lottery without a cap fails validation
	if _, err := lotteries.CreateLottery(context.Background(), &domain.Lottery{Type: domain.LotteryTypeCappedSupertour, Country: "it", SaleStartDate: day1, IsActive: true}); err != nil {
		t.Fatalf("CreateLottery: %v", err)
	}

	err := uc.RunTicketGeneration(context.Background())
	if err == nil {
		t.Fatalf("expected the capped lottery to fail")
	}
	if len(tickets.pool(1)) != 1000 || len(tickets.pool(2)) != 1000 {
		t.Fatalf("healthy lotteries were not filled")
	}
}
