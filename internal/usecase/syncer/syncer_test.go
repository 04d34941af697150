package syncer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/LavaJover/shvark-lottery-service/internal/domain"
	"github.com/LavaJover/shvark-lottery-service/internal/infrastructure/logger"
	"go.uber.org/zap"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type published struct {
	topic string
	msg   domain.Message
}

type capturePublisher struct {
	sent []published
	err  error
}

func (p *capturePublisher) Publish(_ context.Context, topic string, msgs ...domain.Message) error {
	if p.err != nil {
		return p.err
	}
	for _, m := range msgs {
		p.sent = append(p.sent, published{topic: topic, msg: m})
	}
	return nil
}

type memLotteries struct {
	domain.LotteryRepository
	lotteries []*domain.Lottery
}

func (m *memLotteries) ListScheduleExportPending(context.Context, int) ([]*domain.Lottery, error) {
	var out []*domain.Lottery
	for _, l := range m.lotteries {
		if l.ScheduleExportedAt == nil {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memLotteries) MarkScheduleExported(_ context.Context, id int64, at time.Time) (bool, error) {
	for _, l := range m.lotteries {
		if l.ID == id && l.ScheduleExportedAt == nil {
			l.ScheduleExportedAt = &at
			return true, nil
		}
	}
	return false, nil
}

func (m *memLotteries) ListWinnersConfigExportPending(context.Context, int) ([]*domain.Lottery, error) {
	var out []*domain.Lottery
	for _, l := range m.lotteries {
		if l.CalculatedWinnersCount != nil && l.WinnersConfigExportedAt == nil {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memLotteries) MarkWinnersConfigExported(_ context.Context, id int64, at time.Time) (bool, error) {
	for _, l := range m.lotteries {
		if l.ID == id {
			l.WinnersConfigExportedAt = &at
			return true, nil
		}
	}
	return false, nil
}

type memPurchases struct {
	domain.PurchaseRepository
	rows []*domain.PurchaseRecord
}

func (m *memPurchases) CountSold(_ context.Context, id int64) (int64, int64, error) {
	var n int64
	for _, p := range m.rows {
		if p.LotteryID == id {
			n++
		}
	}
	return n, n, nil
}

func (m *memPurchases) ListExportPending(_ context.Context, limit int) ([]*domain.PurchaseRecord, error) {
	var out []*domain.PurchaseRecord
	for _, p := range m.rows {
		if p.ExportedAt == nil && len(out) < limit {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memPurchases) MarkExported(_ context.Context, lotteryID int64, ids []int64, at time.Time) error {
	marked := make(map[int64]bool, len(ids))
	for _, id := range ids {
		marked[id] = true
	}
	for _, p := range m.rows {
		if p.LotteryID == lotteryID && marked[p.ID] {
			p.ExportedAt = &at
		}
	}
	return nil
}

type memDraw struct {
	domain.DrawRepository
	schedules map[int64]*domain.DrawLottery
	configs   map[int64]*domain.DrawLottery
	tickets   map[string]*domain.DrawTicket
}

func newMemDraw() *memDraw {
	return &memDraw{
		schedules: map[int64]*domain.DrawLottery{},
		configs:   map[int64]*domain.DrawLottery{},
		tickets:   map[string]*domain.DrawTicket{},
	}
}

func (m *memDraw) UpsertSchedule(_ context.Context, l *domain.DrawLottery) error {
	m.schedules[l.LotteryID] = l
	return nil
}

func (m *memDraw) SetDrawConfig(_ context.Context, l *domain.DrawLottery) (bool, error) {
	if _, ok := m.configs[l.LotteryID]; ok {
		return false, nil
	}
	m.configs[l.LotteryID] = l
	return true, nil
}

func (m *memDraw) InsertTickets(_ context.Context, tickets []*domain.DrawTicket) (int64, error) {
	var n int64
	for _, t := range tickets {
		if _, ok := m.tickets[t.TicketNumber]; ok {
			continue
		}
		m.tickets[t.TicketNumber] = t
		n++
	}
	return n, nil
}

type memPartitions struct {
	domain.PartitionManager
	drawTypes map[domain.LotteryType]bool
}

func (m *memPartitions) EnsureDrawTicketPartition(_ context.Context, t domain.LotteryType) error {
	m.drawTypes[t] = true
	return nil
}

type recordingImporter struct {
	results []*domain.DrawResult
}

func (r *recordingImporter) ImportResults(_ context.Context, res *domain.DrawResult) (int64, error) {
	r.results = append(r.results, res)
	return int64(len(res.Winners)), nil
}

var topics = Topics{Schedules: "lottery.schedules", DrawConfigs: "lottery.draw-configs", TicketsPrefix: "lottery.tickets", Results: "lottery.results"}

func newExporter(lotteries *memLotteries, purchases *memPurchases, pub *capturePublisher, batch int) *DefaultExportUsecase {
	uc := NewDefaultExportUsecase(lotteries, purchases, nil, nil, pub, topics, batch, nil, zap.NewNop())
	uc.now = func() time.Time { return testNow }
	return uc
}

func TestExportSchedules(t *testing.T) {
	end := testNow.Add(time.Hour)
	lotteries := &memLotteries{lotteries: []*domain.Lottery{
		{ID: 1, Type: domain.LotteryTypeFixedDaily, Country: "ru", SaleStartDate: testNow, SaleEndDate: &end},
		{ID: 2, Type: domain.LotteryTypeCappedSupertour, Country: "ru", SaleStartDate: testNow},
	}}

	t.Run("publish failure leaves rows pending", func(t *testing.T) {
		pub := &capturePublisher{err: errors.New("broker down")}
		_, err := newExporter(lotteries, &memPurchases{}, pub, 10).ExportSchedules(context.Background())
		if !domain.IsRetryable(err) {
			t.Fatalf("got %v, want retryable", err)
		}
		if lotteries.lotteries[0].ScheduleExportedAt != nil {
			t.Fatalf("schedule marked exported without publish")
		}
	})

	t.Run("exported once", func(t *testing.T) {
		pub := &capturePublisher{}
		uc := newExporter(lotteries, &memPurchases{}, pub, 10)
		n, err := uc.ExportSchedules(context.Background())
		if err != nil {
			t.Fatalf("ExportSchedules: %v", err)
		}
		if n != 2 || len(pub.sent) != 2 {
			t.Fatalf("exported %d, published %d, want 2", n, len(pub.sent))
		}
		env := pub.sent[0].msg.Envelope
		if pub.sent[0].topic != topics.Schedules || env.Type() != domain.MessageLotterySchedule || env.Header(domain.HeaderLotteryID) != "1" {
			t.Fatalf("unexpected message %s %+v", pub.sent[0].topic, env.Headers)
		}
		var s domain.LotterySchedule
		if err := env.Decode(&s); err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if s.LotteryID != 1 || s.SaleEndDate == nil || !s.SaleEndDate.Equal(end) {
			t.Fatalf("schedule body %+v", s)
		}

		if n, _ := uc.ExportSchedules(context.Background()); n != 0 {
			t.Fatalf("second run exported %d", n)
		}
	})
}

func TestExportWinnersConfigs(t *testing.T) {
	count := 4
	lotteries := &memLotteries{lotteries: []*domain.Lottery{
		{ID: 1, Type: domain.LotteryTypeFixedDaily, CalculatedWinnersCount: &count},
		{ID: 2, Type: domain.LotteryTypeFixedDaily},
	}}
	purchases := &memPurchases{rows: []*domain.PurchaseRecord{{ID: 1, LotteryID: 1}, {ID: 2, LotteryID: 1}, {ID: 3, LotteryID: 2}}}
	pub := &capturePublisher{}

	n, err := newExporter(lotteries, purchases, pub, 10).ExportWinnersConfigs(context.Background())
	if err != nil || n != 1 {
		t.Fatalf("exported %d err %v, want 1", n, err)
	}
	var cfg domain.DrawConfiguration
	if err := pub.sent[0].msg.Envelope.Decode(&cfg); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if cfg.WinnersCount != 4 || cfg.SoldTickets != 2 {
		t.Fatalf("config %+v, want 4 winners of 2 sold", cfg)
	}
	if lotteries.lotteries[0].WinnersConfigExportedAt == nil {
		t.Fatalf("config not marked exported")
	}
}

func TestExportTickets_PerTypeTopics(t *testing.T) {
	purchases := &memPurchases{}
	for i := int64(1); i <= 5; i++ {
		lotteryID, lotteryType := int64(1), domain.LotteryTypeFixedDaily
		if i > 3 {
			lotteryID, lotteryType = 2, domain.LotteryTypeAccumulatingJackpot
		}
		purchases.rows = append(purchases.rows, &domain.PurchaseRecord{
			ID: i, LotteryID: lotteryID, LotteryType: lotteryType,
			TicketNumber: domain.FormatTicketNumber("ru", i, lotteryID),
		})
	}
	pub := &capturePublisher{}

	n, err := newExporter(&memLotteries{}, purchases, pub, 2).ExportTickets(context.Background())
	if err != nil {
		t.Fatalf("ExportTickets: %v", err)
	}
	if n != 5 {
		t.Fatalf("exported %d tickets, want 5", n)
	}
	perTopic := map[string]int{}
	for _, s := range pub.sent {
		var b domain.TicketBatch
		if err := s.msg.Envelope.Decode(&b); err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if s.topic != domain.TicketTopic(topics.TicketsPrefix, b.Type) {
			t.Fatalf("batch of %s published to %s", b.Type, s.topic)
		}
		perTopic[s.topic] += len(b.Tickets)
	}
	if perTopic["lottery.tickets.fixed_daily"] != 3 || perTopic["lottery.tickets.accumulating_jackpot"] != 2 {
		t.Fatalf("tickets per topic %v", perTopic)
	}
	for _, p := range purchases.rows {
		if p.ExportedAt == nil {
			t.Fatalf("purchase %d not marked exported", p.ID)
		}
	}
}

func TestExportTickets_SkipsInvalidType(t *testing.T) {
	purchases := &memPurchases{rows: []*domain.PurchaseRecord{
		{ID: 1, LotteryID: 1, LotteryType: "WEEKLY", TicketNumber: domain.FormatTicketNumber("ru", 1, 1)},
		{ID: 2, LotteryID: 2, LotteryType: domain.LotteryTypeFixedDaily, TicketNumber: domain.FormatTicketNumber("ru", 1, 2)},
		{ID: 3, LotteryID: 2, LotteryType: domain.LotteryTypeFixedDaily, TicketNumber: domain.FormatTicketNumber("ru", 2, 2)},
		{ID: 4, LotteryID: 3, LotteryType: domain.LotteryTypeCappedSupertour, TicketNumber: domain.FormatTicketNumber("ru", 1, 3)},
	}}
	pub := &capturePublisher{}

	n, err := newExporter(&memLotteries{}, purchases, pub, 2).ExportTickets(context.Background())
	if !domain.IsValidation(err) {
		t.Fatalf("expected the invalid lottery to be reported, got %v", err)
	}
	if n != 3 {
		t.Fatalf("exported %d tickets, want 3", n)
	}
	for _, p := range purchases.rows {
		if exported := p.ExportedAt != nil; exported != (p.LotteryID != 1) {
			t.Fatalf("purchase %d of lottery %d exported=%v", p.ID, p.LotteryID, exported)
		}
	}
}

func envelope(t *testing.T, msgType domain.MessageType, lotteryID int64, body any) *domain.Envelope {
	t.Helper()
	env, err := domain.NewEnvelope(msgType, lotteryID, body)
	if err != nil {
		t.Fatalf("NewEnvelope: %v", err)
	}
	return env
}

func TestImportHandlers(t *testing.T) {
	draws := newMemDraw()
	partitions := &memPartitions{drawTypes: map[domain.LotteryType]bool{}}
	importer := &recordingImporter{}
	uc := NewDefaultImportUsecase(draws, partitions, importer, zap.NewNop())
	ctx := context.Background()

	t.Run("schedule", func(t *testing.T) {
		env := envelope(t, domain.MessageLotterySchedule, 1, domain.LotterySchedule{LotteryID: 1, Type: domain.LotteryTypeFixedDaily, Country: "ru", SaleStartDate: testNow})
		if err := uc.Handle(ctx, topics.Schedules, env); err != nil {
			t.Fatalf("Handle: %v", err)
		}
		if draws.schedules[1] == nil || draws.schedules[1].Country != "ru" {
			t.Fatalf("schedule not stored")
		}
	})

	t.Run("draw configuration redelivered", func(t *testing.T) {
		env := envelope(t, domain.MessageDrawConfiguration, 1, domain.DrawConfiguration{LotteryID: 1, Type: domain.LotteryTypeFixedDaily, WinnersCount: 3, SoldTickets: 8})
		for i := 0; i < 2; i++ {
			if err := uc.Handle(ctx, topics.DrawConfigs, env); err != nil {
				t.Fatalf("Handle #%d: %v", i, err)
			}
		}
		cfg := draws.configs[1]
		if cfg == nil || *cfg.WinnersCount != 3 || *cfg.ExpectedTickets != 8 {
			t.Fatalf("config %+v", cfg)
		}
	})

	t.Run("ticket batch", func(t *testing.T) {
		batch := domain.TicketBatch{LotteryID: 1, Type: domain.LotteryTypeFixedDaily, Tickets: []domain.ExportedTicket{
			{PurchaseID: 1, TicketNumber: "RU000000011"},
			{PurchaseID: 2, TicketNumber: "RU000000021"},
		}}
		env := envelope(t, domain.MessageTicketBatch, 1, batch)
		if err := uc.Handle(ctx, "lottery.tickets.fixed_daily", env); err != nil {
			t.Fatalf("Handle: %v", err)
		}
		if err := uc.Handle(ctx, "lottery.tickets.fixed_daily", env); err != nil {
			t.Fatalf("redelivered Handle: %v", err)
		}
		if len(draws.tickets) != 2 {
			t.Fatalf("stored %d tickets, want 2", len(draws.tickets))
		}
		if !partitions.drawTypes[domain.LotteryTypeFixedDaily] {
			t.Fatalf("draw ticket partition not ensured")
		}
	})

	t.Run("result", func(t *testing.T) {
		env := envelope(t, domain.MessageDrawResult, 1, domain.DrawResult{LotteryID: 1, Winners: []domain.DrawnTicket{{Position: 1, TicketNumber: "RU000000011"}}})
		if err := uc.Handle(ctx, topics.Results, env); err != nil {
			t.Fatalf("Handle: %v", err)
		}
		if len(importer.results) != 1 || importer.results[0].Winners[0].TicketNumber != "RU000000011" {
			t.Fatalf("result not imported: %+v", importer.results)
		}
	})

	t.Run("unknown type is poison", func(t *testing.T) {
		env := envelope(t, domain.MessageType("bogus"), 1, struct{}{})
		err := uc.Handle(ctx, topics.Results, env)
		if !domain.IsPoison(err) || !errors.Is(err, domain.ErrUnknownMessageType) {
			t.Fatalf("got %v, want poison", err)
		}
	})

	t.Run("undecodable body is poison", func(t *testing.T) {
		env := envelope(t, domain.MessageLotterySchedule, 1, "not an object")
		if err := uc.Handle(ctx, topics.Schedules, env); !domain.IsPoison(err) {
			t.Fatalf("got %v, want poison", err)
		}
	})

	t.Run("unknown lottery type is invalid", func(t *testing.T) {
		env := envelope(t, domain.MessageTicketBatch, 1, domain.TicketBatch{LotteryID: 1, Type: "WEEKLY"})
		if err := uc.Handle(ctx, "lottery.tickets.weekly", env); !domain.IsValidation(err) {
			t.Fatalf("got %v, want validation", err)
		}
	})
}

type memDeadLetters struct {
	events []logger.DeadLetterEvent
}

func (m *memDeadLetters) LogDeadLetter(_ context.Context, e logger.DeadLetterEvent) error {
	m.events = append(m.events, e)
	return nil
}

func TestDeadLetterMonitor(t *testing.T) {
	store := &memDeadLetters{}
	monitor := NewDeadLetterMonitor(store, zap.NewNop())
	env := envelope(t, domain.MessageTicketBatch, 7, domain.TicketBatch{LotteryID: 7})
	env.SetHeader(domain.HeaderOriginalTopic, "lottery.tickets.fixed_daily")
	env.SetHeader(domain.HeaderErrorType, "validation")
	env.SetHeader(domain.HeaderErrorMessage, "validation: unknown lottery type")
	env.SetHeader(domain.HeaderRetryCount, "2")
	env.SetHeader(domain.HeaderFailedAt, "2026-03-01T12:00:00Z")

	if err := monitor.Handle(context.Background(), "lottery.tickets.fixed_daily.dlq", env); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(store.events) != 1 {
		t.Fatalf("stored %d events, want 1", len(store.events))
	}
	e := store.events[0]
	if e.OriginalTopic != "lottery.tickets.fixed_daily" || e.LotteryID != "7" || e.RetryCount != 2 || !e.FailedAt.Equal(testNow) {
		t.Fatalf("event %+v", e)
	}
}
