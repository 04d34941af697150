package basket

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/LavaJover/shvark-lottery-service/internal/domain"
	"github.com/LavaJover/shvark-lottery-service/internal/usecase/leaderboard"
)

// memStore is a test-scoped stand-in for the sales database. Every method
// takes the lock so conditional updates behave like single SQL statements.
type memStore struct {
	mu           sync.Mutex
	lotteries    map[int64]*domain.Lottery
	tickets      map[int64]map[int64]*domain.Ticket
	baskets      map[string]*domain.Basket
	reservations []*domain.Reservation
	purchases    []*domain.PurchaseRecord
	nextID       int64
}

func newMemStore() *memStore {
	return &memStore{
		lotteries: map[int64]*domain.Lottery{},
		tickets:   map[int64]map[int64]*domain.Ticket{},
		baskets:   map[string]*domain.Basket{},
	}
}

func (s *memStore) addLottery(l *domain.Lottery, tickets int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lotteries[l.ID] = l
	s.tickets[l.ID] = map[int64]*domain.Ticket{}
	for seq := int64(1); seq <= int64(tickets); seq++ {
		s.tickets[l.ID][seq] = &domain.Ticket{LotteryID: l.ID, SequenceID: seq, TicketNumber: domain.FormatTicketNumber(l.Country, seq, l.ID)}
	}
}

func (s *memStore) ticket(lotteryID, seq int64) domain.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.tickets[lotteryID][seq]
}

func (s *memStore) basketReservations(id string) []*domain.Reservation {
	var out []*domain.Reservation
	for _, r := range s.reservations {
		if r.BasketID == id {
			copied := *r
			out = append(out, &copied)
		}
	}
	return out
}

func (s *memStore) snapshot(b *domain.Basket) *domain.Basket {
	copied := *b
	copied.Reservations = s.basketReservations(b.ID)
	return &copied
}

type lotteryRepo struct {
	domain.LotteryRepository
	*memStore
}

func (r lotteryRepo) GetLotteryByID(_ context.Context, id int64) (*domain.Lottery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.lotteries[id]
	if !ok {
		return nil, domain.ErrLotteryNotFound
	}
	copied := *l
	return &copied, nil
}

type ticketRepo struct {
	domain.TicketRepository
	*memStore
}

func (r ticketRepo) GetTickets(_ context.Context, lotteryID int64, ids []int64) ([]*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Ticket
	for _, id := range ids {
		if t, ok := r.tickets[lotteryID][id]; ok {
			copied := *t
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r ticketRepo) RandomAvailable(_ context.Context, lotteryID int64, limit int) ([]*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Ticket
	for _, t := range r.tickets[lotteryID] {
		if len(out) == limit {
			break
		}
		if !t.IsReserved && !t.IsPaid {
			copied := *t
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r ticketRepo) Reserve(_ context.Context, lotteryID, seq int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[lotteryID][seq]
	if !ok || t.IsReserved || t.IsPaid {
		return false, nil
	}
	t.IsReserved = true
	return true, nil
}

func (r ticketRepo) Release(_ context.Context, lotteryID, seq int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[lotteryID][seq]
	if !ok || !t.IsReserved || t.IsPaid {
		return false, nil
	}
	t.IsReserved = false
	return true, nil
}

func (r ticketRepo) MarkPaid(_ context.Context, lotteryID, seq int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[lotteryID][seq]
	if !ok || !t.IsReserved || t.IsPaid {
		return false, nil
	}
	t.IsPaid = true
	return true, nil
}

type basketRepo struct {
	*memStore
}

func (r basketRepo) FindActiveBasket(_ context.Context, userID string, now time.Time) (*domain.Basket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.baskets {
		if b.UserID == userID && b.IsActive(now) {
			return r.snapshot(b), nil
		}
	}
	return nil, domain.ErrBasketNotFound
}

func (r basketRepo) ListStaleBaskets(_ context.Context, userID string, now time.Time) ([]*domain.Basket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Basket
	for _, b := range r.baskets {
		if b.UserID == userID && b.IsOpen() && !b.EndDate.After(now) && !b.AwaitingCharge() {
			out = append(out, r.snapshot(b))
		}
	}
	return out, nil
}

func (r basketRepo) CreateBasket(_ context.Context, b *domain.Basket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.baskets {
		if existing.UserID == b.UserID && existing.IsOpen() {
			return domain.NewConflictError(domain.ErrBasketNotFound)
		}
	}
	copied := *b
	r.baskets[b.ID] = &copied
	return nil
}

func (r basketRepo) GetBasket(_ context.Context, id string) (*domain.Basket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.baskets[id]
	if !ok {
		return nil, domain.ErrBasketNotFound
	}
	return r.snapshot(b), nil
}

func (r basketRepo) LockOpenBasket(_ context.Context, id string) (*domain.Basket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.baskets[id]
	if !ok || !b.IsOpen() {
		return nil, domain.ErrBasketNotFound
	}
	return r.snapshot(b), nil
}

func (r basketRepo) ListReservations(_ context.Context, id string) ([]*domain.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.basketReservations(id), nil
}

func (r basketRepo) AddReservations(_ context.Context, list []*domain.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, res := range list {
		for _, existing := range r.reservations {
			if existing.LotteryID == res.LotteryID && existing.TicketID == res.TicketID {
				return domain.NewConflictError(domain.ErrTicketUnavailable)
			}
		}
		r.nextID++
		res.ID = r.nextID
		copied := *res
		r.reservations = append(r.reservations, &copied)
	}
	return nil
}

func (r basketRepo) DeleteReservation(_ context.Context, basketID string, lotteryID, ticketID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, res := range r.reservations {
		if res.BasketID == basketID && res.LotteryID == lotteryID && res.TicketID == ticketID {
			r.reservations = append(r.reservations[:i], r.reservations[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (r basketRepo) DeleteReservations(_ context.Context, basketID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.reservations[:0]
	for _, res := range r.reservations {
		if res.BasketID != basketID {
			kept = append(kept, res)
		}
	}
	r.reservations = kept
	return nil
}

func (r basketRepo) ExtendBasket(_ context.Context, id string, end time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.baskets[id]
	if !ok || !b.IsOpen() {
		return false, nil
	}
	b.EndDate = end
	return true, nil
}

func (r basketRepo) CloseBasket(_ context.Context, id string, reason domain.CancelReason, status domain.PaymentStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.baskets[id]
	if !ok || !b.IsOpen() {
		return false, nil
	}
	b.CancelReason = &reason
	b.PaymentStatus = status
	return true, nil
}

func (r basketRepo) ExpireBasket(_ context.Context, id string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.baskets[id]
	if !ok || !b.IsOpen() || !b.EndDate.Before(now) || b.AwaitingCharge() {
		return false, nil
	}
	reason := domain.CancelReasonExpired
	b.CancelReason = &reason
	return true, nil
}

func (r basketRepo) ListExpiredBaskets(_ context.Context, now time.Time, limit int) ([]*domain.Basket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Basket
	for _, b := range r.baskets {
		if b.IsOpen() && b.EndDate.Before(now) && !b.AwaitingCharge() {
			out = append(out, r.snapshot(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndDate.Before(out[j].EndDate) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r basketRepo) BeginPayment(_ context.Context, id, orderID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.baskets[id]
	if !ok || !b.IsOpen() || b.PaymentStatus == domain.PaymentStatusPending {
		return false, nil
	}
	b.PaymentStatus = domain.PaymentStatusPending
	b.OrderID = orderID
	b.GatewayTxID = ""
	return true, nil
}

func (r basketRepo) UpdatePaymentState(_ context.Context, id string, status domain.PaymentStatus, txID, orderID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.baskets[id]
	if !ok || !b.IsOpen() {
		return false, nil
	}
	b.PaymentStatus = status
	if txID != "" {
		b.GatewayTxID = txID
	}
	if orderID != "" {
		b.OrderID = orderID
	}
	return true, nil
}

func (r basketRepo) ListPendingPayments(_ context.Context, limit int) ([]*domain.Basket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Basket
	for _, b := range r.baskets {
		if b.IsOpen() && b.PaymentStatus == domain.PaymentStatusPending && b.GatewayTxID != "" && len(out) < limit {
			out = append(out, r.snapshot(b))
		}
	}
	return out, nil
}

type purchaseRepo struct {
	domain.PurchaseRepository
	*memStore
}

func (r purchaseRepo) CreatePurchases(_ context.Context, list []*domain.PurchaseRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range list {
		r.nextID++
		p.ID = r.nextID
		r.purchases = append(r.purchases, p)
	}
	return nil
}

type recordingBoard struct {
	leaderboard.LeaderboardUsecase
	invalidated []int64
}

func (b *recordingBoard) Invalidate(_ context.Context, ids ...int64) {
	b.invalidated = append(b.invalidated, ids...)
}

type passthroughTx struct{}

func (passthroughTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// blockingGateway holds every charge until release is closed.
type blockingGateway struct {
	scriptedGateway
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *blockingGateway) CreateCharge(ctx context.Context, req domain.ChargeRequest) (*domain.ChargeResult, error) {
	g.once.Do(func() { close(g.started) })
	<-g.release
	return g.scriptedGateway.CreateCharge(ctx, req)
}

// scriptedGateway replays charge outcomes in order.
type scriptedGateway struct {
	mu       sync.Mutex
	charges  []chargeOutcome
	requests []domain.ChargeRequest
	statuses map[string]domain.ChargeStatus
}

type chargeOutcome struct {
	result *domain.ChargeResult
	err    error
}

func (g *scriptedGateway) CreateCharge(_ context.Context, req domain.ChargeRequest) (*domain.ChargeResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	if len(g.charges) == 0 {
		return &domain.ChargeResult{Success: true, GatewayTxID: "tx-default"}, nil
	}
	next := g.charges[0]
	g.charges = g.charges[1:]
	return next.result, next.err
}

func (g *scriptedGateway) GetStatus(_ context.Context, txID string) (domain.ChargeStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if s, ok := g.statuses[txID]; ok {
		return s, nil
	}
	return domain.ChargeStatusProcessing, nil
}
