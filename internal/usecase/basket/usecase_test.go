package basket

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/LavaJover/shvark-lottery-service/internal/domain"
	basketdto "github.com/LavaJover/shvark-lottery-service/internal/usecase/dto/basket"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store   *memStore
	gateway *scriptedGateway
	uc      *DefaultBasketUsecase
	clock   time.Time
}

func newFixture(t *testing.T, maxTickets int) *fixture {
	t.Helper()
	store := newMemStore()
	end := testNow.Add(10 * time.Hour)
	store.addLottery(&domain.Lottery{
		ID:            7,
		Type:          domain.LotteryTypeFixedDaily,
		Country:       "ru",
		SaleStartDate: testNow.Add(-time.Hour),
		SaleEndDate:   &end,
		IsActive:      true,
		TicketPrice:   decimal.NewFromInt(100),
		Currency:      "RUB",
	}, 20)

	gateway := &scriptedGateway{statuses: map[string]domain.ChargeStatus{}}
	uc, err := NewDefaultBasketUsecase(
		basketRepo{store},
		lotteryRepo{memStore: store},
		ticketRepo{memStore: store},
		purchaseRepo{memStore: store},
		gateway,
		passthroughTx{},
		Options{MaxTickets: maxTickets, TTL: 15 * time.Minute, PaymentTimeout: time.Second},
		nil,
		zap.NewNop(),
	)
	if err != nil {
		t.Fatalf("NewDefaultBasketUsecase: %v", err)
	}
	f := &fixture{store: store, gateway: gateway, uc: uc, clock: testNow}
	uc.now = func() time.Time { return f.clock }
	var seq int
	var mu sync.Mutex
	uc.newID = func() string {
		mu.Lock()
		defer mu.Unlock()
		seq++
		return fmt.Sprintf("id-%d", seq)
	}
	uc.orderID = func() string {
		mu.Lock()
		defer mu.Unlock()
		seq++
		return fmt.Sprintf("order%016d", seq)
	}
	return f
}

func (f *fixture) add(t *testing.T, userID string, ids ...int64) *basketdto.AddTicketsOutput {
	t.Helper()
	out, err := f.uc.AddTickets(context.Background(), &basketdto.AddTicketsInput{UserID: userID, LotteryID: 7, TicketIDs: ids})
	if err != nil {
		t.Fatalf("AddTickets(%v): %v", ids, err)
	}
	return out
}

func TestAddTickets_ConcurrentSameTicket(t *testing.T) {
	f := newFixture(t, 10)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, user := range []string{"alice", "bob"} {
		wg.Add(1)
		go func(i int, user string) {
			defer wg.Done()
			_, errs[i] = f.uc.AddTickets(context.Background(), &basketdto.AddTicketsInput{UserID: user, LotteryID: 7, TicketIDs: []int64{5}})
		}(i, user)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case !domain.IsConflict(err) || !errors.Is(err, domain.ErrTicketUnavailable):
			t.Fatalf("loser got %v, want ticket unavailable conflict", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("%d users reserved ticket 5, want exactly 1", succeeded)
	}
	if !f.store.ticket(7, 5).IsReserved {
		t.Fatalf("ticket 5 not reserved")
	}
}

func TestAddTickets_Capacity(t *testing.T) {
	t.Run("explicit ids are truncated", func(t *testing.T) {
		f := newFixture(t, 3)
		out := f.add(t, "alice", 1, 2, 3, 4, 5)
		if len(out.Added) != 3 || len(out.Rejected) != 2 {
			t.Fatalf("added %d rejected %d, want 3 and 2", len(out.Added), len(out.Rejected))
		}
		if len(out.Basket.Reservations) != 3 {
			t.Fatalf("basket holds %d tickets, want 3", len(out.Basket.Reservations))
		}
		if f.store.ticket(7, 4).IsReserved || f.store.ticket(7, 5).IsReserved {
			t.Fatalf("tickets beyond capacity were reserved")
		}

		_, err := f.uc.AddTickets(context.Background(), &basketdto.AddTicketsInput{UserID: "alice", LotteryID: 7, TicketIDs: []int64{6}})
		if !domain.IsValidation(err) || !errors.Is(err, domain.ErrBasketFull) {
			t.Fatalf("add to full basket: got %v, want ErrBasketFull", err)
		}
	})

	t.Run("random quantity is capped", func(t *testing.T) {
		f := newFixture(t, 4)
		out, err := f.uc.AddTickets(context.Background(), &basketdto.AddTicketsInput{UserID: "alice", LotteryID: 7, Quantity: 9})
		if err != nil {
			t.Fatalf("AddTickets: %v", err)
		}
		if len(out.Added) != 4 {
			t.Fatalf("added %d, want 4", len(out.Added))
		}
	})

	t.Run("zero quantity", func(t *testing.T) {
		f := newFixture(t, 4)
		_, err := f.uc.AddTickets(context.Background(), &basketdto.AddTicketsInput{UserID: "alice", LotteryID: 7})
		if !errors.Is(err, domain.ErrInvalidQuantity) {
			t.Fatalf("got %v, want ErrInvalidQuantity", err)
		}
	})
}

func TestAddTickets_LotteryNotOnSale(t *testing.T) {
	f := newFixture(t, 10)
	f.clock = testNow.Add(11 * time.Hour)

	_, err := f.uc.AddTickets(context.Background(), &basketdto.AddTicketsInput{UserID: "alice", LotteryID: 7, TicketIDs: []int64{1}})
	if !domain.IsValidation(err) || !errors.Is(err, domain.ErrLotteryNotOnSale) {
		t.Fatalf("got %v, want ErrLotteryNotOnSale", err)
	}
	_, err = f.uc.AddTickets(context.Background(), &basketdto.AddTicketsInput{UserID: "alice", LotteryID: 99, TicketIDs: []int64{1}})
	if !domain.IsValidation(err) || !errors.Is(err, domain.ErrLotteryNotFound) {
		t.Fatalf("unknown lottery: got %v", err)
	}
}

func TestExpireBaskets(t *testing.T) {
	f := newFixture(t, 10)
	f.add(t, "alice", 1, 2)

	f.clock = testNow.Add(16 * time.Minute)
	if _, err := f.uc.FindActiveBasket(context.Background(), "alice"); !errors.Is(err, domain.ErrBasketNotFound) {
		t.Fatalf("basket past end date still active: %v", err)
	}

	n, err := f.uc.ExpireBaskets(context.Background())
	if err != nil {
		t.Fatalf("ExpireBaskets: %v", err)
	}
	if n != 1 {
		t.Fatalf("expired %d baskets, want 1", n)
	}
	for _, seq := range []int64{1, 2} {
		if f.store.ticket(7, seq).IsReserved {
			t.Fatalf("ticket %d still reserved after expiry", seq)
		}
	}
	b, err := basketRepo{f.store}.GetBasket(context.Background(), "id-1")
	if err != nil {
		t.Fatalf("GetBasket: %v", err)
	}
	if b.CancelReason == nil || *b.CancelReason != domain.CancelReasonExpired {
		t.Fatalf("cancel reason %v, want EXPIRED", b.CancelReason)
	}
	if len(b.Reservations) != 0 {
		t.Fatalf("expired basket still links %d tickets", len(b.Reservations))
	}

	if n, _ := f.uc.ExpireBaskets(context.Background()); n != 0 {
		t.Fatalf("second sweep expired %d baskets", n)
	}
}

func TestExpireBaskets_KeepsAwaitingCharge(t *testing.T) {
	ctx := context.Background()

	t.Run("settled by reconciliation", func(t *testing.T) {
		f := newFixture(t, 10)
		out := f.add(t, "alice", 1)
		if err := f.uc.markPayment(ctx, out.Basket.ID, domain.PaymentStatusPending, "tx-slow", "order-slow"); err != nil {
			t.Fatalf("markPayment: %v", err)
		}

		f.clock = testNow.Add(40 * time.Minute)
		if n, err := f.uc.ExpireBaskets(ctx); err != nil || n != 0 {
			t.Fatalf("expired %d baskets (err %v) with a charge in flight", n, err)
		}
		if !f.store.ticket(7, 1).IsReserved {
			t.Fatalf("ticket released while its charge is processing")
		}
		_, err := f.uc.AddTickets(ctx, &basketdto.AddTicketsInput{UserID: "alice", LotteryID: 7, TicketIDs: []int64{2}})
		if !domain.IsConflict(err) || !errors.Is(err, domain.ErrPaymentProcessing) {
			t.Fatalf("new basket during unsettled charge: got %v", err)
		}

		f.gateway.statuses["tx-slow"] = domain.ChargeStatusSuccess
		if settled, err := f.uc.ReconcilePayments(ctx); err != nil || settled != 1 {
			t.Fatalf("settled=%d err=%v, want 1", settled, err)
		}
		if !f.store.ticket(7, 1).IsPaid {
			t.Fatalf("late charge did not pay the ticket")
		}
	})

	t.Run("expired once the charge fails", func(t *testing.T) {
		f := newFixture(t, 10)
		out := f.add(t, "bob", 1)
		if err := f.uc.markPayment(ctx, out.Basket.ID, domain.PaymentStatusPending, "tx-lost", "order-lost"); err != nil {
			t.Fatalf("markPayment: %v", err)
		}
		f.clock = testNow.Add(40 * time.Minute)
		f.gateway.statuses["tx-lost"] = domain.ChargeStatusCancelled

		if _, err := f.uc.ReconcilePayments(ctx); err != nil {
			t.Fatalf("ReconcilePayments: %v", err)
		}
		if n, err := f.uc.ExpireBaskets(ctx); err != nil || n != 1 {
			t.Fatalf("expired %d baskets (err %v), want 1", n, err)
		}
		if f.store.ticket(7, 1).IsReserved {
			t.Fatalf("ticket still reserved after expiry")
		}
	})
}

func TestAddTickets_ReplacesStaleBasket(t *testing.T) {
	f := newFixture(t, 10)
	f.add(t, "alice", 1)

	f.clock = testNow.Add(20 * time.Minute)
	out := f.add(t, "alice", 1)
	if out.Basket.ID == "id-1" {
		t.Fatalf("stale basket reused")
	}
	if len(out.Added) != 1 {
		t.Fatalf("ticket from stale basket not released")
	}
}

func TestRemoveTicketAndClear(t *testing.T) {
	f := newFixture(t, 10)
	f.add(t, "alice", 1, 2, 3)
	ctx := context.Background()

	b, err := f.uc.RemoveTicket(ctx, &basketdto.RemoveTicketInput{UserID: "alice", LotteryID: 7, TicketID: 2})
	if err != nil {
		t.Fatalf("RemoveTicket: %v", err)
	}
	if len(b.Reservations) != 2 || f.store.ticket(7, 2).IsReserved {
		t.Fatalf("ticket 2 not removed")
	}
	_, err = f.uc.RemoveTicket(ctx, &basketdto.RemoveTicketInput{UserID: "alice", LotteryID: 7, TicketID: 9})
	if !errors.Is(err, domain.ErrTicketNotInBasket) {
		t.Fatalf("remove foreign ticket: got %v", err)
	}

	if err := f.uc.Clear(ctx, "alice"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if f.store.ticket(7, 1).IsReserved || f.store.ticket(7, 3).IsReserved {
		t.Fatalf("tickets still reserved after clear")
	}
	if _, err := f.uc.GetBasket(ctx, "alice"); !errors.Is(err, domain.ErrBasketNotFound) {
		t.Fatalf("cleared basket still active: %v", err)
	}
}

func TestPay_TimeoutThenSuccess(t *testing.T) {
	f := newFixture(t, 10)
	board := &recordingBoard{}
	f.uc.Leaderboard = board
	f.add(t, "alice", 1, 2, 3)
	f.gateway.charges = []chargeOutcome{
		{err: context.DeadlineExceeded},
		{result: &domain.ChargeResult{Success: true, GatewayTxID: "tx-2"}},
	}
	ctx := context.Background()

	_, err := f.uc.Pay(ctx, "alice")
	if err == nil || !domain.IsRetryable(err) {
		t.Fatalf("first Pay: got %v, want retryable error", err)
	}
	b, err := f.uc.GetBasket(ctx, "alice")
	if err != nil {
		t.Fatalf("basket closed after failed charge: %v", err)
	}
	if b.PaymentStatus != domain.PaymentStatusFailed || len(b.Reservations) != 3 {
		t.Fatalf("status %s with %d tickets, want FAILED with 3", b.PaymentStatus, len(b.Reservations))
	}

	out, err := f.uc.Pay(ctx, "alice")
	if err != nil {
		t.Fatalf("second Pay: %v", err)
	}
	if len(out.Purchases) != 3 {
		t.Fatalf("%d purchases, want 3", len(out.Purchases))
	}
	if out.Basket.CancelReason == nil || *out.Basket.CancelReason != domain.CancelReasonPaymentSuccess {
		t.Fatalf("basket not closed as PAYMENT_SUCCESS")
	}
	if out.Basket.PaymentStatus != domain.PaymentStatusSuccess {
		t.Fatalf("payment status %s", out.Basket.PaymentStatus)
	}
	for _, seq := range []int64{1, 2, 3} {
		if !f.store.ticket(7, seq).IsPaid {
			t.Fatalf("ticket %d not paid", seq)
		}
	}
	if len(f.store.purchases) != 3 {
		t.Fatalf("stored %d purchases, want 3", len(f.store.purchases))
	}
	if len(board.invalidated) != 1 || board.invalidated[0] != 7 {
		t.Fatalf("leaderboard of lottery 7 not invalidated: %v", board.invalidated)
	}

	req := f.gateway.requests[1]
	if !req.Amount.Equal(decimal.NewFromInt(300)) || req.Currency != "RUB" {
		t.Fatalf("charged %s %s, want 300 RUB", req.Amount, req.Currency)
	}
	if req.IdempotencyKey == f.gateway.requests[0].IdempotencyKey {
		t.Fatalf("idempotency key reused across attempts")
	}
}

func TestPay_ConcurrentCallsChargeOnce(t *testing.T) {
	f := newFixture(t, 10)
	f.add(t, "alice", 1, 2)
	gateway := &blockingGateway{
		scriptedGateway: scriptedGateway{statuses: map[string]domain.ChargeStatus{}},
		started:         make(chan struct{}),
		release:         make(chan struct{}),
	}
	f.uc.Gateway = gateway
	ctx := context.Background()

	type payResult struct {
		out *basketdto.PayOutput
		err error
	}
	first := make(chan payResult, 1)
	go func() {
		out, err := f.uc.Pay(ctx, "alice")
		first <- payResult{out, err}
	}()
	select {
	case <-gateway.started:
	case <-time.After(2 * time.Second):
		t.Fatalf("first charge never reached the gateway")
	}

	_, err := f.uc.Pay(ctx, "alice")
	if !domain.IsConflict(err) || !errors.Is(err, domain.ErrPaymentProcessing) {
		t.Fatalf("second Pay while charging: got %v", err)
	}

	close(gateway.release)
	res := <-first
	if res.err != nil {
		t.Fatalf("first Pay: %v", res.err)
	}
	if len(res.out.Purchases) != 2 {
		t.Fatalf("%d purchases, want 2", len(res.out.Purchases))
	}
	if len(gateway.requests) != 1 {
		t.Fatalf("%d charges created, want 1", len(gateway.requests))
	}
}

func TestPay_DuplicateOrderRetries(t *testing.T) {
	f := newFixture(t, 10)
	f.add(t, "alice", 1)
	dup := chargeOutcome{result: &domain.ChargeResult{ErrorCode: domain.ChargeErrorDuplicateOrder}}

	t.Run("suffix resolves the clash", func(t *testing.T) {
		f.gateway.charges = []chargeOutcome{dup, {result: &domain.ChargeResult{Success: true, GatewayTxID: "tx-9"}}}
		out, err := f.uc.Pay(context.Background(), "alice")
		if err != nil {
			t.Fatalf("Pay: %v", err)
		}
		base := f.gateway.requests[0].OrderID
		if out.OrderID == base || !strings.HasPrefix(out.OrderID, base+"-") {
			t.Fatalf("order id %q is not a suffixed %q", out.OrderID, base)
		}
	})

	t.Run("gives up after the retry cap", func(t *testing.T) {
		f := newFixture(t, 10)
		f.add(t, "bob", 1)
		f.gateway.charges = []chargeOutcome{dup, dup, dup, dup}
		_, err := f.uc.Pay(context.Background(), "bob")
		if !domain.IsConflict(err) || !errors.Is(err, domain.ErrDuplicateOrder) {
			t.Fatalf("got %v, want duplicate order conflict", err)
		}
		if len(f.gateway.requests) != 3 {
			t.Fatalf("%d charge attempts, want 3", len(f.gateway.requests))
		}
	})
}

func TestPay_Declined(t *testing.T) {
	f := newFixture(t, 10)
	f.add(t, "alice", 1, 2)
	f.gateway.charges = []chargeOutcome{{result: &domain.ChargeResult{ErrorCode: "INSUFFICIENT_FUNDS"}}}

	_, err := f.uc.Pay(context.Background(), "alice")
	if !domain.IsValidation(err) || !errors.Is(err, domain.ErrPaymentDeclined) {
		t.Fatalf("got %v, want declined", err)
	}
	b, err := f.uc.GetBasket(context.Background(), "alice")
	if err != nil {
		t.Fatalf("declined basket closed: %v", err)
	}
	if b.PaymentStatus != domain.PaymentStatusDeclined {
		t.Fatalf("status %s, want DECLINED", b.PaymentStatus)
	}
	if f.store.ticket(7, 1).IsPaid {
		t.Fatalf("declined ticket marked paid")
	}
}

func TestPay_EmptyBasket(t *testing.T) {
	f := newFixture(t, 10)
	f.add(t, "alice", 1)
	if err := f.uc.Clear(context.Background(), "alice"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, err := f.uc.Pay(context.Background(), "alice"); !errors.Is(err, domain.ErrBasketNotFound) {
		t.Fatalf("pay without basket: got %v", err)
	}
}

func TestReconcilePayments(t *testing.T) {
	f := newFixture(t, 10)
	out := f.add(t, "alice", 1, 2)
	ctx := context.Background()
	if err := f.uc.markPayment(ctx, out.Basket.ID, domain.PaymentStatusPending, "tx-late", "order-late"); err != nil {
		t.Fatalf("markPayment: %v", err)
	}

	_, err := f.uc.AddTickets(ctx, &basketdto.AddTicketsInput{UserID: "alice", LotteryID: 7, TicketIDs: []int64{3}})
	if !errors.Is(err, domain.ErrPaymentProcessing) {
		t.Fatalf("add during pending payment: got %v", err)
	}

	settled, err := f.uc.ReconcilePayments(ctx)
	if err != nil || settled != 0 {
		t.Fatalf("processing charge settled=%d err=%v", settled, err)
	}

	f.gateway.statuses["tx-late"] = domain.ChargeStatusSuccess
	settled, err = f.uc.ReconcilePayments(ctx)
	if err != nil {
		t.Fatalf("ReconcilePayments: %v", err)
	}
	if settled != 1 {
		t.Fatalf("settled %d, want 1", settled)
	}
	if !f.store.ticket(7, 1).IsPaid || !f.store.ticket(7, 2).IsPaid {
		t.Fatalf("reconciled tickets not paid")
	}
	if len(f.gateway.requests) != 0 {
		t.Fatalf("reconciliation created a new charge")
	}
}
