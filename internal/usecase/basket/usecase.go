package basket

import (
	"context"
	"errors"
	"time"

	"github.com/LavaJover/shvark-lottery-service/internal/domain"
	"github.com/LavaJover/shvark-lottery-service/internal/infrastructure/metrics"
	basketdto "github.com/LavaJover/shvark-lottery-service/internal/usecase/dto/basket"
	"github.com/LavaJover/shvark-lottery-service/internal/usecase/leaderboard"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type BasketUsecase interface {
	FindActiveBasket(ctx context.Context, userID string) (*domain.Basket, error)
	GetBasket(ctx context.Context, userID string) (*domain.Basket, error)
	AddTickets(ctx context.Context, input *basketdto.AddTicketsInput) (*basketdto.AddTicketsOutput, error)
	RemoveTicket(ctx context.Context, input *basketdto.RemoveTicketInput) (*domain.Basket, error)
	Clear(ctx context.Context, userID string) error
	ExpireBaskets(ctx context.Context) (int, error)
	Pay(ctx context.Context, userID string) (*basketdto.PayOutput, error)
	ReconcilePayments(ctx context.Context) (int, error)
}

type Options struct {
	MaxTickets      int
	TTL             time.Duration
	PaymentTimeout  time.Duration
	MaxOrderRetries int
	PaymentMethod   string
	SweepBatch      int
}

type DefaultBasketUsecase struct {
	BasketRepo   domain.BasketRepository
	LotteryRepo  domain.LotteryRepository
	TicketRepo   domain.TicketRepository
	PurchaseRepo domain.PurchaseRepository
	Gateway      domain.PaymentGateway
	Tx           domain.Transactor
	Options      Options
	Metrics      *metrics.LotteryMetrics
	Logger       *zap.Logger
	// Leaderboard, when set, drops cached boards of lotteries that just sold.
	Leaderboard leaderboard.LeaderboardUsecase

	now     func() time.Time
	newID   func() string
	orderID func() string
}

func NewDefaultBasketUsecase(
	basketRepo domain.BasketRepository,
	lotteryRepo domain.LotteryRepository,
	ticketRepo domain.TicketRepository,
	purchaseRepo domain.PurchaseRepository,
	gateway domain.PaymentGateway,
	tx domain.Transactor,
	opts Options,
	m *metrics.LotteryMetrics,
	logger *zap.Logger,
) (*DefaultBasketUsecase, error) {
	if opts.MaxTickets <= 0 {
		opts.MaxTickets = 50
	}
	if opts.TTL <= 0 {
		opts.TTL = 15 * time.Minute
	}
	if opts.PaymentTimeout <= 0 {
		opts.PaymentTimeout = 30 * time.Second
	}
	if opts.MaxOrderRetries <= 0 {
		opts.MaxOrderRetries = 3
	}
	if opts.SweepBatch <= 0 {
		opts.SweepBatch = 500
	}
	orderID, err := newOrderIDGenerator()
	if err != nil {
		return nil, err
	}
	return &DefaultBasketUsecase{
		BasketRepo:   basketRepo,
		LotteryRepo:  lotteryRepo,
		TicketRepo:   ticketRepo,
		PurchaseRepo: purchaseRepo,
		Gateway:      gateway,
		Tx:           tx,
		Options:      opts,
		Metrics:      m,
		Logger:       logger,
		now:          time.Now,
		newID:        uuid.NewString,
		orderID:      orderID,
	}, nil
}

func (uc *DefaultBasketUsecase) FindActiveBasket(ctx context.Context, userID string) (*domain.Basket, error) {
	if userID == "" {
		return nil, domain.NewValidationError(errors.New("user id is required"))
	}
	return uc.BasketRepo.FindActiveBasket(ctx, userID, uc.now())
}

func (uc *DefaultBasketUsecase) GetBasket(ctx context.Context, userID string) (*domain.Basket, error) {
	b, err := uc.FindActiveBasket(ctx, userID)
	if err != nil {
		return nil, err
	}
	if b.Reservations == nil {
		if b.Reservations, err = uc.BasketRepo.ListReservations(ctx, b.ID); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// openBasket returns the user's active basket, creating one when there is
// none. Stale OPEN baskets of the user are expired first so the one open
// basket per user rule holds.
func (uc *DefaultBasketUsecase) openBasket(ctx context.Context, userID string) (*domain.Basket, error) {
	now := uc.now()
	b, err := uc.BasketRepo.FindActiveBasket(ctx, userID, now)
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, domain.ErrBasketNotFound) {
		return nil, err
	}

	stale, err := uc.BasketRepo.ListStaleBaskets(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	for _, s := range stale {
		if _, err := uc.expire(ctx, s, now); err != nil {
			return nil, err
		}
	}

	b = &domain.Basket{
		ID:            uc.newID(),
		UserID:        userID,
		StartDate:     now,
		EndDate:       now.Add(uc.Options.TTL),
		PaymentStatus: domain.PaymentStatusNone,
	}
	if err := uc.BasketRepo.CreateBasket(ctx, b); err != nil {
		if domain.IsConflict(err) {
			// a parallel request created it first, or a lapsed basket still
			// waits for its charge to settle
			active, findErr := uc.BasketRepo.FindActiveBasket(ctx, userID, now)
			if errors.Is(findErr, domain.ErrBasketNotFound) {
				return nil, domain.NewConflictError(domain.ErrPaymentProcessing)
			}
			return active, findErr
		}
		return nil, err
	}
	uc.Logger.Info("basket opened", zap.String("basket_id", b.ID), zap.String("user_id", userID))
	return b, nil
}

// lotteryFor loads a lottery; an unknown id is a caller error.
func (uc *DefaultBasketUsecase) lotteryFor(ctx context.Context, id int64) (*domain.Lottery, error) {
	l, err := uc.LotteryRepo.GetLotteryByID(ctx, id)
	if errors.Is(err, domain.ErrLotteryNotFound) {
		return nil, domain.NewValidationError(err)
	}
	return l, err
}
