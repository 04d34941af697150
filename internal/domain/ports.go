package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

type ChargeRequest struct {
	IdempotencyKey string
	OrderID        string
	Amount         decimal.Decimal
	Currency       string
	Method         string
	Metadata       map[string]string
}

type ChargeResult struct {
	Success     bool
	GatewayTxID string
	ErrorCode   string
	Details     map[string]string
}

type ChargeStatus string

const (
	ChargeStatusProcessing ChargeStatus = "processing"
	ChargeStatusSuccess    ChargeStatus = "success"
	ChargeStatusError      ChargeStatus = "error"
	ChargeStatusCancelled  ChargeStatus = "cancelled"
)

// Gateway error code reported when the order id was already used.
const ChargeErrorDuplicateOrder = "DUPLICATE_ORDER"

type PaymentGateway interface {
	CreateCharge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
	GetStatus(ctx context.Context, gatewayTxID string) (ChargeStatus, error)
}

// Randomizer returns k distinct elements of candidates, sampled uniformly
// without replacement.
type Randomizer interface {
	Draw(ctx context.Context, candidates []string, k int) ([]string, error)
}

// Transactor runs fn in one database transaction. Repositories called with the
// ctx passed to fn join that transaction.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
