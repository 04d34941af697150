package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	ErrLotteryNotFound      = errors.New("lottery not found")
	ErrLotteryNotOnSale     = errors.New("lottery is not on sale")
	ErrAlreadyDrawn         = errors.New("lottery already drawn")
	ErrWinnersCountNotSet   = errors.New("winners count is not calculated yet")
	ErrBasketNotFound       = errors.New("no active basket")
	ErrBasketFull           = errors.New("basket is full")
	ErrBasketEmpty          = errors.New("basket is empty")
	ErrTicketNotInBasket    = errors.New("ticket is not in basket")
	ErrTicketUnavailable    = errors.New("ticket is already reserved or paid")
	ErrNoTicketsAvailable   = errors.New("no tickets available")
	ErrInvalidQuantity      = errors.New("quantity must be positive")
	ErrMixedCurrencies      = errors.New("basket holds tickets in different currencies")
	ErrPaymentDeclined      = errors.New("payment declined")
	ErrPaymentProcessing    = errors.New("payment is still processing")
	ErrPrizeConfigNotFound  = errors.New("prize configuration not found")
	ErrInvalidPrizeConfig   = errors.New("invalid prize configuration")
	ErrDuplicateOrder       = errors.New("duplicate payment order")
	ErrRandomnessMisbehaved = errors.New("randomness returned an invalid sample")
	ErrUnknownMessageType   = errors.New("unknown message type")
)

// ValidationError is bad input: never retried automatically.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return "validation: " + e.Err.Error() }
func (e *ValidationError) Unwrap() error { return e.Err }

// ConflictError means the expected prior state did not hold. Safe to retry
// after re-reading.
type ConflictError struct {
	Err error
}

func (e *ConflictError) Error() string { return "conflict: " + e.Err.Error() }
func (e *ConflictError) Unwrap() error { return e.Err }

// TransientError wraps infrastructure failures that are retried at the process level.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string { return fmt.Sprintf("transient: %s: %v", e.Op, e.Err) }
func (e *TransientError) Unwrap() error { return e.Err }

// PoisonMessageError marks a payload that can never be processed.
type PoisonMessageError struct {
	Err error
}

func (e *PoisonMessageError) Error() string { return "poison message: " + e.Err.Error() }
func (e *PoisonMessageError) Unwrap() error { return e.Err }

func NewValidationError(err error) error { return &ValidationError{Err: err} }
func NewConflictError(err error) error   { return &ConflictError{Err: err} }
func NewPoisonError(err error) error     { return &PoisonMessageError{Err: err} }

func NewTransientError(op string, err error) error {
	return &TransientError{Op: op, Err: err}
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsConflict(err error) bool {
	var c *ConflictError
	return errors.As(err, &c)
}

func IsPoison(err error) bool {
	var p *PoisonMessageError
	return errors.As(err, &p)
}

// IsRetryable reports whether err is worth another attempt without changing input.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var t *TransientError
	if errors.As(err, &t) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

// ErrorType is the short class name written to dead-letter headers and metrics.
func ErrorType(err error) string {
	switch {
	case err == nil:
		return ""
	case IsPoison(err):
		return "poison"
	case IsValidation(err):
		return "validation"
	case IsConflict(err):
		return "conflict"
	case IsRetryable(err):
		return "transient"
	default:
		return "internal"
	}
}
