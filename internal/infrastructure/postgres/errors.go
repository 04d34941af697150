package postgres

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"github.com/LavaJover/shvark-lottery-service/internal/domain"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	codeUniqueViolation    = "23505"
	codeDuplicateTable     = "42P07"
	codeSerialization      = "40001"
	codeDeadlockDetected   = "40P01"
	classConnection        = "08"
	classInsufficientRes   = "53"
	classOperatorIntervene = "57"
)

// Classify maps driver errors onto the domain error families.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == codeUniqueViolation:
			return domain.NewConflictError(fmt.Errorf("%s: %w", op, err))
		case pgErr.Code == codeSerialization,
			pgErr.Code == codeDeadlockDetected,
			strings.HasPrefix(pgErr.Code, classConnection),
			strings.HasPrefix(pgErr.Code, classInsufficientRes),
			strings.HasPrefix(pgErr.Code, classOperatorIntervene):
			return domain.NewTransientError(op, err)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	if pgconn.Timeout(err) || pgconn.SafeToRetry(err) ||
		errors.Is(err, context.DeadlineExceeded) || errors.Is(err, driver.ErrBadConn) {
		return domain.NewTransientError(op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func IsDuplicateTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeDuplicateTable
}

func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation
}
