package domain

import (
	"context"
	"fmt"
	"strings"
)

type Ticket struct {
	LotteryID    int64
	SequenceID   int64
	TicketNumber string
	IsReserved   bool
	IsPaid       bool
}

// FormatTicketNumber builds a globally unique number from the country, the
// zero-padded sequence and the lottery id, so no global counter is needed.
func FormatTicketNumber(country string, sequenceID, lotteryID int64) string {
	return fmt.Sprintf("%s%08d%d", strings.ToUpper(country), sequenceID, lotteryID)
}

type TicketRepository interface {
	// CountTickets returns how many tickets exist and how many of them are paid.
	CountTickets(ctx context.Context, lotteryID int64) (generated, sold int64, err error)
	MaxSequence(ctx context.Context, lotteryID int64) (int64, error)
	// InsertTickets skips tickets whose sequence already exists.
	InsertTickets(ctx context.Context, tickets []*Ticket) error
	GetTickets(ctx context.Context, lotteryID int64, sequenceIDs []int64) ([]*Ticket, error)
	RandomAvailable(ctx context.Context, lotteryID int64, limit int) ([]*Ticket, error)
	// Reserve, Release and MarkPaid are conditional updates; false means the
	// ticket was not in the expected state.
	Reserve(ctx context.Context, lotteryID, sequenceID int64) (bool, error)
	Release(ctx context.Context, lotteryID, sequenceID int64) (bool, error)
	MarkPaid(ctx context.Context, lotteryID, sequenceID int64) (bool, error)
}

// PartitionManager creates storage shards on demand. Every call is idempotent.
type PartitionManager interface {
	EnsureLotteryPartitions(ctx context.Context, lotteryID int64) error
	EnsureDrawTicketPartition(ctx context.Context, t LotteryType) error
}
