package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/LavaJover/shvark-lottery-service/internal/domain"
	"gorm.io/gorm"
)

// Partition DDL templates. Only validated integer ids and known lottery type
// names are ever substituted.
const (
	ticketPartitionDDL     = "CREATE TABLE IF NOT EXISTS %s PARTITION OF tickets FOR VALUES IN (%d)"
	purchasePartitionDDL   = "CREATE TABLE IF NOT EXISTS %s PARTITION OF purchases FOR VALUES FROM (%d) TO (%d)"
	winnerPartitionDDL     = "CREATE TABLE IF NOT EXISTS %s PARTITION OF winners FOR VALUES FROM (%d) TO (%d)"
	drawTicketPartitionDDL = "CREATE TABLE IF NOT EXISTS %s PARTITION OF draw_tickets FOR VALUES IN ('%s')"
)

type PartitionManager struct {
	DB *gorm.DB
}

func NewPartitionManager(db *gorm.DB) *PartitionManager {
	return &PartitionManager{DB: db}
}

func TicketPartitionName(lotteryID int64) string {
	return fmt.Sprintf("tickets_p%d", lotteryID)
}

func DrawTicketPartitionName(t domain.LotteryType) string {
	return "draw_tickets_" + strings.ToLower(string(t))
}

// EnsureLotteryPartitions creates the ticket, purchase and winner partitions of one lottery.
func (m *PartitionManager) EnsureLotteryPartitions(ctx context.Context, lotteryID int64) error {
	if lotteryID <= 0 {
		return domain.NewValidationError(fmt.Errorf("invalid lottery id %d", lotteryID))
	}
	partitions := []struct {
		name string
		ddl  string
	}{
		{TicketPartitionName(lotteryID), fmt.Sprintf(ticketPartitionDDL, TicketPartitionName(lotteryID), lotteryID)},
		{fmt.Sprintf("purchases_p%d", lotteryID), fmt.Sprintf(purchasePartitionDDL, fmt.Sprintf("purchases_p%d", lotteryID), lotteryID, lotteryID+1)},
		{fmt.Sprintf("winners_p%d", lotteryID), fmt.Sprintf(winnerPartitionDDL, fmt.Sprintf("winners_p%d", lotteryID), lotteryID, lotteryID+1)},
	}
	for _, p := range partitions {
		if err := m.ensure(ctx, p.name, p.ddl); err != nil {
			return err
		}
	}
	return nil
}

func (m *PartitionManager) EnsureDrawTicketPartition(ctx context.Context, t domain.LotteryType) error {
	if !t.Valid() {
		return domain.NewValidationError(fmt.Errorf("unknown lottery type %q", t))
	}
	name := DrawTicketPartitionName(t)
	return m.ensure(ctx, name, fmt.Sprintf(drawTicketPartitionDDL, name, string(t)))
}

func (m *PartitionManager) ensure(ctx context.Context, name, ddl string) error {
	var exists bool
	if err := m.DB.WithContext(ctx).Raw("SELECT to_regclass(?) IS NOT NULL", name).Scan(&exists).Error; err != nil {
		return Classify("check partition "+name, err)
	}
	if exists {
		return nil
	}
	if err := m.DB.WithContext(ctx).Exec(ddl).Error; err != nil {
		// a concurrent setup created it first; catalog races surface as 23505
		if IsDuplicateTable(err) || IsUniqueViolation(err) {
			return nil
		}
		return Classify("create partition "+name, err)
	}
	return nil
}
