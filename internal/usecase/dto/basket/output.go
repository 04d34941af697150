package basketdto

import "github.com/LavaJover/shvark-lottery-service/internal/domain"

type AddTicketsOutput struct {
	Basket   *domain.Basket
	Added    []*domain.Reservation
	Rejected []int64
}

type PayOutput struct {
	Basket      *domain.Basket
	Purchases   []*domain.PurchaseRecord
	OrderID     string
	GatewayTxID string
}
