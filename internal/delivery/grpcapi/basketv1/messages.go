// Package basketv1 holds the wire contract of lottery.v1.BasketService.
// Messages travel as JSON through the codec registered in this package.
package basketv1

import "time"

type AddTicketsRequest struct {
	LotteryID int64   `json:"lottery_id"`
	TicketIDs []int64 `json:"ticket_ids,omitempty"`
	Quantity  int     `json:"quantity,omitempty"`
}

type AddTicketsResponse struct {
	Basket   *Basket       `json:"basket"`
	Added    []Reservation `json:"added"`
	Rejected []int64       `json:"rejected,omitempty"`
}

type RemoveTicketRequest struct {
	LotteryID int64 `json:"lottery_id"`
	TicketID  int64 `json:"ticket_id"`
}

type ClearBasketRequest struct{}

type ClearBasketResponse struct {
	Message string `json:"message"`
}

type PayRequest struct{}

type PayResponse struct {
	OrderID     string     `json:"order_id"`
	GatewayTxID string     `json:"gateway_tx_id"`
	Basket      *Basket    `json:"basket"`
	Purchases   []Purchase `json:"purchases"`
}

type GetBasketRequest struct{}

type BasketResponse struct {
	Basket *Basket `json:"basket"`
}

type Basket struct {
	ID            string        `json:"id"`
	UserID        string        `json:"user_id"`
	StartDate     time.Time     `json:"start_date"`
	EndDate       time.Time     `json:"end_date"`
	CancelReason  string        `json:"cancel_reason,omitempty"`
	PaymentStatus string        `json:"payment_status"`
	Tickets       []Reservation `json:"tickets"`
}

type Reservation struct {
	LotteryID    int64  `json:"lottery_id"`
	TicketID     int64  `json:"ticket_id"`
	TicketNumber string `json:"ticket_number"`
}

type Purchase struct {
	ID           int64  `json:"id"`
	LotteryID    int64  `json:"lottery_id"`
	TicketNumber string `json:"ticket_number"`
	Price        string `json:"price"`
	Currency     string `json:"currency"`
}
