package request

type ChargeRequest struct {
	IdempotencyKey string            `json:"idempotency_key"`
	OrderID        string            `json:"order_id"`
	Amount         string            `json:"amount"`
	Currency       string            `json:"currency"`
	Method         string            `json:"method"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}
