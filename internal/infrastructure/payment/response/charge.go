package response

type ChargeResponse struct {
	Success     bool              `json:"success"`
	GatewayTxID string            `json:"gateway_tx_id"`
	ErrorCode   string            `json:"error_code"`
	Details     map[string]string `json:"details"`
}

type StatusResponse struct {
	GatewayTxID string `json:"gateway_tx_id"`
	Status      string `json:"status"`
}

type ErrorResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	ErrorCode string `json:"error_code"`
}
