package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/LavaJover/shvark-lottery-service/internal/domain"
	"github.com/LavaJover/shvark-lottery-service/internal/infrastructure/payment/request"
	"github.com/LavaJover/shvark-lottery-service/internal/infrastructure/payment/response"
)

// HTTPPaymentGateway talks JSON to the payment provider.
type HTTPPaymentGateway struct {
	Address string
	client  *http.Client
}

func NewHTTPPaymentGateway(address string, timeout time.Duration) *HTTPPaymentGateway {
	return &HTTPPaymentGateway{
		Address: address,
		client:  &http.Client{Timeout: timeout},
	}
}

func (g *HTTPPaymentGateway) CreateCharge(ctx context.Context, req domain.ChargeRequest) (*domain.ChargeResult, error) {
	requestBodyBytes, err := json.Marshal(request.ChargeRequest{
		IdempotencyKey: req.IdempotencyKey,
		OrderID:        req.OrderID,
		Amount:         req.Amount.StringFixed(2),
		Currency:       req.Currency,
		Method:         req.Method,
		Metadata:       req.Metadata,
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/charges", g.Address), bytes.NewReader(requestBodyBytes))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Idempotency-Key", req.IdempotencyKey)

	status, body, err := g.do(httpReq)
	if err != nil {
		return nil, err
	}

	if status >= 200 && status < 300 {
		var chargeResponse response.ChargeResponse
		if err := json.Unmarshal(body, &chargeResponse); err != nil {
			return nil, fmt.Errorf("decode charge response: %w", err)
		}
		return &domain.ChargeResult{
			Success:     chargeResponse.Success,
			GatewayTxID: chargeResponse.GatewayTxID,
			ErrorCode:   chargeResponse.ErrorCode,
			Details:     chargeResponse.Details,
		}, nil
	}
	if status >= 500 {
		return nil, domain.NewTransientError("create charge", fmt.Errorf("gateway returned %d", status))
	}

	// 4xx is a business refusal reported in the error body
	var errorResponse response.ErrorResponse
	if err := json.Unmarshal(body, &errorResponse); err != nil {
		return nil, fmt.Errorf("decode charge error (status %d): %w", status, err)
	}
	code := errorResponse.ErrorCode
	if code == "" {
		code = errorResponse.Error
	}
	return &domain.ChargeResult{Success: false, ErrorCode: code}, nil
}

func (g *HTTPPaymentGateway) GetStatus(ctx context.Context, gatewayTxID string) (domain.ChargeStatus, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/charges/%s", g.Address, url.PathEscape(gatewayTxID)), nil)
	if err != nil {
		return "", err
	}

	status, body, err := g.do(httpReq)
	if err != nil {
		return "", err
	}
	if status >= 500 {
		return "", domain.NewTransientError("charge status", fmt.Errorf("gateway returned %d", status))
	}
	if status < 200 || status >= 300 {
		var errorResponse response.ErrorResponse
		if err := json.Unmarshal(body, &errorResponse); err != nil {
			return "", fmt.Errorf("decode status error (status %d): %w", status, err)
		}
		return "", fmt.Errorf("charge status %s: %s", gatewayTxID, errorResponse.Error)
	}

	var statusResponse response.StatusResponse
	if err := json.Unmarshal(body, &statusResponse); err != nil {
		return "", fmt.Errorf("decode status response: %w", err)
	}
	switch s := domain.ChargeStatus(statusResponse.Status); s {
	case domain.ChargeStatusProcessing, domain.ChargeStatusSuccess, domain.ChargeStatusError, domain.ChargeStatusCancelled:
		return s, nil
	default:
		return "", fmt.Errorf("unknown charge status %q", statusResponse.Status)
	}
}

// do sends req; transport failures and timeouts come back as transient errors.
func (g *HTTPPaymentGateway) do(req *http.Request) (int, []byte, error) {
	resp, err := g.client.Do(req)
	if err != nil {
		return 0, nil, domain.NewTransientError(req.Method+" "+req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, domain.NewTransientError("read gateway response", err)
	}
	return resp.StatusCode, body, nil
}
