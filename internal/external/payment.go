package external

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	apperrors "luxtravel/internal/errors"
)

const gatewayService = "payment gateway"

// PaymentClient talks to the hosted payment gateway over HTTP.
type PaymentClient struct {
	baseURL    string
	teamSlug   string
	password   string
	httpClient *http.Client
}

type PaymentConfig struct {
	Mode       string
	BaseURL    string
	TeamSlug   string
	Password   string
	Timeout    time.Duration
	MaxRetries int
}

type PaymentInitRequest struct {
	TeamSlug    string `json:"teamSlug"`
	Token       string `json:"token"`
	Amount      int64  `json:"amount"`
	OrderID     string `json:"orderId"`
	Currency    string `json:"currency"`
	Description string `json:"description,omitempty"`
	Email       string `json:"email,omitempty"`
	Language    string `json:"language,omitempty"`
}

type PaymentInitResponse struct {
	Success   bool   `json:"success"`
	PaymentID string `json:"paymentId"`
	OrderID   string `json:"orderId"`
	Status    string `json:"status"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Message   string `json:"message,omitempty"`
}

type PaymentConfirmResponse struct {
	Success bool   `json:"success"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func NewPaymentClient(cfg PaymentConfig) *PaymentClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &PaymentClient{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		teamSlug: cfg.TeamSlug,
		password: cfg.Password,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// GenerateToken signs params: values sorted by key, concatenated with TeamSlug and Password, SHA-256.
func (pc *PaymentClient) GenerateToken(params map[string]string) string {
	signed := make(map[string]string, len(params)+2)
	for k, v := range params {
		signed[k] = v
	}
	signed["TeamSlug"] = pc.teamSlug
	signed["Password"] = pc.password

	keys := make([]string, 0, len(signed))
	for k := range signed {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, key := range keys {
		sb.WriteString(signed[key])
	}

	hash := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(hash[:])
}

// Charge initialises a payment for the order and confirms it in one pass.
func (pc *PaymentClient) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	initResp, err := pc.initPayment(ctx, req)
	if err != nil {
		return nil, err
	}
	if !initResp.Success {
		return &ChargeResult{PaymentID: initResp.PaymentID, Status: StatusRejected, Reason: initResp.Message}, nil
	}

	confirmResp, status, err := pc.confirmPayment(ctx, initResp.PaymentID, req.Amount)
	if err != nil {
		return nil, err
	}
	if status >= 400 || !confirmResp.Success {
		reason := confirmResp.Message
		if reason == "" {
			reason = "payment rejected by gateway"
		}
		return &ChargeResult{PaymentID: initResp.PaymentID, Status: StatusRejected, Reason: reason}, nil
	}

	return &ChargeResult{Approved: true, PaymentID: initResp.PaymentID, Status: StatusConfirmed}, nil
}

func (pc *PaymentClient) Refund(ctx context.Context, paymentID string, amount int64, reason string) error {
	body := map[string]any{
		"teamSlug":  pc.teamSlug,
		"token":     pc.GenerateToken(map[string]string{"PaymentId": paymentID}),
		"paymentId": paymentID,
		"amount":    amount,
		"reason":    reason,
	}

	resp, err := pc.post(ctx, "/api/v1/PaymentCancel/cancel", body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apperrors.Upstream(gatewayService, false, fmt.Errorf("refund returned status %d", resp.StatusCode))
	}
	return nil
}

func (pc *PaymentClient) initPayment(ctx context.Context, req ChargeRequest) (*PaymentInitResponse, error) {
	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}

	params := map[string]string{
		"Amount":   strconv.FormatInt(req.Amount, 10),
		"Currency": currency,
		"OrderId":  req.OrderID,
	}

	body := PaymentInitRequest{
		TeamSlug:    pc.teamSlug,
		Token:       pc.GenerateToken(params),
		Amount:      req.Amount,
		OrderID:     req.OrderID,
		Currency:    currency,
		Description: req.Description,
		Email:       req.Email,
		Language:    "en",
	}

	resp, err := pc.post(ctx, "/api/v1/PaymentInit/init", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, apperrors.Upstream(gatewayService, false, fmt.Errorf("init returned status %d", resp.StatusCode))
	}

	var result PaymentInitResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, apperrors.Upstream(gatewayService, false, fmt.Errorf("failed to decode init response: %w", err))
	}
	return &result, nil
}

func (pc *PaymentClient) confirmPayment(ctx context.Context, paymentID string, amount int64) (*PaymentConfirmResponse, int, error) {
	body := map[string]any{
		"teamSlug": pc.teamSlug,
		"token": pc.GenerateToken(map[string]string{
			"Amount":    strconv.FormatInt(amount, 10),
			"PaymentId": paymentID,
		}),
		"paymentId": paymentID,
		"amount":    amount,
	}

	resp, err := pc.post(ctx, "/api/v1/PaymentConfirm/confirm", body)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, resp.StatusCode, apperrors.Upstream(gatewayService, false, fmt.Errorf("confirm returned status %d", resp.StatusCode))
	}

	var result PaymentConfirmResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil && resp.StatusCode == http.StatusOK {
		return nil, resp.StatusCode, apperrors.Upstream(gatewayService, false, fmt.Errorf("failed to decode confirm response: %w", err))
	}
	return &result, resp.StatusCode, nil
}

func (pc *PaymentClient) post(ctx context.Context, path string, body any) (*http.Response, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, pc.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := pc.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.Upstream(gatewayService, isTimeout(err), err)
	}
	return resp, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// NewGateway builds the gateway selected by cfg.Mode, wrapped with retries.
func NewGateway(cfg PaymentConfig) (PaymentGateway, error) {
	var gw PaymentGateway
	switch cfg.Mode {
	case "", "simulated":
		gw = NewSimulatedGateway(0)
	case "http":
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("payment gateway url is required in http mode")
		}
		gw = NewPaymentClient(cfg)
	default:
		return nil, fmt.Errorf("unknown payment mode: %s", cfg.Mode)
	}
	return NewRetryingGateway(gw, cfg.MaxRetries, 200*time.Millisecond), nil
}
