package external

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"movie-booking/pkg/utils"

	"go.uber.org/zap"
)

// PaymentClient talks to the payment provider. The provider reports final
// outcomes asynchronously through the webhook; this client only opens
// intents and requests refunds.
type PaymentClient struct {
	baseURL    string
	merchantID string
	secret     string
	webhookURL string
	httpClient *http.Client
	log        *zap.Logger
}

type PaymentIntentRequest struct {
	MerchantID      string  `json:"merchantId"`
	Token           string  `json:"token"`
	OrderID         string  `json:"orderId"`
	Amount          float64 `json:"amount"`
	Currency        string  `json:"currency"`
	NotificationURL string  `json:"notificationURL,omitempty"`
}

type PaymentIntentResponse struct {
	Success    bool   `json:"success"`
	PaymentID  string `json:"paymentId"`
	OrderID    string `json:"orderId"`
	PaymentURL string `json:"paymentURL"`
	ExpiresAt  string `json:"expiresAt"`
}

type RefundRequest struct {
	MerchantID string  `json:"merchantId"`
	Token      string  `json:"token"`
	OrderID    string  `json:"orderId"`
	Amount     float64 `json:"amount"`
}

type RefundResponse struct {
	Success  bool   `json:"success"`
	RefundID string `json:"refundId"`
}

func NewPaymentClient(cfg utils.PaymentConfig, log *zap.Logger) *PaymentClient {
	return &PaymentClient{
		baseURL:    cfg.BaseURL,
		merchantID: cfg.MerchantID,
		secret:     cfg.Secret,
		webhookURL: cfg.WebhookURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        log.With(zap.String("client", "payment")),
	}
}

// Enabled reports whether a provider is configured. Without one, bookings are
// still created; they simply wait for a webhook that arrives through other
// means (manual confirmation in dev setups).
func (pc *PaymentClient) Enabled() bool {
	return pc.baseURL != ""
}

// signToken builds the provider's request signature: parameter values are
// sorted by key, concatenated with the shared secret, and hashed.
func (pc *PaymentClient) signToken(params map[string]string) string {
	params["MerchantID"] = pc.merchantID
	params["Secret"] = pc.secret

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var tokenString string
	for _, key := range keys {
		tokenString += params[key]
	}

	hash := sha256.Sum256([]byte(tokenString))
	return hex.EncodeToString(hash[:])
}

// CreateIntent opens a payment intent for a freshly created booking.
func (pc *PaymentClient) CreateIntent(ctx context.Context, orderID string, amount float64) (*PaymentIntentResponse, error) {
	req := PaymentIntentRequest{
		MerchantID: pc.merchantID,
		Token: pc.signToken(map[string]string{
			"OrderID": orderID,
			"Amount":  fmt.Sprintf("%.2f", amount),
		}),
		OrderID:         orderID,
		Amount:          amount,
		Currency:        "IDR",
		NotificationURL: pc.webhookURL,
	}

	var resp PaymentIntentResponse
	if err := pc.post(ctx, "/api/v1/payments/init", req, &resp); err != nil {
		return nil, fmt.Errorf("create payment intent for order %s: %w", orderID, err)
	}

	if !resp.Success {
		return nil, fmt.Errorf("payment intent for order %s rejected by provider", orderID)
	}

	return &resp, nil
}

// Refund asks the provider to return the money for a canceled booking. Fired
// once; the caller does not roll back the cancellation when this fails.
func (pc *PaymentClient) Refund(ctx context.Context, orderID string, amount float64) (*RefundResponse, error) {
	req := RefundRequest{
		MerchantID: pc.merchantID,
		Token: pc.signToken(map[string]string{
			"OrderID": orderID,
			"Amount":  fmt.Sprintf("%.2f", amount),
		}),
		OrderID: orderID,
		Amount:  amount,
	}

	var resp RefundResponse
	if err := pc.post(ctx, "/api/v1/payments/refund", req, &resp); err != nil {
		return nil, fmt.Errorf("refund order %s: %w", orderID, err)
	}

	if !resp.Success {
		return nil, fmt.Errorf("refund for order %s rejected by provider", orderID)
	}

	return &resp, nil
}

func (pc *PaymentClient) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, pc.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := pc.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("call provider: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode >= 400 {
		return fmt.Errorf("provider returned status %d", httpResp.StatusCode)
	}

	if err := json.NewDecoder(httpResp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode provider response: %w", err)
	}

	return nil
}
