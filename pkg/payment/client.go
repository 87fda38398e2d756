package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"locarto/pkg/config"
	"locarto/prometheus"
)

// ErrUpstream wraps every failure reported by, or while reaching, the gateway
var ErrUpstream = errors.New("payment gateway error")

// Order is the gateway-side order a checkout is opened against
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

type errorResponse struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// Client creates gateway orders and verifies callback signatures
type Client struct {
	BaseURL    string
	KeyID      string
	KeySecret  string
	HTTPClient *http.Client
}

func NewClient(cfg config.PaymentConfig) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		KeyID:      cfg.KeyID,
		KeySecret:  cfg.KeySecret,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// CreateOrder opens a gateway order for amount, given in minor units (paise, cents)
func (c *Client) CreateOrder(ctx context.Context, amount int64, currency, receipt string) (order *Order, err error) {
	defer func() { prometheus.RecordUpstream("payment", err) }()

	payload, err := json.Marshal(map[string]interface{}{
		"amount":   amount,
		"currency": currency,
		"receipt":  receipt,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/orders", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.KeyID, c.KeySecret)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrUpstream, err)
	}

	if resp.StatusCode != http.StatusOK {
		var errorResp errorResponse
		if err := json.Unmarshal(body, &errorResp); err != nil || errorResp.Error.Code == "" {
			return nil, fmt.Errorf("%w: create order: %d %s", ErrUpstream, resp.StatusCode, string(body))
		}
		return nil, fmt.Errorf("%w: create order: %s - %s", ErrUpstream, errorResp.Error.Code, errorResp.Error.Description)
	}

	order = &Order{}
	if err := json.Unmarshal(body, order); err != nil {
		return nil, fmt.Errorf("%w: decode order: %v", ErrUpstream, err)
	}
	return order, nil
}

// Sign computes the callback signature the gateway sends for a payment
func Sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a callback signature in constant time
func (c *Client) VerifySignature(orderID, paymentID, signature string) bool {
	if c.KeySecret == "" || signature == "" {
		return false
	}
	expected := Sign(c.KeySecret, orderID, paymentID)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}
