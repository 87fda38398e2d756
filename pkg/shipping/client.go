// Package shipping talks to the shipping carrier. Every call is throttled so
// a burst of ship requests cannot exceed the carrier's per-minute quota.
package shipping

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"locarto/pkg/config"
	"locarto/prometheus"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

// ErrUpstream wraps every failure reported by, or while reaching, the carrier
var ErrUpstream = errors.New("shipping carrier error")

// Shipment is one parcel handed to the carrier
type Shipment struct {
	Waybill     string          `json:"waybill"`
	OrderRef    string          `json:"order"`
	Consignee   string          `json:"name"`
	Address     string          `json:"add"`
	Pincode     string          `json:"pin"`
	Phone       string          `json:"phone,omitempty"`
	ProductDesc string          `json:"products_desc"`
	Quantity    int             `json:"quantity"`
	Amount      decimal.Decimal `json:"total_amount"`
	PaymentMode string          `json:"payment_mode"`
}

// TrackingInfo is the carrier's current view of a shipment
type TrackingInfo struct {
	Waybill  string      `json:"waybill"`
	Status   string      `json:"status"`
	Location string      `json:"location,omitempty"`
	Updated  time.Time   `json:"updated_at"`
	Scans    []ScanEvent `json:"scans"`
}

type ScanEvent struct {
	Status   string    `json:"status"`
	Location string    `json:"location"`
	Time     time.Time `json:"time"`
}

// Label is a printable packing slip
type Label struct {
	Waybill string `json:"waybill"`
	PDFURL  string `json:"pdf_url"`
}

// Client is a token-authenticated JSON client for the carrier API
type Client struct {
	BaseURL    string
	Token      string
	PickupName string
	HTTPClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a carrier client allowing ratePerMinute calls, with bursts of the same size
func NewClient(cfg config.ShippingConfig) *Client {
	perMinute := cfg.RatePerMinute
	if perMinute <= 0 {
		perMinute = 60
	}
	return &Client{
		BaseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		Token:      cfg.Token,
		PickupName: cfg.PickupName,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute),
	}
}

// CheckServiceability reports whether the carrier delivers to pincode
func (c *Client) CheckServiceability(ctx context.Context, pincode string) (bool, error) {
	var resp struct {
		DeliveryCodes []struct {
			PostalCode struct {
				Pin json.Number `json:"pin"`
			} `json:"postal_code"`
		} `json:"delivery_codes"`
	}
	q := url.Values{"filter_codes": {pincode}}
	if err := c.do(ctx, http.MethodGet, "/c/api/pin-codes/json/?"+q.Encode(), nil, &resp); err != nil {
		return false, err
	}
	return len(resp.DeliveryCodes) > 0, nil
}

// AllocateWaybill reserves a fresh tracking number
func (c *Client) AllocateWaybill(ctx context.Context) (string, error) {
	var waybill string
	if err := c.do(ctx, http.MethodGet, "/waybill/api/fetch/json/?count=1", nil, &waybill); err != nil {
		return "", err
	}
	if waybill == "" {
		return "", fmt.Errorf("%w: empty waybill", ErrUpstream)
	}
	return waybill, nil
}

// CreateShipment registers the parcel for pickup
func (c *Client) CreateShipment(ctx context.Context, s Shipment) error {
	if s.PaymentMode == "" {
		s.PaymentMode = "Prepaid"
	}
	body := map[string]interface{}{
		"shipments":       []Shipment{s},
		"pickup_location": map[string]string{"name": c.PickupName},
	}
	var resp struct {
		Success bool   `json:"success"`
		Remarks string `json:"rmk"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/cmu/create.json", body, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("%w: shipment rejected: %s", ErrUpstream, resp.Remarks)
	}
	return nil
}

func (c *Client) CancelShipment(ctx context.Context, waybill string) error {
	body := map[string]string{"waybill": waybill, "cancellation": "true"}
	var resp struct {
		Status bool `json:"status"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/p/edit", body, &resp); err != nil {
		return err
	}
	if !resp.Status {
		return fmt.Errorf("%w: cancellation refused for %s", ErrUpstream, waybill)
	}
	return nil
}

func (c *Client) Track(ctx context.Context, waybill string) (*TrackingInfo, error) {
	var info TrackingInfo
	q := url.Values{"waybill": {waybill}}
	if err := c.do(ctx, http.MethodGet, "/api/v1/packages/json/?"+q.Encode(), nil, &info); err != nil {
		return nil, err
	}
	if info.Waybill == "" {
		info.Waybill = waybill
	}
	return &info, nil
}

func (c *Client) Label(ctx context.Context, waybill string) (*Label, error) {
	var resp struct {
		Packages []struct {
			Waybill string `json:"wbn"`
			PDF     string `json:"pdf_download_link"`
		} `json:"packages"`
	}
	q := url.Values{"wbns": {waybill}, "pdf": {"true"}}
	if err := c.do(ctx, http.MethodGet, "/api/p/packing_slip?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.Packages) == 0 {
		return nil, fmt.Errorf("%w: no label for %s", ErrUpstream, waybill)
	}
	return &Label{Waybill: resp.Packages[0].Waybill, PDFURL: resp.Packages[0].PDF}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) (err error) {
	defer func() { prometheus.RecordUpstream("shipping", err) }()

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter error: %w", err)
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Token "+c.Token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrUpstream, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s %s returned %d: %s", ErrUpstream, method, path, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrUpstream, err)
	}
	return nil
}
