package shipping

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"locarto/pkg/config"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.ShippingConfig{
		BaseURL:       srv.URL,
		Token:         "carrier-token",
		RatePerMinute: 600,
		PickupName:    "locarto-warehouse",
	})
}

func TestCheckServiceability(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Token carrier-token", r.Header.Get("Authorization"))
		assert.Equal(t, "/c/api/pin-codes/json/", r.URL.Path)
		if r.URL.Query().Get("filter_codes") == "560001" {
			w.Write([]byte(`{"delivery_codes":[{"postal_code":{"pin":560001}}]}`))
			return
		}
		w.Write([]byte(`{"delivery_codes":[]}`))
	})

	ok, err := c.CheckServiceability(context.Background(), "560001")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.CheckServiceability(context.Background(), "999999")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCreateShipmentSendsPickupAndPrepaid(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var body struct {
			Shipments      []Shipment        `json:"shipments"`
			PickupLocation map[string]string `json:"pickup_location"`
		}
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&body)) || !assert.Len(t, body.Shipments, 1) {
			http.Error(w, "bad body", http.StatusBadRequest)
			return
		}
		assert.Equal(t, "WB1", body.Shipments[0].Waybill)
		assert.Equal(t, "Prepaid", body.Shipments[0].PaymentMode)
		assert.True(t, decimal.RequireFromString("25.99").Equal(body.Shipments[0].Amount))
		assert.Equal(t, "locarto-warehouse", body.PickupLocation["name"])
		w.Write([]byte(`{"success":true}`))
	})

	err := c.CreateShipment(context.Background(), Shipment{
		Waybill: "WB1", OrderRef: "1", Pincode: "560001", Quantity: 1,
		Amount: decimal.RequireFromString("25.99"),
	})
	require.NoError(t, err)
}

func TestRejectedShipmentIsUpstreamError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"rmk":"pincode not serviceable"}`))
	})

	err := c.CreateShipment(context.Background(), Shipment{Waybill: "WB1"})
	require.ErrorIs(t, err, ErrUpstream)
	assert.Contains(t, err.Error(), "pincode not serviceable")
}

func TestNon2xxIsUpstreamError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})

	_, err := c.Track(context.Background(), "WB1")
	require.ErrorIs(t, err, ErrUpstream)
	assert.Contains(t, err.Error(), "502")
}

func TestAllocateWaybillAndLabel(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/waybill/api/fetch/json/":
			w.Write([]byte(`"1234567890"`))
		case "/api/p/packing_slip":
			assert.Equal(t, "1234567890", r.URL.Query().Get("wbns"))
			w.Write([]byte(`{"packages":[{"wbn":"1234567890","pdf_download_link":"https://labels.example/1.pdf"}]}`))
		default:
			http.NotFound(w, r)
		}
	})

	wb, err := c.AllocateWaybill(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1234567890", wb)

	label, err := c.Label(context.Background(), wb)
	require.NoError(t, err)
	assert.Equal(t, "https://labels.example/1.pdf", label.PDFURL)
}

func TestCallsAreThrottled(t *testing.T) {
	var hits int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Write([]byte(`{"status":true}`))
	})
	c.limiter = rate.NewLimiter(rate.Every(time.Hour), 1)

	require.NoError(t, c.CancelShipment(context.Background(), "WB1"))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := c.CancelShipment(ctx, "WB1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limiter")
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}
