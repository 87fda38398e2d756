package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"locarto/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "rzp_test_key", user)
		assert.Equal(t, "secret", pass)
		assert.Equal(t, "/v1/orders", r.URL.Path)

		var body map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.EqualValues(t, 2599, body["amount"])
		assert.Equal(t, "INR", body["currency"])

		w.Write([]byte(`{"id":"order_abc","amount":2599,"currency":"INR","receipt":"r-1","status":"created"}`))
	}))
	defer srv.Close()

	c := NewClient(config.PaymentConfig{BaseURL: srv.URL, KeyID: "rzp_test_key", KeySecret: "secret"})
	order, err := c.CreateOrder(context.Background(), 2599, "INR", "r-1")
	require.NoError(t, err)
	assert.Equal(t, "order_abc", order.ID)
	assert.Equal(t, int64(2599), order.Amount)
}

func TestCreateOrderGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"amount too small"}}`))
	}))
	defer srv.Close()

	c := NewClient(config.PaymentConfig{BaseURL: srv.URL, KeyID: "k", KeySecret: "s"})
	_, err := c.CreateOrder(context.Background(), 1, "INR", "r-1")
	require.ErrorIs(t, err, ErrUpstream)
	assert.Contains(t, err.Error(), "amount too small")
}

func TestVerifySignature(t *testing.T) {
	c := NewClient(config.PaymentConfig{KeySecret: "secret"})
	sig := Sign("secret", "order_abc", "pay_123")

	assert.True(t, c.VerifySignature("order_abc", "pay_123", sig))
	assert.False(t, c.VerifySignature("order_abc", "pay_456", sig))
	assert.False(t, c.VerifySignature("order_abc", "pay_123", Sign("other", "order_abc", "pay_123")))
	assert.False(t, c.VerifySignature("order_abc", "pay_123", ""))

	unconfigured := NewClient(config.PaymentConfig{})
	assert.False(t, unconfigured.VerifySignature("order_abc", "pay_123", Sign("", "order_abc", "pay_123")))
}
