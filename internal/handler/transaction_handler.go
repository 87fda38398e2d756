package handler

import (
	"net/http"

	"locarto/internal/model"
	"locarto/internal/service"
	"locarto/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type initiatePaymentRequest struct {
	OrderID uint `json:"order_id" validate:"required"`
}

// paymentCallbackRequest accepts the gateway's field names and plain ones
type paymentCallbackRequest struct {
	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	RazorpaySignature string `json:"razorpay_signature"`
	OrderID           string `json:"gateway_order_id"`
	PaymentID         string `json:"gateway_payment_id"`
	Signature         string `json:"signature"`
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func (r paymentCallbackRequest) confirmation() service.PaymentConfirmation {
	return service.PaymentConfirmation{
		GatewayOrderID:   firstNonEmpty(r.RazorpayOrderID, r.OrderID),
		GatewayPaymentID: firstNonEmpty(r.RazorpayPaymentID, r.PaymentID),
		Signature:        firstNonEmpty(r.RazorpaySignature, r.Signature),
	}
}

// InitiatePayment opens (or reopens) the gateway order for a consumer's order
func (h *Handler) InitiatePayment(c echo.Context, consumer *model.Actor) error {
	var req initiatePaymentRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	checkout, err := h.ledger.InitiatePayment(c.Request().Context(), consumer, req.OrderID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, checkout)
}

func (h *Handler) ListTransactions(c echo.Context, actor *model.Actor) error {
	txns, err := h.ledger.ListTransactions(c.Request().Context(), actor)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, txns)
}

// PaymentCallback is unauthenticated; the gateway signature is the credential
func (h *Handler) PaymentCallback(c echo.Context) error {
	var req paymentCallbackRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	in := req.confirmation()
	if in.GatewayOrderID == "" || in.GatewayPaymentID == "" || in.Signature == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "order id, payment id and signature are required"})
	}

	txn, err := h.ledger.ConfirmPayment(c.Request().Context(), in)
	if err != nil {
		return respondError(c, err)
	}
	logger.FromContext(c).Info("Payment callback accepted",
		zap.Uint("transaction_id", txn.ID),
		zap.String("gateway_order_id", in.GatewayOrderID))
	return c.JSON(http.StatusOK, txn)
}
