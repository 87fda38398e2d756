package handler

import (
	"net/http"
	"strings"
	"time"

	"locarto/internal/model"
	"locarto/internal/service"

	"github.com/labstack/echo/v4"
)

const dateLayout = "2006-01-02"

type placeOrderRequest struct {
	ProductID       uint   `json:"product_id" validate:"required"`
	DeliveryDate    string `json:"delivery_date" validate:"required"`
	ShippingAddress string `json:"shipping_address" validate:"max=500"`
	Pincode         string `json:"pincode" validate:"omitempty,numeric,len=6"`
}

type orderStatusRequest struct {
	OrderStatus string `json:"order_status" validate:"required,oneof=pending shipped delivered cancelled"`
}

type supportStatusRequest struct {
	SupportStatus string `json:"support_status" validate:"required,oneof=open in_progress closed"`
}

// parseDeliveryDate accepts a calendar date or a full RFC 3339 timestamp
func parseDeliveryDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if d, err := time.ParseInLocation(dateLayout, raw, time.Local); err == nil {
		return d, true
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts, true
	}
	return time.Time{}, false
}

func (h *Handler) PlaceOrder(c echo.Context, consumer *model.Actor) error {
	var req placeOrderRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	deliveryDate, ok := parseDeliveryDate(req.DeliveryDate)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "delivery_date must be YYYY-MM-DD or RFC 3339"})
	}

	placed, err := h.orders.PlaceOrder(c.Request().Context(), consumer, service.PlaceOrderInput{
		ProductID:       req.ProductID,
		DeliveryDate:    deliveryDate,
		ShippingAddress: req.ShippingAddress,
		Pincode:         req.Pincode,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, placed)
}

// ListOrders applies role scoping; the name and range filters come from the query string
func (h *Handler) ListOrders(c echo.Context, actor *model.Actor) error {
	orders, err := h.orders.ListOrders(c.Request().Context(), actor, service.OrderFilter{
		ProductName:  c.QueryParam("product"),
		VendorName:   c.QueryParam("vendor"),
		ConsumerName: c.QueryParam("consumer"),
		Range:        c.QueryParam("range"),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, orders)
}

func (h *Handler) GetOrder(c echo.Context, actor *model.Actor) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	order, err := h.orders.GetOrder(c.Request().Context(), actor, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, order)
}

func (h *Handler) UpdateOrderStatus(c echo.Context, vendor *model.Actor) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req orderStatusRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	order, err := h.orders.UpdateOrderStatus(c.Request().Context(), vendor, id, model.OrderStatus(req.OrderStatus))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, order)
}

func (h *Handler) CancelOrder(c echo.Context, actor *model.Actor) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	order, err := h.orders.CancelOrder(c.Request().Context(), actor, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, order)
}

func (h *Handler) UpdateSupportStatus(c echo.Context, actor *model.Actor) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req supportStatusRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	order, err := h.orders.UpdateSupportStatus(c.Request().Context(), actor, id, model.SupportStatus(req.SupportStatus))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, order)
}
