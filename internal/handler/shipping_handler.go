package handler

import (
	"net/http"
	"strconv"

	"locarto/internal/model"

	"github.com/labstack/echo/v4"
)

type uploadRequest struct {
	Filename    string `json:"filename" validate:"required,max=255"`
	ContentType string `json:"content_type" validate:"required"`
}

func (h *Handler) Serviceability(c echo.Context, _ *model.Actor) error {
	pincode := c.QueryParam("pincode")
	if pincode == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "pincode is required"})
	}
	ok, err := h.orders.CheckServiceability(c.Request().Context(), pincode)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"pincode": pincode, "serviceable": ok})
}

// ShipOrder books the shipment and moves the order to shipped
func (h *Handler) ShipOrder(c echo.Context, vendor *model.Actor) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	order, err := h.orders.ShipOrder(c.Request().Context(), vendor, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, order)
}

func (h *Handler) Track(c echo.Context, actor *model.Actor) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	info, err := h.orders.Track(c.Request().Context(), actor, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, info)
}

func (h *Handler) Label(c echo.Context, vendor *model.Actor) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	label, err := h.orders.Label(c.Request().Context(), vendor, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, label)
}

// UploadURL issues a pre-signed PUT URL scoped under the caller's role and id
func (h *Handler) UploadURL(c echo.Context, actor *model.Actor) error {
	if h.uploads == nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "uploads are not configured"})
	}
	var req uploadRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	prefix := string(actor.Role) + "/" + strconv.FormatUint(uint64(actor.ID), 10)
	upload, err := h.uploads.PresignUpload(c.Request().Context(), prefix, req.Filename, req.ContentType)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, upload)
}
