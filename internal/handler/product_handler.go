package handler

import (
	"net/http"
	"strconv"

	"locarto/internal/model"
	"locarto/internal/service"
	"locarto/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// productRequest is the body for product creation and update
type productRequest struct {
	Name        string          `json:"name" validate:"required,max=255"`
	Description string          `json:"description" validate:"max=5000"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity" validate:"gte=0"`
	Category    string          `json:"category" validate:"max=100"`
	Images      []string        `json:"images" validate:"max=10,dive,required,max=512"`
}

func (r productRequest) input() service.ProductInput {
	return service.ProductInput{
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price,
		Quantity:    r.Quantity,
		Category:    r.Category,
		Images:      r.Images,
	}
}

// ListPublicProducts serves the cached catalog, optionally by vendor_id or category
func (h *Handler) ListPublicProducts(c echo.Context) error {
	var filter service.ProductFilter
	if raw := c.QueryParam("vendor_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid vendor_id"})
		}
		vendorID := uint(id)
		filter.VendorID = &vendorID
	}
	filter.Category = c.QueryParam("category")

	products, err := h.catalog.PublicProducts(c.Request().Context(), filter)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, products)
}

func (h *Handler) GetPublicProduct(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	product, err := h.catalog.GetProduct(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, product)
}

// ListVendorProducts lists the calling vendor's products straight from the database
func (h *Handler) ListVendorProducts(c echo.Context, vendor *model.Actor) error {
	products, err := h.catalog.ListProducts(c.Request().Context(), service.ProductFilter{VendorID: &vendor.ID})
	if err != nil {
		return respondError(c, err)
	}
	logger.FromContext(c).Info("Vendor products listed", zap.Int("count", len(products)))
	return c.JSON(http.StatusOK, products)
}

func (h *Handler) CreateProduct(c echo.Context, vendor *model.Actor) error {
	var req productRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	product, err := h.catalog.CreateProduct(c.Request().Context(), vendor, req.input())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, product)
}

func (h *Handler) UpdateProduct(c echo.Context, vendor *model.Actor) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req productRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	product, err := h.catalog.UpdateProduct(c.Request().Context(), vendor, id, req.input())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, product)
}

// DeleteProduct serves both the owning vendor and admins
func (h *Handler) DeleteProduct(c echo.Context, actor *model.Actor) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	if err := h.catalog.DeleteProduct(c.Request().Context(), actor, id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "product deleted"})
}
