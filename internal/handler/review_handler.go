package handler

import (
	"net/http"

	"locarto/internal/model"
	"locarto/internal/service"

	"github.com/labstack/echo/v4"
)

type reviewRequest struct {
	Stars   int      `json:"stars" validate:"required,gte=1,lte=5"`
	Title   string   `json:"title" validate:"max=200"`
	Content string   `json:"content" validate:"max=5000"`
	Images  []string `json:"review_images" validate:"max=5,dive,required,max=512"`
}

type replyRequest struct {
	Reply string `json:"reply" validate:"required,max=2000"`
}

// GetReviews is public: the product's reviews plus the rating summary
func (h *Handler) GetReviews(c echo.Context) error {
	productID, err := paramID(c, "productId")
	if err != nil {
		return respondError(c, err)
	}
	reviews, summary, err := h.reviews.GetReviews(c.Request().Context(), productID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"reviews": reviews,
		"summary": summary,
	})
}

func (h *Handler) AddReview(c echo.Context, consumer *model.Actor) error {
	productID, err := paramID(c, "productId")
	if err != nil {
		return respondError(c, err)
	}
	var req reviewRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	review, err := h.reviews.AddReview(c.Request().Context(), consumer, productID, service.ReviewInput{
		Stars:   req.Stars,
		Title:   req.Title,
		Content: req.Content,
		Images:  req.Images,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, review)
}

func (h *Handler) ReplyToReview(c echo.Context, vendor *model.Actor) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req replyRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	review, err := h.reviews.ReplyToReview(c.Request().Context(), vendor, id, req.Reply)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, review)
}

func (h *Handler) DeleteReply(c echo.Context, vendor *model.Actor) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	review, err := h.reviews.DeleteReply(c.Request().Context(), vendor, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, review)
}

// DeleteReview backs every review-deletion route; the service decides who may
func (h *Handler) DeleteReview(c echo.Context, actor *model.Actor) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	if err := h.reviews.DeleteReview(c.Request().Context(), actor, id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "review deleted"})
}
