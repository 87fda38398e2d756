package handler

import (
	"context"
	"net/http"
	"time"

	"locarto/internal/middleware"
	"locarto/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Pinger reports whether the database is reachable; *sql.DB satisfies it
type Pinger interface {
	PingContext(ctx context.Context) error
}

func (h *Handler) Health(c echo.Context) error {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			logger.FromContext(c).Error("Health check failed", zap.Error(err))
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// CSRFToken hands the SPA the token it must send back in X-CSRF-Token
func (h *Handler) CSRFToken(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"csrf_token": middleware.CSRFToken(c)})
}
