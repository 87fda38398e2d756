package logger

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const RequestIDKey = "X-Request-ID"

const loggerKey = "logger"

// FromContext retrieves the logger from echo.Context with the request ID
func FromContext(c echo.Context) *zap.Logger {
	if logger, ok := c.Get(loggerKey).(*zap.Logger); ok {
		return logger
	}

	requestID, ok := c.Get(RequestIDKey).(string)
	if !ok {
		requestID = c.Request().Header.Get(RequestIDKey)
		if requestID == "" {
			requestID = "unknown"
		}
	}

	return GetLogger().With(zap.String("request_id", requestID))
}

// WithFields stores a logger enriched with fields for the rest of the request
func WithFields(c echo.Context, fields ...zap.Field) *zap.Logger {
	l := FromContext(c).With(fields...)
	c.Set(loggerKey, l)
	return l
}

// Into stores the given logger on the request
func Into(c echo.Context, l *zap.Logger) {
	c.Set(loggerKey, l)
}
