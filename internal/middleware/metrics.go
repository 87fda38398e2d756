package middleware

import (
	"strconv"
	"time"

	"locarto/prometheus"

	"github.com/labstack/echo/v4"
)

// MetricsMiddleware records request count and latency per route template
func MetricsMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()

		err := next(c)

		status := c.Response().Status
		if he, ok := err.(*echo.HTTPError); ok {
			status = he.Code
		}

		labels := []string{c.Path(), c.Request().Method, strconv.Itoa(status)}
		prometheus.HTTPRequestCounter.WithLabelValues(labels...).Inc()
		prometheus.RequestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
		prometheus.RecordStatusCategory(status, c.Request().Method, c.Path())

		return err
	}
}
