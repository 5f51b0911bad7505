package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/apparel-storefront/internal/metrics"
)

// Metrics records request count and latency labelled by route pattern,
// so /api/products/:slug stays one series.
func Metrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			metrics.RequestInFlight.Inc()
			defer metrics.RequestInFlight.Dec()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			status := strconv.Itoa(c.Response().Status)
			method := c.Request().Method
			metrics.RequestDuration.WithLabelValues(method, route, status).Observe(time.Since(start).Seconds())
			metrics.RequestTotal.WithLabelValues(method, route, status).Inc()
			return nil
		}
	}
}
