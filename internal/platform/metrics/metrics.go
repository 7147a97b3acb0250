// Package metrics exposes Prometheus instrumentation for the server.
package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// WebhookDeliveries counts terminal delivery outcomes by event type.
	WebhookDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "providercard_webhook_deliveries_total",
		Help: "Webhook delivery attempts by event type and outcome.",
	}, []string{"event", "status"})

	// WebhookDeliveryDuration observes the wall time of delivery round trips.
	WebhookDeliveryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "providercard_webhook_delivery_duration_seconds",
		Help:    "Duration of webhook delivery round trips.",
		Buckets: prometheus.DefBuckets,
	})

	// WebhookRetries counts deliveries picked up by the retry worker.
	WebhookRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "providercard_webhook_retries_total",
		Help: "Failed deliveries re-attempted by the retry worker.",
	})

	// ValidationFailures counts mutation-path FHIR validation rejections.
	ValidationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "providercard_fhir_validation_failures_total",
		Help: "FHIR resources rejected by structural validation.",
	}, []string{"resource_type"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "providercard_http_request_duration_seconds",
		Help:    "HTTP request latency by method, route and status.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// Handler returns the /metrics scrape endpoint.
func Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}

// RequestMetrics records latency for every handled request.
func RequestMetrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}
			httpRequestDuration.
				WithLabelValues(c.Request().Method, route, strconv.Itoa(status)).
				Observe(time.Since(start).Seconds())
			return err
		}
	}
}
