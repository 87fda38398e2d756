package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP metrics
var (
	HTTPRequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "locarto_http_requests_total",
			Help: "Total number of HTTP requests by endpoint and status",
		},
		[]string{"endpoint", "method", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "locarto_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	StatusCategoryCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "locarto_http_status_category_total",
			Help: "Total number of responses by status category (2xx, 4xx, 5xx)",
		},
		[]string{"category", "method", "endpoint"},
	)

	DBOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "locarto_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

// Auth metrics
var (
	LoginCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "locarto_auth_logins_total",
			Help: "Total number of login attempts",
		},
		[]string{"role", "result"},
	)

	SignupCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "locarto_auth_signups_total",
			Help: "Total number of account registrations",
		},
		[]string{"role"},
	)

	AuthErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "locarto_auth_errors_total",
			Help: "Total number of authentication errors",
		},
		[]string{"type"}, // missing_token, invalid_token, forbidden_role, revoked_token ...
	)
)

// Marketplace metrics
var (
	OrdersPlacedCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "locarto_orders_placed_total",
			Help: "Total number of orders placed",
		},
	)

	OrderTransitionCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "locarto_order_transitions_total",
			Help: "Total number of order status transitions",
		},
		[]string{"from", "to"},
	)

	PaymentCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "locarto_payments_total",
			Help: "Total number of payment events by status",
		},
		[]string{"status"}, // initiated, complete, rejected
	)

	ReviewCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "locarto_reviews_total",
			Help: "Total number of review operations",
		},
		[]string{"operation"},
	)

	CatalogOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "locarto_catalog_operations_total",
			Help: "Total number of catalog operations",
		},
		[]string{"operation"},
	)

	UpstreamCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "locarto_upstream_requests_total",
			Help: "Total number of calls to external collaborators",
		},
		[]string{"service", "result"},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestCounter)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(StatusCategoryCounter)
	prometheus.MustRegister(DBOperationDuration)

	prometheus.MustRegister(LoginCounter)
	prometheus.MustRegister(SignupCounter)
	prometheus.MustRegister(AuthErrorCounter)

	prometheus.MustRegister(OrdersPlacedCounter)
	prometheus.MustRegister(OrderTransitionCounter)
	prometheus.MustRegister(PaymentCounter)
	prometheus.MustRegister(ReviewCounter)
	prometheus.MustRegister(CatalogOperationCounter)
	prometheus.MustRegister(UpstreamCounter)
}

// GetPrometheusHandler returns an HTTP handler for the Prometheus metrics
func GetPrometheusHandler() http.Handler {
	return promhttp.Handler()
}

// TrackDBOperation measures database operation durations.
// Usage: defer prometheus.TrackDBOperation("insert")(time.Now())
func TrackDBOperation(operation string) func(startTime time.Time) {
	return func(startTime time.Time) {
		DBOperationDuration.WithLabelValues(operation).Observe(time.Since(startTime).Seconds())
	}
}

// RecordStatusCategory counts a response under 2xx, 3xx, 4xx or 5xx
func RecordStatusCategory(status int, method, endpoint string) {
	if status < 200 || status >= 600 {
		return
	}
	category := strconv.Itoa(status/100) + "xx"
	StatusCategoryCounter.WithLabelValues(category, method, endpoint).Inc()
}

func RecordAuthError(errorType string) {
	AuthErrorCounter.With(prometheus.Labels{"type": errorType}).Inc()
}

func RecordLogin(role, result string) {
	LoginCounter.With(prometheus.Labels{"role": role, "result": result}).Inc()
}

func RecordSignup(role string) {
	SignupCounter.With(prometheus.Labels{"role": role}).Inc()
}

func RecordOrderTransition(from, to string) {
	OrderTransitionCounter.With(prometheus.Labels{"from": from, "to": to}).Inc()
}

func RecordPayment(status string) {
	PaymentCounter.With(prometheus.Labels{"status": status}).Inc()
}

func RecordReviewOperation(operation string) {
	ReviewCounter.With(prometheus.Labels{"operation": operation}).Inc()
}

func RecordCatalogOperation(operation string) {
	CatalogOperationCounter.With(prometheus.Labels{"operation": operation}).Inc()
}

func RecordUpstream(service string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	UpstreamCounter.With(prometheus.Labels{"service": service, "result": result}).Inc()
}
