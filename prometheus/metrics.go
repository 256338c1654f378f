package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"pos-service/pkg/config"
)

var (
	// HTTP request metrics
	HttpRequestsTotal   prometheus.CounterVec
	HttpRequestDuration prometheus.HistogramVec

	// Authentication metrics
	LoginCounter      prometheus.Counter
	RegisterCounter   prometheus.Counter
	AuthErrorsCounter prometheus.CounterVec

	// Database operation metrics
	DbOperationDuration prometheus.HistogramVec

	// Entity operation metrics
	CategoryOperationsCounter    prometheus.CounterVec
	ProductOperationsCounter     prometheus.CounterVec
	CashierOperationsCounter     prometheus.CounterVec
	TransactionOperationsCounter prometheus.CounterVec

	// Analytics metrics
	AnalyticsQueriesCounter prometheus.CounterVec

	// Chat metrics
	ChatIntentCounter prometheus.CounterVec
)

// InitMetrics initializes Prometheus metrics with configuration
func InitMetrics(cfg *config.Config) {
	prefix := cfg.Metrics.Prefix

	HttpRequestsTotal = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HttpRequestDuration = *promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	LoginCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_login_attempts_total",
			Help: "Total number of login attempts",
		},
	)

	RegisterCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_register_attempts_total",
			Help: "Total number of registration attempts",
		},
	)

	AuthErrorsCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_auth_errors_total",
			Help: "Total number of authentication errors",
		},
		[]string{"reason"},
	)

	DbOperationDuration = *promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation_type"},
	)

	CategoryOperationsCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_category_operations_total",
			Help: "Total number of category operations",
		},
		[]string{"operation"},
	)

	ProductOperationsCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_product_operations_total",
			Help: "Total number of product operations",
		},
		[]string{"operation"},
	)

	CashierOperationsCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_cashier_operations_total",
			Help: "Total number of cashier operations",
		},
		[]string{"operation"},
	)

	TransactionOperationsCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_transaction_operations_total",
			Help: "Total number of transaction operations",
		},
		[]string{"operation"},
	)

	AnalyticsQueriesCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_analytics_queries_total",
			Help: "Total number of analytics queries",
		},
		[]string{"query"},
	)

	ChatIntentCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_chat_intents_total",
			Help: "Total number of chat questions by detected intent",
		},
		[]string{"intent"},
	)
}

// TrackDBOperation returns a function that records the duration of a database operation
func TrackDBOperation(operationType string) func(startTime time.Time) {
	return func(startTime time.Time) {
		duration := time.Since(startTime).Seconds()
		DbOperationDuration.WithLabelValues(operationType).Observe(duration)
	}
}

// RecordAuthError increments the counter for authentication errors
func RecordAuthError(reason string) {
	AuthErrorsCounter.WithLabelValues(reason).Inc()
}

// RecordCategoryOperation increments the counter for category operations
func RecordCategoryOperation(operation string) {
	CategoryOperationsCounter.WithLabelValues(operation).Inc()
}

// RecordProductOperation increments the counter for product operations
func RecordProductOperation(operation string) {
	ProductOperationsCounter.WithLabelValues(operation).Inc()
}

// RecordCashierOperation increments the counter for cashier operations
func RecordCashierOperation(operation string) {
	CashierOperationsCounter.WithLabelValues(operation).Inc()
}

// RecordTransactionOperation increments the counter for transaction operations
func RecordTransactionOperation(operation string) {
	TransactionOperationsCounter.WithLabelValues(operation).Inc()
}

// RecordAnalyticsQuery increments the counter for analytics queries
func RecordAnalyticsQuery(query string) {
	AnalyticsQueriesCounter.WithLabelValues(query).Inc()
}

// RecordChatIntent increments the counter for detected chat intents
func RecordChatIntent(intent string) {
	ChatIntentCounter.WithLabelValues(intent).Inc()
}
