package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Bracket metrics
	bracketsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bracket_bot_brackets_total",
			Help: "Brackets processed, by terminal outcome",
		},
		[]string{"symbol", "direction", "outcome"},
	)

	legFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bracket_bot_protective_leg_failures_total",
			Help: "Protective legs that could not be placed after a filled entry",
		},
		[]string{"symbol", "leg"},
	)

	sizedQuantity = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bracket_bot_sized_quantity",
			Help: "Quantity of the most recent entry per symbol",
		},
		[]string{"symbol"},
	)

	positionsClosedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bracket_bot_positions_closed_total",
			Help: "Positions flattened before entry or by CLOSE signals",
		},
		[]string{"symbol"},
	)

	// Venue metrics
	venueCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bracket_bot_venue_calls_total",
			Help: "Venue API calls by operation and outcome",
		},
		[]string{"venue", "operation", "outcome"},
	)

	venueCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bracket_bot_venue_call_duration_seconds",
			Help:    "Latency of venue API calls including retries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"venue", "operation"},
	)

	currentPrice = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bracket_bot_current_price",
			Help: "Last price fetched per symbol",
		},
		[]string{"symbol"},
	)

	// Webhook metrics
	webhookRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bracket_bot_webhook_requests_total",
			Help: "Webhook requests by HTTP status",
		},
		[]string{"status"},
	)

	// Error metrics
	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bracket_bot_errors_total",
			Help: "Total number of errors by kind",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(bracketsTotal)
	prometheus.MustRegister(legFailuresTotal)
	prometheus.MustRegister(sizedQuantity)
	prometheus.MustRegister(positionsClosedTotal)
	prometheus.MustRegister(venueCallsTotal)
	prometheus.MustRegister(venueCallDuration)
	prometheus.MustRegister(currentPrice)
	prometheus.MustRegister(webhookRequestsTotal)
	prometheus.MustRegister(errorsTotal)
}

// MetricsHandler handles Prometheus metrics endpoint
type MetricsHandler struct {
	next http.Handler
}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{next: promhttp.Handler()}
}

// ServeHTTP serves the Prometheus metrics endpoint
func (m *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.next.ServeHTTP(w, r)
}

// RecordBracket records the terminal outcome of one bracket
func RecordBracket(symbol, direction, outcome string) {
	bracketsTotal.WithLabelValues(symbol, direction, outcome).Inc()
}

// RecordLegFailure records a protective leg that failed to place
func RecordLegFailure(symbol, leg string) {
	legFailuresTotal.WithLabelValues(symbol, leg).Inc()
}

// RecordEntry records the size of a submitted entry
func RecordEntry(symbol string, quantity float64) {
	sizedQuantity.WithLabelValues(symbol).Set(quantity)
}

// RecordPositionsClosed records flattened positions
func RecordPositionsClosed(symbol string, count int) {
	if count > 0 {
		positionsClosedTotal.WithLabelValues(symbol).Add(float64(count))
	}
}

// ObserveVenueCall records one guarded venue call
func ObserveVenueCall(venue, operation string, err error, elapsed time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	venueCallsTotal.WithLabelValues(venue, operation, outcome).Inc()
	venueCallDuration.WithLabelValues(venue, operation).Observe(elapsed.Seconds())
}

// UpdatePrice updates the current price metric
func UpdatePrice(symbol string, price float64) {
	currentPrice.WithLabelValues(symbol).Set(price)
}

// RecordWebhook records a webhook response status
func RecordWebhook(status string) {
	webhookRequestsTotal.WithLabelValues(status).Inc()
}

// RecordError records an error metric
func RecordError(kind string) {
	errorsTotal.WithLabelValues(kind).Inc()
}
