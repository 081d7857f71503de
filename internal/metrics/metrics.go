// Package metrics holds the gateway's prometheus collectors
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry is the dedicated registry served on /metrics
	Registry = prometheus.NewRegistry()

	// HTTPRequests counts requests by route and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "gateway_http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "route", "status"},
	)
	// HTTPDuration records request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "gateway_http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "route"},
	)

	// WebhooksIssued counts credentials issued, by result (ok, limit, error)
	WebhooksIssued = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "gateway_webhooks_issued_total", Help: "Webhook issuance attempts by result."},
		[]string{"result"},
	)
	// WebhooksRevoked counts revocations
	WebhooksRevoked = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "gateway_webhooks_revoked_total", Help: "Webhooks revoked."},
	)
	// WebhookRequests counts inbound webhook calls by outcome
	WebhookRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "gateway_webhook_requests_total", Help: "Inbound webhook requests by outcome."},
		[]string{"outcome"},
	)
	// Deliveries counts messages sent into conversations, by source and result
	Deliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "gateway_deliveries_total", Help: "Outbound deliveries by source and result."},
		[]string{"source", "result"},
	)
	// DeliveryQueueDepth is the number of background deliveries waiting for a worker
	DeliveryQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "gateway_delivery_queue_depth", Help: "Background deliveries waiting for a worker."},
	)
	// KeyFetches counts signing key set fetches by result
	KeyFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "gateway_signing_key_fetches_total", Help: "Signing key set fetches by result."},
		[]string{"result"},
	)
	// TokenExchanges counts client-credentials exchanges by result
	TokenExchanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "gateway_token_exchanges_total", Help: "Outbound token exchanges by result."},
		[]string{"result"},
	)
)

var regOnce sync.Once

// RegisterDefault registers all collectors on Registry. Safe to call more than once.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(
			HTTPRequests,
			HTTPDuration,
			WebhooksIssued,
			WebhooksRevoked,
			WebhookRequests,
			Deliveries,
			DeliveryQueueDepth,
			KeyFetches,
			TokenExchanges,
		)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

// Handler serves the exposition format for Registry
func Handler() http.Handler {
	RegisterDefault()
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Result maps an error to the result label used across counters
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
