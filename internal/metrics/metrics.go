// Package metrics exposes the service's Prometheus instruments.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "storefront"

// AppMetrics holds all application metrics.
type AppMetrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	BackendRequestErrors *prometheus.CounterVec

	CheckoutTransitions  *prometheus.CounterVec
	PaymentSessionsTotal *prometheus.CounterVec
	CouponVerifications  *prometheus.CounterVec

	OptimisticReloads *prometheus.CounterVec

	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter
}

// New registers every instrument on a fresh registry together with the Go
// and process collectors.
func New() *AppMetrics {
	reg := prometheus.NewRegistry()
	m := &AppMetrics{
		registry: reg,
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served, by method, route and status code.",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		BackendRequestErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_errors_total",
			Help:      "Failed backend calls by operation and kind (transport, upstream, malformed).",
		}, []string{"operation", "kind"}),
		CheckoutTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_transitions_total",
			Help:      "Checkout attempt state transitions by target state.",
		}, []string{"state"}),
		PaymentSessionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_sessions_total",
			Help:      "Hosted checkout launches, split into created and reused sessions.",
		}, []string{"outcome"}),
		CouponVerifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coupon_verifications_total",
			Help:      "Coupon verification results.",
		}, []string{"result"}),
		OptimisticReloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "optimistic_reloads_total",
			Help:      "Views reloaded after a failed optimistic mutation.",
		}, []string{"operation"}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_cache_hits_total",
			Help:      "Catalog cache hits.",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_cache_misses_total",
			Help:      "Catalog cache misses.",
		}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.BackendRequestErrors,
		m.CheckoutTransitions,
		m.PaymentSessionsTotal,
		m.CouponVerifications,
		m.OptimisticReloads,
		m.CacheHits,
		m.CacheMisses,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *AppMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *AppMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveCache records a catalog cache lookup.
func (m *AppMetrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHits.Inc()
		return
	}
	m.CacheMisses.Inc()
}

// CheckoutTransition counts an attempt entering state.
func (m *AppMetrics) CheckoutTransition(state string) {
	if m == nil {
		return
	}
	m.CheckoutTransitions.WithLabelValues(state).Inc()
}

// PaymentSession counts a hosted checkout launch ("created" or "reused").
func (m *AppMetrics) PaymentSession(outcome string) {
	if m == nil {
		return
	}
	m.PaymentSessionsTotal.WithLabelValues(outcome).Inc()
}

// Coupon counts a coupon verification ("valid", "invalid", "error").
func (m *AppMetrics) Coupon(result string) {
	if m == nil {
		return
	}
	m.CouponVerifications.WithLabelValues(result).Inc()
}

// Reload counts a view reloaded after a failed optimistic mutation.
func (m *AppMetrics) Reload(operation string) {
	if m == nil {
		return
	}
	m.OptimisticReloads.WithLabelValues(operation).Inc()
}

// BackendError counts a failed backend call.
func (m *AppMetrics) BackendError(operation, kind string) {
	if m == nil {
		return
	}
	m.BackendRequestErrors.WithLabelValues(operation, kind).Inc()
}

// ObserveRequest records a served HTTP request.
func (m *AppMetrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
