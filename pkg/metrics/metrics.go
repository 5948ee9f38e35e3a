// Package metrics exposes Prometheus collectors for the sales engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "rxpos"

// Sales holds the business counters. A nil *Sales is valid and records nothing.
type Sales struct {
	Checkouts       *prometheus.CounterVec
	CheckoutSeconds *prometheus.HistogramVec
	Payments        *prometheus.CounterVec
	Refunds         prometheus.Counter
	RefundedAmount  prometheus.Counter
	StockConflicts  prometheus.Counter
	CartsSwept      prometheus.Counter
	OutboxRelayed   *prometheus.CounterVec
}

// NewSales creates and registers the collectors on reg.
// Pass prometheus.NewRegistry() in tests to avoid duplicate registration.
func NewSales(reg prometheus.Registerer) *Sales {
	m := &Sales{
		Checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkouts_total",
			Help:      "Checkout attempts by outcome.",
		}, []string{"type", "outcome"}),
		CheckoutSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "checkout_duration_seconds",
			Help:      "Checkout latency.",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 15},
		}, []string{"outcome"}),
		Payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_total",
			Help:      "Payment dispatches by method and result.",
		}, []string{"method", "result"}),
		Refunds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refunds_total",
			Help:      "Processed refunds.",
		}),
		RefundedAmount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refunded_amount_total",
			Help:      "Sum of refunded money.",
		}),
		StockConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_reservation_conflicts_total",
			Help:      "Conditional stock decrements that lost a race.",
		}),
		CartsSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "carts_expired_total",
			Help:      "Expired carts removed by the sweeper.",
		}),
		OutboxRelayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_relayed_total",
			Help:      "Outbox events relayed to the broker.",
		}, []string{"result"}),
	}
	reg.MustRegister(
		m.Checkouts, m.CheckoutSeconds, m.Payments, m.Refunds,
		m.RefundedAmount, m.StockConflicts, m.CartsSwept, m.OutboxRelayed,
	)
	return m
}

// ObserveCheckout records one checkout attempt.
func (m *Sales) ObserveCheckout(txType, outcome string, started time.Time) {
	if m == nil {
		return
	}
	m.Checkouts.WithLabelValues(txType, outcome).Inc()
	m.CheckoutSeconds.WithLabelValues(outcome).Observe(time.Since(started).Seconds())
}

// ObservePayment records one dispatch result.
func (m *Sales) ObservePayment(method string, success bool) {
	if m == nil {
		return
	}
	m.Payments.WithLabelValues(method, strconv.FormatBool(success)).Inc()
}

// ObserveRefund records a processed refund amount.
func (m *Sales) ObserveRefund(amount float64) {
	if m == nil {
		return
	}
	m.Refunds.Inc()
	m.RefundedAmount.Add(amount)
}

// ObserveStockConflict records a lost conditional decrement.
func (m *Sales) ObserveStockConflict() {
	if m == nil {
		return
	}
	m.StockConflicts.Inc()
}

// ObserveSweep records removed carts.
func (m *Sales) ObserveSweep(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.CartsSwept.Add(float64(n))
}

// ObserveRelay records relayed outbox events.
func (m *Sales) ObserveRelay(n int, ok bool) {
	if m == nil || n <= 0 {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.OutboxRelayed.WithLabelValues(result).Add(float64(n))
}

// ServerMetrics counts HTTP requests.
type ServerMetrics struct {
	Requests *prometheus.CounterVec
	Latency  *prometheus.HistogramVec
}

// NewServerMetrics creates and registers HTTP collectors on reg.
func NewServerMetrics(reg prometheus.Registerer) *ServerMetrics {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"route", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"})

	reg.MustRegister(requests, latency)
	return &ServerMetrics{Requests: requests, Latency: latency}
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
