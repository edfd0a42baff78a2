// Package metrics exposes audit run and HTTP metrics to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/niksmo/catalog-audit/internal/core/domain"
	"github.com/niksmo/catalog-audit/internal/core/port"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var _ port.RunObserver = (*Metrics)(nil)

const namespace = "catalog_audit"

type Metrics struct {
	reg prometheus.Gatherer

	RunsTotal          *prometheus.CounterVec
	RunDuration        prometheus.Histogram
	ProductsScanned    prometheus.Gauge
	ProductsWithIssues prometheus.Gauge
	Issues             *prometheus.GaugeVec
	LastRunTimestamp   prometheus.Gauge
	MailsTotal         *prometheus.CounterVec
	HTTPRequestsTotal  *prometheus.CounterVec
}

// New registers every metric on reg. A nil reg gets a private registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	m := &Metrics{reg: reg}

	m.RunsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "runs_total",
		Help:      "Audit runs by final status",
	}, []string{"status"})

	m.RunDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "run_duration_seconds",
		Help:      "Duration of an audit run, fetch included",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
	})

	m.ProductsScanned = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "products_scanned",
		Help:      "Products evaluated by the last run",
	})

	m.ProductsWithIssues = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "products_with_issues",
		Help:      "Products with at least one issue in the last run",
	})

	m.Issues = factory.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "issues",
		Help:      "Issues found by the last run per category",
	}, []string{"category"})

	m.LastRunTimestamp = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_run_timestamp_seconds",
		Help:      "Finish time of the last run",
	})

	m.MailsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "mails_total",
		Help:      "Report mails by result",
	}, []string{"result"})

	m.HTTPRequestsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by status code and method",
	}, []string{"code", "method"})

	return m
}

// ObserveRun records a finished run. Gauges keep their previous values
// when the run failed, so dashboards show the last known catalog state.
func (m *Metrics) ObserveRun(r domain.Report, elapsed time.Duration) {
	m.RunsTotal.WithLabelValues(string(r.Status)).Inc()
	m.RunDuration.Observe(elapsed.Seconds())
	m.LastRunTimestamp.Set(float64(r.FinishedAt.Unix()))

	if r.Failed() {
		return
	}

	m.ProductsScanned.Set(float64(r.Scanned))
	m.ProductsWithIssues.Set(float64(r.ProductsWithIssues()))
	for _, c := range r.Summary() {
		m.Issues.WithLabelValues(string(c.Category)).Set(float64(c.Count))
	}
}

func (m *Metrics) ObserveMail(err error) {
	result := "sent"
	if err != nil {
		result = "failed"
	}
	m.MailsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Instrument counts requests served by next.
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	return promhttp.InstrumentHandlerCounter(m.HTTPRequestsTotal, next)
}
