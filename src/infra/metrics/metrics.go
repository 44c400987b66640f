// Package metrics exposes Prometheus metrics for the database layer, the
// HTTP server and ledger activity. It implements db.Sink.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"fluxocaixa/src/infra/db"
)

// DurationBuckets are the histogram buckets, in seconds, shared by every
// duration metric.
var DurationBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5}

// Metrics holds every collector on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	queriesTotal      *prometheus.CounterVec
	queryDuration     *prometheus.HistogramVec
	connectionsActive prometheus.Gauge

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	transacoesTotal *prometheus.CounterVec
	transacoesValor *prometheus.CounterVec
	saldoAtual      prometheus.Gauge
}

var _ db.Sink = (*Metrics)(nil)

// New creates the collectors and registers them, together with the Go
// runtime and process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		queriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "db_queries_total",
				Help: "Total number of database operations",
			},
			[]string{"operation", "status"},
		),
		queryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "db_query_duration_seconds",
				Help:    "Duration of database operations in seconds",
				Buckets: DurationBuckets,
			},
			[]string{"operation"},
		),
		connectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "db_connections_active",
				Help: "Number of leased database connections",
			},
		),

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status_code"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: DurationBuckets,
			},
			[]string{"method", "route", "status_code"},
		),

		transacoesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fluxocaixa_transacoes_total",
				Help: "Total number of ledger transactions created",
			},
			[]string{"tipo", "status"},
		),
		transacoesValor: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fluxocaixa_transacoes_valor_total",
				Help: "Sum of the amounts of ledger transactions created",
			},
			[]string{"tipo", "status"},
		),
		saldoAtual: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "fluxocaixa_saldo_atual",
				Help: "Current ledger balance",
			},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.queriesTotal,
		m.queryDuration,
		m.connectionsActive,
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.transacoesTotal,
		m.transacoesValor,
		m.saldoAtual,
	)

	return m
}

// RecordOperation implements db.Sink.
func (m *Metrics) RecordOperation(operation string, d time.Duration, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.queriesTotal.WithLabelValues(operation, status).Inc()
	m.queryDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// SetActiveConnections implements db.Sink.
func (m *Metrics) SetActiveConnections(n int) {
	m.connectionsActive.Set(float64(n))
}

// ObservePool exports idle, total and max connection gauges read from stats
// at scrape time.
func (m *Metrics) ObservePool(stats func() db.PoolStats) error {
	gauges := []prometheus.Collector{
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "db_connections_idle",
			Help: "Number of idle database connections",
		}, func() float64 { return float64(stats().Idle) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "db_connections_total",
			Help: "Number of open database connections",
		}, func() float64 { return float64(stats().Total) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "db_connections_max",
			Help: "Maximum number of database connections",
		}, func() float64 { return float64(stats().Max) }),
	}
	for _, g := range gauges {
		if err := m.registry.Register(g); err != nil {
			return err
		}
	}
	return nil
}

// ObserveHTTPRequest records one served request. route must be the route
// pattern, not the raw path.
func (m *Metrics) ObserveHTTPRequest(method, route string, status int, d time.Duration) {
	code := strconv.Itoa(status)
	m.httpRequestsTotal.WithLabelValues(method, route, code).Inc()
	m.httpRequestDuration.WithLabelValues(method, route, code).Observe(d.Seconds())
}

// RecordTransaction counts a created ledger transaction and its amount.
func (m *Metrics) RecordTransaction(tipo, status string, valor decimal.Decimal) {
	m.transacoesTotal.WithLabelValues(tipo, status).Inc()
	if valor.IsPositive() {
		m.transacoesValor.WithLabelValues(tipo, status).Add(valor.InexactFloat64())
	}
}

// SetBalance sets the current ledger balance.
func (m *Metrics) SetBalance(saldo decimal.Decimal) {
	m.saldoAtual.Set(saldo.InexactFloat64())
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
