package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mealcart"

// Metrics holds the collectors for the grocery engine and the HTTP layer.
// Each instance owns its registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	listsGenerated     *prometheus.CounterVec
	generationFailures *prometheus.CounterVec
	generationDuration prometheus.Histogram
	itemToggles        *prometheus.CounterVec
	skippedLines       prometheus.Counter
	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
	wsClients          prometheus.Gauge
	backups            *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		listsGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "grocery",
			Name:      "lists_generated_total",
			Help:      "Grocery lists generated, by whether a new list was created.",
		}, []string{"result"}),

		generationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "grocery",
			Name:      "generation_failures_total",
			Help:      "Failed grocery list generations by reason.",
		}, []string{"reason"}),

		generationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "grocery",
			Name:      "generation_duration_seconds",
			Help:      "Time spent generating and persisting a grocery list.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),

		itemToggles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "grocery",
			Name:      "item_toggles_total",
			Help:      "Item checked toggles by outcome.",
		}, []string{"outcome"}),

		skippedLines: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "grocery",
			Name:      "skipped_ingredient_lines_total",
			Help:      "Malformed ingredient lines left out of generated lists.",
		}),

		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),

		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),

		wsClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "clients",
			Help:      "Connected websocket clients.",
		}),

		backups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backup",
			Name:      "runs_total",
			Help:      "Database backups by result.",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		m.listsGenerated,
		m.generationFailures,
		m.generationDuration,
		m.itemToggles,
		m.skippedLines,
		m.httpRequests,
		m.httpDuration,
		m.wsClients,
		m.backups,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ListGenerated(created bool, elapsed time.Duration) {
	result := "updated"
	if created {
		result = "created"
	}
	m.listsGenerated.WithLabelValues(result).Inc()
	m.generationDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) GenerationFailed(reason string) {
	m.generationFailures.WithLabelValues(reason).Inc()
}

func (m *Metrics) ItemToggled(outcome string) {
	m.itemToggles.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IngredientsSkipped(n int) {
	m.skippedLines.Add(float64(n))
}

// ObserveRequest records one served HTTP request. route is the mux pattern,
// not the raw path, to keep label cardinality bounded.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) ClientConnected()    { m.wsClients.Inc() }
func (m *Metrics) ClientDisconnected() { m.wsClients.Dec() }

func (m *Metrics) BackupFinished(err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.backups.WithLabelValues(result).Inc()
}
