package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns its registry so several servers can live in one process (tests).
type Metrics struct {
	registry         *prometheus.Registry
	Requests         *prometheus.CounterVec
	Logins           *prometheus.CounterVec
	BestEffortFailed *prometheus.CounterVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roster",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern, method and status code.",
		}, []string{"route", "method", "status"}),
		Logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roster",
			Name:      "logins_total",
			Help:      "Login attempts by outcome and credential scheme.",
		}, []string{"outcome", "scheme"}),
		BestEffortFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roster",
			Name:      "best_effort_failures_total",
			Help:      "Secondary writes that failed without failing the request.",
		}, []string{"operation"}),
	}
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Requests,
		m.Logins,
		m.BestEffortFailed,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Login(outcome, scheme string) {
	if m == nil {
		return
	}
	m.Logins.WithLabelValues(outcome, scheme).Inc()
}

func (m *Metrics) BestEffortFailure(operation string) {
	if m == nil {
		return
	}
	m.BestEffortFailed.WithLabelValues(operation).Inc()
}
