package web

import (
	"net"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "tls_responder"

// Metrics holds the responder collectors in a private registry
type Metrics struct {
	Registry          *prometheus.Registry
	Requests          *prometheus.CounterVec
	Connections       *prometheus.GaugeVec
	HandshakeFailures prometheus.Counter

	// connection -> last reported state label
	states sync.Map
}

// NewMetrics will create and register the responder collectors
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "requests_total",
			Help:      "Requests answered, by method.",
		}, []string{"method"}),
		Connections: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "connections",
			Help:      "Open connections, by state.",
		}, []string{"state"}),
		HandshakeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "handshake_failures_total",
			Help:      "Connections dropped because the TLS handshake failed.",
		}),
	}

	m.Registry.MustRegister(m.Requests, m.Connections, m.HandshakeFailures)
	return m
}

// Middleware counts requests by method
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			m.Requests.WithLabelValues(methodLabel(c.Request().Method)).Inc()
			return next(c)
		}
	}
}

// methodLabel keeps the label set bounded, non-standard methods are counted as "other"
func methodLabel(method string) string {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut, http.MethodPatch,
		http.MethodDelete, http.MethodConnect, http.MethodOptions, http.MethodTrace:
		return method
	}
	return "other"
}

// TrackConnState is an http.Server ConnState hook keeping the connections gauge current
func (m *Metrics) TrackConnState(conn net.Conn, state http.ConnState) {
	var label string

	switch state {
	case http.StateNew:
		label = "handshaking"
	case http.StateActive:
		label = "serving"
	case http.StateIdle:
		label = "idle"
	case http.StateHijacked, http.StateClosed:
		if previous, ok := m.states.LoadAndDelete(conn); ok {
			m.Connections.WithLabelValues(previous.(string)).Dec()
		}
		return
	default:
		return
	}

	if previous, ok := m.states.Swap(conn, label); ok {
		m.Connections.WithLabelValues(previous.(string)).Dec()
	}
	m.Connections.WithLabelValues(label).Inc()
}

// Handler returns the Prometheus exposition handler for the registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
