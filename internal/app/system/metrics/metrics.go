// internal/app/system/metrics/metrics.go
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the portal's collectors. Each process (and each test) gets
// its own so duplicate registration never panics.
type Registry struct {
	reg *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
	upstream     *prometheus.CounterVec
	mailSent     *prometheus.CounterVec
	notified     prometheus.Counter
}

// New registers the HTTP, market-data, mail and notification collectors plus
// the Go runtime and process collectors.
func New() *Registry {
	reg := prometheus.NewRegistry()
	m := &Registry{
		reg: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fiiportal",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern, method and status.",
		}, []string{"route", "method", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "fiiportal",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		upstream: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fiiportal",
			Name:      "market_upstream_requests_total",
			Help:      "Market-data upstream calls by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		mailSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fiiportal",
			Name:      "mail_sent_total",
			Help:      "Emails handed to the mail provider by outcome.",
		}, []string{"outcome"}),
		notified: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fiiportal",
			Name:      "notifications_created_total",
			Help:      "In-app notifications written.",
		}),
	}
	reg.MustRegister(
		m.httpRequests, m.httpLatency, m.upstream, m.mailSent, m.notified,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Gatherer exposes the registry to tests.
func (m *Registry) Gatherer() prometheus.Gatherer { return m.reg }

// Middleware records request count and latency keyed by the chi route
// pattern, so path parameters don't explode label cardinality.
func (m *Registry) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.httpRequests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		m.httpLatency.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

// Upstream counts one market-data call. outcome is "ok", "error" or
// "status_4xx"/"status_5xx".
func (m *Registry) Upstream(endpoint, outcome string) {
	if m == nil {
		return
	}
	m.upstream.WithLabelValues(endpoint, outcome).Inc()
}

// MailSent counts one email send attempt.
func (m *Registry) MailSent(ok bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	m.mailSent.WithLabelValues(outcome).Inc()
}

// Notified counts n newly written notifications.
func (m *Registry) Notified(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.notified.Add(float64(n))
}
