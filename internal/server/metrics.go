package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	requests    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	sessions    prometheus.Counter
	sessionKcal prometheus.Histogram
	unpersisted prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kcalplanner",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "kcalplanner",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		sessions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kcalplanner",
			Subsystem: "planner",
			Name:      "sessions_recorded_total",
			Help:      "Workout sessions recorded through the API.",
		}),
		sessionKcal: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "kcalplanner",
			Subsystem: "planner",
			Name:      "session_kcal",
			Help:      "Estimated calories per recorded session.",
			Buckets:   []float64{50, 100, 200, 300, 500, 750, 1000},
		}),
		unpersisted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kcalplanner",
			Subsystem: "storage",
			Name:      "unpersisted_writes_total",
			Help:      "Changes kept in memory after the append to disk failed.",
		}),
	}
	reg.MustRegister(m.requests, m.duration, m.sessions, m.sessionKcal, m.unpersisted)
	return m
}

// instrument counts requests by their chi route pattern so user IDs don't
// blow up label cardinality.
func (m *metrics) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(sw.status)).Inc()
		m.duration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
